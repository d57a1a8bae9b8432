package main

import (
	"NYCU-SDC/job-dispatch-service/internal/activity"
	"NYCU-SDC/job-dispatch-service/internal/adapter/cmdb"
	"NYCU-SDC/job-dispatch-service/internal/adapter/discord"
	"NYCU-SDC/job-dispatch-service/internal/adapter/esb"
	"NYCU-SDC/job-dispatch-service/internal/adapter/infisical"
	"NYCU-SDC/job-dispatch-service/internal/adapter/job"
	"NYCU-SDC/job-dispatch-service/internal/callback"
	"NYCU-SDC/job-dispatch-service/internal/config"
	"NYCU-SDC/job-dispatch-service/internal/link"
	"NYCU-SDC/job-dispatch-service/internal/logger"
	"NYCU-SDC/job-dispatch-service/internal/metrics"
	"NYCU-SDC/job-dispatch-service/internal/resolver"
	"NYCU-SDC/job-dispatch-service/internal/tracing"
	"NYCU-SDC/job-dispatch-service/internal/workflow"
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

var (
	AppName    = "job-dispatch-service-worker"
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logger.Format, cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting job dispatch service worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
	)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	infisicalClient := infisical.NewClient(cfg.Infisical.BaseURL, cfg.Infisical.ServiceToken, zapLogger)
	if err := cfg.LoadSecrets(startupCtx, infisicalClient); err != nil {
		zapLogger.Fatal("Failed to load secrets", zap.Error(err))
	}

	if err := cfg.ValidateWorker(); err != nil {
		zapLogger.Fatal("Config validation failed", zap.Error(err))
	}

	shutdown, err := tracing.Init(startupCtx, cfg.OTEL.CollectorURL, tracing.BuildInfo{
		AppName:    AppName,
		Version:    Version,
		BuildTime:  BuildTime,
		CommitHash: CommitHash,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			zapLogger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	metrics.Init(prometheus.DefaultRegisterer)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.MetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	defer metricsSrv.Close()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.NewZapLoggerAdapter(zapLogger),
	})
	if err != nil {
		zapLogger.Fatal("Failed to create Temporal client", zap.Error(err))
	}
	defer temporalClient.Close()

	codec, err := callback.NewCodec(cfg.Callback.Key)
	if err != nil {
		zapLogger.Fatal("Failed to create callback codec", zap.Error(err))
	}

	// Create adapters
	esbClient := esb.NewClient(cfg.CMDB.BaseURL, cfg.CMDB.AppCode, cfg.CMDB.AppSecret, zapLogger)
	cmdbClient := cmdb.NewClient(esbClient, cfg.CMDB, zapLogger)
	jobClient := job.NewClient(esbClient, cfg.Job, zapLogger)
	discordClient := discord.NewClient(cfg.Discord.WebhookURL, zapLogger)

	ipResolver := resolver.NewIPResolver(cmdbClient, cmdbClient, zapLogger)
	moduleLookup := resolver.NewModuleLookup(cmdbClient, zapLogger)
	links := link.NewBuilder(cfg.Job.Host, cfg.Nodeman.Host, cfg.Callback.InnerHost, codec)

	// Create activities
	hostActivity := activity.NewHostActivity(ipResolver, moduleLookup, zapLogger)
	jobActivity := activity.NewJobActivity(jobClient, links, zapLogger)
	notifyActivity := activity.NewNotifyActivity(discordClient)

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflow.JobDispatchWorkflow)

	w.RegisterActivity(hostActivity)
	w.RegisterActivity(jobActivity)
	w.RegisterActivity(notifyActivity)

	zapLogger.Info("Worker registered, starting...", zap.String("task_queue", cfg.Temporal.TaskQueue))

	if err := w.Run(worker.InterruptCh()); err != nil {
		zapLogger.Fatal("Worker failed", zap.Error(err))
	}

	zapLogger.Info("Worker stopped")
}
