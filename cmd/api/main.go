package main

import (
	"NYCU-SDC/job-dispatch-service/internal/adapter/cmdb"
	"NYCU-SDC/job-dispatch-service/internal/adapter/esb"
	"NYCU-SDC/job-dispatch-service/internal/adapter/infisical"
	"NYCU-SDC/job-dispatch-service/internal/callback"
	"NYCU-SDC/job-dispatch-service/internal/config"
	"NYCU-SDC/job-dispatch-service/internal/handler"
	"NYCU-SDC/job-dispatch-service/internal/link"
	"NYCU-SDC/job-dispatch-service/internal/logger"
	"NYCU-SDC/job-dispatch-service/internal/metrics"
	"NYCU-SDC/job-dispatch-service/internal/middleware"
	"NYCU-SDC/job-dispatch-service/internal/resolver"
	"NYCU-SDC/job-dispatch-service/internal/tracing"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

var (
	AppName    = "job-dispatch-service"
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

	zapLogger.Info("Starting job dispatch service API",
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

	if err := cfg.ValidateAPI(); err != nil {
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

	esbClient := esb.NewClient(cfg.CMDB.BaseURL, cfg.CMDB.AppCode, cfg.CMDB.AppSecret, zapLogger)
	cmdbClient := cmdb.NewClient(esbClient, cfg.CMDB, zapLogger)
	ipResolver := resolver.NewIPResolver(cmdbClient, cmdbClient, zapLogger)
	links := link.NewBuilder(cfg.Job.Host, cfg.Nodeman.Host, cfg.Callback.InnerHost, codec)

	validate := validator.New()

	hostHandler := handler.NewHostHandler(ipResolver, validate, zapLogger)
	dispatchHandler := handler.NewDispatchHandler(temporalClient, validate, cfg.Temporal.TaskQueue, cfg.Callback.Timeout, zapLogger)
	linkHandler := handler.NewLinkHandler(links, zapLogger)
	callbackHandler := handler.NewCallbackHandler(temporalClient, codec, zapLogger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.APIToken, zapLogger)
	traceMiddleware := middleware.NewTraceMiddleware(zapLogger)

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return traceMiddleware.Middleware(authMiddleware.Middleware(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/hosts/resolve", protected(hostHandler.HandleResolve))
	mux.HandleFunc("POST /api/v1/hosts/difference", protected(hostHandler.HandleDifference))
	mux.HandleFunc("POST /api/v1/jobs/dispatch", protected(dispatchHandler.HandleDispatch))
	mux.HandleFunc("GET /api/v1/links/job/{id}", protected(linkHandler.HandleJobLink))
	mux.HandleFunc("GET /api/v1/links/nodeman/{instance}/hosts/{host}", protected(linkHandler.HandleNodemanLink))

	// The job platform cannot send our API token; the encrypted path token
	// authenticates the caller instead.
	mux.HandleFunc("POST /taskflow/api/nodes/callback/{token}/", traceMiddleware.Middleware(callbackHandler.HandleNodeCallback))

	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server",
			zap.String("host", cfg.Server.Host),
			zap.String("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	zapLogger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server stopped")
}
