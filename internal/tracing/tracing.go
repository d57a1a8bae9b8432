package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	AppName    string
	Version    string
	BuildTime  string
	CommitHash string
}

// Init installs a global tracer provider exporting to collectorURL over OTLP
// gRPC and returns its shutdown func. An empty collectorURL disables tracing.
func Init(ctx context.Context, collectorURL string, info BuildInfo, logger *zap.Logger) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if collectorURL == "" {
		logger.Info("OpenTelemetry collector URL not configured, tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(info.AppName),
			semconv.ServiceVersionKey.String(info.Version),
			attribute.String("service.commit_hash", info.CommitHash),
			attribute.String("service.build_time", info.BuildTime),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	conn, err := grpc.NewClient(collectorURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tracerProvider)

	logger.Info("OpenTelemetry tracing enabled", zap.String("collector_url", collectorURL))

	return func(ctx context.Context) error {
		err := tracerProvider.Shutdown(ctx)
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		return err
	}, nil
}
