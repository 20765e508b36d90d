package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/version"
)

type Telemetry struct {
	ctx      context.Context
	provider *sdkmetric.MeterProvider
}

// SetupTelemetry installs a global meter provider. Metrics are exported via
// OTLP/gRPC to TelemetryEndpoint or, if TelemetryStdout is set, printed to
// stdout.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", "trainrace"),
			attribute.String("service.version", version.Version),
		))
	if err != nil {
		return nil, err
	}
	exporter, interval, err := newExporter(ctx)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)
	return &Telemetry{ctx: ctx, provider: provider}, nil
}

func newExporter(ctx context.Context) (sdkmetric.Exporter, time.Duration, error) {
	if TelemetryStdout {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		return exp, 10 * time.Second, err
	}
	if TelemetryEndpoint == "" {
		return nil, 0, errors.New("telemetry endpoint is not set")
	}
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
		otlpmetricgrpc.WithInsecure())
	return exp, 5 * time.Second, err
}

// Shutdown flushes pending metrics and stops the exporter.
func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), 5*time.Second)
	defer cancel()
	if err := t.provider.Shutdown(ctx); err != nil {
		log.Warn("telemetry shutdown failed", log.ErrorField(err))
	}
}
