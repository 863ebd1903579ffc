// Package telemetry provides OpenTelemetry metrics for the board
// client. Disabled by default (no-op providers, zero overhead).
//
// # Configuration
//
//	BDBOARD_OTEL_ENABLED=true   enable metrics (default: off)
//	BDBOARD_OTEL_STDOUT=true    print metrics to stderr on shutdown
package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const instrumentationScope = "github.com/steveyegge/bdboard"

var (
	initOnce    sync.Once
	shutdownFn  func(context.Context) error
	invocations metric.Int64Counter
	transitions metric.Int64Counter
	cacheEvents metric.Int64Counter
)

// Enabled reports whether telemetry is active.
func Enabled() bool {
	return os.Getenv("BDBOARD_OTEL_ENABLED") == "true"
}

// Init configures the meter provider. When telemetry is disabled this
// installs a no-op provider; counters still exist but record nothing.
func Init(ctx context.Context, version string) error {
	var initErr error
	initOnce.Do(func() {
		if !Enabled() {
			otel.SetMeterProvider(metricnoop.NewMeterProvider())
			initErr = buildInstruments()
			return
		}

		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String("bdboard"),
				semconv.ServiceVersionKey.String(version),
			),
		)
		if err != nil {
			initErr = fmt.Errorf("telemetry: resource: %w", err)
			return
		}

		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			initErr = fmt.Errorf("telemetry: exporter: %w", err)
			return
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp,
				sdkmetric.WithInterval(30*time.Second))),
		)
		otel.SetMeterProvider(mp)
		shutdownFn = mp.Shutdown
		initErr = buildInstruments()
	})
	return initErr
}

func buildInstruments() error {
	meter := otel.Meter(instrumentationScope)
	var err error
	if invocations, err = meter.Int64Counter("bdboard.exec.invocations",
		metric.WithDescription("bd CLI invocations by verb and outcome")); err != nil {
		return err
	}
	if transitions, err = meter.Int64Counter("bdboard.breaker.transitions",
		metric.WithDescription("circuit breaker state transitions")); err != nil {
		return err
	}
	if cacheEvents, err = meter.Int64Counter("bdboard.cache.events",
		metric.WithDescription("column cache hits, misses and invalidations")); err != nil {
		return err
	}
	return nil
}

// Shutdown flushes any pending metrics.
func Shutdown(ctx context.Context) error {
	if shutdownFn == nil {
		return nil
	}
	return shutdownFn(ctx)
}

// RecordInvocation counts one bd invocation.
func RecordInvocation(ctx context.Context, verb, outcome string) {
	if invocations == nil {
		return
	}
	invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verb", verb),
		attribute.String("outcome", outcome),
	))
}

// RecordBreakerTransition counts one circuit state change.
func RecordBreakerTransition(ctx context.Context, from, to string) {
	if transitions == nil {
		return
	}
	transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordCacheEvent counts one cache hit, miss or invalidation.
func RecordCacheEvent(ctx context.Context, kind string) {
	if cacheEvents == nil {
		return
	}
	cacheEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", kind)))
}
