package commands

import (
	"context"
	"time"

	"github.com/carnet-digital/carnet/metrics/export/otel"
	"github.com/sirupsen/logrus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const otelCollectInterval = time.Minute

// startOTel registers the engine instruments on an SDK meter provider backed by
// a manual reader and logs a collection every minute.
func startOTel(ctx context.Context, source otel.Source, logger logrus.FieldLogger) (func(), error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exp, err := otel.NewExporter(provider.Meter("github.com/carnet-digital/carnet"), source)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(otelCollectInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fields, err := collectSums(ctx, reader)
				if err != nil {
					logger.WithError(err).Warn("otel collection failed")
					continue
				}
				logger.WithFields(fields).Info("otel metrics")
			}
		}
	}()

	return func() {
		cancel()
		<-done
		_ = exp.Close()
		_ = provider.Shutdown(context.Background())
	}, nil
}

// collectSums flattens every int64 sum into name/value fields.
func collectSums(ctx context.Context, reader sdkmetric.Reader) (logrus.Fields, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	fields := logrus.Fields{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			fields[m.Name] = total
		}
	}
	return fields, nil
}
