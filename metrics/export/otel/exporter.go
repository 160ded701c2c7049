package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/carnet-digital/carnet"
	"github.com/carnet-digital/carnet/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter observes; [carnet.Engine] implements it.
type Source interface {
	MetricsSnapshot() carnet.MetricsSnapshot
	AuditDropped() uint64
}

// reading is one instrument plus how to pull its value out of a snapshot.
type reading struct {
	ins  metric.Int64Observable
	read func(snap carnet.MetricsSnapshot, dropped uint64) int64
}

// Exporter keeps the callback registration alive until [Exporter.Close].
type Exporter struct {
	registration metric.Registration
}

// NewExporter registers the engine instruments on meter.
func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var readings []reading
	counter := func(name, help string, read func(carnet.MetricsSnapshot, uint64) int64) error {
		ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("counter %s: %w", name, err)
		}
		readings = append(readings, reading{ins: ins, read: read})
		return nil
	}
	gauge := func(name, help string, read func(carnet.MetricsSnapshot, uint64) int64) error {
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("gauge %s: %w", name, err)
		}
		readings = append(readings, reading{ins: ins, read: read})
		return nil
	}

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := counter(def.Name, def.Help, func(s carnet.MetricsSnapshot, _ uint64) int64 {
			return int64(s.Counters[id])
		}); err != nil {
			return nil, err
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		cumulative := func(s carnet.MetricsSnapshot) [8]uint64 {
			return internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(s.Histograms[id]))
		}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			if err := gauge(def.Name+"_bucket_le_"+suffix, "Cumulative histogram bucket count.", func(s carnet.MetricsSnapshot, _ uint64) int64 {
				return int64(cumulative(s)[i])
			}); err != nil {
				return nil, err
			}
		}
		if err := gauge(def.Name+"_count", "Histogram total sample count.", func(s carnet.MetricsSnapshot, _ uint64) int64 {
			b := cumulative(s)
			return int64(b[len(b)-1])
		}); err != nil {
			return nil, err
		}
	}

	if err := counter(internaldefs.AuditDroppedName, "Bitacora events dropped under dispatcher backpressure.", func(_ carnet.MetricsSnapshot, dropped uint64) int64 {
		return int64(dropped)
	}); err != nil {
		return nil, err
	}

	instruments := make([]metric.Observable, len(readings))
	for i, r := range readings {
		instruments[i] = r.ins
	}
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap, dropped := source.MetricsSnapshot(), source.AuditDropped()
		for _, r := range readings {
			o.ObserveInt64(r.ins, r.read(snap, dropped))
		}
		return nil
	}, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &Exporter{registration: reg}, nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
