package prometheus

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/carnet-digital/carnet"
	"github.com/carnet-digital/carnet/metrics/export/internaldefs"
)

// ContentType is the text exposition format version written by [Exporter].
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Source is what the exporter reads; [carnet.Engine] implements it.
type Source interface {
	MetricsSnapshot() carnet.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine metrics in Prometheus text exposition format.
type Exporter struct {
	source Source
}

// NewExporter returns an exporter reading from source.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current metrics at whatever path it is mounted on.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		_, _ = p.WriteTo(w)
	})
}

// Render returns the current metrics, or "" when metrics are disabled.
func (p *Exporter) Render() string {
	var buf bytes.Buffer
	_, _ = p.WriteTo(&buf)
	return buf.String()
}

// WriteTo writes one exposition to w. Nothing is written when the engine has
// metrics turned off and no audit events were dropped.
func (p *Exporter) WriteTo(w io.Writer) (int64, error) {
	if p == nil || p.source == nil {
		return 0, nil
	}
	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return 0, nil
	}

	ew := &errWriter{w: w}
	for _, def := range internaldefs.CounterDefs {
		ew.counter(def.Name, def.Help, snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		ew.header(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			ew.printf("%s_bucket{le=%q} %d\n", def.Name, le, buckets[i])
		}
		// no sum is tracked
		ew.printf("%s_sum 0\n%s_count %d\n", def.Name, def.Name, buckets[len(buckets)-1])
	}
	ew.counter(internaldefs.AuditDroppedName, "Bitacora events dropped under dispatcher backpressure.", dropped)
	return ew.n, ew.err
}

type errWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	n, err := fmt.Fprintf(e.w, format, args...)
	e.n += int64(n)
	e.err = err
}

func (e *errWriter) header(name, help, kind string) {
	help = strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
	e.printf("# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func (e *errWriter) counter(name, help string, v uint64) {
	e.header(name, help, "counter")
	e.printf("%s %d\n", name, v)
}
