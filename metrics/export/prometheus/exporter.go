package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/MrEthical07/regAuth/metrics/export/internaldefs"
)

// Source is the read side of an engine that the exporter scrapes.
type Source interface {
	MetricsSnapshot() regAuth.MetricsSnapshot
	AuditDropped() uint64
	Backends() regAuth.StoreBackends
}

// PrometheusExporter renders engine counters, the validate latency histogram and the
// store backend labels in Prometheus text exposition format.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter creates an exporter that scrapes engine.
func NewPrometheusExporter(engine *regAuth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter over any [Source].
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves [PrometheusExporter.Render] for GET /metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text. It is empty when the engine records nothing.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	backends := internaldefs.BackendLabels(p.source.Backends())
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 && len(backends) == 0 {
		return ""
	}

	w := &textWriter{}
	w.b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		w.family(def.Name, def.Help, "counter")
		w.sample(def.Name, "", snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		w.family(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			w.sample(def.Name+"_bucket", `le="`+le+`"`, cumulative[i])
		}
		w.sample(def.Name+"_count", "", cumulative[len(cumulative)-1])
		// Snapshots keep bucket counts only.
		w.sample(def.Name+"_sum", "", 0)
	}

	w.family("regauth_audit_dropped_total", "Audit events dropped because the dispatcher buffer was full.", "counter")
	w.sample("regauth_audit_dropped_total", "", dropped)

	if len(backends) > 0 {
		w.family(internaldefs.BackendInfoName, "Store implementation serving each mutable table.", "gauge")
		for _, l := range backends {
			w.sample(internaldefs.BackendInfoName, `table="`+escapeLabel(l.Table)+`",backend="`+escapeLabel(l.Backend)+`"`, 1)
		}
	}

	return w.b.String()
}

type textWriter struct {
	b strings.Builder
}

func (w *textWriter) family(name, help, kind string) {
	w.b.WriteString("# HELP ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(escapeHelp(help))
	w.b.WriteString("\n# TYPE ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(kind)
	w.b.WriteByte('\n')
}

func (w *textWriter) sample(name, labels string, value uint64) {
	w.b.WriteString(name)
	if labels != "" {
		w.b.WriteByte('{')
		w.b.WriteString(labels)
		w.b.WriteByte('}')
	}
	w.b.WriteByte(' ')
	w.b.WriteString(strconv.FormatUint(value, 10))
	w.b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}

func escapeLabel(v string) string {
	v = escapeHelp(v)
	return strings.ReplaceAll(v, `"`, `\"`)
}
