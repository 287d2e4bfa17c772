package prometheus

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"sync"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/metrics/export/internaldefs"
)

// Source is what the exporter scrapes. *goAccess.Manager satisfies it.
type Source interface {
	ID() string
	MetricsSnapshot() goAccess.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders the metrics of one or more managers in
// Prometheus text exposition format, one series per manager_id.
type PrometheusExporter struct {
	mu      sync.RWMutex
	sources []Source
}

// NewPrometheusExporter scrapes m, plus any manager added later.
func NewPrometheusExporter(m *goAccess.Manager) *PrometheusExporter {
	p := &PrometheusExporter{}
	if m != nil {
		p.Add(m)
	}
	return p
}

// NewPrometheusExporterFromSource scrapes any Source implementation.
func NewPrometheusExporterFromSource(sources ...Source) *PrometheusExporter {
	p := &PrometheusExporter{}
	for _, s := range sources {
		p.Add(s)
	}
	return p
}

// Add includes s in subsequent scrapes.
func (p *PrometheusExporter) Add(s Source) {
	if s == nil {
		return
	}
	p.mu.Lock()
	p.sources = append(p.sources, s)
	p.mu.Unlock()
}

// Handler serves Render over HTTP.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

type scrape struct {
	id       string
	snapshot goAccess.MetricsSnapshot
	dropped  uint64
}

// Render formats the current snapshots. Sources with metrics disabled and no
// dropped audit events are left out; "" means nothing to report.
func (p *PrometheusExporter) Render() string {
	if p == nil {
		return ""
	}

	p.mu.RLock()
	scrapes := make([]scrape, 0, len(p.sources))
	for _, s := range p.sources {
		sc := scrape{id: s.ID(), snapshot: s.MetricsSnapshot(), dropped: s.AuditDropped()}
		if len(sc.snapshot.Counters) == 0 && len(sc.snapshot.Histograms) == 0 && sc.dropped == 0 {
			continue
		}
		scrapes = append(scrapes, sc)
	}
	p.mu.RUnlock()

	if len(scrapes) == 0 {
		return ""
	}

	var buf bytes.Buffer
	buf.Grow(2048 * len(scrapes))

	for _, def := range internaldefs.CounterDefs {
		header(&buf, def.Name, def.Help, "counter")
		for _, sc := range scrapes {
			fmt.Fprintf(&buf, "%s{manager_id=%q} %d\n", def.Name, sc.id, sc.snapshot.Counters[def.ID])
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		header(&buf, def.Name, def.Help, "histogram")
		for _, sc := range scrapes {
			buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(sc.snapshot.Histograms[def.ID]))
			for i, le := range internaldefs.HistogramBounds {
				fmt.Fprintf(&buf, "%s_bucket{manager_id=%q,le=%q} %d\n", def.Name, sc.id, le, buckets[i])
			}
			fmt.Fprintf(&buf, "%s_count{manager_id=%q} %d\n", def.Name, sc.id, buckets[len(buckets)-1])
			// Snapshots carry no sum.
			fmt.Fprintf(&buf, "%s_sum{manager_id=%q} 0\n", def.Name, sc.id)
		}
	}

	header(&buf, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	for _, sc := range scrapes {
		fmt.Fprintf(&buf, "%s{manager_id=%q} %d\n", internaldefs.AuditDroppedName, sc.id, sc.dropped)
	}

	return buf.String()
}

func header(buf *bytes.Buffer, name, help, kind string) {
	help = strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}
