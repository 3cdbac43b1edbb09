package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StageUpload  = "upload"
	StagePersist = "persist"
)

// Metrics holds the service collectors on a private registry so tests can
// build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	ReportsCreated   prometheus.Counter
	CreateFailures   *prometheus.CounterVec
	ListFailures     prometheus.Counter
	UploadBytes      prometheus.Counter
	OrphanUploadsDel prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reports_created_total",
			Help: "Reports persisted by the ingestion endpoint.",
		}),
		CreateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_create_failures_total",
			Help: "Failed report submissions by stage.",
		}, []string{"stage"}),
		ListFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "report_list_failures_total",
			Help: "Failed report listings.",
		}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploads_bytes_total",
			Help: "Bytes written to the upload store.",
		}),
		OrphanUploadsDel: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orphan_uploads_removed_total",
			Help: "Uploaded files removed because no report references them.",
		}),
	}
	m.Registry.MustRegister(
		m.ReportsCreated,
		m.CreateFailures,
		m.ListFailures,
		m.UploadBytes,
		m.OrphanUploadsDel,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
