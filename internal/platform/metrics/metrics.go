package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so several instances can coexist in tests.
type Recorder struct {
	registry      *prometheus.Registry
	claimAttempts *prometheus.CounterVec
	intake        *prometheus.CounterVec
}

func NewRecorder(namespace string) *Recorder {
	if namespace == "" {
		namespace = "dispatch"
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		claimAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_attempts_total",
			Help:      "Claim attempts by path (auto, pull) and outcome.",
		}, []string{"path", "outcome"}),
		intake: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_total",
			Help:      "Accepted service requests, split by whether auto-assignment claimed them.",
		}, []string{"auto_assigned"}),
	}
	r.registry.MustRegister(
		r.claimAttempts,
		r.intake,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveClaim(path string, outcome string) {
	r.claimAttempts.WithLabelValues(path, outcome).Inc()
}

func (r *Recorder) ObserveIntake(autoAssigned bool) {
	r.intake.WithLabelValues(strconv.FormatBool(autoAssigned)).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
