package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records generation task outcomes and provider latency.
type PipelineMetrics struct {
	outcomes *prometheus.CounterVec
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_task_outcomes",
		Help: "Terminal generation task outcomes by type and status.",
	}, []string{"task_type", "status"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_task_attempts",
		Help: "Generation task execution attempts by type.",
	}, []string{"task_type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_task_duration_seconds",
		Help:    "Duration of generation task executions in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"task_type"})
	reg.MustRegister(outcomes, attempts, duration)
	return &PipelineMetrics{
		outcomes: outcomes,
		attempts: attempts,
		duration: duration,
	}
}

// IncOutcome increments the terminal outcome counter.
func (p *PipelineMetrics) IncOutcome(taskType, status string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(taskType), normalizeLabel(status)).Inc()
}

// IncAttempt increments the attempt counter.
func (p *PipelineMetrics) IncAttempt(taskType string) {
	if p == nil || p.attempts == nil {
		return
	}
	p.attempts.WithLabelValues(normalizeLabel(taskType)).Inc()
}

// ObserveDuration records one execution duration.
func (p *PipelineMetrics) ObserveDuration(taskType string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(taskType)).Observe(duration.Seconds())
}
