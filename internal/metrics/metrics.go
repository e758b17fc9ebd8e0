// Package metrics exposes player counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coreman2200/usagiclock/internal/sequence"
)

const namespace = "usagiclock"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Frames     prometheus.Counter
	Dropped    prometheus.Counter
	Alarms     *prometheus.CounterVec
	CuePlays   *prometheus.CounterVec
	SinkErrors *prometheus.CounterVec
	Mode       *prometheus.GaugeVec
	Settings   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "logical_frames_total",
			Help: "Logical frames advanced by the tick driver.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_frames_total",
			Help: "Frame intervals skipped to stay aligned with wall-clock time.",
		}),
		Alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "alarms_total",
			Help: "Alarm lifecycle events.",
		}, []string{"event"}),
		CuePlays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cue_plays_total",
			Help: "Audio cues started.",
		}, []string{"cue"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_errors_total",
			Help: "Render sink write failures.",
		}, []string{"sink"}),
		Mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mode",
			Help: "1 for the active playback mode, 0 otherwise.",
		}, []string{"mode"}),
		Settings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "settings_saves_total",
			Help: "Alarm settings saved.",
		}),
	}
	m.registry.MustRegister(m.Frames, m.Dropped, m.Alarms, m.CuePlays, m.SinkErrors, m.Mode, m.Settings)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m.SetMode(sequence.Idle)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// SetMode flips the mode gauge.
func (m *Metrics) SetMode(mode sequence.Mode) {
	for _, md := range []sequence.Mode{sequence.Idle, sequence.AlarmIntro, sequence.AlarmLoop} {
		v := 0.0
		if md == mode {
			v = 1
		}
		m.Mode.WithLabelValues(string(md)).Set(v)
	}
}

// Transition records an alarm lifecycle event for t.
func (m *Metrics) Transition(t sequence.Transition, cancelled bool) {
	m.SetMode(t.To)
	switch {
	case t.To == sequence.AlarmIntro:
		m.Alarms.WithLabelValues("triggered").Inc()
	case t.To == sequence.Idle && cancelled:
		m.Alarms.WithLabelValues("cancelled").Inc()
	case t.To == sequence.Idle:
		m.Alarms.WithLabelValues("completed").Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
