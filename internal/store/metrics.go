package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultMiss  = "miss"
	resultError = "error"
)

type metrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kstore",
			Subsystem: "redis",
			Name:      "commands_total",
			Help:      "Redis commands issued by the store, by command and result.",
		}, []string{"command", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kstore",
			Subsystem: "redis",
			Name:      "command_duration_seconds",
			Help:      "Redis command latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"command"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kstore",
			Subsystem: "redis",
			Name:      "lifecycle_events_total",
			Help:      "Connection lifecycle events observed by the store.",
		}, []string{"event"}),
	}
	m.commands = register(reg, m.commands)
	m.duration = register(reg, m.duration)
	m.events = register(reg, m.events)
	return m
}

// register 注册 collector，已注册时复用已有实例，多个 Store 可共用同一注册表
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *metrics) observeCommand(command, result string, cost time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, result).Inc()
	m.duration.WithLabelValues(command).Observe(cost.Seconds())
}

func (m *metrics) observeEvent(event Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(event)).Inc()
}
