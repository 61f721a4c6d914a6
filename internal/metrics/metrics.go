package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledger"

// Service collects APDU exchange metrics on both sides of the transport
type Service struct {
	Registry *prometheus.Registry

	exchanges        *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	exchangeFailures *prometheus.CounterVec
	deviceCommands   *prometheus.CounterVec
}

// New creates a metrics service backed by its own registry
func New() *Service {
	s := &Service{
		Registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "exchanges_total",
				Help:      "APDU exchanges by instruction and status word.",
			},
			[]string{"ins", "status"},
		),
		exchangeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "exchange_duration_seconds",
				Help:      "APDU round trip duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"ins"},
		),
		exchangeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "failures_total",
				Help:      "APDU exchanges that failed before a status word was received.",
			},
			[]string{"ins"},
		),
		deviceCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "device",
				Name:      "commands_total",
				Help:      "Commands handled by the emulated device.",
			},
			[]string{"ins", "status"},
		),
	}

	s.Registry.MustRegister(s.exchanges, s.exchangeDuration, s.exchangeFailures, s.deviceCommands)

	return s
}

// RecordExchange records one completed host-side exchange
func (s *Service) RecordExchange(ins string, status string, duration time.Duration) {
	s.exchanges.WithLabelValues(ins, status).Inc()
	s.exchangeDuration.WithLabelValues(ins).Observe(duration.Seconds())
}

// RecordFailure records an exchange that failed at the transport level
func (s *Service) RecordFailure(ins string, duration time.Duration) {
	s.exchangeFailures.WithLabelValues(ins).Inc()
	s.exchangeDuration.WithLabelValues(ins).Observe(duration.Seconds())
}

// RecordDeviceCommand records a command handled by the emulator
func (s *Service) RecordDeviceCommand(ins string, status string) {
	s.deviceCommands.WithLabelValues(ins, status).Inc()
}
