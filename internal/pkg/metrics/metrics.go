package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every pilot metric and is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// VehicleLinkStatus records the state of the vehicle link.
	// 1 = Ready (connected and positioned), 0 = Not Ready
	VehicleLinkStatus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dronecontrol_vehicle_link_status",
			Help: "The status of the vehicle link (1=Ready, 0=NotReady).",
		},
	)

	// QueueDepth is the number of pending commands.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dronecontrol_queue_depth",
			Help: "Number of commands waiting in the queue.",
		},
	)

	// CommandsTotal counts finished commands by outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dronecontrol_commands_total",
			Help: "Total number of executed commands.",
		},
		[]string{"command", "result"}, // result: ok/failed/timeout/panic/cancelled
	)

	// CommandsDiscarded counts pending commands dropped by a clear or interrupt.
	CommandsDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dronecontrol_commands_discarded_total",
			Help: "Total number of pending commands discarded by a clear.",
		},
	)

	// CommandsAbandoned is the number of timed-out commands still running
	// after the scheduler moved on.
	CommandsAbandoned = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dronecontrol_commands_abandoned",
			Help: "Timed-out commands that ignored cancellation and are still running.",
		},
	)

	// CommandLatency records command execution time.
	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dronecontrol_command_duration_seconds",
			Help:    "Execution time of queued commands.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"command"},
	)

	// FallbacksTotal counts automatic recoveries, e.g. hold -> return_home.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dronecontrol_fallbacks_total",
			Help: "Total number of automatic fallback maneuvers.",
		},
		[]string{"from", "to"},
	)
)

func init() {
	Registry.MustRegister(
		VehicleLinkStatus,
		QueueDepth,
		CommandsTotal,
		CommandsDiscarded,
		CommandsAbandoned,
		CommandLatency,
		FallbacksTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// SetLinkReady updates VehicleLinkStatus.
func SetLinkReady(ready bool) {
	if ready {
		VehicleLinkStatus.Set(1)
		return
	}
	VehicleLinkStatus.Set(0)
}
