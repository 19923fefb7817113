// Package metrics defines and registers all custom Prometheus metrics for the
// SOS coordination engine. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry through promauto
// at package initialisation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sos"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// IncidentsTriggeredTotal counts created incidents.
// Label:
//   - crisis_type: e.g. "Medical", "Fire"
var IncidentsTriggeredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "incidents_triggered_total",
		Help:      "Total number of incidents triggered, by crisis type.",
	},
	[]string{"crisis_type"},
)

var RespondersJoinedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "responders_joined_total",
		Help:      "Total number of accepted respond calls.",
	},
)

var IncidentsResolvedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "incidents_resolved_total",
		Help:      "Total number of incidents resolved by their triggerer.",
	},
)

var FalseAlertsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "false_alerts_total",
		Help:      "Total number of incidents flagged as false alerts.",
	},
)

// ActiveIncidents is refreshed periodically from the incident store.
var ActiveIncidents = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_incidents",
		Help:      "Number of incidents currently in the active state.",
	},
)

// ReputationEventsTotal counts applied reputation deltas.
// Label:
//   - event: "responded", "resolved_own", "false_alert", "admin_unsuspend"
var ReputationEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reputation_events_total",
		Help:      "Total number of reputation events applied, by event.",
	},
	[]string{"event"},
)

// ── Coordination log metrics ──────────────────────────────────────────────────

// ChatMessagesTotal counts chat messages delivered to incident rooms.
// Label:
//   - result: "persisted" or "degraded" (delivered live, not stored)
var ChatMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_messages_total",
		Help:      "Total number of chat messages, by persistence result.",
	},
	[]string{"result"},
)

// ChatQueueDepth tracks pending inbound chat frames per dispatcher worker.
var ChatQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "chat_queue_depth",
		Help:      "Current number of chat frames pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Fan-out hub metrics ───────────────────────────────────────────────────────

var HubConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_connections",
		Help:      "Number of live realtime connections.",
	},
)

var HubRooms = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_rooms",
		Help:      "Number of rooms with at least one member.",
	},
)

// HubEventsPublishedTotal counts events handed to the hub.
// Label:
//   - event: the wire event name
var HubEventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_events_published_total",
		Help:      "Total number of events published to rooms, by event name.",
	},
	[]string{"event"},
)

// HubDeliveriesDroppedTotal counts per-connection deliveries discarded
// because the connection's send buffer was full.
var HubDeliveriesDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_deliveries_dropped_total",
		Help:      "Total number of deliveries dropped for slow connections.",
	},
)
