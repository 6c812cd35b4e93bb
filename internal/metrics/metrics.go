package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var OrderTransitionsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contributions",
	Subsystem: "orders",
	Name:      "transitions_total",
	Help:      "Order mutations by kind and result",
}, []string{"kind", "result"})

var ProvisionOutcomesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contributions",
	Subsystem: "payment_methods",
	Name:      "provision_outcomes_total",
	Help:      "Payment method provisioning attempts by outcome",
}, []string{"service", "outcome"})

var RelayedActivitiesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contributions",
	Subsystem: "activity",
	Name:      "relayed_total",
	Help:      "Activities published by the outbox relay",
}, []string{"type"})

var ProjectedEventsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contributions",
	Subsystem: "projector",
	Name:      "events_total",
	Help:      "Events handled by the order status projector",
}, []string{"event_type", "result"})

// Result turns an error into a metric label.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
