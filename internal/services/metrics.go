package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var membershipOps = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "firefruit_membership_operations_total",
		Help: "Family membership operations by outcome.",
	},
	[]string{"operation", "outcome"},
)

func recordMembershipOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind, ok := KindOf(err); ok {
			outcome = string(kind)
		}
	}
	membershipOps.WithLabelValues(operation, outcome).Inc()
}
