package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ShipmentsEvaluatedTotal counts recorded shipments by decision status.
	ShipmentsEvaluatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipments_evaluated_total",
		Help: "Shipments evaluated and recorded, by status.",
	}, []string{"status"})
	// ShipmentLitresTotal sums recorded volume by decision status.
	ShipmentLitresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_litres_total",
		Help: "Litres of milk recorded, by status.",
	}, []string{"status"})
	// AgentRequestsTotal counts assistant questions by outcome.
	AgentRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_requests_total",
		Help: "Assistant questions handled, by result.",
	}, []string{"result"})
	// DashboardCacheTotal counts dashboard cache lookups by view and hit/miss.
	DashboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_total",
		Help: "Dashboard cache lookups, by view and result.",
	}, []string{"view", "result"})
)

// MustRegisterDomainMetrics rebuilds the domain collectors under namespace and
// registers them once. Until it is called the package level collectors are
// unregistered but safe to use, which keeps tests free of global state.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ShipmentsEvaluatedTotal = register(reg, namespaced(namespace, "shipments_evaluated_total",
			"Shipments evaluated and recorded, by status.", "status"))
		ShipmentLitresTotal = register(reg, namespaced(namespace, "shipment_litres_total",
			"Litres of milk recorded, by status.", "status"))
		AgentRequestsTotal = register(reg, namespaced(namespace, "agent_requests_total",
			"Assistant questions handled, by result.", "result"))
		DashboardCacheTotal = register(reg, namespaced(namespace, "dashboard_cache_total",
			"Dashboard cache lookups, by view and result.", "view", "result"))
	})
}

func namespaced(namespace, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)
}
