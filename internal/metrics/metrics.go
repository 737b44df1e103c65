package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joegate_gate_transitions_total",
		Help: "Gate phase transitions, by phase entered.",
	}, []string{"phase"})

	GatesStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joegate_gates_started_total",
		Help: "Gates started for new or expired visitor sessions.",
	})

	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joegate_redirects_total",
		Help: "Resolved redirect destinations, by source (link, ref, derived, default).",
	}, []string{"source"})

	LinksTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "joegate_links_total",
		Help: "Number of links in the admin list.",
	})

	AdminLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joegate_admin_logins_total",
		Help: "Admin login attempts, by result.",
	}, []string{"result"})
)
