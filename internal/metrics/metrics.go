// Package metrics регистрирует счётчики Prometheus для наблюдения за
// вызовами панели, исходами провижининга и синхронизацией.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PanelRequests считает вызовы панели по операции и результату.
	PanelRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnshop_panel_requests_total",
		Help: "Panel API calls by operation and result.",
	}, []string{"op", "result"})

	// PanelDuration измеряет длительность вызовов панели.
	PanelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vpnshop_panel_request_duration_seconds",
		Help:    "Panel API call duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// ProvisionOutcomes считает завершения потока провижининга по исходу.
	ProvisionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnshop_provisioning_outcomes_total",
		Help: "Terminal provisioning outcomes by reason.",
	}, []string{"outcome"})

	// ReconcileUpdated хранит число пользователей, обновлённых последним
	// проходом синхронизации.
	ReconcileUpdated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vpnshop_reconcile_updated_users",
		Help: "Users updated by the last reconciliation pass.",
	})
)
