// Package metrics exposes Prometheus collectors for RPCs, bill splits and reminders.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests      *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	billsSplit       *prometheus.CounterVec
	remindersFired   prometheus.Counter
	splitsSettlement *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "rpc_requests_total",
			Help:      "RPC requests by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tabsplit",
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		billsSplit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "bills_split_total",
			Help:      "Bills split by mode and whether custom amounts were normalized.",
		}, []string{"mode", "normalized"}),
		remindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "reminders_fired_total",
			Help:      "Payment reminders published.",
		}),
		splitsSettlement: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "split_settlement_changes_total",
			Help:      "Splits marked paid or unpaid.",
		}, []string{"settled"}),
	}

	m.registry.MustRegister(
		m.rpcRequests,
		m.rpcDuration,
		m.billsSplit,
		m.remindersFired,
		m.splitsSettlement,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// BillSplit counts one persisted bill split.
func (m *Metrics) BillSplit(mode string, normalized bool) {
	label := "false"
	if normalized {
		label = "true"
	}
	m.billsSplit.WithLabelValues(mode, label).Inc()
}

// ReminderFired counts one published reminder.
func (m *Metrics) ReminderFired() {
	m.remindersFired.Inc()
}

// SplitSettlementChanged counts a split being marked paid or unpaid.
func (m *Metrics) SplitSettlementChanged(settled bool) {
	label := "false"
	if settled {
		label = "true"
	}
	m.splitsSettlement.WithLabelValues(label).Inc()
}

// Interceptor records request counts and latency for every RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeUnknown.String()
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				}
			}
			m.rpcRequests.WithLabelValues(procedure, code).Inc()
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())

			return resp, err
		}
	}
}
