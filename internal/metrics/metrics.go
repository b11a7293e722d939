// Package metrics concentra as métricas Prometheus da aplicação.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LancamentosSynced conta lançamentos órfãos vinculados, por origem da sincronização.
	LancamentosSynced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lancamentos_sync_total",
		Help: "Lançamentos órfãos vinculados a um tenant",
	}, []string{"origin"}) // origin: orphans|all|bind

	// PolicyDenials conta negações de política pela regra que falhou.
	PolicyDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policy_denials_total",
		Help: "Operações negadas pela política de acesso",
	}, []string{"rule"})

	// ResolverLookups conta resoluções de CNPJ por resultado.
	ResolverLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cnpj_resolver_lookups_total",
		Help: "Resoluções de CNPJ para tenant",
	}, []string{"result"}) // result: cache_hit|found|none|integrity|error

	// ReconcileRuns conta execuções da sincronização periódica por resultado.
	ReconcileRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lancamentos_reconcile_runs_total",
		Help: "Execuções da sincronização periódica de órfãos",
	}, []string{"result"}) // result: ok|partial|error

	// HTTPRequests conta requisições pela rota do chi.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requisições HTTP processadas",
	}, []string{"method", "route", "status"})

	// HTTPDuration mede a latência por rota.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latência das requisições HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register registra as métricas no registry informado (ou no padrão).
// Registros repetidos são ignorados.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{LancamentosSynced, PolicyDenials, ResolverLookups, ReconcileRuns, HTTPRequests, HTTPDuration} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}
