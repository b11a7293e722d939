// Package reconcile vincula periodicamente os lançamentos órfãos ingeridos depois
// do cadastro dos tenants. Cada tenant é sincronizado na própria transação.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/config"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/metrics"
	"github.com/gestaozabele/lancamentos/internal/repo"
)

// Syncer é a parte do resolvedor usada pelo loop.
type Syncer interface {
	SyncAll(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// Failure registra um tenant cuja sincronização falhou.
type Failure struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Nome      string    `json:"nome"`
	Error     string    `json:"error"`
	Integrity bool      `json:"integrity"`
}

// Report resume uma execução.
type Report struct {
	Tenants  int       `json:"tenants"`
	Synced   int64     `json:"synced"`
	Failures []Failure `json:"failures"`
	Duration string    `json:"duration"`
}

type Service struct {
	tenants  repo.TenantStore
	syncer   Syncer
	cfg      config.ReconcileConfig
	notifier Notifier
	logger   zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService cria o reconciliador. notifier pode ser nil.
func NewService(tenants repo.TenantStore, syncer Syncer, cfg config.ReconcileConfig, logger zerolog.Logger, notifier Notifier) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{
		tenants:  tenants,
		syncer:   syncer,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger.With().Str("component", "reconcile").Logger(),
	}
}

// Start inicia o loop periódico. Chamadas repetidas são ignoradas; Interval zero
// não inicia nada.
func (s *Service) Start(parent context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.runLoop(ctx)
	})
}

// Stop encerra o loop e aguarda a execução corrente.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Service) runLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("reconcile: loop iniciado")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reconcile: loop encerrado")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("reconcile: execução periódica falhou")
			}
		}
	}
}

// RunOnce sincroniza todos os tenants ativos. Falhas de um tenant não interrompem
// os demais; inconsistências de dados geram alerta.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	tenants, err := s.tenants.ListTenants(ctx, isolation.Scope{Unrestricted: true})
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("listar tenants: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, t := range tenants {
		if !t.Ativo {
			continue
		}
		report.Tenants++
		t := t
		g.Go(func() error {
			n, err := s.syncer.SyncAll(gctx, t.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn().Err(err).Str("tenant_id", t.ID.String()).Msg("reconcile: sincronização falhou")
				report.Failures = append(report.Failures, Failure{
					TenantID:  t.ID,
					Nome:      t.Nome,
					Error:     err.Error(),
					Integrity: errors.Is(err, apperr.ErrIntegrity),
				})
				return nil
			}
			report.Synced += n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return report, err
	}
	report.Duration = time.Since(start).Round(time.Millisecond).String()

	result := "ok"
	if len(report.Failures) > 0 {
		result = "partial"
		s.alert(ctx, report)
	}
	metrics.ReconcileRuns.WithLabelValues(result).Inc()
	s.logger.Info().Int("tenants", report.Tenants).Int64("synced", report.Synced).
		Int("failures", len(report.Failures)).Msg("reconcile: execução concluída")
	return report, nil
}

func (s *Service) alert(ctx context.Context, report Report) {
	if s.notifier == nil {
		return
	}
	alert := Alert{
		Title:    fmt.Sprintf("Sincronização de lançamentos falhou em %d tenant(s)", len(report.Failures)),
		Severity: SeverityWarning,
		Lines:    make([]string, 0, len(report.Failures)),
	}
	for _, f := range report.Failures {
		alert.Lines = append(alert.Lines, fmt.Sprintf("%s (%s): %s", f.Nome, f.TenantID, f.Error))
		if f.Integrity {
			alert.Severity = SeverityCritical
		}
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Warn().Err(err).Msg("reconcile: falha ao enviar alerta")
	}
}
