package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/metrics"
	"github.com/gestaozabele/lancamentos/internal/policy"
	"github.com/gestaozabele/lancamentos/internal/repo"
)

// loadActor busca o solicitante no store. A ausência do ator é distinta da ausência
// do alvo, e contas desativadas não executam operações.
func loadActor(ctx context.Context, store repo.UserStore, id uuid.UUID) (policy.Actor, error) {
	u, err := store.GetUsuarioByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return policy.Actor{}, apperr.NotFound("usuário solicitante não encontrado")
		}
		return policy.Actor{}, err
	}
	if !u.Ativo {
		return policy.Actor{}, denied(apperr.Denied("actor.inactive", "usuário solicitante está desativado"))
	}
	return actorOf(u), nil
}

func actorOf(u repo.Usuario) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role, TenantID: u.TenantID}
}

func targetOf(u repo.Usuario) policy.Target {
	return policy.Target{ID: u.ID, Role: u.Role, TenantID: u.TenantID}
}

// denied contabiliza negações de política e devolve o erro intacto.
func denied(err error) error {
	if err != nil && errors.Is(err, apperr.ErrDenied) {
		metrics.PolicyDenials.WithLabelValues(apperr.RuleOf(err)).Inc()
	}
	return err
}
