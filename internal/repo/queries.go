package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/lancamentos/internal/db"
)

// DBTX é satisfeito tanto pelo pool quanto por uma transação.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implementa Store sobre PostgreSQL.
type Queries struct {
	db   DBTX
	pool *pgxpool.Pool
}

var _ Store = (*Queries)(nil)

// New cria o repositório sobre o pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{db: pool, pool: pool}
}

// WithTx abre uma transação serializável. Dentro de uma transação, executa fn direto.
func (q *Queries) WithTx(ctx context.Context, fn func(Store) error) error {
	if q.pool == nil {
		return fn(q)
	}
	err := db.WithTx(ctx, q.pool, func(tx pgx.Tx) error {
		return fn(&Queries{db: tx})
	})
	return translate(err, "transação")
}

// Ping verifica a conexão com o banco.
func (q *Queries) Ping(ctx context.Context) error {
	if q.pool == nil {
		return nil
	}
	return q.pool.Ping(ctx)
}
