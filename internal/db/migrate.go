package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Schema devolve o DDL embutido.
func Schema() string { return schema }

// Migrate aplica o schema embutido pelo protocolo simples, que aceita vários
// comandos numa mesma chamada. O DDL é idempotente.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Conn().PgConn().Exec(ctx, schema).ReadAll(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
