package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor begins pgx transactions. *pgxpool.Pool satisfies it.
type Transactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
