package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// migrations are applied in order on startup. The registry table is owned by
// the registration API; CREATE IF NOT EXISTS keeps both services bootable in
// any order.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS push_endpoints (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		family_id TEXT NOT NULL,
		token TEXT UNIQUE NOT NULL,
		platform TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_push_endpoints_family ON push_endpoints(family_id)`,
}

// RunMigrations applies the schema against the given database.
func RunMigrations(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	for _, stmt := range migrations {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
