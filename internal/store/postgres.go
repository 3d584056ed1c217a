package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famcash/push-server/internal/models"
)

// PostgresStore handles PostgreSQL registry operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ListEndpoints returns every endpoint registered under a family, excluding
// the sender's own token when excludeToken is non-empty.
func (s *PostgresStore) ListEndpoints(ctx context.Context, familyID, excludeToken string) ([]models.Endpoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, family_id, token, platform, created_at
		FROM push_endpoints
		WHERE family_id = $1 AND ($2 = '' OR token <> $2)
	`, familyID, excludeToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		var e models.Endpoint
		var platform string
		if err := rows.Scan(&e.ID, &e.FamilyID, &e.Token, &platform, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Platform = models.Platform(platform)
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

// DeleteTokens removes registry rows by token in one statement. Tokens that
// are already absent are skipped silently; deletion is idempotent.
func (s *PostgresStore) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM push_endpoints WHERE token = ANY($1)`, tokens)
	return err
}

// CountEndpoints returns the total number of registered endpoints.
func (s *PostgresStore) CountEndpoints(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM push_endpoints`).Scan(&count)
	return count, err
}
