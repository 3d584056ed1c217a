package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/famcash/push-server/internal/models"
)

// SQLiteStore handles SQLite registry operations for single-node deploys.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/push.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/push.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS push_endpoints (
		id TEXT PRIMARY KEY,
		family_id TEXT NOT NULL,
		token TEXT UNIQUE NOT NULL,
		platform TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_push_endpoints_family ON push_endpoints(family_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListEndpoints returns every endpoint registered under a family, excluding
// the sender's own token when excludeToken is non-empty.
func (s *SQLiteStore) ListEndpoints(ctx context.Context, familyID, excludeToken string) ([]models.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family_id, token, platform, created_at
		FROM push_endpoints
		WHERE family_id = ? AND (? = '' OR token <> ?)
	`, familyID, excludeToken, excludeToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		var e models.Endpoint
		var id, platform string
		var createdAt time.Time
		if err := rows.Scan(&id, &e.FamilyID, &e.Token, &platform, &createdAt); err != nil {
			return nil, err
		}
		e.ID, _ = uuid.Parse(id)
		e.Platform = models.Platform(platform)
		e.CreatedAt = createdAt
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

// DeleteTokens removes registry rows by token in one statement.
func (s *SQLiteStore) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tokens)), ",")
	args := make([]any, len(tokens))
	for i, t := range tokens {
		args[i] = t
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_endpoints WHERE token IN (`+placeholders+`)`, args...)
	return err
}

// CountEndpoints returns the total number of registered endpoints.
func (s *SQLiteStore) CountEndpoints(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM push_endpoints`).Scan(&count)
	return count, err
}
