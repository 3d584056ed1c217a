package store

import (
	"context"

	"github.com/famcash/push-server/internal/models"
)

// Registry defines the endpoint-registry operations the delivery core needs.
// Rows are written by the registration API (a separate service); this service
// only lists them per family and deletes the ones providers declare dead.
// Both PostgresStore and SQLiteStore implement this interface.
type Registry interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Endpoint operations
	ListEndpoints(ctx context.Context, familyID, excludeToken string) ([]models.Endpoint, error)
	DeleteTokens(ctx context.Context, tokens []string) error
	CountEndpoints(ctx context.Context) (int64, error)
}
