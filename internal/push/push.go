// Package push implements the delivery core: one dispatcher fanning a
// notification out to the mobile gateway and to individual browser push
// endpoints, with per-channel failure isolation and stale-endpoint pruning.
package push

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/metrics"
	"github.com/famcash/push-server/internal/models"
)

// Registry is the slice of the endpoint registry the delivery core uses:
// list rows for a family, delete rows providers have declared dead.
type Registry interface {
	ListEndpoints(ctx context.Context, familyID, excludeToken string) ([]models.Endpoint, error)
	DeleteTokens(ctx context.Context, tokens []string) error
}

// ValidationError reports a missing required field in a delivery request.
// It maps to a 4xx response and is never retried.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// RegistryError reports a failed registry read. It maps to a 5xx response.
type RegistryError struct {
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry read failed: %v", e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// flushPrune deletes provider-confirmed dead tokens in one bulk operation.
// It runs after all classification completes, detached from request
// cancellation so an aborted delivery never leaves a half-applied prune.
// Deletion failure is logged, never surfaced.
func flushPrune(ctx context.Context, registry Registry, tokens []string, channel string, logger zerolog.Logger) {
	if len(tokens) == 0 {
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := registry.DeleteTokens(flushCtx, tokens); err != nil {
		logger.Warn().
			Err(err).
			Str("channel", channel).
			Int("count", len(tokens)).
			Msg("failed to prune stale endpoints")
		return
	}

	metrics.EndpointsPruned.WithLabelValues(channel).Add(float64(len(tokens)))
	logger.Info().
		Str("channel", channel).
		Int("count", len(tokens)).
		Msg("pruned stale endpoints")
}
