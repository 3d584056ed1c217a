package push

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/models"
)

// fakeRegistry records registry calls for assertions.
type fakeRegistry struct {
	mu        sync.Mutex
	endpoints []models.Endpoint
	listErr   error
	deleteErr error
	listCalls int
	deleted   [][]string
}

func (f *fakeRegistry) ListEndpoints(ctx context.Context, familyID, excludeToken string) ([]models.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Endpoint
	for _, e := range f.endpoints {
		if e.FamilyID == familyID && (excludeToken == "" || e.Token != excludeToken) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRegistry) DeleteTokens(ctx context.Context, tokens []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, tokens)
	return nil
}

func (f *fakeRegistry) deletedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, batch := range f.deleted {
		all = append(all, batch...)
	}
	return all
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
