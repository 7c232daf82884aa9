package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"n8n-workflows/pkg/models"
)

// MemoryDeploymentStore keeps deployments in process memory. It backs the
// server when no database is configured.
type MemoryDeploymentStore struct {
	mu          sync.RWMutex
	deployments map[string]models.Deployment
}

// NewMemoryDeploymentStore creates an empty MemoryDeploymentStore.
func NewMemoryDeploymentStore() *MemoryDeploymentStore {
	return &MemoryDeploymentStore{deployments: make(map[string]models.Deployment)}
}

func (s *MemoryDeploymentStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *MemoryDeploymentStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryDeploymentStore) SaveDeployment(ctx context.Context, d *models.Deployment) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.deployments[d.ID] = *d
	s.mu.Unlock()
	return nil
}

func (s *MemoryDeploymentStore) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryDeploymentStore) ListDeployments(ctx context.Context, limit int) ([]*models.Deployment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.RLock()
	out := make([]*models.Deployment, 0, len(s.deployments))
	for _, d := range s.deployments {
		d := d
		out = append(out, &d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
