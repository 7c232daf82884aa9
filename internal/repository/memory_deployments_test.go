package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n8n-workflows/pkg/models"
)

func TestMemoryDeploymentStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDeploymentStore()
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Ping(ctx))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveDeployment(ctx, &models.Deployment{
			ID:           id,
			WorkflowName: "Hello World",
			Status:       models.DeploymentSucceeded,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.GetDeployment(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got.WorkflowName)

	_, err = store.GetDeployment(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.ListDeployments(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	unset := &models.Deployment{ID: "d", Status: models.DeploymentFailed}
	require.NoError(t, store.SaveDeployment(ctx, unset))
	assert.False(t, unset.CreatedAt.IsZero())
}
