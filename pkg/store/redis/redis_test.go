package redis_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/store"
	"github.com/trigion/trigion/pkg/store/redis"
)

func setupStore(t *testing.T) *redis.Store {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})

	return redis.NewStoreWithClient(slog.Default(), client)
}

func testFlow(id string, status models.FlowStatus) *models.Flow {
	return &models.Flow{
		ID:     id,
		Status: status,
		UserID: "user-1",
		Nodes: []*models.FlowNode{
			{ID: "n1", Type: models.NodeTypeTriggerWebhook, Category: models.NodeCategoryTrigger, Enabled: true},
		},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	require.NoError(t, s.SaveFlow(ctx, testFlow("f1", models.FlowStatusActive)))

	loaded, err := s.FlowByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", loaded.ID)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.NodeTypeTriggerWebhook, loaded.Nodes[0].Type)
}

func TestStore_FlowByID_NotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.FlowByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, store.IsFlowNotFound(err))
}

func TestStore_ActiveFlows(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	require.NoError(t, s.SaveFlow(ctx, testFlow("f1", models.FlowStatusActive)))
	require.NoError(t, s.SaveFlow(ctx, testFlow("f2", models.FlowStatusInactive)))

	active, err := s.ActiveFlows(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "f1", active[0].ID)
}

func TestStore_DeleteFlow(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	require.NoError(t, s.SaveFlow(ctx, testFlow("f1", models.FlowStatusActive)))
	require.NoError(t, s.DeleteFlow(ctx, "f1"))

	err := s.DeleteFlow(ctx, "f1")
	assert.True(t, store.IsFlowNotFound(err))
}

func TestStore_HealthCheck(t *testing.T) {
	s := setupStore(t)

	assert.NoError(t, s.HealthCheck(context.Background()))
}
