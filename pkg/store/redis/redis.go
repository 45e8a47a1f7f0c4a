// Package redis provides the Redis-backed flow store. Flows are stored as
// JSON values under one key per flow.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/store"
)

const keyPrefix = "trigion:flow:"

type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore connects to Redis using a redis:// URL.
func NewStore(ctx context.Context, logger *slog.Logger, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Store{
		client: client,
		logger: logger.With("module", "store:redis"),
	}, nil
}

// NewStoreWithClient wraps an existing client. Used by tests running against
// miniredis.
func NewStoreWithClient(logger *slog.Logger, client *redis.Client) *Store {
	return &Store{
		client: client,
		logger: logger.With("module", "store:redis"),
	}
}

func (s *Store) Flows(ctx context.Context) ([]*models.Flow, error) {
	flows := make([]*models.Flow, 0)

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}

			return nil, fmt.Errorf("failed to read flow key %s: %w", iter.Val(), err)
		}

		var flow models.Flow
		if err := json.Unmarshal([]byte(data), &flow); err != nil {
			return nil, fmt.Errorf("failed to decode flow key %s: %w", iter.Val(), err)
		}

		flows = append(flows, &flow)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan flow keys: %w", err)
	}

	return flows, nil
}

func (s *Store) ActiveFlows(ctx context.Context) ([]*models.Flow, error) {
	flows, err := s.Flows(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Flow, 0, len(flows))

	for _, flow := range flows {
		if flow.IsActive() {
			active = append(active, flow)
		}
	}

	return active, nil
}

func (s *Store) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.NewFlowError("FlowByID", id, store.ErrFlowNotFound)
		}

		return nil, store.NewFlowError("FlowByID", id, err)
	}

	var flow models.Flow
	if err := json.Unmarshal([]byte(data), &flow); err != nil {
		return nil, store.NewFlowError("FlowByID", id, err)
	}

	return &flow, nil
}

func (s *Store) SaveFlow(ctx context.Context, flow *models.Flow) error {
	if flow.ID == "" {
		return store.NewFlowError("SaveFlow", "", store.ErrInvalidFlow)
	}

	data, err := json.Marshal(flow)
	if err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	if err := s.client.Set(ctx, keyPrefix+flow.ID, data, 0).Err(); err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return store.NewFlowError("DeleteFlow", id, err)
	}

	if deleted == 0 {
		return store.NewFlowError("DeleteFlow", id, store.ErrFlowNotFound)
	}

	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
