// Package store abstracts persistence of flow definitions. The registry only
// needs flow lookup by id and the active set for startup rehydration.
package store

import (
	"context"

	"github.com/trigion/trigion/pkg/models"
)

type Store interface {
	Flows(ctx context.Context) ([]*models.Flow, error)
	ActiveFlows(ctx context.Context) ([]*models.Flow, error)
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
