package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/store"
)

type flowRepository struct {
	db *sql.DB
}

const flowColumns = "id, name, status, user_id, trigger_type, nodes, edges, variables, created_at, updated_at"

func (s *Store) Flows(ctx context.Context) ([]*models.Flow, error) {
	return s.flows.list(ctx, "SELECT "+flowColumns+" FROM flows WHERE deleted_at IS NULL")
}

func (s *Store) ActiveFlows(ctx context.Context) ([]*models.Flow, error) {
	return s.flows.list(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE deleted_at IS NULL AND status = $1",
		string(models.FlowStatusActive))
}

func (s *Store) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	row := s.flows.db.QueryRowContext(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE id = $1 AND deleted_at IS NULL", id)

	flow, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NewFlowError("FlowByID", id, store.ErrFlowNotFound)
		}

		return nil, store.NewFlowError("FlowByID", id, err)
	}

	return flow, nil
}

func (s *Store) SaveFlow(ctx context.Context, flow *models.Flow) error {
	if flow.ID == "" {
		return store.NewFlowError("SaveFlow", "", store.ErrInvalidFlow)
	}

	nodes, err := json.Marshal(flow.Nodes)
	if err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	edges, err := json.Marshal(flow.Edges)
	if err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	variables, err := json.Marshal(flow.Variables)
	if err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	_, err = s.flows.db.ExecContext(ctx, `
		INSERT INTO flows (id, name, status, user_id, trigger_type, nodes, edges, variables, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			user_id = EXCLUDED.user_id,
			trigger_type = EXCLUDED.trigger_type,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			variables = EXCLUDED.variables,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`, flow.ID, flow.Name, string(flow.Status), flow.UserID, string(flow.TriggerType),
		nodes, edges, variables, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

// DeleteFlow soft deletes by setting deleted_at.
func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	result, err := s.flows.db.ExecContext(ctx,
		"UPDATE flows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return store.NewFlowError("DeleteFlow", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewFlowError("DeleteFlow", id, err)
	}

	if affected == 0 {
		return store.NewFlowError("DeleteFlow", id, store.ErrFlowNotFound)
	}

	return nil
}

func (r *flowRepository) list(ctx context.Context, query string, args ...any) ([]*models.Flow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewFlowError("Flows", "", err)
	}
	defer func() { _ = rows.Close() }()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, store.NewFlowError("Flows", "", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewFlowError("Flows", "", err)
	}

	return flows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow        models.Flow
		status      string
		triggerType string
		nodes       []byte
		edges       []byte
		variables   []byte
	)

	err := row.Scan(&flow.ID, &flow.Name, &status, &flow.UserID, &triggerType,
		&nodes, &edges, &variables, &flow.CreatedAt, &flow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	flow.Status = models.FlowStatus(status)
	flow.TriggerType = models.TriggerType(triggerType)

	if err := json.Unmarshal(nodes, &flow.Nodes); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(edges, &flow.Edges); err != nil {
		return nil, err
	}

	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &flow.Variables); err != nil {
			return nil, err
		}
	}

	return &flow, nil
}
