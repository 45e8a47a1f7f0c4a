// Package file provides the file-system flow store. Each flow is one JSON
// document under <root>/flows.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/store"
)

type Store struct {
	root string
}

// NewStore creates a file store rooted at the given directory. A file:// URL
// prefix is accepted and stripped.
func NewStore(root string) *Store {
	return &Store{root: strings.Replace(root, "file://", "", 1)}
}

func (s *Store) flowsDir() string {
	return filepath.Join(s.root, "flows")
}

func (s *Store) flowPath(id string) string {
	return filepath.Join(s.flowsDir(), id+".json")
}

func (s *Store) Flows(_ context.Context) ([]*models.Flow, error) {
	entries, err := os.ReadDir(s.flowsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.Flow{}, nil
		}

		return nil, fmt.Errorf("failed to read flows directory: %w", err)
	}

	flows := make([]*models.Flow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		flow, err := s.readFlow(filepath.Join(s.flowsDir(), entry.Name()))
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
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

func (s *Store) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	flow, err := s.readFlow(s.flowPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.NewFlowError("FlowByID", id, store.ErrFlowNotFound)
		}

		return nil, store.NewFlowError("FlowByID", id, err)
	}

	return flow, nil
}

func (s *Store) SaveFlow(_ context.Context, flow *models.Flow) error {
	if flow.ID == "" {
		return store.NewFlowError("SaveFlow", "", store.ErrInvalidFlow)
	}

	if err := os.MkdirAll(s.flowsDir(), 0o755); err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	if err := os.WriteFile(s.flowPath(flow.ID), data, 0o644); err != nil {
		return store.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

func (s *Store) DeleteFlow(_ context.Context, id string) error {
	err := os.Remove(s.flowPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store.NewFlowError("DeleteFlow", id, store.ErrFlowNotFound)
		}

		return store.NewFlowError("DeleteFlow", id, err)
	}

	return nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs no work; the file store holds no connections.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) readFlow(path string) (*models.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to decode flow file %s: %w", path, err)
	}

	return &flow, nil
}
