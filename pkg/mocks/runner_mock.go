package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/protocol"
)

// MockRunner is a mock implementation of protocol.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Execute(ctx context.Context, flow *models.Flow, input protocol.RunInput) (string, error) {
	args := m.Called(ctx, flow, input)

	return args.String(0), args.Error(1)
}
