package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/trigion/trigion/pkg/protocol"
)

// MockScheduler is a mock implementation of protocol.Scheduler.
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(cronExpr string, callback func(), opts protocol.ScheduleOptions) (protocol.Job, error) {
	args := m.Called(cronExpr, callback, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(protocol.Job), args.Error(1)
}

// MockJob is a mock implementation of protocol.Job.
type MockJob struct {
	mock.Mock
}

func (m *MockJob) Cancel() {
	m.Called()
}
