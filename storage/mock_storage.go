package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/flockhq/eventkit/event"
)

// MockStorage implements the Storage interface for testing.
type MockStorage struct {
	mock.Mock
}

// CreateEvent implements the Storage interface.
func (m *MockStorage) CreateEvent(ctx context.Context, ev *event.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// UpdateEvent implements the Storage interface.
func (m *MockStorage) UpdateEvent(ctx context.Context, ev *event.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// DeleteEvent implements the Storage interface.
func (m *MockStorage) DeleteEvent(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// GetEvent implements the Storage interface.
func (m *MockStorage) GetEvent(ctx context.Context, eventID string) (*event.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

// CreateException implements the Storage interface.
func (m *MockStorage) CreateException(ctx context.Context, eventID string, date time.Time) error {
	args := m.Called(ctx, eventID, date)
	return args.Error(0)
}

// GetSeries implements the Storage interface.
func (m *MockStorage) GetSeries(ctx context.Context, eventID string) (*Series, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Series), args.Error(1)
}
