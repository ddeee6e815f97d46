package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMessageRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockMessageRepository) GetMessages(roomId string, since *time.Time) ([]Message, error) {
	args := m.Called(roomId, since)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
