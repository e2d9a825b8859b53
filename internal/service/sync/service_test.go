package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"supportdesk-backend/internal/domain"
)

// Mocks
type MockMessageLog struct {
	mock.Mock
}

func (m *MockMessageLog) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageLog) ListSince(ctx context.Context, conversationID uuid.UUID, start, since time.Time) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, start, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

type MockConversationReader struct {
	mock.Mock
}

func (m *MockConversationReader) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationReader) Touch(ctx context.Context, conversationID uuid.UUID, now time.Time) error {
	args := m.Called(ctx, conversationID, now)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(log MessageLog, convs ConversationReader, pub Publisher) *Service {
	svc := NewService(log, convs, pub, zap.NewNop())
	svc.clock = func() time.Time { return testTime }
	return svc
}

func TestAppend(t *testing.T) {
	mockLog := new(MockMessageLog)
	mockConvs := new(MockConversationReader)
	mockPub := new(MockPublisher)
	service := newTestService(mockLog, mockConvs, mockPub)

	conversationID := uuid.New()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusActive,
	}, nil)
	mockLog.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	mockConvs.On("Touch", mock.Anything, conversationID, testTime).Return(nil)
	mockPub.On("Publish", mock.Anything, Channel(conversationID), mock.Anything).Return(nil)

	output, err := service.Append(context.Background(), &AppendInput{
		ConversationID: conversationID,
		Sender:         domain.SenderCustomer,
		Content:        "Hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello", output.Message.Content)
	assert.Equal(t, domain.MessageTypeText, output.Message.Type)
	assert.Equal(t, testTime, output.Message.CreatedAt)

	mockLog.AssertExpectations(t)
	mockConvs.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestAppendEndedConversation(t *testing.T) {
	mockLog := new(MockMessageLog)
	mockConvs := new(MockConversationReader)
	service := newTestService(mockLog, mockConvs, nil)

	conversationID := uuid.New()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusEnded,
	}, nil)

	output, err := service.Append(context.Background(), &AppendInput{
		ConversationID: conversationID,
		Sender:         domain.SenderAgent,
		Content:        "too late",
	})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, domain.ErrConversationEnded)
	mockLog.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAppendEmptyContent(t *testing.T) {
	service := newTestService(new(MockMessageLog), new(MockConversationReader), nil)

	_, err := service.Append(context.Background(), &AppendInput{
		ConversationID: uuid.New(),
		Sender:         domain.SenderCustomer,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAppendPublishFailureDoesNotFailSend(t *testing.T) {
	mockLog := new(MockMessageLog)
	mockConvs := new(MockConversationReader)
	mockPub := new(MockPublisher)
	service := newTestService(mockLog, mockConvs, mockPub)

	conversationID := uuid.New()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusActive,
	}, nil)
	mockLog.On("Append", mock.Anything, mock.Anything).Return(nil)
	mockConvs.On("Touch", mock.Anything, conversationID, testTime).Return(nil)
	mockPub.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("redis unavailable"))

	output, err := service.Append(context.Background(), &AppendInput{
		ConversationID: conversationID,
		Sender:         domain.SenderAgent,
		Content:        "still delivered",
	})

	require.NoError(t, err)
	assert.NotNil(t, output.Message)
}

func TestSyncSince(t *testing.T) {
	mockLog := new(MockMessageLog)
	mockConvs := new(MockConversationReader)
	service := newTestService(mockLog, mockConvs, nil)

	conversationID := uuid.New()
	createdAt := testTime.Add(-time.Hour)
	since := testTime.Add(-10 * time.Minute)

	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusActive,
		CreatedAt:      createdAt,
	}, nil)

	newer := []*domain.Message{
		{ConversationID: conversationID, Content: "newer", CreatedAt: since.Add(time.Minute)},
	}
	mockLog.On("ListSince", mock.Anything, conversationID, createdAt, since).Return(newer, nil)

	output, err := service.SyncSince(context.Background(), &SyncSinceInput{
		ConversationID: conversationID,
		Since:          since,
	})

	require.NoError(t, err)
	assert.Equal(t, newer, output.Messages)
	assert.Equal(t, domain.StatusActive, output.Status)
	assert.Equal(t, testTime, output.SyncedAt)
}

func TestSyncSinceZeroCursorReturnsFullTranscript(t *testing.T) {
	mockLog := new(MockMessageLog)
	mockConvs := new(MockConversationReader)
	service := newTestService(mockLog, mockConvs, nil)

	conversationID := uuid.New()
	createdAt := testTime.Add(-time.Hour)

	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusEnded,
		CreatedAt:      createdAt,
	}, nil)

	all := []*domain.Message{
		{ConversationID: conversationID, Content: "first", CreatedAt: createdAt},
		{ConversationID: conversationID, Content: "second", CreatedAt: createdAt.Add(time.Minute)},
	}
	mockLog.On("ListSince", mock.Anything, conversationID, createdAt, time.Time{}).Return(all, nil)

	output, err := service.SyncSince(context.Background(), &SyncSinceInput{
		ConversationID: conversationID,
	})

	require.NoError(t, err)
	assert.Len(t, output.Messages, 2)
	// ENDED conversations stay readable.
	assert.Equal(t, domain.StatusEnded, output.Status)
}

func TestSyncSinceNotFound(t *testing.T) {
	mockLog := new(MockMessageLog)
	mockConvs := new(MockConversationReader)
	service := newTestService(mockLog, mockConvs, nil)

	conversationID := uuid.New()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(nil, domain.ErrNotFound)

	_, err := service.SyncSince(context.Background(), &SyncSinceInput{ConversationID: conversationID})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
