package registry

import (
	"context"
	"errors"
	"sync"
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
type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) Create(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversationStore) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) Claim(ctx context.Context, conversationID, agentID uuid.UUID, now time.Time) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, agentID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) TransitionStatus(ctx context.Context, conversationID uuid.UUID, from, to domain.ConversationStatus, now time.Time) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, from, to, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) Touch(ctx context.Context, conversationID uuid.UUID, now time.Time) error {
	args := m.Called(ctx, conversationID, now)
	return args.Error(0)
}

func (m *MockConversationStore) MarkInactive(ctx context.Context, conversationID uuid.UUID, now time.Time) error {
	args := m.Called(ctx, conversationID, now)
	return args.Error(0)
}

func (m *MockConversationStore) ListByStatus(ctx context.Context, tenantID uuid.UUID, status domain.ConversationStatus, limit int) ([]*domain.Conversation, error) {
	args := m.Called(ctx, tenantID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*domain.Conversation, error) {
	args := m.Called(ctx, agentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageStore) Latest(ctx context.Context, conversationID uuid.UUID, start time.Time) (*domain.Message, error) {
	args := m.Called(ctx, conversationID, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

type MockTenantDirectory struct {
	mock.Mock
}

func (m *MockTenantDirectory) GetTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantDirectory) CountAgents(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockTenantDirectory) GetAgent(ctx context.Context, agentID uuid.UUID) (*domain.Agent, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agent), args.Error(1)
}

type MockPresenceChecker struct {
	mock.Mock
}

func (m *MockPresenceChecker) IsOnline(ctx context.Context, agentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, agentID)
	return args.Bool(0), args.Error(1)
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(convs ConversationStore, msgs MessageStore, tenants TenantDirectory) *Service {
	svc := NewService(convs, msgs, tenants, nil, zap.NewNop())
	svc.clock = func() time.Time { return testTime }
	return svc
}

func TestCreate(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	tenantID := uuid.New()
	welcome := "Welcome to support!"
	mockTenants.On("GetTenant", mock.Anything, tenantID).Return(&domain.Tenant{
		TenantID:       tenantID,
		WelcomeMessage: &welcome,
	}, nil)
	mockTenants.On("CountAgents", mock.Anything, tenantID).Return(2, nil)
	mockConvs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Conversation")).Return(nil)

	var appended []*domain.Message
	mockMsgs.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			appended = append(appended, args.Get(1).(*domain.Message))
		}).Return(nil)

	conv, err := service.Create(context.Background(), &domain.ConversationCreate{
		TenantID:       tenantID,
		CustomerName:   "Alice",
		InitialMessage: "My order never arrived",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, conv.Status)
	assert.Nil(t, conv.AgentID)
	assert.Equal(t, "Alice", conv.CustomerName)
	assert.Equal(t, testTime, conv.CreatedAt)
	assert.Equal(t, testTime, conv.LastActiveAt)

	require.Len(t, appended, 2)
	assert.Equal(t, domain.SenderCustomer, appended[0].Sender)
	assert.Equal(t, "My order never arrived", appended[0].Content)
	assert.Equal(t, domain.SenderAgent, appended[1].Sender)
	assert.Equal(t, welcome, appended[1].Content)

	mockConvs.AssertExpectations(t)
	mockMsgs.AssertExpectations(t)
}

func TestCreateAnonymousDefault(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	tenantID := uuid.New()
	mockTenants.On("GetTenant", mock.Anything, tenantID).Return(&domain.Tenant{TenantID: tenantID}, nil)
	mockTenants.On("CountAgents", mock.Anything, tenantID).Return(1, nil)
	mockConvs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Conversation")).Return(nil)

	var appended []*domain.Message
	mockMsgs.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			appended = append(appended, args.Get(1).(*domain.Message))
		}).Return(nil)

	conv, err := service.Create(context.Background(), &domain.ConversationCreate{TenantID: tenantID})

	require.NoError(t, err)
	assert.Equal(t, "Anonymous", conv.CustomerName)

	// No initial message, so only the tenant's default welcome text.
	require.Len(t, appended, 1)
	assert.Equal(t, domain.DefaultWelcomeMessage, appended[0].Content)
}

func TestCreateNoAgents(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	tenantID := uuid.New()
	mockTenants.On("GetTenant", mock.Anything, tenantID).Return(&domain.Tenant{TenantID: tenantID}, nil)
	mockTenants.On("CountAgents", mock.Anything, tenantID).Return(0, nil)

	conv, err := service.Create(context.Background(), &domain.ConversationCreate{TenantID: tenantID})

	assert.Nil(t, conv)
	assert.ErrorIs(t, err, domain.ErrNoAgentsAvailable)
	mockConvs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestClaim(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	tenantID := uuid.New()
	conversationID := uuid.New()
	agentID := uuid.New()

	mockTenants.On("GetAgent", mock.Anything, agentID).Return(&domain.Agent{
		AgentID:  agentID,
		TenantID: tenantID,
	}, nil)
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Status:         domain.StatusWaiting,
	}, nil)

	claimed := &domain.Conversation{
		ConversationID: conversationID,
		TenantID:       tenantID,
		AgentID:        &agentID,
		Status:         domain.StatusActive,
		LastActiveAt:   testTime,
	}
	mockConvs.On("Claim", mock.Anything, conversationID, agentID, testTime).Return(claimed, nil)

	mockMsgs.On("Append", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Sender == domain.SenderSystem && m.Content == AgentJoinedMessage
	})).Return(nil)

	conv, err := service.Claim(context.Background(), conversationID, agentID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, conv.Status)
	require.NotNil(t, conv.AgentID)
	assert.Equal(t, agentID, *conv.AgentID)

	mockConvs.AssertExpectations(t)
	mockMsgs.AssertExpectations(t)
}

func TestClaimConflict(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	tenantID := uuid.New()
	conversationID := uuid.New()
	agentID := uuid.New()

	mockTenants.On("GetAgent", mock.Anything, agentID).Return(&domain.Agent{
		AgentID:  agentID,
		TenantID: tenantID,
	}, nil)
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Status:         domain.StatusActive,
	}, nil)
	mockConvs.On("Claim", mock.Anything, conversationID, agentID, testTime).
		Return(nil, domain.ErrClaimConflict)

	conv, err := service.Claim(context.Background(), conversationID, agentID)

	assert.Nil(t, conv)
	assert.ErrorIs(t, err, domain.ErrClaimConflict)
	mockMsgs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestClaimWrongTenant(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	conversationID := uuid.New()
	agentID := uuid.New()

	mockTenants.On("GetAgent", mock.Anything, agentID).Return(&domain.Agent{
		AgentID:  agentID,
		TenantID: uuid.New(),
	}, nil)
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		TenantID:       uuid.New(),
		Status:         domain.StatusWaiting,
	}, nil)

	_, err := service.Claim(context.Background(), conversationID, agentID)

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	mockConvs.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClaimOfflineAgentRejected(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	mockPresence := new(MockPresenceChecker)
	service := newTestService(mockConvs, mockMsgs, mockTenants)
	service.presence = mockPresence

	agentID := uuid.New()
	conversationID := uuid.New()

	mockTenants.On("GetAgent", mock.Anything, agentID).Return(&domain.Agent{
		AgentID:  agentID,
		TenantID: uuid.New(),
	}, nil)
	mockPresence.On("IsOnline", mock.Anything, agentID).Return(false, nil)

	_, err := service.Claim(context.Background(), conversationID, agentID)

	assert.ErrorIs(t, err, domain.ErrAgentOffline)
	mockConvs.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClaimPresenceOutageAllowsClaim(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	mockPresence := new(MockPresenceChecker)
	service := newTestService(mockConvs, mockMsgs, mockTenants)
	service.presence = mockPresence

	tenantID := uuid.New()
	conversationID := uuid.New()
	agentID := uuid.New()

	mockTenants.On("GetAgent", mock.Anything, agentID).Return(&domain.Agent{
		AgentID:  agentID,
		TenantID: tenantID,
	}, nil)
	mockPresence.On("IsOnline", mock.Anything, agentID).
		Return(false, errors.New("redis is in degraded mode"))
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Status:         domain.StatusWaiting,
	}, nil)
	mockConvs.On("Claim", mock.Anything, conversationID, agentID, testTime).Return(&domain.Conversation{
		ConversationID: conversationID,
		TenantID:       tenantID,
		AgentID:        &agentID,
		Status:         domain.StatusActive,
	}, nil)
	mockMsgs.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)

	conv, err := service.Claim(context.Background(), conversationID, agentID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, conv.Status)
}

// fakeClaimStore backs the concurrency check: a real CAS over an
// in-memory conversation, so racing claims exercise the same
// winner-takes-all behavior the SQL conditional update provides.
type fakeClaimStore struct {
	MockConversationStore

	mu   sync.Mutex
	conv domain.Conversation
}

func (f *fakeClaimStore) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.conv
	return &c, nil
}

func (f *fakeClaimStore) Claim(ctx context.Context, conversationID, agentID uuid.UUID, now time.Time) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conv.Status != domain.StatusWaiting {
		return nil, domain.ErrClaimConflict
	}
	f.conv.Status = domain.StatusActive
	f.conv.AgentID = &agentID
	f.conv.LastActiveAt = now
	c := f.conv
	return &c, nil
}

func TestClaimConcurrent(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeClaimStore{conv: domain.Conversation{
		ConversationID: uuid.New(),
		TenantID:       tenantID,
		Status:         domain.StatusWaiting,
	}}

	mockMsgs := new(MockMessageStore)
	mockMsgs.On("Append", mock.Anything, mock.Anything).Return(nil)

	mockTenants := new(MockTenantDirectory)
	mockTenants.On("GetAgent", mock.Anything, mock.Anything).
		Return(&domain.Agent{TenantID: tenantID}, nil)

	service := newTestService(store, mockMsgs, mockTenants)

	const claimants = 16
	var wg sync.WaitGroup
	results := make([]error, claimants)
	conversationID := store.conv.ConversationID

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = service.Claim(context.Background(), conversationID, uuid.New())
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, domain.ErrClaimConflict):
			conflicts++
		}
	}

	assert.Equal(t, 1, wins, "exactly one claimant must win")
	assert.Equal(t, claimants-1, conflicts)
	mockMsgs.AssertNumberOfCalls(t, "Append", 1)
}

func TestDecline(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	conversationID := uuid.New()
	ended := &domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusEnded,
		EndedAt:        &testTime,
	}
	mockConvs.On("TransitionStatus", mock.Anything, conversationID, domain.StatusWaiting, domain.StatusEnded, testTime).
		Return(ended, nil)
	mockMsgs.On("Append", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Sender == domain.SenderSystem && m.Content == DeclinedMessage
	})).Return(nil)

	conv, err := service.Decline(context.Background(), conversationID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, conv.Status)
	mockMsgs.AssertExpectations(t)
}

func TestDeclineNotWaiting(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	conversationID := uuid.New()
	mockConvs.On("TransitionStatus", mock.Anything, conversationID, domain.StatusWaiting, domain.StatusEnded, testTime).
		Return(nil, domain.ErrNotFound)
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusActive,
	}, nil)

	_, err := service.Decline(context.Background(), conversationID)

	assert.ErrorIs(t, err, domain.ErrNotWaiting)
	mockMsgs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSetStatusEnd(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	conversationID := uuid.New()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusActive,
	}, nil)
	ended := &domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusEnded,
		EndedAt:        &testTime,
	}
	mockConvs.On("TransitionStatus", mock.Anything, conversationID, domain.StatusActive, domain.StatusEnded, testTime).
		Return(ended, nil)

	conv, err := service.SetStatus(context.Background(), conversationID, domain.StatusEnded, domain.SenderAgent)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, conv.Status)
	require.NotNil(t, conv.EndedAt)
	assert.Equal(t, testTime, *conv.EndedAt)
}

func TestSetStatusEndIdempotent(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	conversationID := uuid.New()
	endedAt := testTime.Add(-time.Hour)
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusEnded,
		EndedAt:        &endedAt,
	}, nil)

	conv, err := service.SetStatus(context.Background(), conversationID, domain.StatusEnded, domain.SenderAgent)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, conv.Status)
	assert.Equal(t, endedAt, *conv.EndedAt)
	mockConvs.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatusEndedIsTerminal(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	conversationID := uuid.New()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusEnded,
	}, nil)

	_, err := service.SetStatus(context.Background(), conversationID, domain.StatusActive, domain.SenderAgent)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSetStatusWaitingRejected(t *testing.T) {
	service := newTestService(new(MockConversationStore), new(MockMessageStore), new(MockTenantDirectory))

	_, err := service.SetStatus(context.Background(), uuid.New(), domain.StatusWaiting, domain.SenderAgent)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSetStatusActivateFromWaitingRejected(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	mockTenants := new(MockTenantDirectory)
	service := newTestService(mockConvs, mockMsgs, mockTenants)

	conversationID := uuid.New()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusWaiting,
	}, nil)

	_, err := service.SetStatus(context.Background(), conversationID, domain.StatusActive, domain.SenderCustomer)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	mockConvs.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatusRetriesOnContention(t *testing.T) {
	mockConvs := new(MockConversationStore)
	service := newTestService(mockConvs, new(MockMessageStore), new(MockTenantDirectory))

	conversationID := uuid.New()

	// First read sees ACTIVE, but the conditional update loses the
	// race; the re-read sees INACTIVE and the retry succeeds.
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusActive,
	}, nil).Once()
	mockConvs.On("TransitionStatus", mock.Anything, conversationID, domain.StatusActive, domain.StatusEnded, testTime).
		Return(nil, domain.ErrNotFound).Once()
	mockConvs.On("GetByID", mock.Anything, conversationID).Return(&domain.Conversation{
		ConversationID: conversationID,
		Status:         domain.StatusInactive,
	}, nil).Once()
	ended := &domain.Conversation{ConversationID: conversationID, Status: domain.StatusEnded, EndedAt: &testTime}
	mockConvs.On("TransitionStatus", mock.Anything, conversationID, domain.StatusInactive, domain.StatusEnded, testTime).
		Return(ended, nil).Once()

	conv, err := service.SetStatus(context.Background(), conversationID, domain.StatusEnded, domain.SenderAgent)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, conv.Status)
	mockConvs.AssertExpectations(t)
}

func TestHeartbeat(t *testing.T) {
	mockConvs := new(MockConversationStore)
	service := newTestService(mockConvs, new(MockMessageStore), new(MockTenantDirectory))

	conversationID := uuid.New()
	mockConvs.On("Touch", mock.Anything, conversationID, testTime).Return(nil)

	err := service.Heartbeat(context.Background(), conversationID)

	assert.NoError(t, err)
	mockConvs.AssertExpectations(t)
}

func TestQueue(t *testing.T) {
	mockConvs := new(MockConversationStore)
	mockMsgs := new(MockMessageStore)
	service := newTestService(mockConvs, mockMsgs, new(MockTenantDirectory))

	tenantID := uuid.New()
	convA := &domain.Conversation{ConversationID: uuid.New(), TenantID: tenantID, Status: domain.StatusWaiting, CreatedAt: testTime}
	convB := &domain.Conversation{ConversationID: uuid.New(), TenantID: tenantID, Status: domain.StatusWaiting, CreatedAt: testTime}

	mockConvs.On("ListByStatus", mock.Anything, tenantID, domain.StatusWaiting, 50).
		Return([]*domain.Conversation{convA, convB}, nil)

	lastMsg := &domain.Message{ConversationID: convA.ConversationID, Content: "hello"}
	mockMsgs.On("Latest", mock.Anything, convA.ConversationID, convA.CreatedAt).Return(lastMsg, nil)
	mockMsgs.On("Latest", mock.Anything, convB.ConversationID, convB.CreatedAt).Return(nil, domain.ErrNotFound)

	entries, err := service.Queue(context.Background(), tenantID, domain.StatusWaiting, 0)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, lastMsg, entries[0].LastMessage)
	assert.Nil(t, entries[1].LastMessage)
}
