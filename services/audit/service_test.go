package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/people-service/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockAccessLogRepository is a mock implementation of AccessLogRepository
type MockAccessLogRepository struct {
	mock.Mock
	mu       sync.Mutex
	inserted []*models.AccessLog
}

func (m *MockAccessLogRepository) Insert(ctx context.Context, log *models.AccessLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	args := m.Called(ctx, log)
	m.inserted = append(m.inserted, log)
	return args.Error(0)
}

func (m *MockAccessLogRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inserted)
}

func newEntry(decision models.AccessDecision) *models.AccessLog {
	entry := models.NewAccessLog("GET", "/people/jury-members").WithSubject("alice", models.GroupProposers)
	if decision == models.AccessDenied {
		return entry.Deny(403, "missing_group")
	}
	return entry.Allow()
}

func TestAccessAuditService_StartStop(t *testing.T) {
	svc := NewAccessAuditService(nil, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, svc.Start())
	assert.True(t, svc.GetStats().Started)
	assert.Error(t, svc.Start(), "second start must fail")

	require.NoError(t, svc.Stop(time.Second))
	assert.False(t, svc.GetStats().Started)
	assert.Error(t, svc.Stop(time.Second))
}

func TestAccessAuditService_DefaultsOnInvalidConfig(t *testing.T) {
	svc := NewAccessAuditService(nil, zap.NewNop(), Config{})
	stats := svc.GetStats()
	assert.Equal(t, DefaultConfig().BufferSize, stats.BufferSize)
	assert.Equal(t, DefaultConfig().WorkerCount, stats.WorkerCount)
}

func TestAccessAuditService_PersistsEntries(t *testing.T) {
	repo := new(MockAccessLogRepository)
	repo.On("Insert", mock.Anything, mock.AnythingOfType("*models.AccessLog")).Return(nil)

	svc := NewAccessAuditService(repo, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 3})
	require.NoError(t, svc.Start())

	for i := 0; i < 20; i++ {
		svc.Record(newEntry(models.AccessAllowed))
	}

	// Stop drains the queue before returning
	require.NoError(t, svc.Stop(2*time.Second))
	assert.Equal(t, 20, repo.count())
	repo.AssertNumberOfCalls(t, "Insert", 20)
}

func TestAccessAuditService_RepositoryErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	repo := new(MockAccessLogRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := NewAccessAuditService(repo, zap.New(core), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, svc.Start())
	svc.Record(newEntry(models.AccessDenied))
	require.NoError(t, svc.Stop(time.Second))

	require.Equal(t, 1, logs.FilterMessage("failed to persist access decision").Len())
}

func TestAccessAuditService_LogsWithoutRepository(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := NewAccessAuditService(nil, zap.New(core), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, svc.Start())

	entry := newEntry(models.AccessDenied)
	svc.Record(entry)
	require.NoError(t, svc.Stop(time.Second))

	decisions := logs.FilterMessage("access decision").All()
	require.Len(t, decisions, 1)
	fields := decisions[0].ContextMap()
	assert.Equal(t, "alice", fields["subject"])
	assert.Equal(t, "denied", fields["decision"])
	assert.Equal(t, "missing_group", fields["reason"])
	assert.Equal(t, int64(403), fields["status_code"])
}

func TestAccessAuditService_RecordBeforeStartWritesInline(t *testing.T) {
	repo := new(MockAccessLogRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	svc := NewAccessAuditService(repo, zap.NewNop(), Config{BufferSize: 1, WorkerCount: 1})
	svc.Record(newEntry(models.AccessAllowed))

	assert.Equal(t, 1, repo.count())
}

func TestAccessAuditService_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	repo := new(MockAccessLogRepository)
	repo.On("Insert", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	svc := NewAccessAuditService(repo, zap.NewNop(), Config{BufferSize: 1, WorkerCount: 1})
	require.NoError(t, svc.Start())

	// the worker blocks on the first entry, the second fills the buffer
	svc.Record(newEntry(models.AccessAllowed))
	require.Eventually(t, func() bool { return svc.GetStats().PendingEvents == 0 }, time.Second, 5*time.Millisecond)
	svc.Record(newEntry(models.AccessAllowed))
	svc.Record(newEntry(models.AccessAllowed))

	assert.Equal(t, int64(1), svc.GetStats().Dropped)

	close(release)
	require.NoError(t, svc.Stop(time.Second))
}
