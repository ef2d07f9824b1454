package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/people-service/models"
	"github.com/upb/people-service/repositories"
	"go.uber.org/zap"
)

// AccessAuditService records authorization decisions asynchronously.
// Without a repository, entries are written to the structured log instead.
type AccessAuditService struct {
	repo        repositories.AccessLogRepository
	logger      *zap.Logger
	eventChan   chan *models.AccessLog
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	stopped     bool
	mu          sync.RWMutex
	dropped     atomic.Int64
}

// Config holds configuration for the AccessAuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAccessAuditService creates a new AccessAuditService instance. repo may be nil.
func NewAccessAuditService(repo repositories.AccessLogRepository, logger *zap.Logger, config Config) *AccessAuditService {
	if config.BufferSize <= 0 || config.WorkerCount <= 0 {
		config = DefaultConfig()
	}

	return &AccessAuditService{
		repo:        repo,
		logger:      logger,
		eventChan:   make(chan *models.AccessLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *AccessAuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started access audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize),
		zap.Bool("persistent", s.repo != nil))

	return nil
}

// Stop closes the queue and waits for pending entries to be written
func (s *AccessAuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	// holding the write lock guarantees no Record is mid-send
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping access audit service", zap.Int("pending_events", len(s.eventChan)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("access audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues an entry without blocking. When the buffer is full the entry is dropped.
func (s *AccessAuditService) Record(entry *models.AccessLog) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		s.write(context.Background(), entry)
		return
	}

	select {
	case s.eventChan <- entry:
	default:
		s.dropped.Add(1)
		s.logger.Warn("access audit buffer full, dropping entry",
			zap.String("request_id", entry.RequestID),
			zap.String("route", entry.Route),
			zap.String("decision", string(entry.Decision)))
	}
}

func (s *AccessAuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for entry := range s.eventChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.write(ctx, entry)
		cancel()
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// write persists one entry, falling back to the log
func (s *AccessAuditService) write(ctx context.Context, entry *models.AccessLog) {
	fields := []zap.Field{
		zap.String("access_log_id", entry.ID.String()),
		zap.String("request_id", entry.RequestID),
		zap.String("subject", entry.Subject),
		zap.String("method", entry.Method),
		zap.String("route", entry.Route),
		zap.String("required_group", entry.Group),
		zap.String("decision", string(entry.Decision)),
		zap.String("reason", entry.Reason),
		zap.Int("status_code", entry.StatusCode),
	}

	if s.repo == nil {
		s.logger.Info("access decision", fields...)
		return
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to persist access decision", append(fields, zap.Error(err))...)
	}
}

// GetStats returns statistics about the audit service
func (s *AccessAuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
		Dropped:       s.dropped.Load(),
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
	Dropped       int64
}
