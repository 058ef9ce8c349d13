// Package audit persists the routing decision trail asynchronously. The
// request path never waits on the database: records are queued to a worker
// pool and a full queue drops the record rather than blocking.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/models"
	"github.com/samara-ai/modelrouter/repositories"
	"github.com/samara-ai/modelrouter/services"
	"github.com/samara-ai/modelrouter/services/routing"
)

// Event carries one decision record to the worker pool
type Event struct {
	Record *models.DecisionRecord
}

// maxBatchSize caps how many queued records a worker flushes in one
// transaction
const maxBatchSize = 32

// Service handles asynchronous decision auditing
type Service struct {
	decisionRepo repositories.DecisionRepository
	txManager    repositories.TransactionManager
	logger       *zap.Logger
	eventChan    chan *Event
	workerCount  int
	bufferSize   int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	started      bool
	mu           sync.Mutex
}

// Config holds configuration for the audit Service
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 5,
	}
}

// NewService creates a new audit Service instance. txManager may be nil,
// in which case workers insert records one at a time instead of flushing
// batches transactionally.
func NewService(decisionRepo repositories.DecisionRepository, txManager repositories.TransactionManager, logger *zap.Logger, config Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		decisionRepo: decisionRepo,
		txManager:    txManager,
		logger:       logger,
		eventChan:    make(chan *Event, config.BufferSize),
		workerCount:  config.WorkerCount,
		bufferSize:   config.BufferSize,
		ctx:          ctx,
		cancel:       cancel,
		started:      false,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
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
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	// Close the event channel (no more events will be accepted)
	close(s.eventChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Submit queues a record for persistence (non-blocking)
// Returns immediately, the record is processed in background
func (s *Service) Submit(event *Event) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- event:
		return nil
	default:
		// Channel is full, drop the record rather than stall the request path
		s.logger.Warn("audit event channel full, dropping record",
			zap.String("decision_id", event.Record.ID.String()),
			zap.String("outcome", string(event.Record.Outcome)))
		return fmt.Errorf("audit event buffer full")
	}
}

// SubmitBlocking queues a record synchronously (blocking)
// Waits until the record is queued or the context is cancelled
func (s *Service) SubmitBlocking(ctx context.Context, event *Event) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker drains events from the channel in batches and persists them
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		batch := s.drainBatch(event)
		if err := s.persistBatch(batch); err != nil {
			s.logger.Error("failed to persist decision records",
				zap.Int("worker_id", id),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// drainBatch collects whatever is already queued behind the first event,
// up to maxBatchSize, without blocking
func (s *Service) drainBatch(first *Event) []*Event {
	batch := []*Event{first}
	for len(batch) < maxBatchSize {
		select {
		case event, ok := <-s.eventChan:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
	return batch
}

// persistBatch writes a batch of decision records. Multi-record batches go
// through a single transaction so a flush commits or rolls back as a unit;
// single records and repositories without a transaction manager insert
// directly.
func (s *Service) persistBatch(batch []*Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.txManager == nil || len(batch) == 1 {
		for _, event := range batch {
			if err := s.decisionRepo.Insert(ctx, event.Record); err != nil {
				return fmt.Errorf("failed to insert decision record %s: %w", event.Record.ID, err)
			}
		}
		return nil
	}

	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		for _, event := range batch {
			if err := s.decisionRepo.Insert(txCtx, event.Record); err != nil {
				return fmt.Errorf("failed to insert decision record %s: %w", event.Record.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to flush audit batch: %w", err)
	}

	s.logger.Debug("audit batch flushed", zap.Int("batch_size", len(batch)))
	return nil
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int  `json:"buffer_size"`
	PendingEvents int  `json:"pending_events"`
	WorkerCount   int  `json:"worker_count"`
	Started       bool `json:"started"`
}

// RecordTrace converts a completed routing trace into a decision record
// and queues it. resp is nil when no provider served the request; execErr
// is the terminal error in that case.
func (s *Service) RecordTrace(trace *routing.Trace, resp *routing.InvokeResponse, execErr error) error {
	rec := models.NewDecisionRecord(
		trace.Decision.ID,
		string(trace.Decision.Category),
		string(trace.Decision.Bucket),
		trace.Decision.Estimate.Tokens,
	)
	rec.Provenance = string(trace.Decision.Estimate.Provenance)
	rec.OverrideApplied = trace.Decision.OverrideApplied
	rec.WithSession(trace.Decision.SessionID)
	rec.WithCandidates(trace.Decision.Candidates)
	rec.WithAttempts(trace.Attempts, len(trace.Attempts))

	switch {
	case resp != nil:
		rec.WithOutcome(models.OutcomeServed, resp.Provider)
	case services.IsExhaustedError(execErr):
		rec.WithOutcome(models.OutcomeExhausted, "")
		rec.WithError(execErr.Error())
	default:
		rec.WithOutcome(models.OutcomeAborted, "")
		if execErr != nil {
			rec.WithError(execErr.Error())
		}
	}

	return s.Submit(&Event{Record: rec})
}
