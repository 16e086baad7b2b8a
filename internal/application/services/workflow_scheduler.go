package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/internal/domain/ports"
	"github.com/coverline/backend/pkg/constants"
)

// SweepFunc is a maintenance job run on the nightly cron schedule
type SweepFunc func(ctx context.Context)

// WorkflowScheduler drives re-entrant continuation of the executor through
// an explicit bounded work queue. After a step commits an Advanced outcome
// with a next step, the claim is re-enqueued; workers pick it up outside
// the committed transaction, so no step ever runs nested inside another.
//
// The scheduler also owns the timer poller (durable TIMER continuations)
// and the nightly maintenance cron.
type WorkflowScheduler struct {
	executor *WorkflowExecutor
	tx       ports.TxRunner
	claims   ports.ClaimStore
	timers   ports.TimerStore

	queue    chan string
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	cron   *cron.Cron
	sweeps []SweepFunc

	mu      sync.Mutex
	running bool
}

// NewWorkflowScheduler creates a new WorkflowScheduler
func NewWorkflowScheduler(
	executor *WorkflowExecutor,
	tx ports.TxRunner,
	claims ports.ClaimStore,
	timers ports.TimerStore,
) *WorkflowScheduler {
	return &WorkflowScheduler{
		executor: executor,
		tx:       tx,
		claims:   claims,
		timers:   timers,
		queue:    make(chan string, constants.SchedulerQueueSize),
		stopChan: make(chan struct{}),
		cron:     cron.New(),
	}
}

// RegisterSweep adds a maintenance job to the nightly cron. Must be called
// before Start.
func (s *WorkflowScheduler) RegisterSweep(sweep SweepFunc) {
	s.sweeps = append(s.sweeps, sweep)
}

// Start launches the worker pool, the timer poller, and the cron
func (s *WorkflowScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Printf("⚙️ Workflow scheduler starting with %d workers", constants.SchedulerWorkers)

	for i := 0; i < constants.SchedulerWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.wg.Add(1)
	go s.pollTimers()

	if _, err := s.cron.AddFunc(constants.ExpirySweepCronSpec, s.runSweeps); err != nil {
		log.Printf("⚠️ Scheduler: failed to register maintenance cron: %v", err)
	}
	s.cron.Start()
}

// Stop drains the scheduler gracefully
func (s *WorkflowScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.cron.Stop()
	s.wg.Wait()
	log.Printf("⚙️ Workflow scheduler stopped")
}

// Enqueue submits a claim for step execution. Never call inside an open
// transaction: the worker must observe the committed state. When the queue
// is full the send is retried from a goroutine so callers never block.
func (s *WorkflowScheduler) Enqueue(claimID string) {
	select {
	case s.queue <- claimID:
	default:
		log.Printf("⚠️ Scheduler: queue full, deferring claim %s", claimID)
		go func() {
			select {
			case s.queue <- claimID:
			case <-s.stopChan:
			}
		}()
	}
}

// worker executes steps until the scheduler stops. A claim keeps its
// position fair: each Advanced outcome re-enqueues at the back of the queue.
func (s *WorkflowScheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case claimID := <-s.queue:
			s.runStep(claimID)
		}
	}
}

func (s *WorkflowScheduler) runStep(claimID string) {
	outcome := s.executor.ExecuteStep(context.Background(), claimID)

	switch outcome.Kind {
	case OutcomeAdvanced:
		if outcome.NextStep != nil {
			s.Enqueue(claimID)
		} else {
			log.Printf("✅ Scheduler: claim %s workflow complete", claimID)
		}
	case OutcomePaused:
		// MANUAL or TIMER step; resumption comes from outside
	case OutcomeHalted:
		log.Printf("⏹️ Scheduler: claim %s halted (%s)", claimID, outcome.Reason)
	case OutcomeErrored:
		log.Printf("❌ Scheduler: claim %s workflow errored: %v", claimID, outcome.Err)
	}
}

// pollTimers periodically fires due timer rows. Due rows are read without
// locks, then each timer is claimed, marked fired, and conditionally
// advanced in its own transaction; a failing timer is logged and skipped
// so it never holds up the rest of the batch. A timer whose claim already
// moved on is a silent no-op. Affected claims are enqueued only after
// their transaction commits.
func (s *WorkflowScheduler) pollTimers() {
	defer s.wg.Done()

	ticker := time.NewTicker(constants.TimerPollIntervalSeconds * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.fireDueTimers()
		}
	}
}

func (s *WorkflowScheduler) fireDueTimers() {
	ctx := context.Background()

	due, err := s.timers.ListDue(ctx, time.Now(), 50)
	if err != nil {
		log.Printf("⚠️ Scheduler: timer poll failed: %v", err)
		return
	}

	for _, timer := range due {
		if err := s.fireTimer(ctx, timer); err != nil {
			log.Printf("⚠️ Scheduler: timer %s for claim %s failed: %v", timer.ID, timer.ClaimID, err)
		}
	}
}

// fireTimer consumes one timer in its own transaction. An error rolls back
// only that timer; the rest of the batch is unaffected.
func (s *WorkflowScheduler) fireTimer(ctx context.Context, timer *models.WorkflowTimer) error {
	resume := false

	err := s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		claimed, err := s.timers.ClaimPending(txCtx, timer.ID)
		if err != nil {
			return err
		}
		if !claimed {
			// Another poller consumed it between the list and the claim
			return nil
		}

		if err := s.timers.MarkFired(txCtx, timer.ID); err != nil {
			return err
		}

		applied, err := s.claims.AdvanceStep(txCtx, timer.ClaimID, timer.ExpectedStepOrder, timer.NextStepOrder)
		if err != nil {
			return err
		}
		if !applied {
			// Claim advanced elsewhere while the timer was pending
			log.Printf("⏭️ Scheduler: stale timer %s for claim %s, skipping", timer.ID, timer.ClaimID)
			return nil
		}

		log.Printf("⏰ Scheduler: timer fired for claim %s, advancing past step %d",
			timer.ClaimID, timer.ExpectedStepOrder)
		resume = timer.NextStepOrder != nil
		return nil
	})
	if err != nil {
		return err
	}

	if resume {
		s.Enqueue(timer.ClaimID)
	}
	return nil
}

func (s *WorkflowScheduler) runSweeps() {
	ctx := context.Background()
	for _, sweep := range s.sweeps {
		sweep(ctx)
	}
}
