package responder

import (
	"math/rand"
	"sync"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

const (
	// DefaultBaseDelay and DefaultJitter reproduce the simulated reply
	// latency curve: base plus a uniform draw in [0, jitter).
	DefaultBaseDelay = 1500 * time.Millisecond
	DefaultJitter    = 1000 * time.Millisecond

	// DefaultMaxPending bounds outstanding replies; triggers beyond it are
	// dropped rather than queued without backpressure.
	DefaultMaxPending = 64
)

// Scheduler commits generated replies to the store after a randomized delay.
// Each scheduled reply holds a cancellable handle keyed by the id of the user
// message that triggered it, so deleting that message before the delay
// elapses suppresses the reply.
type Scheduler struct {
	gen *Generator
	st  store.Store

	baseDelay  time.Duration
	jitter     time.Duration
	maxPending int

	mu      sync.Mutex
	rng     *rand.Rand
	pending map[int64]*time.Timer
	stopped bool
}

// SchedulerOption tunes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDelay overrides the base delay and jitter window.
func WithDelay(base, jitter time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.baseDelay = base
		s.jitter = jitter
	}
}

// WithMaxPending overrides the outstanding-reply bound.
func WithMaxPending(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxPending = n
		}
	}
}

// NewScheduler returns a Scheduler that writes replies from gen into st.
func NewScheduler(gen *Generator, st store.Store, seed int64, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		gen:        gen,
		st:         st,
		baseDelay:  DefaultBaseDelay,
		jitter:     DefaultJitter,
		maxPending: DefaultMaxPending,
		rng:        rand.New(rand.NewSource(seed)),
		pending:    make(map[int64]*time.Timer),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule queues exactly one reply to the given user message. It never
// blocks and never fails the caller: over-capacity triggers are dropped with
// a warning, and commit failures are logged, not surfaced.
func (s *Scheduler) Schedule(trigger models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if len(s.pending) >= s.maxPending {
		logger.Warn("reply_dropped_over_capacity", "trigger_id", trigger.ID, "pending", len(s.pending))
		return
	}
	if _, dup := s.pending[trigger.ID]; dup {
		return
	}
	delay := s.baseDelay
	if s.jitter > 0 {
		delay += time.Duration(s.rng.Int63n(int64(s.jitter)))
	}
	id := trigger.ID
	content := trigger.Content
	s.pending[id] = time.AfterFunc(delay, func() {
		s.commit(id, content)
	})
	logger.Debug("reply_scheduled", "trigger_id", id, "delay", delay)
}

// Cancel drops the pending reply for the given trigger message, reporting
// whether one was still outstanding.
func (s *Scheduler) Cancel(triggerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[triggerID]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.pending, triggerID)
	logger.Debug("reply_cancelled", "trigger_id", triggerID)
	return true
}

// Stop cancels every pending reply. Subsequent Schedule calls are no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// PendingCount reports how many replies are currently scheduled.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) commit(triggerID int64, userText string) {
	s.mu.Lock()
	if _, live := s.pending[triggerID]; !live {
		// Cancelled between the timer firing and this goroutine running.
		s.mu.Unlock()
		return
	}
	delete(s.pending, triggerID)
	s.mu.Unlock()

	reply := s.gen.Generate(userText)
	msg, err := s.st.Create(models.Draft{
		Content:       reply,
		Origin:        models.OriginSystem,
		DeliveryState: models.DeliveryRead,
	})
	if err != nil {
		// The triggering request already succeeded; only log the failure.
		logger.Error("reply_commit_failed", "trigger_id", triggerID, "error", err)
		return
	}
	logger.Info("reply_committed", "trigger_id", triggerID, "id", msg.ID)
}
