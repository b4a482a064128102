// Package store holds the windowed per-student aggregates. Work is
// partitioned by a hash of the student id across a fixed pool of shard
// workers; every event for a given student is routed to the same shard, so
// each aggregate has exactly one writer and no locking is needed around
// state mutation.
package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/internal/service"
	"github.com/EduPulseAI/engagement-service/pkg/config"
	apperrors "github.com/EduPulseAI/engagement-service/pkg/errors"
)

// Key identifies one aggregation unit: a student within one window.
type Key struct {
	StudentID   string
	WindowStart int64
}

// UpdateFunc runs on the owning shard goroutine after every successful apply,
// with exclusive access to the updated aggregate for the duration of the call.
type UpdateFunc func(state *models.StudentEngagementState)

type shard struct {
	id         int
	events     chan *models.EnrichedEvent
	states     map[Key]*models.StudentEngagementState
	watermarks map[string]int64
}

// Store routes events to shard workers, maintains the per-(student, window)
// aggregates, and evicts windows once the per-student watermark passes their
// grace horizon.
type Store struct {
	shards          []*shard
	assigner        *service.WindowAssigner
	rapidIntervalMs int64
	evictionEvery   time.Duration
	onUpdate        UpdateFunc
	logger          *zap.Logger
	metrics         *service.MetricsService

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// New constructs a sharded store. onUpdate is invoked on the shard goroutine
// after each apply; it must not retain the state beyond the call.
func New(cfg config.PipelineConfig, scoring config.ScoringConfig, assigner *service.WindowAssigner, onUpdate UpdateFunc, logger *zap.Logger, metrics *service.MetricsService) *Store {
	shardCount := cfg.ShardCount
	if shardCount <= 0 {
		shardCount = 1
	}
	buffer := cfg.ShardBuffer
	if buffer <= 0 {
		buffer = 64
	}
	evictionEvery := cfg.EvictionInterval
	if evictionEvery <= 0 {
		evictionEvery = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{
			id:         i,
			events:     make(chan *models.EnrichedEvent, buffer),
			states:     make(map[Key]*models.StudentEngagementState),
			watermarks: make(map[string]int64),
		}
	}

	return &Store{
		shards:          shards,
		assigner:        assigner,
		rapidIntervalMs: scoring.Thresholds.RapidSubmissionInterval.Milliseconds(),
		evictionEvery:   evictionEvery,
		onUpdate:        onUpdate,
		logger:          logger,
		metrics:         metrics,
	}
}

// Start launches the shard workers. Safe to call once.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, sh := range s.shards {
		s.wg.Add(1)
		go s.worker(sh)
	}
	s.started = true
	s.logger.Sugar().Infow("aggregate store started", "shards", len(s.shards))
}

// Stop closes the intake and waits for the shard workers to drain buffered
// events. Producers must have stopped enqueuing before Stop is called.
func (s *Store) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, sh := range s.shards {
		close(sh.events)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
	s.logger.Sugar().Infow("aggregate store stopped")
}

// Apply routes an event to its owning shard. It blocks while the shard's
// buffer is full, providing backpressure to the transport layer.
func (s *Store) Apply(event *models.EnrichedEvent) error {
	s.mu.Lock()
	started, stopped, ctx := s.started, s.stopped, s.ctx
	s.mu.Unlock()

	if !started || stopped {
		return apperrors.ErrStoreStopped
	}

	sh := s.shards[shardIndex(event.StudentID, len(s.shards))]
	select {
	case <-ctx.Done():
		return apperrors.ErrStoreStopped
	case sh.events <- event:
		return nil
	}
}

// ShardCount returns the number of shard workers.
func (s *Store) ShardCount() int {
	return len(s.shards)
}

// Running reports whether the store is accepting events.
func (s *Store) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

func (s *Store) worker(sh *shard) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.evictionEvery)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sh.events:
			if !ok {
				return
			}
			s.apply(sh, event)
		case <-ticker.C:
			s.evict(sh)
		}
	}
}

func (s *Store) apply(sh *shard, event *models.EnrichedEvent) {
	start := time.Now()

	// Advance the per-student watermark to the max event time seen.
	watermark, seen := sh.watermarks[event.StudentID]
	if !seen || event.Timestamp > watermark {
		watermark = event.Timestamp
		sh.watermarks[event.StudentID] = watermark
	}

	window := s.assigner.Assign(event.Timestamp)
	if !s.assigner.Accepts(window, watermark) {
		s.metrics.RecordDroppedLate()
		s.logger.Debug("dropped late event",
			zap.String("student_id", event.StudentID),
			zap.String("event_id", event.EventID),
			zap.Int64("event_time", event.Timestamp),
			zap.Int64("window_end", window.End),
			zap.Int64("watermark", watermark),
		)
		return
	}

	key := Key{StudentID: event.StudentID, WindowStart: window.Start}
	state, ok := sh.states[key]
	if !ok {
		state = models.NewStudentEngagementState(event.StudentID, event.SessionID, window.Start, window.End)
		sh.states[key] = state
		s.metrics.AddAggregates(1)
	}

	switch {
	case event.IsQuizAnswer():
		state.AddQuizAnswer(event, s.rapidIntervalMs)
	case event.IsSessionEvent():
		state.AddSessionEvent(event)
	default:
		s.logger.Warn("unknown event type, skipping",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID),
		)
		return
	}

	s.logger.Debug("aggregated event",
		zap.String("student_id", state.StudentID),
		zap.String("event_type", event.EventType),
		zap.Int("total_answers", state.TotalAnswers),
		zap.Int("navigation_events", state.NavigationEvents),
	)

	if s.onUpdate != nil {
		s.onUpdate(state)
	}

	s.metrics.ObserveApply(time.Since(start))
}

// evict removes aggregates whose window can no longer accept events under the
// owning student's watermark. Eviction is purely event-time driven; a window
// only closes once later events prove time has moved past its grace horizon.
func (s *Store) evict(sh *shard) {
	for key, state := range sh.states {
		watermark, seen := sh.watermarks[key.StudentID]
		if !seen {
			continue
		}
		window := service.Window{Start: state.WindowStart, End: state.WindowEnd}
		if !s.assigner.Accepts(window, watermark) {
			delete(sh.states, key)
			s.metrics.AddAggregates(-1)
			s.logger.Debug("evicted expired window",
				zap.String("student_id", key.StudentID),
				zap.Int64("window_start", key.WindowStart),
				zap.Int64("watermark", watermark),
			)
		}
	}
}

func shardIndex(studentID string, shardCount int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(studentID))
	return int(h.Sum32() % uint32(shardCount))
}
