package usecase

import (
	"strings"
	"sync"
	"time"

	"github.com/user/serp-rank-service/internal/entity"
)

// runState is the single shared record of the current run. The worker is its
// only writer during a run; the control surface only reads snapshots.
type runState struct {
	mu sync.RWMutex

	runID        string
	targetDomain string
	phase        entity.RunPhase
	running      bool
	completed    int
	total        int
	startedAt    time.Time
	finishedAt   time.Time
	log          strings.Builder
	report       string

	buckets         entity.Buckets
	classifications []entity.Classification
}

func newRunState() *runState {
	return &runState{phase: entity.PhaseIdle}
}

func (s *runState) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// reset starts a new run. Everything from the previous run, report included, is dropped.
func (s *runState) reset(runID, targetDomain string, total int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
	s.targetDomain = targetDomain
	s.phase = entity.PhaseRunning
	s.running = true
	s.completed = 0
	s.total = total
	s.startedAt = now
	s.finishedAt = time.Time{}
	s.log.Reset()
	s.report = ""
	s.buckets = entity.Buckets{}
	s.classifications = nil
}

func (s *runState) appendLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.WriteString(line)
	s.log.WriteString("\n")
}

func (s *runState) incCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
}

func (s *runState) classify(c entity.Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets.Add(c.Bucket, c.Term)
	s.classifications = append(s.classifications, c)
}

// bucketsCopy returns the buckets with slices detached from the live state.
func (s *runState) bucketsCopy() entity.Buckets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entity.Buckets{
		FirstPage:  append([]entity.SearchTerm(nil), s.buckets.FirstPage...),
		SecondPage: append([]entity.SearchTerm(nil), s.buckets.SecondPage...),
		NotFound:   append([]entity.SearchTerm(nil), s.buckets.NotFound...),
	}
}

// finish marks the run terminal and returns its archive record, taken under
// the same lock so that a later reset cannot leak into it.
func (s *runState) finish(phase entity.RunPhase, report string, now time.Time) *entity.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.running = false
	s.report = report
	s.finishedAt = now
	return &entity.RunRecord{
		RunID:           s.runID,
		TargetDomain:    s.targetDomain,
		Phase:           s.phase,
		StartedAt:       s.startedAt,
		FinishedAt:      s.finishedAt,
		CompletedCount:  s.completed,
		TotalCount:      s.total,
		Report:          s.report,
		Classifications: append([]entity.Classification(nil), s.classifications...),
	}
}

// reportText returns the report of the last run if it ended as completed or stopped.
func (s *runState) reportText() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.running || (s.phase != entity.PhaseCompleted && s.phase != entity.PhaseStopped) {
		return "", false
	}
	return s.report, true
}

func (s *runState) snapshot(now time.Time) entity.ProgressSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := entity.ProgressSnapshot{
		RunID:     s.runID,
		Phase:     s.phase,
		Running:   s.running,
		Completed: s.completed,
		Total:     s.total,
		Log:       s.log.String(),
	}
	if !s.startedAt.IsZero() {
		snap.Elapsed = now.Sub(s.startedAt)
	}
	if !s.running {
		snap.Report = s.report
	}
	return snap
}
