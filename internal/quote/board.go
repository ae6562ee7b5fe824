package quote

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// StatusBoard tracks stage progress for one pipeline and produces snapshots.
// Stage states only move forward, Seq increases by one per snapshot, and
// nothing changes once the phase is terminal.
type StatusBoard struct {
	mu        sync.Mutex
	requestID uuid.UUID
	seq       int
	stages    []models.StageStatus
	phase     string
	now       func() time.Time
}

func NewStatusBoard(requestID uuid.UUID) *StatusBoard {
	stages := make([]models.StageStatus, len(models.Stages))
	for i, s := range models.Stages {
		stages[i] = models.StageStatus{Stage: s, State: models.StatePending}
	}
	return &StatusBoard{
		requestID: requestID,
		stages:    stages,
		phase:     models.PhaseRunning,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Advance sets stage to state. It reports false, and returns the current
// snapshot unchanged, when the move would go backwards or the board is closed.
func (b *StatusBoard) Advance(stage string, state models.StageState, detail string) (models.StatusSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase != models.PhaseRunning {
		return b.snapshotLocked(), false
	}
	i := b.indexLocked(stage)
	if i < 0 || state.Rank() < b.stages[i].State.Rank() {
		return b.snapshotLocked(), false
	}
	if state == b.stages[i].State && detail == b.stages[i].Detail {
		return b.snapshotLocked(), false
	}
	b.stages[i].State = state
	b.stages[i].Detail = detail
	return b.emitLocked(), true
}

// Complete marks every stage done and closes the board.
func (b *StatusBoard) Complete(detail string) models.StatusSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase != models.PhaseRunning {
		return b.snapshotLocked()
	}
	for i := range b.stages {
		b.stages[i].State = models.StateDone
	}
	if detail != "" {
		b.stages[len(b.stages)-1].Detail = detail
	}
	b.phase = models.PhaseCompleted
	return b.emitLocked()
}

// Fail closes the board in the failed phase, leaving stage states as they were.
func (b *StatusBoard) Fail(detail string) models.StatusSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase != models.PhaseRunning {
		return b.snapshotLocked()
	}
	for i := range b.stages {
		if b.stages[i].State == models.StateInProgress {
			b.stages[i].Detail = detail
		}
	}
	b.phase = models.PhaseFailed
	return b.emitLocked()
}

// Snapshot returns the latest snapshot without advancing Seq.
func (b *StatusBoard) Snapshot() models.StatusSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *StatusBoard) indexLocked(stage string) int {
	for i, s := range b.stages {
		if s.Stage == stage {
			return i
		}
	}
	return -1
}

func (b *StatusBoard) emitLocked() models.StatusSnapshot {
	b.seq++
	return b.snapshotLocked()
}

func (b *StatusBoard) snapshotLocked() models.StatusSnapshot {
	stages := make([]models.StageStatus, len(b.stages))
	copy(stages, b.stages)
	return models.StatusSnapshot{
		RequestID: b.requestID,
		Seq:       b.seq,
		Stages:    stages,
		Phase:     b.phase,
		EmittedAt: b.now(),
	}
}
