package command

import (
	"errors"
	"fmt"

	"github.com/you-win/bevy/internal/core/ecs"
)

var (
	// ErrMissingEntityContext is raised (as a panic) when With or WithBundle
	// is called before any spawn on the same buffer.
	ErrMissingEntityContext = errors.New("command: no current entity, spawn an entity first")
	// ErrApplyTargetMissing marks a Despawn, Insert or InsertOne whose entity
	// was not live when the command was applied.
	ErrApplyTargetMissing = errors.New("command: apply target missing")
	// ErrLockPoisoned is reported once a panic has escaped while the shared
	// buffer was locked.
	ErrLockPoisoned = errors.New("command: buffer lock poisoned")
)

// ApplyError describes the command that aborted a drain. Commands queued
// after it were discarded without being applied.
type ApplyError struct {
	Index     int // position of the failed command in the drained sequence
	Kind      Kind
	Entity    ecs.EntityID
	Discarded int
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply command %d (%s %s): %v; %d queued commands discarded",
		e.Index, e.Kind, e.Entity, e.Err, e.Discarded)
}

// Unwrap yields the storage error, plus ErrApplyTargetMissing when a
// Despawn, Insert or InsertOne failed because its entity was not live.
func (e *ApplyError) Unwrap() []error {
	switch e.Kind {
	case KindDespawn, KindInsert, KindInsertOne:
		if errors.Is(e.Err, ecs.ErrNoSuchEntity) {
			return []error{ErrApplyTargetMissing, e.Err}
		}
	}
	return []error{e.Err}
}
