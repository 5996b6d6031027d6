package workflow

import (
	"context"
	"fmt"
)

// StateMachine tracks the current state of one expense and validates
// transitions against the configured transition table
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}

type stateMachine struct {
	current State
	table   map[State]map[Trigger][]transition
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.current
}

// CanFire returns true if at least one transition is configured for the
// trigger in the current state. Guards are not evaluated here.
func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.table[m.current][trigger]) > 0
}

// Fire attempts to execute the trigger. Transitions are tried in
// configuration order; the first whose guard passes (or has no guard) wins.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	transitions := m.table[m.current][trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.target
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns all triggers configured for the current state
func (m *stateMachine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.table[m.current]))
	for trigger := range m.table[m.current] {
		triggers = append(triggers, trigger)
	}
	return triggers
}
