package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// transition is a target state with an optional guard
type transition struct {
	target State
	guard  GuardFunc
}

// Builder assembles a transition table and builds state machine instances
// from it. Configuration panics on invalid states since the table is wired
// at startup, not from user input.
type Builder struct {
	table map[State]map[Trigger][]transition
}

// NewBuilder creates a new state machine builder
func NewBuilder() *Builder {
	return &Builder{table: make(map[State]map[Trigger][]transition)}
}

// StateConfig configures transitions out of a single state
type StateConfig struct {
	builder *Builder
	from    State
}

// Configure returns the configuration for the given state
func (b *Builder) Configure(state State) *StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if b.table[state] == nil {
		b.table[state] = make(map[Trigger][]transition)
	}
	return &StateConfig{builder: b, from: state}
}

// Permit allows a trigger to transition to the target state
func (c *StateConfig) Permit(trigger Trigger, target State) *StateConfig {
	return c.PermitIf(trigger, target, nil)
}

// PermitIf allows a trigger to transition to the target state when the guard passes
func (c *StateConfig) PermitIf(trigger Trigger, target State, guard GuardFunc) *StateConfig {
	if !target.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", target))
	}
	c.builder.table[c.from][trigger] = append(c.builder.table[c.from][trigger], transition{target: target, guard: guard})
	return c
}

// Build creates a new state machine instance with the given initial state.
// The table is copied so later Builder mutations don't leak into built machines.
func (b *Builder) Build(initial State) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	table := make(map[State]map[Trigger][]transition, len(b.table))
	for state, triggers := range b.table {
		copied := make(map[Trigger][]transition, len(triggers))
		for trigger, transitions := range triggers {
			copied[trigger] = append([]transition{}, transitions...)
		}
		table[state] = copied
	}

	return &stateMachine{current: initial, table: table}
}
