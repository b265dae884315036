package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Guard evaluates whether a transition should be allowed based on runtime conditions.
type Guard[S, E ~string] func(ctx context.Context, from S, event E, data any) bool

// Action executes side effects during state transitions. Returning an error prevents the transition.
type Action[S, E ~string] func(ctx context.Context, from, to S, event E, data any) error

// Listener observes completed transitions. It runs after the state changed,
// outside the machine's lock, so it may read Current.
type Listener[S, E ~string] func(ctx context.Context, from, to S, event E)

// Transition defines a state change triggered by an event, with optional guards and actions.
type Transition[S, E ~string] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]  // All must pass for transition to proceed
	Actions []Action[S, E] // Executed in order before state change
}

// Machine is a thread-safe in-memory finite state machine keyed by string
// state and event types. Lookups use map[from][event][]Transition.
type Machine[S, E ~string] struct {
	mu          sync.RWMutex
	initial     S
	current     S
	transitions map[S]map[E][]Transition[S, E]
	terminal    map[S]bool
	listeners   []Listener[S, E]
}

// Current returns the active state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the active state is s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// IsTerminal reports whether the active state was declared terminal.
func (m *Machine[S, E]) IsTerminal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.terminal[m.current]
}

// AddTransition registers a transition. Several transitions may share the
// same from/event pair; the first whose guards all pass wins.
func (m *Machine[S, E]) AddTransition(t Transition[S, E]) error {
	if t.From == "" || t.To == "" || t.Event == "" {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.terminal[t.From] {
		return fmt.Errorf("%w: %q is terminal", ErrInvalidTransition, t.From)
	}
	if _, ok := m.transitions[t.From]; !ok {
		m.transitions[t.From] = make(map[E][]Transition[S, E])
	}
	m.transitions[t.From][t.Event] = append(m.transitions[t.From][t.Event], t)
	return nil
}

// Fire applies event to the current state. Actions run before the state
// changes and any action error aborts the transition.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) error {
	if event == "" {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	from := m.current
	t, err := m.match(ctx, event, data)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, t.To, event, data); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.To
	listeners := append([]Listener[S, E](nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(ctx, from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire would find a transition whose guards pass.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	if event == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.match(ctx, event, data)
	return err == nil
}

// Reset returns the machine to its initial state. Listeners are not notified.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// match must be called with m.mu held.
func (m *Machine[S, E]) match(ctx context.Context, event E, data any) (*Transition[S, E], error) {
	candidates := m.transitions[m.current][event]
	if len(candidates) == 0 {
		return nil, &TransitionError{State: string(m.current), Event: string(event), Err: ErrNoTransition}
	}

	// Declaration order is priority order.
	for i, t := range candidates {
		passed := true
		for _, guard := range t.Guards {
			if guard != nil && !guard(ctx, m.current, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return &candidates[i], nil
		}
	}
	return nil, &TransitionError{State: string(m.current), Event: string(event), Err: ErrRejected}
}
