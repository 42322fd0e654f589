package opguard

import (
	"sort"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
)

// Set owns one guard per named operation slot and resolves budgets from a
// shared table.
type Set struct {
	budgets imgapi.Budgets
	guards  map[string]*Guard
	opts    []Option
}

// NewSet returns an empty set. A nil budgets table uses the defaults.
func NewSet(budgets imgapi.Budgets, opts ...Option) *Set {
	if budgets == nil {
		budgets = imgapi.DefaultBudgets()
	}
	return &Set{
		budgets: budgets,
		guards:  make(map[string]*Guard),
		opts:    opts,
	}
}

// Guard returns the guard for id, creating it on first use.
func (s *Set) Guard(id string) *Guard {
	g, ok := s.guards[id]
	if !ok {
		g = New(id, s.opts...)
		s.guards[id] = g
	}
	return g
}

// Activate starts the guard for id under kind's budget.
func (s *Set) Activate(id string, kind imgapi.Kind) tea.Cmd {
	budget, _ := s.budgets.Lookup(kind)
	return s.Guard(id).Activate(kind, budget)
}

// Deactivate stops the guard for id. Unknown ids are ignored.
func (s *Set) Deactivate(id string) {
	if g, ok := s.guards[id]; ok {
		g.Deactivate()
	}
}

// DeactivateAll stops every guard.
func (s *Set) DeactivateAll() {
	for _, g := range s.guards {
		g.Deactivate()
	}
}

// Update routes guard ticks to their owner.
func (s *Set) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(TickMsg)
	if !ok {
		return nil
	}
	g, ok := s.guards[tick.ID]
	if !ok {
		return nil
	}
	return g.Update(tick)
}

// Active returns the operations currently being timed, ordered by start.
func (s *Set) Active() []Operation {
	var ops []Operation
	for _, g := range s.guards {
		if g.Active() {
			ops = append(ops, g.Operation())
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].StartedAt.Equal(ops[j].StartedAt) {
			return ops[i].ID < ops[j].ID
		}
		return ops[i].StartedAt.Before(ops[j].StartedAt)
	})
	return ops
}
