// Package opguard tracks how long client-side operations have been running
// and raises a warning at 75% of their budget and an expiry at 100%.
//
// A Guard is driven by one-second tea.Tick messages. Every activation gets a
// fresh generation; ticks carrying an older generation are ignored, which is
// how deactivation stops the timer without any goroutine bookkeeping. The
// guard only reports time. Cancelling the underlying request is the
// gateway's job.
package opguard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
)

// TickInterval is how often an active guard re-evaluates elapsed time.
const TickInterval = time.Second

// State is the lifecycle of a tracked operation.
type State int

const (
	Idle State = iota
	Running
	Warned
	Expired
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Warned:
		return "warned"
	case Expired:
		return "expired"
	default:
		return "idle"
	}
}

// Event is a transition signal produced by Advance.
type Event int

const (
	EventWarning Event = iota + 1
	EventExpired
)

// Operation is the client-side view of a timed activity.
type Operation struct {
	ID        string
	Kind      imgapi.Kind
	StartedAt time.Time
	Budget    time.Duration
	Elapsed   time.Duration
	State     State
}

// Remaining returns the budget left, never negative.
func (o Operation) Remaining() time.Duration {
	if left := o.Budget - o.Elapsed; left > 0 {
		return left
	}
	return 0
}

// TickMsg drives a guard. It is produced by the guard's own commands.
type TickMsg struct {
	ID   string
	Gen  uint64
	Time time.Time
}

// WarningMsg is emitted once per activation when elapsed reaches 75% of the
// budget.
type WarningMsg struct {
	Operation Operation
}

// ExpiredMsg is emitted once per activation when elapsed reaches the budget.
type ExpiredMsg struct {
	Operation Operation
}

// Guard is the state machine for a single operation slot.
type Guard struct {
	op       Operation
	gen      uint64
	interval time.Duration
	now      func() time.Time
}

// Option customizes a Guard.
type Option func(*Guard)

// WithClock overrides the time source used to stamp activations.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithInterval overrides the tick interval.
func WithInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.interval = d
		}
	}
}

// New returns an idle guard identified by id.
func New(id string, opts ...Option) *Guard {
	g := &Guard{
		op:       Operation{ID: id},
		interval: TickInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ID returns the guard's identifier.
func (g *Guard) ID() string { return g.op.ID }

// Operation returns a copy of the tracked operation.
func (g *Guard) Operation() Operation { return g.op }

// Active reports whether the guard is counting.
func (g *Guard) Active() bool {
	return g.op.State == Running || g.op.State == Warned
}

// Activate starts (or restarts) tracking with elapsed reset to zero.
func (g *Guard) Activate(kind imgapi.Kind, budget time.Duration) tea.Cmd {
	g.gen++
	g.op = Operation{
		ID:        g.op.ID,
		Kind:      kind,
		StartedAt: g.now(),
		Budget:    budget,
		State:     Running,
	}
	if budget <= 0 {
		// Nothing to measure against; behave as if never activated.
		g.op.State = Idle
		return nil
	}
	return g.tick()
}

// Deactivate returns the guard to Idle. Outstanding ticks become stale.
func (g *Guard) Deactivate() {
	g.gen++
	g.op.State = Idle
	g.op.Elapsed = 0
}

// Advance moves the state machine to elapsed and returns the events crossed,
// in order. Elapsed never moves backwards within an activation.
func (g *Guard) Advance(elapsed time.Duration) []Event {
	if !g.Active() {
		return nil
	}
	if elapsed < g.op.Elapsed {
		elapsed = g.op.Elapsed
	}
	g.op.Elapsed = elapsed

	var events []Event
	if g.op.State == Running && elapsed >= imgapi.WarnAt(g.op.Budget) {
		g.op.State = Warned
		events = append(events, EventWarning)
	}
	if g.op.State == Warned && elapsed >= g.op.Budget {
		g.op.State = Expired
		events = append(events, EventExpired)
	}
	return events
}

// Update handles ticks addressed to this guard and returns the resulting
// signals plus the next tick, if any.
func (g *Guard) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != g.op.ID || tick.Gen != g.gen || !g.Active() {
		return nil
	}

	events := g.Advance(tick.Time.Sub(g.op.StartedAt))
	signals := make([]tea.Cmd, 0, len(events))
	for _, ev := range events {
		op := g.op
		switch ev {
		case EventWarning:
			op.State = Warned
			signals = append(signals, func() tea.Msg { return WarningMsg{Operation: op} })
		case EventExpired:
			signals = append(signals, func() tea.Msg { return ExpiredMsg{Operation: op} })
		}
	}

	var cmds []tea.Cmd
	if len(signals) > 0 {
		cmds = append(cmds, tea.Sequence(signals...))
	}
	if g.Active() {
		cmds = append(cmds, g.tick())
	}
	return tea.Batch(cmds...)
}

func (g *Guard) tick() tea.Cmd {
	id, gen := g.op.ID, g.gen
	return tea.Tick(g.interval, func(t time.Time) tea.Msg {
		return TickMsg{ID: id, Gen: gen, Time: t}
	})
}
