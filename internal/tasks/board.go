package tasks

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
)

// DefaultBoardInterval is the all-tasks refresh period.
const DefaultBoardInterval = 5 * time.Second

// Lister loads the recent task list.
type Lister interface {
	ListTasks(ctx context.Context, limit int) (imgapi.TaskList, error)
}

// Counts aggregates a task list.
type Counts struct {
	Total     int
	Active    int
	Completed int
	Failed    int
}

// ComputeCounts tallies tasks by normalized status.
func ComputeCounts(list []imgapi.Task) Counts {
	c := Counts{Total: len(list)}
	for _, t := range list {
		switch t.State() {
		case imgapi.StatusQueued, imgapi.StatusProcessing:
			c.Active++
		case imgapi.StatusCompleted:
			c.Completed++
		case imgapi.StatusFailed:
			c.Failed++
		}
	}
	return c
}

// BoardRefreshedMsg is emitted after every board fetch that was applied.
type BoardRefreshedMsg struct {
	Counts Counts
	Err    error
}

type boardTickMsg struct{ gen uint64 }

type boardResultMsg struct {
	gen  uint64
	seq  uint64
	list imgapi.TaskList
	err  error
}

// Board keeps an aggregate view of all recent tasks, refreshed on its own
// interval independently of any single-task poll.
type Board struct {
	parent   context.Context
	lister   Lister
	interval time.Duration
	limit    int
	now      func() time.Time

	gen     uint64
	seq     uint64
	applied uint64
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	tasks       []imgapi.Task
	counts      Counts
	err         error
	lastUpdated time.Time
}

// NewBoard returns a stopped board. limit bounds the number of tasks the
// server returns; zero uses the server default.
func NewBoard(ctx context.Context, lister Lister, interval time.Duration, limit int) *Board {
	if interval <= 0 {
		interval = DefaultBoardInterval
	}
	return &Board{
		parent:   ctx,
		lister:   lister,
		interval: interval,
		limit:    limit,
		now:      time.Now,
	}
}

// Start fetches immediately and then on every interval. Starting a running
// board restarts it.
func (b *Board) Start() tea.Cmd {
	b.Stop()
	b.gen++
	b.running = true
	b.ctx, b.cancel = context.WithCancel(b.parent)
	return tea.Batch(b.fetch(), b.tick())
}

// Stop halts refreshing. Pending responses are discarded.
func (b *Board) Stop() {
	if !b.running {
		return
	}
	b.running = false
	b.gen++
	b.cancel()
}

// Running reports whether the board is refreshing.
func (b *Board) Running() bool { return b.running }

// Counts returns the aggregate from the most recent successful fetch.
func (b *Board) Counts() Counts { return b.counts }

// Tasks returns a copy of the most recent task list.
func (b *Board) Tasks() []imgapi.Task {
	return append([]imgapi.Task(nil), b.tasks...)
}

// Err returns the error from the most recent fetch, if it failed.
func (b *Board) Err() error { return b.err }

// LastUpdated returns when the last successful fetch was applied.
func (b *Board) LastUpdated() time.Time { return b.lastUpdated }

// Update handles board ticks and results.
func (b *Board) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case boardTickMsg:
		if !b.running || msg.gen != b.gen {
			return nil
		}
		return tea.Batch(b.fetch(), b.tick())
	case boardResultMsg:
		if !b.running || msg.gen != b.gen || msg.seq <= b.applied {
			return nil
		}
		b.applied = msg.seq
		if msg.err != nil {
			if imgapi.IsCanceled(msg.err) {
				return nil
			}
			log.Printf("task board: refresh failed: %v", msg.err)
			b.err = msg.err
		} else {
			b.err = nil
			b.tasks = msg.list.Tasks
			b.counts = ComputeCounts(msg.list.Tasks)
			b.lastUpdated = b.now()
		}
		counts, err := b.counts, b.err
		return func() tea.Msg { return BoardRefreshedMsg{Counts: counts, Err: err} }
	}
	return nil
}

func (b *Board) fetch() tea.Cmd {
	b.seq++
	ctx, lister, limit, gen, seq := b.ctx, b.lister, b.limit, b.gen, b.seq
	return func() tea.Msg {
		list, err := lister.ListTasks(ctx, limit)
		return boardResultMsg{gen: gen, seq: seq, list: list, err: err}
	}
}

func (b *Board) tick() tea.Cmd {
	gen := b.gen
	return tea.Tick(b.interval, func(time.Time) tea.Msg {
		return boardTickMsg{gen: gen}
	})
}
