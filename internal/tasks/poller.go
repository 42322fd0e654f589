// Package tasks polls server-side background tasks from inside the Bubble Tea
// update loop.
//
// Every poll owns a context that is cancelled when polling stops, so
// in-flight requests for a stopped poll are aborted rather than merely
// ignored. Each tick is numbered; a response is applied only when it is
// newer than the last applied response for the same poll.
package tasks

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
)

// DefaultInterval is used when Start is called with a non-positive interval.
const DefaultInterval = 2 * time.Second

// Fetcher loads a single task by id.
type Fetcher interface {
	FetchTask(ctx context.Context, id string) (*imgapi.Task, error)
}

// Handlers receive poll results. Any of them may be nil. The returned
// commands are run by the caller's program.
type Handlers struct {
	OnUpdate   func(imgapi.Task) tea.Cmd
	OnComplete func(imgapi.Task) tea.Cmd
	OnFailed   func(imgapi.Task) tea.Cmd
	OnError    func(taskID string, err error) tea.Cmd
}

type pollTickMsg struct {
	id  string
	gen uint64
}

type pollResultMsg struct {
	id   string
	gen  uint64
	seq  uint64
	task *imgapi.Task
	err  error
}

type poll struct {
	id       string
	gen      uint64
	interval time.Duration
	handlers Handlers
	ctx      context.Context
	cancel   context.CancelFunc

	seq       uint64
	applied   uint64
	completed bool
	task      *imgapi.Task
}

// Poller runs any number of independent task polls. It is not safe for
// concurrent use; call it only from the program's Update.
type Poller struct {
	ctx     context.Context
	fetcher Fetcher
	polls   map[string]*poll
	gen     uint64
}

// NewPoller returns a Poller whose requests derive from ctx.
func NewPoller(ctx context.Context, fetcher Fetcher) *Poller {
	return &Poller{
		ctx:     ctx,
		fetcher: fetcher,
		polls:   make(map[string]*poll),
	}
}

// CancelHandle stops one poll. Cancel may be called any number of times.
type CancelHandle struct {
	p   *Poller
	id  string
	gen uint64
}

// Cancel stops the poll this handle was issued for. It does nothing if that
// poll already finished or was replaced.
func (h CancelHandle) Cancel() {
	if h.p == nil {
		return
	}
	if pl, ok := h.p.polls[h.id]; ok && pl.gen == h.gen {
		h.p.stop(pl)
	}
}

// Start begins polling id: one fetch immediately, then one per interval
// until the task is terminal or the poll is cancelled. Starting an id that is
// already being polled replaces the previous poll.
func (p *Poller) Start(id string, interval time.Duration, h Handlers) (CancelHandle, tea.Cmd) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if prev, ok := p.polls[id]; ok {
		p.stop(prev)
	}

	p.gen++
	ctx, cancel := context.WithCancel(p.ctx)
	pl := &poll{
		id:       id,
		gen:      p.gen,
		interval: interval,
		handlers: h,
		ctx:      ctx,
		cancel:   cancel,
	}
	p.polls[id] = pl
	return CancelHandle{p: p, id: id, gen: pl.gen}, tea.Batch(p.fetch(pl), p.tick(pl))
}

// Cancel stops polling id.
func (p *Poller) Cancel(id string) {
	if pl, ok := p.polls[id]; ok {
		p.stop(pl)
	}
}

// StopAll stops every poll.
func (p *Poller) StopAll() {
	for _, pl := range p.polls {
		p.stop(pl)
	}
}

// Active reports whether id is being polled.
func (p *Poller) Active(id string) bool {
	_, ok := p.polls[id]
	return ok
}

// ActiveIDs returns the ids being polled, sorted.
func (p *Poller) ActiveIDs() []string {
	ids := make([]string, 0, len(p.polls))
	for id := range p.polls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Task returns the latest mirrored state for an active poll.
func (p *Poller) Task(id string) (imgapi.Task, bool) {
	pl, ok := p.polls[id]
	if !ok || pl.task == nil {
		return imgapi.Task{}, false
	}
	return *pl.task, true
}

// Update handles poll ticks and results. Other messages are ignored.
func (p *Poller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case pollTickMsg:
		pl, ok := p.current(msg.id, msg.gen)
		if !ok {
			return nil
		}
		return tea.Batch(p.fetch(pl), p.tick(pl))
	case pollResultMsg:
		pl, ok := p.current(msg.id, msg.gen)
		if !ok || msg.seq <= pl.applied {
			return nil
		}
		pl.applied = msg.seq
		if msg.err != nil {
			return p.handleError(pl, msg.err)
		}
		return p.apply(pl, *msg.task)
	}
	return nil
}

func (p *Poller) apply(pl *poll, task imgapi.Task) tea.Cmd {
	pl.task = &task
	h := pl.handlers

	var cmds []tea.Cmd
	if h.OnUpdate != nil {
		cmds = append(cmds, h.OnUpdate(task))
	}
	switch task.State() {
	case imgapi.StatusCompleted:
		if !pl.completed {
			pl.completed = true
			p.stop(pl)
			if h.OnComplete != nil {
				cmds = append(cmds, h.OnComplete(task))
			}
		}
	case imgapi.StatusFailed:
		if !pl.completed {
			pl.completed = true
			p.stop(pl)
			if h.OnFailed != nil {
				cmds = append(cmds, h.OnFailed(task))
			}
		}
	}
	return tea.Sequence(cmds...)
}

func (p *Poller) handleError(pl *poll, err error) tea.Cmd {
	if imgapi.IsCanceled(err) {
		return nil
	}
	log.Printf("task %s: poll failed: %v", pl.id, err)
	if pl.handlers.OnError == nil {
		return nil
	}
	return pl.handlers.OnError(pl.id, err)
}

func (p *Poller) current(id string, gen uint64) (*poll, bool) {
	pl, ok := p.polls[id]
	if !ok || pl.gen != gen {
		return nil, false
	}
	return pl, true
}

// stop cancels in-flight requests and discards the mirror.
func (p *Poller) stop(pl *poll) {
	pl.cancel()
	if cur, ok := p.polls[pl.id]; ok && cur == pl {
		delete(p.polls, pl.id)
	}
}

func (p *Poller) fetch(pl *poll) tea.Cmd {
	pl.seq++
	ctx, fetcher, id, gen, seq := pl.ctx, p.fetcher, pl.id, pl.gen, pl.seq
	return func() tea.Msg {
		task, err := fetcher.FetchTask(ctx, id)
		if err == nil && task == nil {
			err = errors.New("empty task response")
		}
		return pollResultMsg{id: id, gen: gen, seq: seq, task: task, err: err}
	}
}

func (p *Poller) tick(pl *poll) tea.Cmd {
	id, gen := pl.id, pl.gen
	return tea.Tick(pl.interval, func(time.Time) tea.Msg {
		return pollTickMsg{id: id, gen: gen}
	})
}
