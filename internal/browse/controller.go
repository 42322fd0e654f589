// Package browse drives the image result list through list, search and
// filter fetches.
//
// Every transition starts a new generation and cancels the request of the
// previous one. A fetch result is applied only if it carries the current
// generation, so the last transition always wins.
package browse

import (
	"context"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/opguard"
)

// GuardID identifies the controller's operation guard.
const GuardID = "browse"

const defaultPageSize = 50

// Searcher runs image list queries.
type Searcher interface {
	ListImages(ctx context.Context, q imgapi.ImageQuery) ([]imgapi.ImageInfo, error)
}

// Reconciler receives the ids of the applied result set.
type Reconciler interface {
	Reconcile(ids []string) tea.Cmd
}

// ResultsMsg is emitted when a fetch was applied.
type ResultsMsg struct {
	Mode  Mode
	Count int
}

// FailedMsg is emitted when the current fetch failed.
type FailedMsg struct {
	Mode Mode
	Err  error
}

type fetchResultMsg struct {
	owner *Controller
	gen   uint64
	infos []imgapi.ImageInfo
	err   error
}

// Option customizes a Controller.
type Option func(*Controller)

// WithPageSize sets the result limit for list and filter fetches.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithGuardOptions configures the operation guard.
func WithGuardOptions(opts ...opguard.Option) Option {
	return func(c *Controller) { c.guardOpts = append(c.guardOpts, opts...) }
}

// Controller owns ViewState. It is not safe for concurrent use; call it only
// from the program's Update.
type Controller struct {
	ctx       context.Context
	api       Searcher
	thumbs    Reconciler
	budgets   imgapi.Budgets
	guard     *opguard.Guard
	guardOpts []opguard.Option
	pageSize  int

	state  ViewState
	limit  int
	gen    uint64
	cancel context.CancelFunc
}

// NewController returns an idle controller in list mode. A nil budgets table
// uses the defaults.
func NewController(ctx context.Context, api Searcher, thumbs Reconciler, budgets imgapi.Budgets, opts ...Option) *Controller {
	if budgets == nil {
		budgets = imgapi.DefaultBudgets()
	}
	c := &Controller{
		ctx:      ctx,
		api:      api,
		thumbs:   thumbs,
		budgets:  budgets,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.guard = opguard.New(GuardID, c.guardOpts...)
	return c
}

// State returns a copy of the view state.
func (c *Controller) State() ViewState {
	s := c.state
	s.Results = append([]ResultItem(nil), c.state.Results...)
	s.Objects = append([]string(nil), c.state.Objects...)
	return s
}

// Operation returns the timing of the current fetch.
func (c *Controller) Operation() opguard.Operation { return c.guard.Operation() }

// Item returns the result at index i.
func (c *Controller) Item(i int) (ResultItem, bool) {
	if i < 0 || i >= len(c.state.Results) {
		return ResultItem{}, false
	}
	return c.state.Results[i], true
}

// Len returns the number of results.
func (c *Controller) Len() int { return len(c.state.Results) }

// LoadAll lists every image, or filters by objects when any are given.
func (c *Controller) LoadAll(objects ...string) tea.Cmd {
	objects = cleanObjects(objects)
	mode := ModeList
	if len(objects) > 0 {
		mode = ModeFilter
	}
	return c.begin(mode, "", objects, c.pageSize)
}

// Search runs a semantic search. A blank query falls back to LoadAll with the
// same object filter.
func (c *Controller) Search(query string, opts SearchOptions) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.LoadAll(opts.Objects...)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	return c.begin(ModeSearch, query, cleanObjects(opts.Objects), limit)
}

// Clear drops any query and filter and lists everything.
func (c *Controller) Clear() tea.Cmd {
	return c.LoadAll()
}

// SetFilter replaces the object filter, keeping the current query.
func (c *Controller) SetFilter(objects []string) tea.Cmd {
	if c.state.IsSearchMode() {
		return c.Search(c.state.Query, SearchOptions{Objects: objects, Limit: c.limit})
	}
	return c.LoadAll(objects...)
}

// Refresh re-issues the current fetch.
func (c *Controller) Refresh() tea.Cmd {
	if c.state.IsSearchMode() {
		return c.Search(c.state.Query, SearchOptions{Objects: c.state.Objects, Limit: c.limit})
	}
	return c.LoadAll(c.state.Objects...)
}

// Close cancels the in-flight fetch and stops its guard.
func (c *Controller) Close() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.guard.Deactivate()
	c.state.Loading = false
}

// Update applies fetch results and drives the guard.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case opguard.TickMsg:
		return c.guard.Update(msg)
	case fetchResultMsg:
		if msg.owner != c || msg.gen != c.gen {
			return nil
		}
		return c.resolve(msg)
	}
	return nil
}

func (c *Controller) begin(mode Mode, query string, objects []string, limit int) tea.Cmd {
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.limit = limit
	c.state = ViewState{
		Mode:    mode,
		Query:   query,
		Objects: objects,
		Loading: true,
	}

	q := imgapi.ImageQuery{Query: query, Objects: objects, Limit: limit}
	kind := q.Kind()
	budget, _ := c.budgets.Lookup(kind)

	cmds := []tea.Cmd{c.thumbs.Reconcile(nil), c.guard.Activate(kind, budget)}
	owner, api, gen := c, c.api, c.gen
	cmds = append(cmds, func() tea.Msg {
		infos, err := api.ListImages(ctx, q)
		return fetchResultMsg{owner: owner, gen: gen, infos: infos, err: err}
	})
	return tea.Batch(cmds...)
}

func (c *Controller) resolve(msg fetchResultMsg) tea.Cmd {
	c.guard.Deactivate()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.Loading = false
	mode := c.state.Mode

	if msg.err != nil {
		log.Printf("%s fetch failed: %v", mode, msg.err)
		c.state.Err = msg.err
		err := msg.err
		return func() tea.Msg { return FailedMsg{Mode: mode, Err: err} }
	}

	results := make([]ResultItem, 0, len(msg.infos))
	for _, info := range msg.infos {
		if info.ID == "" {
			continue
		}
		results = append(results, itemFromInfo(info))
	}
	c.state.Results = results
	c.state.Err = nil

	count := len(results)
	return tea.Batch(
		c.thumbs.Reconcile(c.state.IDs()),
		func() tea.Msg { return ResultsMsg{Mode: mode, Count: count} },
	)
}

func cleanObjects(objects []string) []string {
	if len(objects) == 0 {
		return nil
	}
	return ParseObjects(strings.Join(objects, ","))
}
