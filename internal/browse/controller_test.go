package browse

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/opguard"
	"github.com/five82/lumen/internal/testutil"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []imgapi.ImageQuery
	err     error
}

func (f *fakeSearcher) ListImages(ctx context.Context, q imgapi.ImageQuery) ([]imgapi.ImageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if q.Query != "" {
		score := 0.9
		return []imgapi.ImageInfo{{ID: "cat-1", Caption: "a cat", Score: &score}}, nil
	}
	return []imgapi.ImageInfo{
		{ID: "img-1", Objects: []string{"dog", "dog", " sofa "}, Size: []int{640, 480}},
		{ID: "img-2"},
		{ID: ""},
	}, nil
}

type recordingReconciler struct {
	calls [][]string
}

func (r *recordingReconciler) Reconcile(ids []string) tea.Cmd {
	r.calls = append(r.calls, append([]string(nil), ids...))
	return nil
}

func (r *recordingReconciler) last() []string {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func newTestController(api Searcher, thumbs Reconciler) *Controller {
	return NewController(context.Background(), api, thumbs, nil,
		WithPageSize(20),
		WithGuardOptions(opguard.WithInterval(time.Millisecond)),
	)
}

// apply feeds fetch results back into the controller, skipping guard ticks.
func apply(c *Controller, msgs []tea.Msg) []tea.Msg {
	var out []tea.Msg
	for _, msg := range msgs {
		if _, ok := msg.(fetchResultMsg); ok {
			out = append(out, testutil.Drain(c.Update(msg))...)
		}
	}
	return out
}

func TestLoadAllAppliesResults(t *testing.T) {
	api := &fakeSearcher{}
	thumbs := &recordingReconciler{}
	c := newTestController(api, thumbs)

	cmd := c.LoadAll()
	if s := c.State(); !s.Loading || s.Mode != ModeList || len(s.Results) != 0 {
		t.Fatalf("state before resolve = %+v", s)
	}
	if c.Operation().Kind != imgapi.KindDefault {
		t.Fatalf("list fetch kind = %v, want default", c.Operation().Kind)
	}

	out := apply(c, testutil.Drain(cmd))
	s := c.State()
	if s.Loading {
		t.Fatalf("still loading after resolve")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"img-1", "img-2"}) {
		t.Fatalf("IDs = %v", got)
	}
	if got := s.Results[0].Objects; !reflect.DeepEqual(got, []string{"dog", "sofa"}) {
		t.Fatalf("objects = %v, want deduplicated", got)
	}
	if s.Results[0].Metadata.Width != 640 {
		t.Fatalf("width = %d, want 640", s.Results[0].Metadata.Width)
	}
	if !reflect.DeepEqual(thumbs.last(), []string{"img-1", "img-2"}) {
		t.Fatalf("reconciled with %v", thumbs.last())
	}
	if got := testutil.Filter[ResultsMsg](out); len(got) != 1 || got[0].Count != 2 {
		t.Fatalf("ResultsMsg = %+v", got)
	}
	if c.Operation().State != opguard.Idle {
		t.Fatalf("guard still active after resolve")
	}
	if api.queries[0].Limit != 20 {
		t.Fatalf("limit = %d, want 20", api.queries[0].Limit)
	}
}

func TestSearchThenClearKeepsListResults(t *testing.T) {
	api := &fakeSearcher{}
	thumbs := &recordingReconciler{}
	c := newTestController(api, thumbs)

	searchCmd := c.Search("cats", SearchOptions{})
	if s := c.State(); s.Mode != ModeSearch || !s.IsSearchMode() {
		t.Fatalf("state after Search = %+v", s)
	}
	clearCmd := c.Clear()

	searchMsgs := testutil.Drain(searchCmd)
	apply(c, testutil.Drain(clearCmd))
	// The search response arrives after the list already resolved.
	if out := apply(c, searchMsgs); len(out) != 0 {
		t.Fatalf("superseded search produced %v", out)
	}

	s := c.State()
	if s.Mode != ModeList || s.IsSearchMode() {
		t.Fatalf("mode = %v, want list", s.Mode)
	}
	for _, r := range s.Results {
		if r.ID == "cat-1" {
			t.Fatalf("search result leaked into list view")
		}
	}
	if !reflect.DeepEqual(thumbs.last(), []string{"img-1", "img-2"}) {
		t.Fatalf("last reconcile = %v", thumbs.last())
	}
}

func TestSupersededFetchBeforeResolveIsDiscarded(t *testing.T) {
	c := newTestController(&fakeSearcher{}, &recordingReconciler{})

	listMsgs := testutil.Drain(c.LoadAll())
	c.Search("cats", SearchOptions{})
	apply(c, listMsgs)

	s := c.State()
	if !s.Loading || len(s.Results) != 0 {
		t.Fatalf("stale list result applied to search view: %+v", s)
	}
}

func TestBlankSearchFallsBackToList(t *testing.T) {
	api := &fakeSearcher{}
	c := newTestController(api, &recordingReconciler{})

	apply(c, testutil.Drain(c.Search("   ", SearchOptions{Objects: []string{"Dog"}})))
	s := c.State()
	if s.Mode != ModeFilter || s.IsSearchMode() {
		t.Fatalf("mode = %v, want filter", s.Mode)
	}
	if !reflect.DeepEqual(s.Objects, []string{"dog"}) {
		t.Fatalf("objects = %v", s.Objects)
	}
	if api.queries[0].Query != "" {
		t.Fatalf("blank search sent query %q", api.queries[0].Query)
	}
}

func TestFetchBudgetKinds(t *testing.T) {
	cases := []struct {
		name string
		run  func(*Controller) tea.Cmd
		want imgapi.Kind
	}{
		{"list", func(c *Controller) tea.Cmd { return c.LoadAll() }, imgapi.KindDefault},
		{"filter", func(c *Controller) tea.Cmd { return c.LoadAll("cat") }, imgapi.KindProcessing},
		{"search", func(c *Controller) tea.Cmd { return c.Search("cats", SearchOptions{}) }, imgapi.KindSearch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(&fakeSearcher{}, &recordingReconciler{})
			tc.run(c)
			op := c.Operation()
			if op.Kind != tc.want || op.State != opguard.Running {
				t.Fatalf("operation = %+v, want running %v", op, tc.want)
			}
			want, _ := imgapi.DefaultBudgets().Lookup(tc.want)
			if op.Budget != want {
				t.Fatalf("budget = %v, want %v", op.Budget, want)
			}
		})
	}
}

func TestFailureClearsLoadingAndKeepsResultsCleared(t *testing.T) {
	api := &fakeSearcher{}
	c := newTestController(api, &recordingReconciler{})
	apply(c, testutil.Drain(c.LoadAll()))
	if c.Len() == 0 {
		t.Fatalf("expected initial results")
	}

	api.err = &imgapi.ServerError{Status: 500}
	out := apply(c, testutil.Drain(c.Search("cats", SearchOptions{})))

	s := c.State()
	if s.Loading || len(s.Results) != 0 {
		t.Fatalf("state after failure = %+v", s)
	}
	var se *imgapi.ServerError
	if !errors.As(s.Err, &se) {
		t.Fatalf("Err = %v, want server error", s.Err)
	}
	if got := testutil.Filter[FailedMsg](out); len(got) != 1 || got[0].Mode != ModeSearch {
		t.Fatalf("FailedMsg = %+v", got)
	}
}

func TestSetFilterKeepsQuery(t *testing.T) {
	api := &fakeSearcher{}
	c := newTestController(api, &recordingReconciler{})

	c.Search("cats", SearchOptions{Limit: 5})
	c.SetFilter([]string{"sofa"})
	s := c.State()
	if s.Query != "cats" || !s.IsFilterMode() || !s.IsSearchMode() {
		t.Fatalf("state = %+v, want search and filter", s)
	}

	c.Clear()
	c.SetFilter([]string{"dog"})
	if s := c.State(); s.Mode != ModeFilter || s.IsSearchMode() {
		t.Fatalf("state = %+v, want filter only", s)
	}
}

func TestCloseDropsPendingResult(t *testing.T) {
	c := newTestController(&fakeSearcher{}, &recordingReconciler{})
	msgs := testutil.Drain(c.LoadAll())
	c.Close()
	if out := apply(c, msgs); len(out) != 0 {
		t.Fatalf("closed controller applied %v", out)
	}
	if c.State().Loading {
		t.Fatalf("Loading after Close")
	}
}

func TestGuardTicksRouteThroughController(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	budgets := imgapi.Budgets{imgapi.KindDefault: 4 * time.Second}
	c := NewController(context.Background(), &fakeSearcher{}, &recordingReconciler{}, budgets,
		WithGuardOptions(opguard.WithClock(func() time.Time { return now }), opguard.WithInterval(time.Millisecond)),
	)
	var tick opguard.TickMsg
	for _, msg := range testutil.Drain(c.LoadAll()) {
		if m, ok := msg.(opguard.TickMsg); ok {
			tick = m
		}
	}
	tick.Time = now.Add(3 * time.Second)
	out := testutil.Drain(c.Update(tick))
	if len(testutil.Filter[opguard.WarningMsg](out)) != 1 {
		t.Fatalf("expected a warning, got %#v", out)
	}
}

func TestParseObjects(t *testing.T) {
	got := ParseObjects(" Cat, dog,,cat ,  ")
	if !reflect.DeepEqual(got, []string{"cat", "dog"}) {
		t.Fatalf("ParseObjects = %v", got)
	}
	if ParseObjects("") != nil {
		t.Fatalf("ParseObjects(\"\") should be nil")
	}
}
