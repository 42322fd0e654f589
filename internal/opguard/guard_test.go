package opguard

import (
	"testing"
	"time"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/testutil"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGuard() *Guard {
	return New("search",
		WithClock(func() time.Time { return epoch }),
		WithInterval(time.Millisecond),
	)
}

func tickAt(g *Guard, elapsed time.Duration) TickMsg {
	return TickMsg{ID: g.ID(), Gen: g.gen, Time: epoch.Add(elapsed)}
}

func TestGuardWarningAndExpiryFireOnce(t *testing.T) {
	g := newTestGuard()
	if cmd := g.Activate(imgapi.KindSearch, 10*time.Second); cmd == nil {
		t.Fatalf("Activate returned nil cmd")
	}

	var warnings, expiries int
	steps := []struct {
		elapsed   time.Duration
		wantState State
	}{
		{time.Second, Running},
		{7499 * time.Millisecond, Running},
		{7500 * time.Millisecond, Warned},
		{9 * time.Second, Warned},
		{10 * time.Second, Expired},
		{12 * time.Second, Expired},
	}
	for _, step := range steps {
		msgs := testutil.Drain(g.Update(tickAt(g, step.elapsed)))
		for _, w := range testutil.Filter[WarningMsg](msgs) {
			warnings++
			if w.Operation.Elapsed < 7500*time.Millisecond {
				t.Fatalf("warning at %v, want >= 7.5s", w.Operation.Elapsed)
			}
		}
		for _, e := range testutil.Filter[ExpiredMsg](msgs) {
			expiries++
			if e.Operation.Elapsed < 10*time.Second {
				t.Fatalf("expiry at %v, want >= 10s", e.Operation.Elapsed)
			}
		}
		if got := g.Operation().State; got != step.wantState {
			t.Fatalf("state after %v = %v, want %v", step.elapsed, got, step.wantState)
		}
	}
	if warnings != 1 || expiries != 1 {
		t.Fatalf("warnings=%d expiries=%d, want 1 and 1", warnings, expiries)
	}
}

func TestGuardStopsTickingWhenExpired(t *testing.T) {
	g := newTestGuard()
	g.Activate(imgapi.KindDefault, 4*time.Second)

	msgs := testutil.Drain(g.Update(tickAt(g, 5*time.Second)))
	if got := len(testutil.Filter[TickMsg](msgs)); got != 0 {
		t.Fatalf("expired guard scheduled %d ticks, want 0", got)
	}
}

func TestGuardLateTickCrossesBothThresholds(t *testing.T) {
	g := newTestGuard()
	g.Activate(imgapi.KindHealth, 10*time.Second)

	msgs := testutil.Drain(g.Update(tickAt(g, 11*time.Second)))
	if len(msgs) != 2 {
		t.Fatalf("got %d msgs, want warning then expiry: %#v", len(msgs), msgs)
	}
	w, ok := msgs[0].(WarningMsg)
	if !ok {
		t.Fatalf("first msg = %T, want WarningMsg", msgs[0])
	}
	if w.Operation.State != Warned {
		t.Fatalf("warning snapshot state = %v, want warned", w.Operation.State)
	}
	if _, ok := msgs[1].(ExpiredMsg); !ok {
		t.Fatalf("second msg = %T, want ExpiredMsg", msgs[1])
	}
}

func TestGuardDeactivateInvalidatesTicks(t *testing.T) {
	g := newTestGuard()
	g.Activate(imgapi.KindSearch, 10*time.Second)
	stale := tickAt(g, 8*time.Second)

	g.Deactivate()
	if g.Active() {
		t.Fatalf("guard active after Deactivate")
	}
	if cmd := g.Update(stale); cmd != nil {
		t.Fatalf("stale tick after Deactivate produced a cmd")
	}

	g.Activate(imgapi.KindSearch, 10*time.Second)
	if cmd := g.Update(stale); cmd != nil {
		t.Fatalf("tick from previous activation produced a cmd")
	}
	op := g.Operation()
	if op.Elapsed != 0 || op.State != Running {
		t.Fatalf("reactivated op = %+v, want elapsed 0 and running", op)
	}

	msgs := testutil.Drain(g.Update(tickAt(g, 8*time.Second)))
	if got := len(testutil.Filter[WarningMsg](msgs)); got != 1 {
		t.Fatalf("warnings after reactivation = %d, want 1", got)
	}
}

func TestGuardAdvanceIsMonotonic(t *testing.T) {
	g := newTestGuard()
	g.Activate(imgapi.KindDefault, 10*time.Second)

	if ev := g.Advance(8 * time.Second); len(ev) != 1 || ev[0] != EventWarning {
		t.Fatalf("Advance(8s) = %v, want [warning]", ev)
	}
	if ev := g.Advance(2 * time.Second); len(ev) != 0 {
		t.Fatalf("Advance backwards = %v, want none", ev)
	}
	if got := g.Operation().Elapsed; got != 8*time.Second {
		t.Fatalf("Elapsed = %v, want 8s", got)
	}
	if got := g.Operation().State; got != Warned {
		t.Fatalf("State = %v, want warned", got)
	}
}

func TestGuardZeroBudgetStaysIdle(t *testing.T) {
	g := newTestGuard()
	if cmd := g.Activate(imgapi.KindDefault, 0); cmd != nil {
		t.Fatalf("zero budget returned a tick")
	}
	if g.Active() {
		t.Fatalf("zero budget guard is active")
	}
}

func TestOperationRemaining(t *testing.T) {
	op := Operation{Budget: 10 * time.Second, Elapsed: 4 * time.Second}
	if got := op.Remaining(); got != 6*time.Second {
		t.Fatalf("Remaining = %v, want 6s", got)
	}
	op.Elapsed = 12 * time.Second
	if got := op.Remaining(); got != 0 {
		t.Fatalf("Remaining = %v, want 0", got)
	}
}

func TestSetRoutesTicksAndUsesBudgets(t *testing.T) {
	budgets := imgapi.Budgets{imgapi.KindSearch: 8 * time.Second, imgapi.KindUpload: 20 * time.Second}
	s := NewSet(budgets,
		WithClock(func() time.Time { return epoch }),
		WithInterval(time.Millisecond),
	)

	s.Activate("search", imgapi.KindSearch)
	s.Activate("upload", imgapi.KindUpload)
	if cmd := s.Activate("preload", imgapi.KindPreload); cmd != nil {
		t.Fatalf("kind without budget returned a tick")
	}
	if got := len(s.Active()); got != 2 {
		t.Fatalf("Active() = %d ops, want 2", got)
	}

	search := s.Guard("search")
	msgs := testutil.Drain(s.Update(tickAt(search, 6*time.Second)))
	warnings := testutil.Filter[WarningMsg](msgs)
	if len(warnings) != 1 || warnings[0].Operation.ID != "search" {
		t.Fatalf("warnings = %+v, want one for search", warnings)
	}
	if s.Guard("upload").Operation().State != Running {
		t.Fatalf("upload guard affected by search tick")
	}

	if cmd := s.Update(TickMsg{ID: "missing"}); cmd != nil {
		t.Fatalf("tick for unknown guard produced a cmd")
	}

	s.DeactivateAll()
	if got := len(s.Active()); got != 0 {
		t.Fatalf("Active() after DeactivateAll = %d, want 0", got)
	}
}
