package imgapi

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw      string
		want     TaskStatus
		terminal bool
	}{
		{"pending", StatusQueued, false},
		{" Queued ", StatusQueued, false},
		{"processing", StatusProcessing, false},
		{"completed", StatusCompleted, true},
		{"skipped", StatusCompleted, true},
		{"failed", StatusFailed, true},
		{"mystery", StatusProcessing, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got := NormalizeStatus(tc.raw)
			if got != tc.want {
				t.Fatalf("NormalizeStatus(%q) = %q, want %q", tc.raw, got, tc.want)
			}
			if got.Terminal() != tc.terminal {
				t.Fatalf("Terminal(%q) = %v, want %v", got, got.Terminal(), tc.terminal)
			}
		})
	}
}

func TestImageQueryKind(t *testing.T) {
	cases := []struct {
		name string
		q    ImageQuery
		want Kind
	}{
		{"list", ImageQuery{}, KindDefault},
		{"blank query", ImageQuery{Query: "  "}, KindDefault},
		{"filter", ImageQuery{Objects: []string{"cat"}}, KindProcessing},
		{"search", ImageQuery{Query: "cats"}, KindSearch},
		{"search and filter", ImageQuery{Query: "cats", Objects: []string{"sofa"}}, KindSearch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.Kind(); got != tc.want {
				t.Fatalf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBudgetsLookupAndWarnAt(t *testing.T) {
	b := DefaultBudgets()
	if d, ok := b.Lookup(KindSearch); !ok || d != 60*time.Second {
		t.Fatalf("Lookup(search) = %v, %v; want 60s", d, ok)
	}
	b[KindUpload] = 0
	if _, ok := b.Lookup(KindUpload); ok {
		t.Fatalf("Lookup(upload) ok with zero budget")
	}
	if got := WarnAt(10 * time.Second); got != 7500*time.Millisecond {
		t.Fatalf("WarnAt(10s) = %v, want 7.5s", got)
	}
}

func TestTaskTimestamps(t *testing.T) {
	task := Task{CreatedAt: "2025-03-01T10:20:30.123456"}
	created := task.ParsedCreatedAt()
	if created.IsZero() || created.Second() != 30 {
		t.Fatalf("ParsedCreatedAt = %v, want parsed naive iso time", created)
	}
	if !task.ParsedUpdatedAt().Equal(created) {
		t.Fatalf("ParsedUpdatedAt should fall back to CreatedAt")
	}
	if !(Task{CreatedAt: "garbage"}).ParsedCreatedAt().IsZero() {
		t.Fatalf("garbage timestamp should parse to zero")
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout", &TimeoutError{Kind: KindSearch, Budget: time.Minute}, "search request timed out after 1m0s"},
		{"network", &NetworkError{Op: "GET /", Err: errors.New("refused")}, "server unreachable"},
		{"client no detail", &ServerError{Status: 409}, "request rejected (409 Conflict)"},
		{"server", &ServerError{Status: 503}, "server error (503), try again shortly"},
		{"validation", &ValidationError{Field: "query", Reason: "empty"}, "invalid query: empty"},
		{"other", errors.New("plain"), "plain"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err); got != tc.want {
				t.Fatalf("UserMessage = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractDetail_ValidationList(t *testing.T) {
	body := []byte(`{"detail":[{"loc":["body","query"],"msg":"field required"},{"loc":["query","limit"],"msg":"too large"}]}`)
	if got := extractDetail(body); got != "field required; too large" {
		t.Fatalf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`{"message":"  bad  "}`)); got != "bad" {
		t.Fatalf("extractDetail message = %q, want bad", got)
	}
}
