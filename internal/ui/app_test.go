package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/browse"
	"github.com/five82/lumen/internal/config"
	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/opguard"
	"github.com/five82/lumen/internal/prefs"
	"github.com/five82/lumen/internal/testutil"
)

type fakeAPI struct {
	mu         sync.Mutex
	queries    []imgapi.ImageQuery
	downloads  []string
	processed  []imgapi.ProcessDirectoryRequest
	processErr error
}

func (f *fakeAPI) ListImages(ctx context.Context, q imgapi.ImageQuery) ([]imgapi.ImageInfo, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if q.Query != "" {
		score := 0.87
		return []imgapi.ImageInfo{{ID: "cat-1", Filename: "cat.jpg", Caption: "a cat on a sofa", Score: &score}}, nil
	}
	return []imgapi.ImageInfo{
		{ID: "img-1", Filename: "beach.jpg", Caption: "a beach", Objects: []string{"sea"}},
		{ID: "img-2", Filename: "forest.png", Caption: "trees"},
	}, nil
}

func (f *fakeAPI) DownloadImage(ctx context.Context, id string) (imgapi.Blob, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, id)
	f.mu.Unlock()
	return imgapi.Blob{Data: []byte("not really an image"), ContentType: "image/jpeg"}, nil
}

func (f *fakeAPI) FetchTask(ctx context.Context, id string) (*imgapi.Task, error) {
	return &imgapi.Task{ID: id, Status: "completed", Progress: 100, Message: "done"}, nil
}

func (f *fakeAPI) ListTasks(ctx context.Context, limit int) (imgapi.TaskList, error) {
	return imgapi.TaskList{}, nil
}

func (f *fakeAPI) ProcessDirectory(ctx context.Context, req imgapi.ProcessDirectoryRequest) (imgapi.TaskTicket, error) {
	f.mu.Lock()
	f.processed = append(f.processed, req)
	f.mu.Unlock()
	if f.processErr != nil {
		return imgapi.TaskTicket{}, f.processErr
	}
	return imgapi.TaskTicket{TaskID: "task-0001-abcd", Status: "pending"}, nil
}

func (f *fakeAPI) ScanDirectory(ctx context.Context, dir string, recursive bool) (imgapi.ScanResult, error) {
	return imgapi.ScanResult{DirectoryPath: dir, Recursive: recursive, TotalFiles: 3, NewFiles: 1, AlreadyProcessed: 2}, nil
}

func (f *fakeAPI) UploadImage(ctx context.Context, path string, opts imgapi.UploadOptions) (imgapi.UploadResult, error) {
	return imgapi.UploadResult{Success: true, Filename: path}, nil
}

func (f *fakeAPI) PreloadModels(ctx context.Context) (imgapi.PreloadResult, error) {
	return imgapi.PreloadResult{Success: true, Device: "cpu"}, nil
}

func (f *fakeAPI) lastQuery() imgapi.ImageQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return imgapi.ImageQuery{}
	}
	return f.queries[len(f.queries)-1]
}

func newTestModel(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	cfg := config.Default()
	cfg.TaskPollInterval = time.Millisecond
	m := New(Options{
		API:          api,
		Config:       cfg,
		Prefs:        prefs.Defaults(),
		PrefsPath:    t.TempDir() + "/prefs.toml",
		GuardOptions: []opguard.Option{opguard.WithInterval(time.Millisecond)},
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model)
}

// run executes cmd and feeds every resulting message back into the model
// until nothing is left to do.
func run(m Model, cmd tea.Cmd) Model {
	pending := []tea.Cmd{cmd}
	for round := 0; round < 50 && len(pending) > 0; round++ {
		var next []tea.Cmd
		for _, c := range pending {
			for _, msg := range testutil.Drain(c) {
				updated, out := m.Update(msg)
				m = updated.(Model)
				if out != nil {
					next = append(next, out)
				}
			}
		}
		pending = next
	}
	return m
}

func press(m Model, keys ...tea.KeyMsg) Model {
	for _, k := range keys {
		updated, cmd := m.Update(k)
		m = run(updated.(Model), cmd)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestSearchPromptRunsSearch(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api)
	m = run(m, m.browser.LoadAll())
	if m.browser.Len() != 2 {
		t.Fatalf("initial results = %d, want 2", m.browser.Len())
	}

	m = press(m, runes("/"))
	if m.modal == nil {
		t.Fatalf("search key did not open a prompt")
	}
	m = press(m, runes("cat"), enter)
	if m.modal != nil {
		t.Fatalf("prompt still open after enter")
	}

	st := m.browser.State()
	if st.Mode != browse.ModeSearch || st.Query != "cat" || st.Loading {
		t.Fatalf("state = %+v, want settled search for cat", st)
	}
	if len(st.Results) != 1 || st.Results[0].ID != "cat-1" {
		t.Fatalf("results = %+v, want [cat-1]", st.Results)
	}
	if got := api.lastQuery(); got.Query != "cat" {
		t.Fatalf("last query = %+v", got)
	}
	if got := m.thumbs.Tracked(); len(got) != 1 || got[0] != "cat-1" {
		t.Fatalf("tracked thumbnails = %v, want [cat-1]", got)
	}
	if m.blobs.Live() != 1 {
		t.Fatalf("live handles = %d, want 1", m.blobs.Live())
	}

	view := m.View()
	if !strings.Contains(view, "cat.jpg") {
		t.Fatalf("view does not show the result:\n%s", view)
	}
}

func TestFilterPromptKeepsQuery(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api)
	m = run(m, m.browser.Search("cat", browse.SearchOptions{}))

	m = press(m, runes("o"), runes("Sofa, cat"), enter)

	st := m.browser.State()
	if st.Query != "cat" {
		t.Fatalf("query = %q, want cat kept", st.Query)
	}
	if strings.Join(st.Objects, ",") != "sofa,cat" {
		t.Fatalf("objects = %v, want [sofa cat]", st.Objects)
	}
	if got := api.lastQuery(); strings.Join(got.Objects, ",") != "sofa,cat" {
		t.Fatalf("sent objects = %v", got.Objects)
	}
}

func TestProcessPromptFollowsTask(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api)

	m = press(m, runes("d"), runes("/data/photos -r"), enter)

	if len(api.processed) != 1 {
		t.Fatalf("process calls = %d, want 1", len(api.processed))
	}
	req := api.processed[0]
	if req.DirectoryPath != "/data/photos" || !req.Recursive || req.ForceReprocess {
		t.Fatalf("request = %+v", req)
	}
	if m.currentView != ViewTasks {
		t.Fatalf("view = %v, want tasks", m.currentView)
	}
	followed := m.follows.list()
	if len(followed) != 1 || followed[0].State() != imgapi.StatusCompleted {
		t.Fatalf("followed = %+v, want one completed task", followed)
	}
	if m.poller.Active("task-0001-abcd") {
		t.Fatalf("poll still active after completion")
	}
	if m.guards.Guard(opProcess).Active() {
		t.Fatalf("process guard still active")
	}
	last := m.notices[len(m.notices)-1]
	if !strings.Contains(last.text, "completed") {
		t.Fatalf("last notice = %q, want completion", last.text)
	}
}

func TestProcessErrorIsNotified(t *testing.T) {
	api := &fakeAPI{processErr: &imgapi.ServerError{Status: 503}}
	m := newTestModel(t, api)

	m = press(m, runes("d"), runes("/data"), enter)

	if len(m.follows.list()) != 0 {
		t.Fatalf("failed submit should not follow a task")
	}
	last := m.notices[len(m.notices)-1]
	if last.level != noticeError || !strings.Contains(last.text, "503") {
		t.Fatalf("last notice = %+v", last)
	}
}

func TestEmptyPathIsRejectedLocally(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api)

	m = press(m, runes("S"), enter)

	if len(m.notices) == 0 || m.notices[len(m.notices)-1].level != noticeError {
		t.Fatalf("notices = %+v, want a validation error", m.notices)
	}
	if m.guards.Guard(opScan).Active() {
		t.Fatalf("scan guard activated for an invalid path")
	}
}

func TestSlowOperationNotices(t *testing.T) {
	m := newTestModel(t, &fakeAPI{})
	op := opguard.Operation{ID: opUpload, Kind: imgapi.KindUpload, Budget: 30 * time.Second, Elapsed: 23 * time.Second}

	next, _ := m.Update(opguard.WarningMsg{Operation: op})
	m = next.(Model)
	if got := m.notices[len(m.notices)-1]; got.level != noticeWarn || !strings.Contains(got.text, "upload") {
		t.Fatalf("warning notice = %+v", got)
	}

	next, _ = m.Update(opguard.ExpiredMsg{Operation: op})
	m = next.(Model)
	if got := m.notices[len(m.notices)-1]; got.level != noticeError || !strings.Contains(got.text, "30s") {
		t.Fatalf("expired notice = %+v", got)
	}
}

func TestNoticesAreBounded(t *testing.T) {
	m := newTestModel(t, &fakeAPI{})
	for i := 0; i < MaxNotices+10; i++ {
		m = m.notify(noticeInfo, "hello")
	}
	if len(m.notices) != MaxNotices {
		t.Fatalf("notices = %d, want %d", len(m.notices), MaxNotices)
	}
}

func TestFetchFailureIsNotified(t *testing.T) {
	m := newTestModel(t, &fakeAPI{})
	next, _ := m.Update(browse.FailedMsg{Mode: browse.ModeList, Err: errors.New("boom")})
	m = next.(Model)
	if got := m.notices[len(m.notices)-1]; got.level != noticeError || !strings.Contains(got.text, "list") {
		t.Fatalf("notice = %+v", got)
	}
}

func TestShutdownReleasesHandles(t *testing.T) {
	m := newTestModel(t, &fakeAPI{})
	m = run(m, m.browser.LoadAll())
	if m.blobs.Live() != 2 {
		t.Fatalf("live handles = %d, want 2", m.blobs.Live())
	}
	m.shutdown()
	if m.blobs.Live() != 0 {
		t.Fatalf("live handles after shutdown = %d, want 0", m.blobs.Live())
	}
}
