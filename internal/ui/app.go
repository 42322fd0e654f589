package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/browse"
	"github.com/five82/lumen/internal/config"
	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/opguard"
	"github.com/five82/lumen/internal/prefs"
	"github.com/five82/lumen/internal/state"
	"github.com/five82/lumen/internal/tasks"
	"github.com/five82/lumen/internal/thumbs"
)

// View represents the current active view.
type View int

const (
	ViewResults View = iota
	ViewTasks
	ViewLogs
)

// API is the server surface the TUI uses. *imgapi.Client implements it.
type API interface {
	browse.Searcher
	thumbs.Downloader
	tasks.Fetcher
	tasks.Lister
	ProcessDirectory(ctx context.Context, req imgapi.ProcessDirectoryRequest) (imgapi.TaskTicket, error)
	ScanDirectory(ctx context.Context, dir string, recursive bool) (imgapi.ScanResult, error)
	UploadImage(ctx context.Context, path string, opts imgapi.UploadOptions) (imgapi.UploadResult, error)
	PreloadModels(ctx context.Context) (imgapi.PreloadResult, error)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	API       API
	Store     *state.Store
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string

	// GuardOptions tune operation guards; tests use them to shorten ticks.
	GuardOptions []opguard.Option
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	api       API
	store     *state.Store
	cfg       config.Config
	prefsPath string
	keys      keyMap

	// Components
	browser *browse.Controller
	thumbs  *thumbs.Cache
	blobs   *thumbs.BlobStore
	poller  *tasks.Poller
	board   *tasks.Board
	guards  *opguard.Set
	follows *followList

	// UI state
	theme       Theme
	showScores  bool
	currentView View
	width       int
	height      int
	ready       bool
	selectedRow int
	showHelp    bool
	modal       Modal
	notices     []notice

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Widgets
	detailViewport viewport.Model
	logViewport    viewport.Model
	logLines       []string
	spinner        spinner.Model
	progress       progress.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg.APIBind == "" {
		cfg = config.Default()
	}

	themeName := opts.Prefs.Theme
	if themeName == "" {
		themeName = DefaultThemeName
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	budgets := cfg.Budgets()
	blobs := thumbs.NewBlobStore()
	cache := thumbs.New(ctx, opts.API, blobs, thumbs.WithMaxInFlight(cfg.ThumbnailConcurrency))

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		ctx:       ctx,
		api:       opts.API,
		store:     opts.Store,
		cfg:       cfg,
		prefsPath: prefsPath,
		keys:      DefaultKeyMap(),

		browser: browse.NewController(ctx, opts.API, cache, budgets,
			browse.WithPageSize(cfg.PageSize),
			browse.WithGuardOptions(opts.GuardOptions...),
		),
		thumbs:  cache,
		blobs:   blobs,
		poller:  tasks.NewPoller(ctx, opts.API),
		board:   tasks.NewBoard(ctx, opts.API, cfg.BoardPollInterval, 50),
		guards:  opguard.NewSet(budgets, opts.GuardOptions...),
		follows: newFollowList(),

		theme:       GetTheme(themeName),
		showScores:  opts.Prefs.ShowScores,
		currentView: ViewResults,
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(DefaultUIInterval),
		m.spinner.Tick,
		m.browser.LoadAll(),
		m.board.Start(),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Components ignore messages that are not theirs.
	cmds := []tea.Cmd{
		m.browser.Update(msg),
		m.thumbs.Update(msg),
		m.poller.Update(msg),
		m.board.Update(msg),
		m.guards.Update(msg),
	}

	var cmd tea.Cmd
	m, cmd = m.handle(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handle(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.detailViewport = viewport.New(0, 0)
			m.logViewport = viewport.New(0, 0)
		}
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case promptResultMsg:
		return m.handlePrompt(msg)

	case browse.ResultsMsg:
		m.clampSelection()
		m.refreshDetail()
		return m, nil

	case browse.FailedMsg:
		m.refreshDetail()
		level := noticeError
		if imgapi.IsValidation(msg.Err) {
			level = noticeWarn
		}
		return m.notify(level, msg.Mode.String()+": "+imgapi.UserMessage(msg.Err)), nil

	case thumbs.LoadedMsg:
		m.refreshDetail()
		return m, nil

	case opguard.WarningMsg:
		op := msg.Operation
		return m.notify(noticeWarn, operationLabel(op)+" is taking longer than expected ("+
			op.Elapsed.Round(time.Second).String()+" of "+op.Budget.String()+")"), nil

	case opguard.ExpiredMsg:
		op := msg.Operation
		return m.notify(noticeError, operationLabel(op)+" exceeded its "+op.Budget.String()+" budget"), nil
	}

	return m.handleActionResult(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleTick re-reads the health store and, on the log view, the log file.
func (m Model) handleTick() (Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(DefaultUIInterval)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs {
		cmds = append(cmds, readLogCmd(m.cfg.LogFile))
	}
	return m, tea.Batch(cmds...)
}

// shutdown releases everything the model holds before the program exits.
func (m Model) shutdown() {
	m.browser.Close()
	m.thumbs.Close()
	m.poller.StopAll()
	m.board.Stop()
	m.guards.DeactivateAll()
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderNoticeBar())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewTasks:
		return m.renderTasks()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderResults()
	}
}

// contentHeight is the number of rows between the command bar and the
// notice bar.
func (m Model) contentHeight() int {
	if h := m.height - 3; h > 0 {
		return h
	}
	return 1
}

func (m *Model) resize() {
	h := m.contentHeight()
	m.detailViewport.Width = m.detailWidth()
	m.detailViewport.Height = h
	m.logViewport.Width = m.width
	m.logViewport.Height = h
	m.progress.Width = 24
	m.refreshDetail()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.shutdown()
	} else {
		m.shutdown()
	}
	return err
}
