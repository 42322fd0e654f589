package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/config"
	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/prefs"
	"github.com/five82/lumen/internal/state"
	"github.com/five82/lumen/internal/ui"
)

// Options configure the Lumen application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/lumen/prefs.toml
	APIBind    string // overrides api_bind from the config file
}

// Run boots the Lumen TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.APIBind != "" {
		cfg.APIBind = opts.APIBind
	}

	logFile, err := OpenLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.Printf("lumen starting against %s", cfg.APIBind)

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	client, err := imgapi.NewClient(cfg.APIBind, cfg.Budgets())
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	store := &state.Store{}
	StartPoller(ctx, store, client, cfg.HealthPollInterval)

	return ui.Run(ui.Options{
		Context:   ctx,
		API:       client,
		Store:     store,
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
	})
}

// OpenLog sends the standard logger to path so nothing is written over a
// running Bubble Tea program.
func OpenLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "")
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
