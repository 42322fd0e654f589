package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lumen/internal/config"
	"github.com/five82/lumen/internal/imgapi"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// loadClient reads the config, applies --api and builds an API client.
func loadClient() (config.Config, *imgapi.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if apiBind != "" {
		cfg.APIBind = apiBind
	}
	client, err := imgapi.NewClient(cfg.APIBind, cfg.Budgets())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init api client: %w", err)
	}
	return cfg, client, nil
}

// userError turns an API error into the message shown on the command line.
func userError(action string, err error) error {
	if err == nil {
		return nil
	}
	msg := action + ": " + imgapi.UserMessage(err)
	if imgapi.IsTimeout(err) {
		msg += " (raise the limit under [timeouts] in the config file)"
	}
	return errors.New(msg)
}

func statusStyle(status imgapi.TaskStatus) lipgloss.Style {
	switch status {
	case imgapi.StatusCompleted:
		return okStyle
	case imgapi.StatusFailed:
		return errStyle
	case imgapi.StatusProcessing:
		return warnStyle
	default:
		return mutedStyle
	}
}

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

