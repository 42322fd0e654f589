package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/tasks"
)

// Guard ids for one-shot server operations.
const (
	opProcess = "process"
	opScan    = "scan"
	opUpload  = "upload"
	opPreload = "preload"
)

type processSubmittedMsg struct {
	dir    string
	ticket imgapi.TaskTicket
	err    error
}

type scanDoneMsg struct {
	result imgapi.ScanResult
	err    error
}

type uploadDoneMsg struct {
	path   string
	result imgapi.UploadResult
	err    error
}

type preloadDoneMsg struct {
	result imgapi.PreloadResult
	err    error
}

type taskUpdateMsg struct{ task imgapi.Task }
type taskCompletedMsg struct{ task imgapi.Task }
type taskFailedMsg struct{ task imgapi.Task }
type taskErrorMsg struct {
	id  string
	err error
}

// pathArgs is a path followed by single-letter switches.
type pathArgs struct {
	path  string
	flags map[rune]bool
}

// parsePathArgs splits "some/dir -r -f" into the path and its switches.
// Anything that is not a recognized switch is part of the path, so paths
// with spaces work unquoted.
func parsePathArgs(value string, allowed string) (pathArgs, error) {
	args := pathArgs{flags: make(map[rune]bool)}
	var parts []string
	for _, field := range strings.Fields(value) {
		if len(field) == 2 && field[0] == '-' && strings.ContainsRune(allowed, rune(field[1])) {
			args.flags[rune(field[1])] = true
			continue
		}
		parts = append(parts, field)
	}
	args.path = strings.Join(parts, " ")
	if args.path == "" {
		return args, &imgapi.ValidationError{Field: "path", Reason: "required"}
	}
	return args, nil
}

// startOp activates the guard for id and runs fn against the model context.
func (m Model) startOp(id string, kind imgapi.Kind, fn func(ctx context.Context) tea.Msg) tea.Cmd {
	ctx := m.ctx
	return tea.Batch(m.guards.Activate(id, kind), func() tea.Msg { return fn(ctx) })
}

func (m Model) submitProcess(value string) (Model, tea.Cmd) {
	args, err := parsePathArgs(value, "rf")
	if err != nil {
		return m.notify(noticeError, imgapi.UserMessage(err)), nil
	}
	req := imgapi.ProcessDirectoryRequest{
		DirectoryPath:  args.path,
		Recursive:      args.flags['r'],
		ForceReprocess: args.flags['f'],
	}
	api := m.api
	return m, m.startOp(opProcess, imgapi.KindProcessing, func(ctx context.Context) tea.Msg {
		ticket, err := api.ProcessDirectory(ctx, req)
		return processSubmittedMsg{dir: req.DirectoryPath, ticket: ticket, err: err}
	})
}

func (m Model) submitScan(value string) (Model, tea.Cmd) {
	args, err := parsePathArgs(value, "r")
	if err != nil {
		return m.notify(noticeError, imgapi.UserMessage(err)), nil
	}
	api := m.api
	return m, m.startOp(opScan, imgapi.KindProcessing, func(ctx context.Context) tea.Msg {
		result, err := api.ScanDirectory(ctx, args.path, args.flags['r'])
		return scanDoneMsg{result: result, err: err}
	})
}

func (m Model) submitUpload(value string) (Model, tea.Cmd) {
	args, err := parsePathArgs(value, "no")
	if err != nil {
		return m.notify(noticeError, imgapi.UserMessage(err)), nil
	}
	opts := imgapi.UploadOptions{
		ProcessImmediately: !args.flags['n'],
		Overwrite:          args.flags['o'],
	}
	api := m.api
	return m, m.startOp(opUpload, imgapi.KindUpload, func(ctx context.Context) tea.Msg {
		result, err := api.UploadImage(ctx, args.path, opts)
		return uploadDoneMsg{path: args.path, result: result, err: err}
	})
}

func (m Model) submitPreload() (Model, tea.Cmd) {
	if m.guards.Guard(opPreload).Active() {
		return m.notify(noticeInfo, "model preload already running"), nil
	}
	api := m.api
	m = m.notify(noticeInfo, "preloading models…")
	return m, m.startOp(opPreload, imgapi.KindPreload, func(ctx context.Context) tea.Msg {
		result, err := api.PreloadModels(ctx)
		return preloadDoneMsg{result: result, err: err}
	})
}

// followTask starts polling a server task and records it on the task board.
func (m Model) followTask(id string) (Model, tea.Cmd) {
	handlers := tasks.Handlers{
		OnUpdate: func(t imgapi.Task) tea.Cmd {
			return func() tea.Msg { return taskUpdateMsg{task: t} }
		},
		OnComplete: func(t imgapi.Task) tea.Cmd {
			return func() tea.Msg { return taskCompletedMsg{task: t} }
		},
		OnFailed: func(t imgapi.Task) tea.Cmd {
			return func() tea.Msg { return taskFailedMsg{task: t} }
		},
		OnError: func(id string, err error) tea.Cmd {
			return func() tea.Msg { return taskErrorMsg{id: id, err: err} }
		},
	}
	handle, cmd := m.poller.Start(id, m.cfg.TaskPollInterval, handlers)
	m.follows.add(id, handle)
	return m, cmd
}

func (m Model) handleActionResult(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case processSubmittedMsg:
		m.guards.Deactivate(opProcess)
		if msg.err != nil {
			return m.notify(noticeError, "process "+msg.dir+": "+imgapi.UserMessage(msg.err)), nil
		}
		m = m.notify(noticeInfo, fmt.Sprintf("processing %s (task %s)", msg.dir, shortID(msg.ticket.TaskID)))
		m.currentView = ViewTasks
		return m.followTask(msg.ticket.TaskID)

	case scanDoneMsg:
		m.guards.Deactivate(opScan)
		if msg.err != nil {
			return m.notify(noticeError, "scan: "+imgapi.UserMessage(msg.err)), nil
		}
		r := msg.result
		return m.notify(noticeInfo, fmt.Sprintf("%s: %d images, %d new, %d already processed",
			truncateMiddle(r.DirectoryPath, 40), r.TotalFiles, r.NewFiles, r.AlreadyProcessed)), nil

	case uploadDoneMsg:
		m.guards.Deactivate(opUpload)
		if msg.err != nil {
			return m.notify(noticeError, "upload "+msg.path+": "+imgapi.UserMessage(msg.err)), nil
		}
		text := msg.result.Message
		if text == "" {
			text = "uploaded " + msg.result.Filename
		}
		m = m.notify(noticeInfo, text)
		return m, m.browser.Refresh()

	case preloadDoneMsg:
		m.guards.Deactivate(opPreload)
		if msg.err != nil {
			return m.notify(noticeError, imgapi.UserMessage(msg.err)), nil
		}
		device := msg.result.Device
		if device == "" {
			device = "server"
		}
		return m.notify(noticeInfo, "models loaded on "+device), nil

	case taskUpdateMsg:
		m.follows.record(msg.task)
		return m, nil

	case taskCompletedMsg:
		m.follows.record(msg.task)
		m = m.notify(noticeInfo, fmt.Sprintf("task %s completed", shortID(msg.task.ID)))
		return m, m.browser.Refresh()

	case taskFailedMsg:
		m.follows.record(msg.task)
		reason := msg.task.Error
		if reason == "" {
			reason = msg.task.Message
		}
		return m.notify(noticeError, fmt.Sprintf("task %s failed: %s", shortID(msg.task.ID), reason)), nil

	case taskErrorMsg:
		return m.notify(noticeWarn, fmt.Sprintf("task %s: %s", shortID(msg.id), imgapi.UserMessage(msg.err))), nil
	}
	return m, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
