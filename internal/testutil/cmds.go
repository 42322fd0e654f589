// Package testutil holds helpers shared by package tests that drive Bubble
// Tea components without a running program.
package testutil

import (
	"reflect"

	tea "github.com/charmbracelet/bubbletea"
)

var cmdType = reflect.TypeOf((*tea.Cmd)(nil)).Elem()

// Drain runs cmd and every command nested inside batches or sequences,
// returning the leaf messages in execution order. Commands run synchronously,
// so tick-based commands block for their interval; tests should configure
// short intervals.
func Drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	if nested, ok := nestedCmds(msg); ok {
		var out []tea.Msg
		for _, c := range nested {
			out = append(out, Drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// Filter returns the messages of type T.
func Filter[T any](msgs []tea.Msg) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// nestedCmds unpacks tea.BatchMsg and the unexported sequence message, both
// of which are slices of tea.Cmd.
func nestedCmds(msg tea.Msg) ([]tea.Cmd, bool) {
	if batch, ok := msg.(tea.BatchMsg); ok {
		return batch, true
	}
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Slice || v.Type().Elem() != cmdType {
		return nil, false
	}
	cmds := make([]tea.Cmd, v.Len())
	for i := range cmds {
		cmds[i], _ = v.Index(i).Interface().(tea.Cmd)
	}
	return cmds, true
}
