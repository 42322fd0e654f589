package ui

import (
	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/tasks"
)

// followList remembers tasks started from this session, newest last.
type followList struct {
	order   []string
	tasks   map[string]imgapi.Task
	handles map[string]tasks.CancelHandle
}

func newFollowList() *followList {
	return &followList{
		tasks:   make(map[string]imgapi.Task),
		handles: make(map[string]tasks.CancelHandle),
	}
}

func (f *followList) add(id string, handle tasks.CancelHandle) {
	if _, ok := f.tasks[id]; !ok {
		f.order = append(f.order, id)
	}
	f.tasks[id] = imgapi.Task{ID: id, Status: string(imgapi.StatusQueued)}
	f.handles[id] = handle
}

// record stores the latest known state of a followed task.
func (f *followList) record(task imgapi.Task) {
	if _, ok := f.tasks[task.ID]; !ok {
		return
	}
	f.tasks[task.ID] = task
}

// cancel stops polling the most recent task that is still active.
func (f *followList) cancel(active func(string) bool) (string, bool) {
	for i := len(f.order) - 1; i >= 0; i-- {
		id := f.order[i]
		if active(id) {
			f.handles[id].Cancel()
			return id, true
		}
	}
	return "", false
}

// list returns followed tasks, newest first.
func (f *followList) list() []imgapi.Task {
	out := make([]imgapi.Task, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, f.tasks[f.order[i]])
	}
	return out
}
