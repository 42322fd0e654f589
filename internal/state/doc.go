// Package state shares the server health picture between the background
// health poller and the TUI.
//
// The poller goroutine is the single writer; the Bubble Tea program reads
// snapshots on its own schedule. Store guards the snapshot with a
// sync.RWMutex and hands out copies, so nothing rendered on screen aliases
// data the poller may replace.
//
// Update keeps the last good health payload when a poll fails and records the
// error instead:
//
//	store.Update(health, latency, nil) // replace payload, reset failures
//	store.Update(nil, 0, err)          // keep payload, count the failure
//
// Two failures in a row mark the server offline. The zero Store is ready to
// use.
package state
