// Package ui is the lumen terminal interface, built on Bubble Tea.
//
// The root Model owns one instance of each client component and forwards
// every message to all of them before handling it itself:
//
//   - browse.Controller: list, search and object filter over processed images
//   - thumbs.Cache: image bytes for the rows currently on screen
//   - tasks.Poller: progress of directory tasks started from this session
//   - tasks.Board: periodic summary of all server tasks
//   - opguard.Set: slow-operation notices for process, scan, upload and preload
//
// Components ignore messages that are not addressed to them, so routing is
// a plain fan-out. Results that arrive after the component moved on are
// dropped by the component, never by the UI.
//
// # Views
//
//   - Results: result list with a detail pane on wide terminals
//   - Tasks: followed tasks with progress bars plus the server task board
//   - Logs: tail of the client log file
//
// Text input (search, object filter, directory and upload paths) goes through
// a modal prompt. Server health comes from state.Store, refreshed by the app
// package's poller and re-read once per UI tick.
package ui
