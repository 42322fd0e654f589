// Package app is Lumen's composition root.
//
// Run loads the TOML config and preferences and routes the standard logger to
// the configured log file. It then builds the API client, starts the
// background health poller and hands everything to the TUI:
//
//	Run()
//	 ├─> config.Load()      read ~/.config/lumen/config.toml
//	 ├─> OpenLog()          tea.LogToFile so logs never hit the alt screen
//	 ├─> imgapi.NewClient() HTTP client with per-kind budgets
//	 ├─> StartPoller()      health checks into state.Store
//	 └─> ui.Run()           Bubble Tea program (blocks)
//
// The health poller is the only goroutine outside the Bubble Tea program. It
// writes state.Store; the UI reads snapshots on its own tick. Poll failures
// are logged and counted but never stop the loop. Two in a row mark the
// server offline in the header.
package app
