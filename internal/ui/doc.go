// Package ui implements a terminal progress view using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [ProgressView] : spinner plus the latest [tasks.ProgressUpdate] of the running job
//  2. [ResultView] : summary and a scrollable list of every track with its video link or miss
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the Converter, providing non-blocking status reporting during conversions.
//
// Keyboard navigation uses vim-style bindings (j/k, o to open the playlist or consent page, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
