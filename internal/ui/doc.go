// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for ranking a year's albums:
//  1. [YearSelectView] : Browse the years with synced albums
//  2. [RankingView] : Reorder albums, toggle visibility
//  3. [SavedView] : Confirmation after the ranking is persisted
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// All reads and writes go through the album repository, so the TUI works entirely offline against the synced catalog.
//
// Keyboard navigation uses vim-style bindings (j/k to move the cursor, J/K to move the selected album,
// h to hide, s to save) with contextual help displayed via charmbracelet/bubbles/help.
package ui
