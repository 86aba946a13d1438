package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/albumranker/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgYearsFetched MsgKind = iota
	MsgAlbumsFetched
	MsgRankingSaved
)

// yearsFetchedMsg is the constructor for [MsgYearsFetched]
func yearsFetchedMsg(years []yearItem, err error) Msg {
	return Msg{
		kind: MsgYearsFetched,
		data: struct {
			years []yearItem
			err   error
		}{years, err},
	}
}

// albumsFetchedMsg is the constructor for [MsgAlbumsFetched]
func albumsFetchedMsg(year string, albums []*models.RankedAlbum, err error) Msg {
	return Msg{
		kind: MsgAlbumsFetched,
		data: struct {
			year   string
			albums []*models.RankedAlbum
			err    error
		}{year, albums, err},
	}
}

// rankingSavedMsg is the constructor for [MsgRankingSaved]
func rankingSavedMsg(err error) Msg {
	return Msg{kind: MsgRankingSaved, data: err}
}
