package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = yearItem{}

// yearItem wraps a release year to implement [list.Item].
type yearItem struct {
	year  string
	count int
}

func (i yearItem) FilterValue() string { return i.year }
func (i yearItem) Title() string       { return i.year }
func (i yearItem) Description() string {
	if i.count == 1 {
		return "1 album"
	}
	return fmt.Sprintf("%d albums", i.count)
}
