package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/repositories"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	YearSelectView ViewState = iota
	RankingView
	SavedView
)

// Model represents the TUI application state.
type Model struct {
	view    ViewState
	userID  string
	albums  *repositories.AlbumRepository
	styles  *Palette
	width   int
	height  int
	dirty   bool
	currErr error

	yearList list.Model
	year     string
	ordered  []*models.RankedAlbum
	cursor   int

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model for one user's catalog.
func NewModel(userID string, albums *repositories.AlbumRepository, colorScheme string) *Model {
	return &Model{
		view:   YearSelectView,
		userID: userID,
		albums: albums,
		styles: PaletteFor(colorScheme),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by loading the available years.
func (m *Model) Init() tea.Cmd {
	return m.fetchYears()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.yearList.Width() == 0 {
			m.yearList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case YearSelectView:
			return m.handleYearSelectKeys(msg)
		case RankingView:
			return m.handleRankingKeys(msg)
		case SavedView:
			return m.handleSavedKeys(msg)
		}

	case Msg:
		return m.handleAppMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleAppMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgYearsFetched:
		data := msg.data.(struct {
			years []yearItem
			err   error
		})
		if data.err != nil {
			m.currErr = data.err
			return m, tea.Quit
		}

		items := make([]list.Item, len(data.years))
		for i, year := range data.years {
			items[i] = year
		}
		m.yearList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.yearList.Title = "Pick a year to rank"
		m.yearList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgAlbumsFetched:
		data := msg.data.(struct {
			year   string
			albums []*models.RankedAlbum
			err    error
		})
		if data.err != nil {
			m.currErr = data.err
			return m, nil
		}
		m.year = data.year
		m.ordered = data.albums
		m.cursor = 0
		m.dirty = false
		m.view = RankingView
		return m, nil

	case MsgRankingSaved:
		if err, ok := msg.data.(error); ok && err != nil {
			m.currErr = err
			return m, nil
		}
		m.dirty = false
		m.view = SavedView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.currErr != nil && m.view == YearSelectView {
		return m.styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.currErr))
	}

	switch m.view {
	case YearSelectView:
		return m.renderYearSelect()
	case RankingView:
		return m.renderRanking()
	case SavedView:
		return m.renderSaved()
	default:
		return ""
	}
}

func (m *Model) handleYearSelectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.yearList.SelectedItem()
		if selected != nil {
			if year, ok := selected.(yearItem); ok {
				return m, m.fetchAlbums(year.year)
			}
		}
	}

	var cmd tea.Cmd
	m.yearList, cmd = m.yearList.Update(msg)
	return m, cmd
}

func (m *Model) handleRankingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.back):
		m.view = YearSelectView
		m.currErr = nil
		return m, nil

	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.ordered)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.moveUp):
		if m.cursor > 0 {
			m.ordered[m.cursor-1], m.ordered[m.cursor] = m.ordered[m.cursor], m.ordered[m.cursor-1]
			m.cursor--
			m.dirty = true
		}
		return m, nil

	case key.Matches(msg, m.keys.moveDown):
		if m.cursor < len(m.ordered)-1 {
			m.ordered[m.cursor+1], m.ordered[m.cursor] = m.ordered[m.cursor], m.ordered[m.cursor+1]
			m.cursor++
			m.dirty = true
		}
		return m, nil

	case key.Matches(msg, m.keys.hide):
		if len(m.ordered) > 0 {
			album := m.ordered[m.cursor]
			album.SetHidden(!album.Hidden())
			m.dirty = true
		}
		return m, nil

	case key.Matches(msg, m.keys.save):
		if len(m.ordered) > 0 {
			return m, m.saveRanking()
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleSavedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r", "esc":
		m.view = YearSelectView
		m.ordered = nil
		m.currErr = nil
		return m, m.fetchYears()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == YearSelectView {
		m.yearList, cmd = m.yearList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchYears() tea.Cmd {
	return func() tea.Msg {
		years, err := m.albums.YearsForRanking(m.userID)
		if err != nil {
			return yearsFetchedMsg(nil, err)
		}

		items := make([]yearItem, 0, len(years))
		for _, year := range years {
			albums, err := m.albums.ListByYear(m.userID, year)
			if err != nil {
				return yearsFetchedMsg(nil, err)
			}
			items = append(items, yearItem{year: year, count: len(albums)})
		}
		return yearsFetchedMsg(items, nil)
	}
}

func (m *Model) fetchAlbums(year string) tea.Cmd {
	return func() tea.Msg {
		albums, err := m.albums.ListByYear(m.userID, year)
		return albumsFetchedMsg(year, albums, err)
	}
}

func (m *Model) saveRanking() tea.Cmd {
	entries := make([]repositories.RankEntry, len(m.ordered))
	for i, album := range m.ordered {
		entries[i] = repositories.RankEntry{SpotifyID: album.SpotifyID(), Hidden: album.Hidden()}
	}

	return func() tea.Msg {
		return rankingSavedMsg(m.albums.SaveRanking(m.userID, entries))
	}
}

func (m *Model) renderYearSelect() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.yearList.View(), helpView)
}

func (m *Model) renderRanking() string {
	title := fmt.Sprintf("Ranking %s", m.year)
	if m.dirty {
		title += " *"
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render(title))
	b.WriteString("\n\n")

	if m.currErr != nil {
		b.WriteString(m.styles.err.Render(fmt.Sprintf("Error: %v", m.currErr)))
		b.WriteString("\n\n")
	}

	position := 0
	for i, album := range m.ordered {
		line := fmt.Sprintf("%s - %s", album.Artist(), album.Name())
		if album.Hidden() {
			line = m.styles.hidden.Render(line + " (hidden)")
		} else {
			position++
			line = fmt.Sprintf("%2d. %s", position, line)
		}

		if i == m.cursor {
			line = m.styles.cursor.Render("> " + line)
		} else {
			line = "  " + line
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.moveUp, m.keys.moveDown, m.keys.hide, m.keys.save, m.keys.back, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))

	return b.String()
}

func (m *Model) renderSaved() string {
	title := m.styles.ok.Render("✓ Ranking Saved")
	info := fmt.Sprintf("\n%d albums ranked for %s\n", len(m.ordered), m.year)

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
