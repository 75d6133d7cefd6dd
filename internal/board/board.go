// Package board is an interactive kanban view of tracked applications.
package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/applytrack/internal/model"
)

// Lines per card in a column (company + role + blank separator).
const cardHeight = 3

type loadedMsg struct {
	apps []model.Application
	err  error
}

type eventsLoadedMsg struct {
	id     string
	events []model.Event
	err    error
}

type movedMsg struct {
	app model.Application
	to  model.Status
	err error
}

type boardModel struct {
	store   model.ApplicationStore
	columns [][]model.Application // indexed like model.Statuses
	col     int
	cursors []int
	follow  string // application to select after the next reload

	detail viewport.Model
	events []model.Event

	width  int
	height int
	ready  bool

	err    string
	notice string
}

func newBoardModel(store model.ApplicationStore) boardModel {
	return boardModel{
		store:   store,
		columns: make([][]model.Application, len(model.Statuses)),
		cursors: make([]int, len(model.Statuses)),
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		apps, err := store.ListApplications("")
		return loadedMsg{apps: apps, err: err}
	}
}

func (m boardModel) eventsCmd(id string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		events, err := store.ListEvents(id)
		return eventsLoadedMsg{id: id, events: events, err: err}
	}
}

func (m boardModel) moveCmd(app model.Application, to model.Status) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		err := store.UpdateStatus(app.ID, to, "moved on board")
		return movedMsg{app: app, to: to, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = fmt.Sprintf("load failed: %v", msg.err)
			return m, nil
		}
		m.err = ""
		m.setApplications(msg.apps)
		cmd := m.selectionChanged()
		return m, cmd

	case eventsLoadedMsg:
		if app, ok := m.selected(); ok && app.ID == msg.id {
			if msg.err != nil {
				m.err = fmt.Sprintf("history failed: %v", msg.err)
			}
			m.events = msg.events
			m.refreshDetail()
		}
		return m, nil

	case movedMsg:
		if msg.err != nil {
			m.err = fmt.Sprintf("move failed: %v", msg.err)
			return m, nil
		}
		m.err = ""
		m.notice = fmt.Sprintf("%s moved to %s", msg.app.Company, msg.to)
		m.follow = msg.app.ID
		return m, m.loadCmd()

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m boardModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.col = clamp(m.col-1, 0, len(m.columns)-1)
		cmd := m.selectionChanged()
		return m, cmd
	case "right", "l", "tab":
		m.col = clamp(m.col+1, 0, len(m.columns)-1)
		cmd := m.selectionChanged()
		return m, cmd
	case "up", "k":
		m.cursors[m.col] = clamp(m.cursors[m.col]-1, 0, max(len(m.columns[m.col])-1, 0))
		cmd := m.selectionChanged()
		return m, cmd
	case "down", "j":
		m.cursors[m.col] = clamp(m.cursors[m.col]+1, 0, max(len(m.columns[m.col])-1, 0))
		cmd := m.selectionChanged()
		return m, cmd
	case "<", ">":
		app, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := m.col + 1
		if msg.String() == "<" {
			next = m.col - 1
		}
		if next < 0 || next >= len(model.Statuses) {
			return m, nil
		}
		m.notice = ""
		return m, m.moveCmd(app, model.Statuses[next])
	case "r":
		m.notice = ""
		return m, m.loadCmd()
	}

	// Forward other keys (pgup/pgdn/home/end) to the detail viewport.
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// setApplications groups apps into status columns, keeping store order.
func (m *boardModel) setApplications(apps []model.Application) {
	for i := range m.columns {
		m.columns[i] = nil
	}
	for _, app := range apps {
		if i := statusIndex(app.Status); i >= 0 {
			m.columns[i] = append(m.columns[i], app)
		}
	}

	if m.follow != "" {
		for c, col := range m.columns {
			for r, app := range col {
				if app.ID == m.follow {
					m.col = c
					m.cursors[c] = r
				}
			}
		}
		m.follow = ""
	}
	for i := range m.cursors {
		m.cursors[i] = clamp(m.cursors[i], 0, max(len(m.columns[i])-1, 0))
	}
}

// selectionChanged clears the history pane and fetches the new selection's events.
func (m *boardModel) selectionChanged() tea.Cmd {
	m.events = nil
	m.refreshDetail()
	app, ok := m.selected()
	if !ok {
		return nil
	}
	return m.eventsCmd(app.ID)
}

func (m boardModel) selected() (model.Application, bool) {
	col := m.columns[m.col]
	if len(col) == 0 {
		return model.Application{}, false
	}
	return col[m.cursors[m.col]], true
}

func (m *boardModel) recalcLayout() {
	detailWidth := max(m.width-4, 20)
	detailHeight := max(m.height/3, 6)
	if !m.ready {
		m.detail = viewport.New(detailWidth, detailHeight)
		m.ready = true
	} else {
		m.detail.Width = detailWidth
		m.detail.Height = detailHeight
	}
	m.refreshDetail()
}

func (m *boardModel) refreshDetail() {
	if !m.ready {
		return
	}
	app, ok := m.selected()
	if !ok {
		m.detail.SetContent("  (nothing selected)")
		return
	}
	m.detail.SetContent(renderDetail(app, m.events, m.detail.Width))
	m.detail.GotoTop()
}

func (m boardModel) columnWidth() int {
	// 2 border chars per column + 1 gap between columns.
	n := len(m.columns)
	return max((m.width-3*n+1)/n, 12)
}

func (m boardModel) columnHeight() int {
	// Header (1) + borders (2 + 2) + detail pane + status bar (1).
	return max(m.height-m.detail.Height-6, cardHeight)
}

func (m boardModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	colWidth := m.columnWidth()
	colHeight := m.columnHeight()

	headers := make([]string, len(m.columns))
	panes := make([]string, len(m.columns))
	for i, st := range model.Statuses {
		title := fmt.Sprintf("%s (%d)", st, len(m.columns[i]))
		border := inactiveBorderStyle
		hs := inactiveHeaderStyle
		if i == m.col {
			border = activeBorderStyle
			hs = activeHeaderStyle
		}
		headers[i] = lipgloss.NewStyle().Width(colWidth + 2).Render(hs.Render(truncate(title, colWidth)))
		body := renderColumn(m.columns[i], m.cursors[i], i == m.col, colWidth, colHeight)
		panes[i] = border.Width(colWidth).Height(colHeight).Render(body)
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(headers)...)
	columnRow := lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(panes)...)
	detail := inactiveBorderStyle.Width(m.width - 2).Render(m.detail.View())

	status := " ←/→ column  ↑/↓ select  </> move status  r reload  pgup/pgdn history  q quit"
	switch {
	case m.err != "":
		status = " " + errorStyle.Render("⚠ "+m.err)
	case m.notice != "":
		status = " " + noticeStyle.Render(m.notice) + "   " + strings.TrimSpace(status)
	}
	statusBar := statusBarStyle.Width(m.width).Render(status)

	return headerRow + "\n" + columnRow + "\n" + detail + "\n" + statusBar
}

func joinWithGap(blocks []string) []string {
	out := make([]string, 0, 2*len(blocks))
	for i, b := range blocks {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, b)
	}
	return out
}

func renderColumn(apps []model.Application, cursor int, isActive bool, width, height int) string {
	if len(apps) == 0 {
		return roleStyle.Render("  (empty)")
	}

	start, end := visibleRange(len(apps), cursor, max(height/cardHeight, 1))
	var b strings.Builder
	for i := start; i < end; i++ {
		app := apps[i]
		isSelected := isActive && i == cursor

		cs, rs := companyStyle, roleStyle
		prefix := "  "
		if isSelected {
			cs, rs = selectedCompanyStyle, selectedRoleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(cs.Render(truncate(app.Company, width-2)))
		b.WriteByte('\n')
		b.WriteString(prefix)
		b.WriteString(rs.Render(truncate(app.Role, width-2)))
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// visibleRange returns the window of n items of size capacity that keeps cursor in view.
func visibleRange(n, cursor, capacity int) (int, int) {
	if n <= capacity {
		return 0, n
	}
	start := clamp(cursor-capacity/2, 0, n-capacity)
	return start, start + capacity
}

func renderDetail(app model.Application, events []model.Event, width int) string {
	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Company", app.Company)
	addField("Role", app.Role)
	addField("Status", string(app.Status))
	addField("Location", app.Location)
	addField("Source", app.Source)
	addField("Applied", app.AppliedDate)
	addField("Next action", app.NextActionDate)
	addField("ID", app.ID)
	if !app.CreatedAt.IsZero() {
		addField("Created", app.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !app.UpdatedAt.IsZero() {
		addField("Updated", app.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	addField("Notes", app.Notes)

	if len(events) > 0 {
		label := "── History "
		b.WriteByte('\n')
		b.WriteString(dividerStyle.Render(label+strings.Repeat("─", max(width-len([]rune(label)), 3))) + "\n")
		for _, e := range events {
			fmt.Fprintf(&b, "  %s  %-12s %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Status, e.Detail)
		}
	}
	return b.String()
}

func statusIndex(st model.Status) int {
	for i, s := range model.Statuses {
		if s == st {
			return i
		}
	}
	return -1
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Run launches the full-screen board over store.
func Run(store model.ApplicationStore) error {
	p := tea.NewProgram(newBoardModel(store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
