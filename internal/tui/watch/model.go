package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/mortar/internal/events"
)

const (
	passLimit  = 20
	logLimit   = 30
	eventLimit = 50
)

// HealthState tracks the last known API health.
type HealthState struct {
	Status        string
	UptimeSeconds int64
	Connected     bool
	LastCheck     time.Time
}

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	// State
	health      HealthState
	passes      []passEntry
	logs        []logEntry
	eventLog    []events.Event
	lastEventID int64

	// Live indicators
	ticker  Ticker
	spinner Spinner

	// UI state
	theme     Theme
	passTable table.Model
	logTable  table.Model
	focusLogs bool

	// Error display
	lastError string
}

// New creates a new watch TUI model.
func New(apiURL, apiKey string) *Model {
	theme := NewDefaultTheme()

	return &Model{
		apiURL:    apiURL,
		apiKey:    apiKey,
		ticker:    NewTicker(),
		spinner:   NewSpinner(),
		theme:     theme,
		passTable: newPassTable(),
		logTable:  newLogTable(),
	}
}

func newPassTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Construct", Width: 24},
			{Title: "Kind", Width: 14},
			{Title: "Schedule", Width: 16},
			{Title: "Created", Width: 19},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	t.SetStyles(tableStyles())
	return t
}

func newLogTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Pebble", Width: 24},
			{Title: "Construct", Width: 20},
			{Title: "Started", Width: 19},
			{Title: "Error", Width: 30},
		}),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchPasses(m.apiURL, m.apiKey, passLimit) },
		func() tea.Msg { return fetchLogs(m.apiURL, m.apiKey, logLimit) },
		func() tea.Msg { return fetchEvents(m.apiURL, m.apiKey, 0) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.focusLogs = !m.focusLogs
			if m.focusLogs {
				m.passTable.Blur()
				m.logTable.Focus()
			} else {
				m.logTable.Blur()
				m.passTable.Focus()
			}
		default:
			var cmd tea.Cmd
			if m.focusLogs {
				m.logTable, cmd = m.logTable.Update(msg)
			} else {
				m.passTable, cmd = m.passTable.Update(msg)
			}
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.ticker.Tick()
		m.spinner.Decay()
		// Refresh everything on a single cadence; the API is local and
		// the queries are cheap.
		return m, tea.Batch(
			func() tea.Msg { return fetchPasses(m.apiURL, m.apiKey, passLimit) },
			func() tea.Msg { return fetchLogs(m.apiURL, m.apiKey, logLimit) },
			func() tea.Msg { return fetchEvents(m.apiURL, m.apiKey, m.lastEventID) },
			tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})

	case passesMsg:
		m.passes = msg
		rows := make([]table.Row, 0, len(msg))
		for _, p := range msg {
			rows = append(rows, table.Row{p.Construct, p.Kind, p.Schedule, shortTime(p.CreatedAt)})
		}
		m.passTable.SetRows(rows)

	case logsMsg:
		m.logs = msg
		rows := make([]table.Row, 0, len(msg))
		for _, l := range msg {
			rows = append(rows, table.Row{statusGlyph(l.Status), l.Pebble, l.Construct, shortTime(l.StartTime), l.Error})
		}
		m.logTable.SetRows(rows)

	case eventsMsg:
		for _, e := range msg {
			m.eventLog = append([]events.Event{e}, m.eventLog...)
			if e.ID > m.lastEventID {
				m.lastEventID = e.ID
			}
		}
		if len(m.eventLog) > eventLimit {
			m.eventLog = m.eventLog[:eventLimit]
		}
		if len(msg) > 0 {
			m.spinner.OnEvent()
		}
		m.health.Connected = true
		m.lastError = ""

	case errMsg:
		m.health.Connected = false
		m.lastError = msg.Error()
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing watch..."
	}

	header := renderHeader(m.health, m.ticker, m.spinner, m.theme, m.width)
	passes := renderPane("PASSES", m.passTable.View(), m.theme, m.width)
	logs := renderPane("STEP LOG", m.logTable.View(), m.theme, m.width)
	eventStream := renderEventStream(m.eventLog, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [tab] Switch Pane • [↑/↓] Navigate")

	parts := []string{header, passes, logs, eventStream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func renderPane(title, body string, theme Theme, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render(title),
		body,
	)
	return theme.Border.Width(width - 4).Render(content)
}

func statusGlyph(status string) string {
	switch status {
	case "completed":
		return "✓"
	case "failed":
		return "✗"
	case "running":
		return "▶"
	default:
		return "·"
	}
}

func shortTime(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339Nano, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
