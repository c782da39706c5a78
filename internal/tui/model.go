package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/homeclock/internal/event"
	"github.com/Iron-Ham/homeclock/internal/shell"
)

const (
	// defaultLogLines is how many events the log keeps.
	defaultLogLines = 200
	// chromeHeight is the rows taken by the title, status panel and help.
	chromeHeight = 14
)

// Update is one lifecycle event together with the shell status right
// after it was published.
type Update struct {
	Event  event.Event
	Status shell.Status
}

type updateMsg Update

// closedMsg is sent once the update channel is closed.
type closedMsg struct{}

type logLine struct {
	at    string
	kind  string
	text  string
	style lipgloss.Style
}

// Model is a live view of a shell's clock lifecycle.
type Model struct {
	title   string
	updates <-chan Update
	status  shell.Status
	log     []logLine
	maxLog  int
	vp      viewport.Model
	done    bool
}

// New creates a model that renders updates until the channel closes.
func New(title string, updates <-chan Update) Model {
	return Model{
		title:   title,
		updates: updates,
		maxLog:  defaultLogLines,
		vp:      viewport.New(100, 10),
	}
}

func waitForUpdate(ch <-chan Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

// Init starts listening for updates.
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

// Update handles keys, resizes and lifecycle updates.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-chromeHeight, 1)
		m.refreshLog()
		return m, nil

	case updateMsg:
		m.status = msg.Status
		if msg.Event != nil {
			m.log = append(m.log, describe(msg.Event))
			if len(m.log) > m.maxLog {
				m.log = m.log[len(m.log)-m.maxLog:]
			}
			m.refreshLog()
		}
		return m, waitForUpdate(m.updates)

	case closedMsg:
		m.done = true
		return m, nil
	}
	return m, nil
}

// View renders the status panel above the event log.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.renderStatus()))
	b.WriteString("\n\n")

	b.WriteString(m.vp.View())
	b.WriteString("\n")

	help := "↑/↓: scroll · q: quit"
	if m.done {
		help = "scenario finished · " + help
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m Model) renderStatus() string {
	row := func(label, value string) string {
		if value == "" {
			value = mutedStyle.Render("-")
		} else {
			value = valueStyle.Render(value)
		}
		return labelStyle.Render(label) + value
	}
	st := m.status
	rows := []string{
		row("attached", st.Attached),
		row("candidate", st.Candidate),
		row("cached", st.Cached),
		row("pending", fmt.Sprint(st.Pending)),
		row("deleting", fmt.Sprint(st.Deleting)),
		row("frozen", fmt.Sprint(st.Frozen)),
		row("instances", fmt.Sprint(st.Instances)),
	}
	return strings.Join(rows, "\n")
}

// refreshLog re-renders the event log, following the tail unless the user
// scrolled up.
func (m *Model) refreshLog() {
	follow := m.vp.AtBottom()
	lines := make([]string, len(m.log))
	for i, line := range m.log {
		lines[i] = mutedStyle.Render(line.at) + " " +
			line.style.Render(fmt.Sprintf("%-24s", line.kind)) + " " + line.text
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.vp.GotoBottom()
	}
}

func describe(e event.Event) logLine {
	line := logLine{
		at:    e.Timestamp().Format("15:04:05.000"),
		kind:  e.EventType(),
		style: infoStyle,
	}
	switch ev := e.(type) {
	case event.ClockRequestedEvent:
		line.text = fmt.Sprintf("%s via %s", ev.PackageName, ev.Family)
	case event.ClockWaitingEvent:
		line.text = fmt.Sprintf("%s waiting on %s", ev.PackageName, ev.ProviderID)
		if ev.DestroyPrevious {
			line.text += " (previous torn down)"
		}
	case event.ClockAttachedEvent:
		line.text = fmt.Sprintf("%s (%s)", ev.PackageName, ev.ProviderID)
		line.style = okStyle
	case event.ClockDetachedEvent:
		line.text = fmt.Sprintf("%s: %s", ev.PackageName, ev.Reason)
		if ev.Reason == "fatal" {
			line.style = errorStyle
		}
	case event.CandidateSupersededEvent:
		line.text = ev.PackageName
		line.style = warningStyle
	case event.RequestFailedEvent:
		line.text = fmt.Sprintf("%s at %s: %v", ev.PackageName, ev.Stage, ev.Err)
		line.style = errorStyle
	case event.InstancePromotedEvent:
		line.text = fmt.Sprintf("%s by %s", ev.ProviderID, ev.Trigger)
		if !ev.Solicited {
			line.text += " (unsolicited, destroyed)"
			line.style = warningStyle
		} else {
			line.style = okStyle
		}
	case event.ProviderFaultEvent:
		line.text = fmt.Sprintf("%s reactivated, %d retries left", ev.ProviderID, ev.RetryLeft)
		line.style = warningStyle
	case event.ProviderFatalEvent:
		line.text = fmt.Sprintf("%s gave up on %s", ev.PackageName, ev.ProviderID)
		line.style = errorStyle
	case event.CreationFaultEvent:
		line.text = ev.ProviderID
		if ev.Cached {
			line.text += " (first instance)"
		}
		line.style = errorStyle
	case event.ScrollHoldEvent:
		if ev.Hold {
			line.text = "hold"
		} else {
			line.text = "release"
		}
	}
	return line
}

// Format renders e as a single plain line for non-interactive output.
func Format(e event.Event) string {
	line := describe(e)
	return fmt.Sprintf("%-24s %s", line.kind, line.text)
}
