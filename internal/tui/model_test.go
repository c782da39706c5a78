package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/homeclock/internal/event"
	"github.com/Iron-Ham/homeclock/internal/shell"
)

func TestModel_UpdateAppendsEvents(t *testing.T) {
	ch := make(chan Update, 1)
	m := New("homeclock", ch)
	if m.Init() == nil {
		t.Fatal("Init() should wait for updates")
	}

	status := shell.Status{Attached: "com.example.clock.a(dbox/embedded)", Deleting: 1}
	next, cmd := m.Update(updateMsg{
		Event:  event.NewClockAttachedEvent("com.example.clock.a", "clock-a", "dbox"),
		Status: status,
	})
	m = next.(Model)
	if cmd == nil {
		t.Error("Update() should keep listening after an update")
	}
	if len(m.log) != 1 || m.status != status {
		t.Fatalf("log = %d, status = %+v", len(m.log), m.status)
	}

	view := m.View()
	for _, want := range []string{"homeclock", "com.example.clock.a(dbox/embedded)", event.TypeClockAttached, "q: quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_LogIsBounded(t *testing.T) {
	m := New("t", nil)
	m.maxLog = 3
	for i := 0; i < 5; i++ {
		next, _ := m.Update(updateMsg{Event: event.NewScrollHoldEvent(i%2 == 0)})
		m = next.(Model)
	}
	if len(m.log) != 3 {
		t.Errorf("log = %d, want 3", len(m.log))
	}
}

func TestModel_Closed(t *testing.T) {
	ch := make(chan Update)
	close(ch)
	m := New("t", ch)

	msg := m.Init()()
	if _, ok := msg.(closedMsg); !ok {
		t.Fatalf("Init() on a closed channel = %T, want closedMsg", msg)
	}
	next, _ := m.Update(msg)
	if !strings.Contains(next.View(), "scenario finished") {
		t.Error("View() should report the finished scenario")
	}
}

func TestModel_Keys(t *testing.T) {
	m := New("t", nil)
	tests := []struct {
		key  tea.KeyMsg
		quit bool
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, true},
		{tea.KeyMsg{Type: tea.KeyCtrlC}, true},
		{tea.KeyMsg{Type: tea.KeyEsc}, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			_, cmd := m.Update(tt.key)
			if got := cmd != nil; got != tt.quit {
				t.Errorf("quit = %v, want %v", got, tt.quit)
			}
		})
	}
}

func TestModel_LogFollowsTail(t *testing.T) {
	m := New("t", nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = next.(Model)
	if m.vp.Height != 6 {
		t.Fatalf("viewport height = %d, want 6", m.vp.Height)
	}

	for i := 0; i < 40; i++ {
		next, _ = m.Update(updateMsg{Event: event.NewProviderFaultEvent("clock-a", i)})
		m = next.(Model)
	}
	if !m.vp.AtBottom() {
		t.Error("log should follow new events")
	}
	if !strings.Contains(m.View(), "39 retries left") {
		t.Error("latest event should be visible")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Event
		want string
	}{
		{"requested", event.NewClockRequestedEvent("pkg", "dbox"), "pkg via dbox"},
		{"waiting", event.NewClockWaitingEvent("pkg", "id", true), "previous torn down"},
		{"detached", event.NewClockDetachedEvent("pkg", "id", "fatal"), "pkg: fatal"},
		{"superseded", event.NewCandidateSupersededEvent("pkg", "id"), "pkg"},
		{"failed", event.NewRequestFailedEvent("pkg", "prepare", errors.New("boom")), "at prepare: boom"},
		{"unsolicited", event.NewInstancePromotedEvent("id", "force", false), "unsolicited"},
		{"fault", event.NewProviderFaultEvent("id", 2), "2 retries left"},
		{"fatal", event.NewProviderFatalEvent("id", "pkg"), "pkg gave up on id"},
		{"creation", event.NewCreationFaultEvent("id", true), "first instance"},
		{"scroll", event.NewScrollHoldEvent(false), "release"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := describe(tt.ev)
			if !strings.Contains(line.text, tt.want) {
				t.Errorf("describe() = %q, want containing %q", line.text, tt.want)
			}
			if line.kind != tt.ev.EventType() {
				t.Errorf("kind = %q, want %q", line.kind, tt.ev.EventType())
			}
		})
	}
}

func TestFormat(t *testing.T) {
	got := Format(event.NewClockRequestedEvent("pkg", "dbox"))
	if !strings.HasPrefix(got, event.TypeClockRequested) || !strings.HasSuffix(got, "pkg via dbox") {
		t.Errorf("Format() = %q", got)
	}
}
