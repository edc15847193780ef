package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"homefit/internal/chat"
	"homefit/internal/models"
	"homefit/internal/session"
)

type fakeSession struct {
	snap    session.Snapshot
	started []int64
	stopped int
	added   []string
	deleted []int64
	days    []time.Time
}

func (f *fakeSession) Snapshot() session.Snapshot { return f.snap }

func (f *fakeSession) Start(_ context.Context, id int64) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeSession) Stop(context.Context) error {
	f.stopped++
	return nil
}

func (f *fakeSession) Add(_ context.Context, name string) error {
	f.added = append(f.added, name)
	return nil
}

func (f *fakeSession) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSession) SwitchDay(_ context.Context, t time.Time) error {
	f.days = append(f.days, t)
	return nil
}

type fakeRoom struct {
	sent    []string
	entries []chat.Entry
	older   bool
}

func (f *fakeRoom) Send(body string) error {
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeRoom) LoadOlder(context.Context) (string, error) { return "", nil }
func (f *fakeRoom) Entries() []chat.Entry                     { return f.entries }
func (f *fakeRoom) IsOwn(models.ChatMessage) bool             { return false }
func (f *fakeRoom) HasOlder() bool                            { return f.older }

func twoExercises() session.Snapshot {
	return session.Snapshot{
		DateKey: "20260828",
		Exercises: []models.Exercise{
			{ID: 1, Name: "squats"},
			{ID: 2, Name: "pushups", IsActive: true},
		},
		Elapsed: []int64{5000, 63000},
		TotalMs: 68000,
	}
}

func key(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	}
	return tea.KeyMsg{}
}

func drive(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = next.(Model)
		// Run the returned command once so session calls land; follow-up
		// commands (cursor blinks and such) are dropped.
		if cmd == nil {
			continue
		}
		out := cmd()
		if out == nil {
			continue
		}
		if _, ok := out.(tea.QuitMsg); ok {
			return m
		}
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

func TestTimerViewShowsFormattedElapsed(t *testing.T) {
	fs := &fakeSession{snap: twoExercises()}
	m := NewModel(Options{Session: fs})
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	out := m.View()
	if !strings.Contains(out, "00:00:05") {
		t.Errorf("view missing idle elapsed:\n%s", out)
	}
	if !strings.Contains(out, "00:01:03") {
		t.Errorf("view missing active elapsed:\n%s", out)
	}
	if !strings.Contains(out, "00:01:08") {
		t.Errorf("view missing total:\n%s", out)
	}
}

func TestStartTargetsSelectedExercise(t *testing.T) {
	fs := &fakeSession{snap: twoExercises()}
	m := NewModel(Options{Session: fs})
	m = drive(t, m,
		tea.WindowSizeMsg{Width: 80, Height: 24},
		key("down"),
		key("s"),
	)

	if len(fs.started) != 1 || fs.started[0] != 2 {
		t.Errorf("started = %v, want [2]", fs.started)
	}
}

func TestStopKey(t *testing.T) {
	fs := &fakeSession{snap: twoExercises()}
	m := NewModel(Options{Session: fs})
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, key("x"))

	if fs.stopped != 1 {
		t.Errorf("stopped = %d, want 1", fs.stopped)
	}
}

func TestAddExerciseViaInput(t *testing.T) {
	fs := &fakeSession{snap: twoExercises()}
	m := NewModel(Options{Session: fs})

	msgs := []tea.Msg{tea.WindowSizeMsg{Width: 80, Height: 24}, key("a")}
	for _, r := range "plank" {
		msgs = append(msgs, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	msgs = append(msgs, key("enter"))
	m = drive(t, m, msgs...)

	if len(fs.added) != 1 || fs.added[0] != "plank" {
		t.Errorf("added = %v, want [plank]", fs.added)
	}
	if m.inputActive() {
		t.Error("input should close after enter")
	}
}

func TestChatSendViaComposer(t *testing.T) {
	fs := &fakeSession{snap: twoExercises()}
	fr := &fakeRoom{}
	m := NewModel(Options{Session: fs, Room: fr})

	msgs := []tea.Msg{
		tea.WindowSizeMsg{Width: 80, Height: 24},
		key("tab"),
		key("i"),
	}
	for _, r := range "hello" {
		msgs = append(msgs, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	msgs = append(msgs, key("enter"))
	m = drive(t, m, msgs...)

	if len(fr.sent) != 1 || fr.sent[0] != "hello" {
		t.Errorf("sent = %v, want [hello]", fr.sent)
	}
	_ = m
}

// pagingRoom holds one loaded page of newer messages and one older page
// fetched on demand, the way a real room pages backward.
type pagingRoom struct {
	newer []models.ChatMessage
	older []models.ChatMessage
	done  bool
}

func (p *pagingRoom) Send(string) error { return nil }

func (p *pagingRoom) LoadOlder(context.Context) (string, error) {
	anchor := p.newer[0].ID
	p.done = true
	return anchor, nil
}

func (p *pagingRoom) Entries() []chat.Entry {
	var msgs []models.ChatMessage
	if p.done {
		msgs = append(msgs, p.older...)
	}
	msgs = append(msgs, p.newer...)

	out := []chat.Entry{{Separator: true, Message: msgs[0]}}
	for _, m := range msgs {
		out = append(out, chat.Entry{Message: m})
	}
	return out
}

func (p *pagingRoom) IsOwn(models.ChatMessage) bool { return false }
func (p *pagingRoom) HasOlder() bool                { return !p.done }

func makeMessages(prefix string, n int, from time.Time) []models.ChatMessage {
	out := make([]models.ChatMessage, n)
	for i := range out {
		out[i] = models.ChatMessage{
			ID:         fmt.Sprintf("%s-%d", prefix, i),
			AuthorName: "mina",
			Body:       fmt.Sprintf("%s-%d", prefix, i),
			SentAt:     from.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestOlderPageKeepsTopMessageAnchored(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
	fr := &pagingRoom{
		newer: makeMessages("new", 30, base),
		older: makeMessages("old", 30, base.Add(-time.Hour)),
	}
	fs := &fakeSession{snap: twoExercises()}

	m := NewModel(Options{Session: fs, Room: fr})
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 20}, key("tab"))

	// Reader has scrolled to the top of the loaded history.
	m.chat.vp.GotoTop()
	// Line 0 is the pgup hint, line 1 the day separator, line 2 new-0.
	topBefore := m.chat.vp.View()
	if !strings.Contains(strings.Split(topBefore, "\n")[2], "new-0") {
		t.Fatalf("precondition: new-0 not near the top:\n%s", topBefore)
	}

	m = drive(t, m, key("pgup"))

	top := strings.Split(m.chat.vp.View(), "\n")[0]
	if !strings.Contains(top, "new-0") {
		t.Errorf("top visible line after prepend = %q, want the previous topmost message new-0", top)
	}
	if m.chat.loading {
		t.Error("loading flag should clear after the page lands")
	}
}

func TestOlderPageLoadIsNotARefreshSignal(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
	fr := &pagingRoom{
		newer: makeMessages("new", 3, base),
		older: makeMessages("old", 3, base.Add(-time.Hour)),
	}

	c := newChatModel(fr)
	c.resize(80, 20)

	c, cmd := c.update(key("pgup"))
	if cmd == nil {
		t.Fatal("pgup should start a load")
	}
	out := cmd()
	got, ok := out.(olderLoadedMsg)
	if !ok {
		t.Fatalf("load completion msg = %T, want olderLoadedMsg", out)
	}
	if got.anchorID != "new-0" {
		t.Errorf("anchorID = %q, want new-0", got.anchorID)
	}
	_ = c
}

func TestChatTabWithoutRoom(t *testing.T) {
	fs := &fakeSession{snap: twoExercises()}
	m := NewModel(Options{Session: fs})
	m = drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, key("tab"))

	if !strings.Contains(m.View(), "Join a team") {
		t.Errorf("expected no-team hint, got:\n%s", m.View())
	}
}
