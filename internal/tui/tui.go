// Package tui provides the interactive terminal view: the workout timer
// on one tab and the team chat room on the other. Rendering is driven by
// a one second tick plus push notifications from the session and the
// chat room, so elapsed clocks stay true without the model ever counting
// time itself.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"homefit/internal/chat"
	"homefit/internal/models"
	"homefit/internal/session"
)

// WorkoutSession is the slice of the session the timer tab drives.
type WorkoutSession interface {
	Snapshot() session.Snapshot
	Start(ctx context.Context, id int64) error
	Stop(ctx context.Context) error
	Add(ctx context.Context, name string) error
	Delete(ctx context.Context, id int64) error
	SwitchDay(ctx context.Context, t time.Time) error
}

// ChatRoom is the slice of the room the chat tab drives. Nil when the
// member has no team; the tab then shows a hint instead.
type ChatRoom interface {
	Send(body string) error
	LoadOlder(ctx context.Context) (string, error)
	Entries() []chat.Entry
	IsOwn(msg models.ChatMessage) bool
	HasOlder() bool
}

type view int

const (
	viewTimer view = iota
	viewChat
)

type (
	tickMsg    time.Time
	refreshMsg struct{}
	errMsg     struct{ err error }
	actionMsg  struct{}

	// olderLoadedMsg reports a finished backward page load. Distinct from
	// refreshMsg so it never re-arms the updates listener.
	olderLoadedMsg struct{ anchorID string }
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	totalStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	ownMsgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	otherMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	sepStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

type Options struct {
	Session WorkoutSession
	Room    ChatRoom // may be nil
	// Updates receives a signal whenever the session or room changes
	// outside a key press, for prompt redraws between ticks.
	Updates <-chan struct{}
}

// Model is the root bubbletea model.
type Model struct {
	view  view
	timer timerModel
	chat  chatModel

	updates <-chan struct{}
	err     error
	width   int
	height  int
}

func NewModel(opts Options) Model {
	return Model{
		timer:   newTimerModel(opts.Session),
		chat:    newChatModel(opts.Room),
		updates: opts.Updates,
	}
}

// Run drives the program until quit or ctx cancellation.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		// Cancellation via signal is a clean exit, not a UI failure.
		return ctx.Err()
	}
	return err
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.updates != nil {
		cmds = append(cmds, listenCmd(m.updates))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chat.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		return m, tickCmd()

	case refreshMsg:
		m.chat.syncViewport()
		if m.updates != nil {
			return m, listenCmd(m.updates)
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.chat.loading = false
		return m, nil

	case olderLoadedMsg:
		// Delivered to the chat model even if the reader tabbed away while
		// the page was in flight.
		m.chat, _ = m.chat.update(msg)
		return m, nil

	case actionMsg:
		m.err = nil
		m.chat.syncViewport()
		return m, nil

	case tea.KeyMsg:
		if m.inputActive() {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.view == viewTimer {
				m.view = viewChat
			} else {
				m.view = viewTimer
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.view {
	case viewTimer:
		m.timer, cmd = m.timer.update(msg)
	case viewChat:
		m.chat, cmd = m.chat.update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.view {
	case viewTimer:
		body = m.timer.view()
	case viewChat:
		body = m.chat.view()
	}

	if m.err != nil {
		body += "\n" + errStyle.Render(m.err.Error())
	}
	body += "\n" + dimStyle.Render("tab switch view · q quit")
	return body
}

func (m Model) inputActive() bool {
	if m.view == viewTimer {
		return m.timer.adding
	}
	return m.chat.composing()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func listenCmd(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return refreshMsg{}
	}
}
