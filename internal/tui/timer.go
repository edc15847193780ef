package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"homefit/internal/session"
	"homefit/internal/validate"
)

const actionTimeout = 15 * time.Second

type timerModel struct {
	sess   WorkoutSession
	cursor int

	adding bool
	input  textinput.Model

	// dayOffset is days back from today; 0 is the current workout day.
	dayOffset int
}

func newTimerModel(sess WorkoutSession) timerModel {
	ti := textinput.New()
	ti.Placeholder = "exercise name"
	ti.CharLimit = validate.MaxExerciseName
	ti.Width = 30

	return timerModel{sess: sess, input: ti}
}

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	if t.adding {
		return t.updateAddInput(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		snap := t.sess.Snapshot()
		switch msg.String() {
		case "up", "k":
			if t.cursor > 0 {
				t.cursor--
			}
		case "down", "j":
			if t.cursor < len(snap.Exercises)-1 {
				t.cursor++
			}
		case "enter", "s":
			if t.cursor < len(snap.Exercises) {
				id := snap.Exercises[t.cursor].ID
				return t, actionCmd(func(ctx context.Context) error {
					return t.sess.Start(ctx, id)
				})
			}
		case " ", "x":
			return t, actionCmd(t.sess.Stop)
		case "a":
			t.adding = true
			t.input.Reset()
			t.input.Focus()
			return t, t.input.Cursor.BlinkCmd()
		case "d":
			if t.cursor < len(snap.Exercises) {
				id := snap.Exercises[t.cursor].ID
				return t, actionCmd(func(ctx context.Context) error {
					return t.sess.Delete(ctx, id)
				})
			}
		case "left", "h":
			t.dayOffset++
			return t, t.switchDayCmd()
		case "right", "l":
			if t.dayOffset > 0 {
				t.dayOffset--
				return t, t.switchDayCmd()
			}
		}
	}
	return t, nil
}

func (t timerModel) updateAddInput(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			name := strings.TrimSpace(t.input.Value())
			t.adding = false
			t.input.Blur()
			if name == "" {
				return t, nil
			}
			return t, actionCmd(func(ctx context.Context) error {
				return t.sess.Add(ctx, name)
			})
		case "esc":
			t.adding = false
			t.input.Blur()
			return t, nil
		case "ctrl+c":
			return t, tea.Quit
		}
	}

	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

func (t timerModel) switchDayCmd() tea.Cmd {
	day := time.Now().AddDate(0, 0, -t.dayOffset)
	return actionCmd(func(ctx context.Context) error {
		return t.sess.SwitchDay(ctx, day)
	})
}

// actionCmd runs a session mutation off the update loop so a slow network
// round trip never freezes rendering.
func actionCmd(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg{err: err}
		}
		return actionMsg{}
	}
}

func (t timerModel) view() string {
	snap := t.sess.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Workout %s", snap.DateKey)))
	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total %s", session.FormatElapsed(snap.TotalMs))))
	b.WriteString("\n\n")

	if len(snap.Exercises) == 0 {
		b.WriteString(dimStyle.Render("No exercises yet. Press a to add one."))
		b.WriteString("\n")
	}

	for i, ex := range snap.Exercises {
		cursor := "  "
		if i == t.cursor {
			cursor = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%-20s %s", ex.Name, session.FormatElapsed(snap.Elapsed[i]))
		if ex.IsActive {
			line = activeStyle.Render(line + "  ●")
		}
		b.WriteString(cursor + line + "\n")
	}

	b.WriteString("\n")
	if t.adding {
		b.WriteString("New exercise: " + t.input.View() + "\n")
		b.WriteString(dimStyle.Render("enter save · esc cancel"))
	} else if snap.ActiveID != 0 {
		b.WriteString(dimStyle.Render("space stop · a add · d delete · ←/→ day"))
	} else {
		b.WriteString(dimStyle.Render("s start · a add · d delete · ←/→ day"))
	}
	return b.String()
}
