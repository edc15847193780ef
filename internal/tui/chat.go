package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"homefit/internal/content"
	"homefit/internal/validate"
)

type chatModel struct {
	room ChatRoom

	vp      viewport.Model
	input   textinput.Model
	ready   bool
	loading bool
}

func newChatModel(room ChatRoom) chatModel {
	ti := textinput.New()
	ti.Placeholder = "message"
	ti.CharLimit = validate.MaxChatLen
	ti.Prompt = "> "

	return chatModel{room: room, input: ti}
}

func (c *chatModel) resize(width, height int) {
	// Leave room for the title, the composer and the footer.
	vpHeight := height - 5
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !c.ready {
		c.vp = viewport.New(width, vpHeight)
		c.ready = true
	} else {
		c.vp.Width = width
		c.vp.Height = vpHeight
	}
	c.input.Width = width - 4
	c.syncViewport()
}

func (c chatModel) composing() bool {
	return c.input.Focused()
}

func (c chatModel) update(msg tea.Msg) (chatModel, tea.Cmd) {
	if c.room == nil {
		return c, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if c.input.Focused() {
			switch msg.String() {
			case "enter":
				body := strings.TrimSpace(c.input.Value())
				c.input.Reset()
				if body == "" {
					return c, nil
				}
				room := c.room
				return c, func() tea.Msg {
					if err := room.Send(body); err != nil {
						return errMsg{err: err}
					}
					return actionMsg{}
				}
			case "esc":
				c.input.Blur()
				return c, nil
			case "ctrl+c":
				return c, tea.Quit
			}
			var cmd tea.Cmd
			c.input, cmd = c.input.Update(msg)
			return c, cmd
		}

		switch msg.String() {
		case "i", "enter":
			c.input.Focus()
			return c, c.input.Cursor.BlinkCmd()
		case "pgup", "o":
			if c.room.HasOlder() && !c.loading {
				c.loading = true
				room := c.room
				return c, func() tea.Msg {
					ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
					defer cancel()
					anchor, err := room.LoadOlder(ctx)
					if err != nil {
						return errMsg{err: err}
					}
					return olderLoadedMsg{anchorID: anchor}
				}
			}
		}

	case olderLoadedMsg:
		c.applyOlder(msg.anchorID)
		return c, nil
	}

	var cmd tea.Cmd
	c.vp, cmd = c.vp.Update(msg)
	return c, cmd
}

// syncViewport re-renders the log into the viewport and follows the tail
// unless the reader has scrolled up.
func (c *chatModel) syncViewport() {
	c.loading = false
	if !c.ready || c.room == nil {
		return
	}
	follow := c.vp.AtBottom()
	c.vp.SetContent(c.renderLog())
	if follow {
		c.vp.GotoBottom()
	}
}

// applyOlder re-renders after a backward page load and re-anchors the
// viewport on the message that was topmost before the prepend, so the
// reader stays on the line they were looking at.
func (c *chatModel) applyOlder(anchorID string) {
	c.loading = false
	if !c.ready || c.room == nil {
		return
	}
	c.vp.SetContent(c.renderLog())
	if line := c.lineOf(anchorID); line >= 0 {
		c.vp.SetYOffset(line)
	}
}

// lineOf returns the content line the given message starts on, or -1. It
// must count exactly the lines renderLog emits.
func (c *chatModel) lineOf(id string) int {
	if id == "" {
		return -1
	}
	line := 0
	if c.room.HasOlder() {
		line++
	}
	for _, entry := range c.room.Entries() {
		if !entry.Separator && entry.Message.ID == id {
			return line
		}
		line++
	}
	return -1
}

func (c *chatModel) renderLog() string {
	var b strings.Builder
	if c.room.HasOlder() {
		b.WriteString(dimStyle.Render("· pgup for older messages ·"))
		b.WriteString("\n")
	}
	for _, entry := range c.room.Entries() {
		if entry.Separator {
			b.WriteString(sepStyle.Render("── " + entry.Message.SentAt.Local().Format("2006-01-02") + " ──"))
			b.WriteString("\n")
			continue
		}
		msg := entry.Message
		line := fmt.Sprintf("%s %s: %s",
			msg.SentAt.Local().Format("15:04"),
			msg.AuthorName,
			content.Sanitize(msg.Body),
		)
		if c.room.IsOwn(msg) {
			b.WriteString(ownMsgStyle.Render(line))
		} else {
			b.WriteString(otherMsgStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c chatModel) view() string {
	if c.room == nil {
		return titleStyle.Render("Team chat") + "\n\n" +
			dimStyle.Render("Join a team to chat with its members.")
	}
	if !c.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Team chat"))
	b.WriteString("\n")
	b.WriteString(c.vp.View())
	b.WriteString("\n")
	b.WriteString(c.input.View())
	b.WriteString("\n")
	if c.input.Focused() {
		b.WriteString(dimStyle.Render("enter send · esc leave composer"))
	} else {
		b.WriteString(dimStyle.Render("i compose · pgup older"))
	}
	return b.String()
}
