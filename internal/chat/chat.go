// Package chat keeps a room's message history: server pages fetched
// backward on demand plus live-pushed messages, merged into one sequence
// ascending by send time with no duplicate IDs.
package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"homefit/internal/models"
	"homefit/internal/workday"
)

// HistoryFetcher fetches one server page of room history. Page 0 is the
// newest slice; higher pages are older. Satisfied by the API client.
type HistoryFetcher interface {
	ChatHistory(ctx context.Context, roomID string, page int) (models.ChatPage, error)
}

// Log is the in-memory page list for one room. Pages are held oldest
// first; the last page is the live tail that MergeLive appends to. Every
// mutation swaps state under the lock in one step, so a pagination
// completion and a live push can never interleave partial updates.
type Log struct {
	roomID   string
	memberID int64
	fetch    HistoryFetcher

	mu       sync.RWMutex
	pages    []models.ChatPage
	fetched  int  // server pages loaded so far
	complete bool // no older pages remain
}

type Config struct {
	RoomID   string
	MemberID int64
	Fetch    HistoryFetcher
}

func NewLog(config Config) *Log {
	return &Log{
		roomID:   config.RoomID,
		memberID: config.MemberID,
		fetch:    config.Fetch,
	}
}

// Load fetches the newest page, replacing anything already held.
func (l *Log) Load(ctx context.Context) error {
	page, err := l.fetch.ChatHistory(ctx, l.roomID, 0)
	if err != nil {
		return fmt.Errorf("load room %s: %w", l.roomID, err)
	}
	normalize(&page)

	l.mu.Lock()
	l.pages = []models.ChatPage{page}
	l.fetched = 1
	l.complete = page.IsLastPage
	l.mu.Unlock()
	return nil
}

// LoadOlder fetches the next older page and prepends it. It returns the ID
// of the message that was topmost before the prepend, so the view can
// re-anchor scroll on it, or "" when nothing was loaded.
func (l *Log) LoadOlder(ctx context.Context) (anchorID string, err error) {
	l.mu.RLock()
	if l.complete {
		l.mu.RUnlock()
		return "", nil
	}
	next := l.fetched
	l.mu.RUnlock()

	page, err := l.fetch.ChatHistory(ctx, l.roomID, next)
	if err != nil {
		return "", fmt.Errorf("load older page of room %s: %w", l.roomID, err)
	}
	normalize(&page)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fetched != next {
		// A concurrent load won; drop this page rather than double-prepend.
		return "", nil
	}
	if len(l.pages) > 0 && len(l.pages[0].Items) > 0 {
		anchorID = l.pages[0].Items[0].ID
	}
	l.pages = append([]models.ChatPage{page}, l.pages...)
	l.fetched++
	l.complete = page.IsLastPage
	return anchorID, nil
}

// MergeLive appends a pushed message to the live tail. Duplicate delivery
// is a no-op: if the tail already holds the ID, nothing changes.
func (l *Log) MergeLive(msg models.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pages) == 0 {
		l.pages = []models.ChatPage{{IsLastPage: true}}
		l.fetched = 1
		l.complete = true
	}
	tail := &l.pages[len(l.pages)-1]
	for _, existing := range tail.Items {
		if existing.ID == msg.ID {
			return
		}
	}

	// Keep the tail ascending even when a reconnect refetch races live
	// pushes: the new message slots before any later-sent neighbor.
	at := len(tail.Items)
	for at > 0 && msg.SentAt.Before(tail.Items[at-1].SentAt) {
		at--
	}
	tail.Items = append(tail.Items, models.ChatMessage{})
	copy(tail.Items[at+1:], tail.Items[at:])
	tail.Items[at] = msg
}

// Flatten returns the full ascending-by-SentAt sequence across all loaded
// pages. Pages are boundary-disjoint in time, so plain concatenation is
// already ordered and stable.
func (l *Log) Flatten() []models.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.ChatMessage
	for _, p := range l.pages {
		out = append(out, p.Items...)
	}
	return out
}

// Entry is one rendered row: either a message or a day separator placed
// where consecutive messages cross a local calendar-day boundary. The
// separator uses the plain calendar day, not the workout reset-hour day.
type Entry struct {
	Separator bool
	Message   models.ChatMessage
}

// Entries flattens the log and inserts day separators.
func (l *Log) Entries() []Entry {
	msgs := l.Flatten()
	out := make([]Entry, 0, len(msgs))
	for i, m := range msgs {
		if i == 0 || !workday.SameCalendarDay(msgs[i-1].SentAt, m.SentAt) {
			out = append(out, Entry{Separator: true, Message: m})
		}
		out = append(out, Entry{Message: m})
	}
	return out
}

// IsOwn reports whether the message was sent by the current member.
// Comparison is by author ID; display names are allowed to collide.
func (l *Log) IsOwn(msg models.ChatMessage) bool {
	return msg.AuthorID == l.memberID
}

// HasOlder reports whether another backward page exists.
func (l *Log) HasOlder() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.complete
}

// normalize orders a fetched page ascending by send time. The server sends
// pages sorted already; the stable sort keeps equal-timestamp messages in
// their arrival order either way.
func normalize(page *models.ChatPage) {
	sort.SliceStable(page.Items, func(i, j int) bool {
		return page.Items[i].SentAt.Before(page.Items[j].SentAt)
	})
}
