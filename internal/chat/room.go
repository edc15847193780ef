package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homefit/internal/models"
	"homefit/internal/validate"
)

// Transport is the live pub/sub session the room rides on. Owned by the
// ws package; the room only observes reconnects.
type Transport interface {
	Subscribe(topic string, handler func(payload []byte)) error
	Publish(topic string, payload any) error
	OnReconnect(fn func())
}

// MessageStore caches backscroll locally. Optional; a nil store disables
// caching. The cache is written on every push and send and read back to
// seed the log when the history fetch is unavailable.
type MessageStore interface {
	AppendMessages(roomID string, msgs []models.ChatMessage) error
	ListMessages(roomID string, from, to time.Time) ([]models.ChatMessage, error)
}

// Room wires a Log to the live transport: pushes merge into the log,
// sends publish to the room topic, and every reconnect reconciles against
// a fresh page fetch instead of assuming the stream had no gap.
type Room struct {
	Log *Log

	roomID    string
	memberID  int64
	nickname  string
	transport Transport
	store     MessageStore
	now       func() time.Time
	onUpdate  func()
}

type RoomConfig struct {
	RoomID   string
	MemberID int64
	Nickname string
	Fetch    HistoryFetcher
	Store    MessageStore
	OnUpdate func() // called after any log change
}

// Join loads the newest history page and subscribes to the room topic.
func Join(ctx context.Context, transport Transport, config RoomConfig) (*Room, error) {
	r := &Room{
		Log: NewLog(Config{
			RoomID:   config.RoomID,
			MemberID: config.MemberID,
			Fetch:    config.Fetch,
		}),
		roomID:    config.RoomID,
		memberID:  config.MemberID,
		nickname:  config.Nickname,
		transport: transport,
		store:     config.Store,
		now:       time.Now,
		onUpdate:  config.OnUpdate,
	}

	if err := r.Log.Load(ctx); err != nil {
		// Warm offline start: the cached backscroll stands in until the
		// next reconnect refresh overwrites it with server pages.
		if !r.seedFromCache() {
			return nil, err
		}
		slog.Warn("history fetch failed, starting from cached backscroll",
			"room", config.RoomID, "error", err)
	} else {
		r.cache(r.Log.Flatten())
	}

	if err := transport.Subscribe("/topic/messages/"+config.RoomID, r.handlePush); err != nil {
		return nil, err
	}
	transport.OnReconnect(func() {
		// The stream may have gapped while disconnected; the page fetch is
		// authoritative and MergeLive dedupes whatever we already hold.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.refresh(ctx)
	})

	return r, nil
}

// Send validates and publishes a message. The message is also merged
// locally so the sender sees it immediately; the ID travels with the
// publish, so the server echo dedupes against this optimistic copy.
func (r *Room) Send(body string) error {
	if err := validate.ChatBody(body); err != nil {
		return err
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     r.roomID,
		AuthorID:   r.memberID,
		AuthorName: r.nickname,
		Body:       body,
		SentAt:     r.now(),
	}
	if err := r.transport.Publish("/app/chat/"+r.roomID, msg); err != nil {
		return err
	}

	r.Log.MergeLive(msg)
	r.cache([]models.ChatMessage{msg})
	r.notify()
	return nil
}

// LoadOlder pages backward, returning the scroll anchor ID.
func (r *Room) LoadOlder(ctx context.Context) (string, error) {
	anchor, err := r.Log.LoadOlder(ctx)
	if err != nil {
		return "", err
	}
	r.notify()
	return anchor, nil
}

// seedFromCache fills an empty log with locally cached messages. Reports
// whether anything was seeded.
func (r *Room) seedFromCache() bool {
	if r.store == nil {
		return false
	}
	msgs, err := r.store.ListMessages(r.roomID, time.Time{}, r.now())
	if err != nil || len(msgs) == 0 {
		return false
	}
	for _, msg := range msgs {
		r.Log.MergeLive(msg)
	}
	return true
}

// Entries exposes the rendered view of the log, separators included.
func (r *Room) Entries() []Entry {
	return r.Log.Entries()
}

func (r *Room) IsOwn(msg models.ChatMessage) bool {
	return r.Log.IsOwn(msg)
}

func (r *Room) HasOlder() bool {
	return r.Log.HasOlder()
}

func (r *Room) handlePush(payload []byte) {
	var msg models.ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		// One malformed push must not take the subscription down.
		slog.Error("dropping malformed chat push", "room", r.roomID, "error", err)
		return
	}
	if msg.Body == "" {
		slog.Error("dropping empty chat push", "room", r.roomID)
		return
	}

	r.Log.MergeLive(msg)
	r.cache([]models.ChatMessage{msg})
	r.notify()
}

func (r *Room) refresh(ctx context.Context) {
	page, err := r.Log.fetch.ChatHistory(ctx, r.roomID, 0)
	if err != nil {
		slog.Error("post-reconnect refresh failed", "room", r.roomID, "error", err)
		return
	}
	normalize(&page)
	for _, msg := range page.Items {
		r.Log.MergeLive(msg)
	}
	r.cache(page.Items)
	r.notify()
}

func (r *Room) cache(msgs []models.ChatMessage) {
	if r.store == nil || len(msgs) == 0 {
		return
	}
	if err := r.store.AppendMessages(r.roomID, msgs); err != nil {
		slog.Error("failed to cache messages", "room", r.roomID, "error", err)
	}
}

func (r *Room) notify() {
	if r.onUpdate != nil {
		r.onUpdate()
	}
}
