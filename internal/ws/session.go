// Package ws owns the persistent pub/sub connection to the backend. The
// session redials with a fixed delay after any drop; owners observe
// reconnects and reconcile against a page refetch, because the stream
// offers no continuity guarantee across a gap.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"homefit/internal/models"
)

const DefaultReconnectDelay = 5 * time.Second

var ErrClosed = errors.New("session closed")

type Config struct {
	URL            string
	ReconnectDelay time.Duration
}

type Session struct {
	cfg   Config
	token string

	mu         sync.Mutex
	conn       *websocket.Conn
	subs       map[string]func(payload []byte)
	reconnect  []func()
	disconnect []func(err error)

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects and starts the read/redial loop. The loop stops when ctx
// is cancelled or Close is called; the connection is never left open past
// its owner.
func Dial(ctx context.Context, cfg Config, token string) (*Session, error) {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}

	s := &Session{
		cfg:    cfg,
		token:  token,
		subs:   make(map[string]func(payload []byte)),
		closed: make(chan struct{}),
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn

	go s.run(ctx)
	return s, nil
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	return conn, nil
}

// Subscribe registers a topic handler and announces the subscription.
// Handlers run on the session's read goroutine, one frame at a time, so a
// handler sees every mutation as a complete unit.
func (s *Session) Subscribe(topic string, handler func(payload []byte)) error {
	s.mu.Lock()
	s.subs[topic] = handler
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		// Announced on the next reconnect instead.
		return nil
	}
	return s.writeFrame(models.ClientFrame{Type: models.FrameTypeSubscribe, Topic: topic})
}

// Publish sends a payload to a topic.
func (s *Session) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal publish payload: %w", err)
	}
	return s.writeFrame(models.ClientFrame{
		Type:    models.FrameTypePublish,
		Topic:   topic,
		Payload: data,
	})
}

// OnReconnect registers a callback fired after every successful redial,
// once subscriptions are re-announced.
func (s *Session) OnReconnect(fn func()) {
	s.mu.Lock()
	s.reconnect = append(s.reconnect, fn)
	s.mu.Unlock()
}

// OnDisconnect registers a callback fired with the read error whenever
// the connection drops, before the redial wait begins.
func (s *Session) OnDisconnect(fn func(err error)) {
	s.mu.Lock()
	s.disconnect = append(s.disconnect, fn)
	s.mu.Unlock()
}

// Close tears the session down. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
	return nil
}

func (s *Session) writeFrame(frame models.ClientFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}
	return s.conn.WriteJSON(frame)
}

func (s *Session) run(ctx context.Context) {
	defer func() { _ = s.Close() }()

	for {
		err := s.readLoop()
		if s.isClosed() || ctx.Err() != nil {
			return
		}
		slog.Warn("live connection lost, reconnecting", "error", err, "delay", s.cfg.ReconnectDelay)

		s.mu.Lock()
		s.conn = nil
		dfns := append([]func(error){}, s.disconnect...)
		s.mu.Unlock()
		for _, fn := range dfns {
			fn(err)
		}

		select {
		case <-time.After(s.cfg.ReconnectDelay):
		case <-s.closed:
			return
		case <-ctx.Done():
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			slog.Warn("redial failed", "error", err)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		topics := make([]string, 0, len(s.subs))
		for topic := range s.subs {
			topics = append(topics, topic)
		}
		fns := append([]func(){}, s.reconnect...)
		s.mu.Unlock()

		for _, topic := range topics {
			if err := s.writeFrame(models.ClientFrame{Type: models.FrameTypeSubscribe, Topic: topic}); err != nil {
				slog.Warn("resubscribe failed", "topic", topic, "error", err)
			}
		}
		for _, fn := range fns {
			fn()
		}
	}
}

func (s *Session) readLoop() error {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return ErrClosed
		}

		var frame models.ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		s.dispatch(frame)
	}
}

func (s *Session) dispatch(frame models.ServerFrame) {
	switch frame.Type {
	case models.FrameTypeMessage:
		s.mu.Lock()
		handler := s.subs[frame.Topic]
		s.mu.Unlock()
		if handler == nil {
			slog.Debug("frame for unsubscribed topic", "topic", frame.Topic)
			return
		}
		handler(frame.Payload)
	case models.FrameTypeError:
		slog.Error("server error frame", "topic", frame.Topic, "error", frame.Error)
	default:
		// Unknown frame types are dropped; one odd frame must not take
		// the session down.
		slog.Debug("dropping unknown frame", "type", string(frame.Type))
	}
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
