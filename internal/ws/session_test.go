package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"homefit/internal/models"
)

// fakeServer accepts live connections and records every client frame. It
// keeps the latest connection around so tests can push frames or kill the
// link to force a reconnect.
type fakeServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	srv      *httptest.Server

	mu      sync.Mutex
	conns   []*websocket.Conn
	frames  []models.ClientFrame
	tokens  []string
	accepts chan struct{}
}

func newFakeServer(t *testing.T) *fakeServer {
	fs := &fakeServer{t: t, accepts: make(chan struct{}, 16)}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := fs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	fs.mu.Lock()
	fs.conns = append(fs.conns, conn)
	fs.tokens = append(fs.tokens, r.Header.Get("Authorization"))
	fs.mu.Unlock()
	fs.accepts <- struct{}{}

	go func() {
		for {
			var frame models.ClientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			fs.mu.Lock()
			fs.frames = append(fs.frames, frame)
			fs.mu.Unlock()
		}
	}()
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeServer) waitAccept(t *testing.T) {
	t.Helper()
	select {
	case <-fs.accepts:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
	}
}

func (fs *fakeServer) latest() *websocket.Conn {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.conns[len(fs.conns)-1]
}

func (fs *fakeServer) push(t *testing.T, frame models.ServerFrame) {
	t.Helper()
	if err := fs.latest().WriteJSON(frame); err != nil {
		t.Fatalf("push frame: %v", err)
	}
}

func (fs *fakeServer) framesOfType(ft models.FrameType) []models.ClientFrame {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []models.ClientFrame
	for _, f := range fs.frames {
		if f.Type == ft {
			out = append(out, f)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestDialSendsBearerToken(t *testing.T) {
	fs := newFakeServer(t)

	s, err := Dial(context.Background(), Config{URL: fs.url()}, "tok-123")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	fs.waitAccept(t)

	fs.mu.Lock()
	got := fs.tokens[0]
	fs.mu.Unlock()
	if got != "Bearer tok-123" {
		t.Errorf("authorization header = %q, want %q", got, "Bearer tok-123")
	}
}

func TestSubscribeDeliversPushedPayload(t *testing.T) {
	fs := newFakeServer(t)

	s, err := Dial(context.Background(), Config{URL: fs.url()}, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	fs.waitAccept(t)

	got := make(chan []byte, 1)
	if err := s.Subscribe("/topic/messages/7", func(payload []byte) {
		got <- payload
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	waitFor(t, func() bool { return len(fs.framesOfType(models.FrameTypeSubscribe)) == 1 })

	fs.push(t, models.ServerFrame{
		Type:    models.FrameTypeMessage,
		Topic:   "/topic/messages/7",
		Payload: json.RawMessage(`{"message":"hi"}`),
	})

	select {
	case payload := <-got:
		if string(payload) != `{"message":"hi"}` {
			t.Errorf("payload = %s", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never called")
	}
}

func TestPublishReachesServer(t *testing.T) {
	fs := newFakeServer(t)

	s, err := Dial(context.Background(), Config{URL: fs.url()}, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	fs.waitAccept(t)

	if err := s.Publish("/app/chat/7", map[string]string{"message": "hello"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, func() bool { return len(fs.framesOfType(models.FrameTypePublish)) == 1 })

	frame := fs.framesOfType(models.FrameTypePublish)[0]
	if frame.Topic != "/app/chat/7" {
		t.Errorf("topic = %q", frame.Topic)
	}
	var body map[string]string
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if body["message"] != "hello" {
		t.Errorf("message = %q", body["message"])
	}
}

func TestReconnectResubscribesAndNotifies(t *testing.T) {
	fs := newFakeServer(t)

	s, err := Dial(context.Background(), Config{URL: fs.url(), ReconnectDelay: 20 * time.Millisecond}, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	fs.waitAccept(t)

	if err := s.Subscribe("/topic/messages/7", func([]byte) {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	reconnected := make(chan struct{}, 1)
	s.OnReconnect(func() { reconnected <- struct{}{} })
	dropped := make(chan error, 1)
	s.OnDisconnect(func(err error) { dropped <- err })

	waitFor(t, func() bool { return len(fs.framesOfType(models.FrameTypeSubscribe)) == 1 })

	// Kill the link server side; the session should redial on its own.
	fs.latest().Close()
	fs.waitAccept(t)

	select {
	case err := <-dropped:
		if err == nil {
			t.Error("disconnect callback got nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect callback never fired")
	}

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect callback never fired")
	}

	// One subscribe per connection for the same topic.
	waitFor(t, func() bool { return len(fs.framesOfType(models.FrameTypeSubscribe)) == 2 })
}

func TestPushAfterReconnectStillDelivered(t *testing.T) {
	fs := newFakeServer(t)

	s, err := Dial(context.Background(), Config{URL: fs.url(), ReconnectDelay: 20 * time.Millisecond}, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()
	fs.waitAccept(t)

	got := make(chan []byte, 1)
	if err := s.Subscribe("/topic/messages/7", func(payload []byte) {
		got <- payload
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	waitFor(t, func() bool { return len(fs.framesOfType(models.FrameTypeSubscribe)) == 1 })

	fs.latest().Close()
	fs.waitAccept(t)
	waitFor(t, func() bool { return len(fs.framesOfType(models.FrameTypeSubscribe)) == 2 })

	fs.push(t, models.ServerFrame{
		Type:    models.FrameTypeMessage,
		Topic:   "/topic/messages/7",
		Payload: json.RawMessage(`{"message":"still here"}`),
	})

	select {
	case payload := <-got:
		if string(payload) != `{"message":"still here"}` {
			t.Errorf("payload = %s", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never called after reconnect")
	}
}

func TestCloseStopsReconnecting(t *testing.T) {
	fs := newFakeServer(t)

	s, err := Dial(context.Background(), Config{URL: fs.url(), ReconnectDelay: 20 * time.Millisecond}, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	fs.waitAccept(t)

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	fs.mu.Lock()
	n := len(fs.conns)
	fs.mu.Unlock()
	if n != 1 {
		t.Errorf("connections after close = %d, want 1", n)
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	fs := newFakeServer(t)

	s, err := Dial(context.Background(), Config{URL: fs.url()}, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	fs.waitAccept(t)
	s.Close()

	waitFor(t, func() bool {
		return s.Publish("/app/chat/7", map[string]string{"message": "late"}) != nil
	})
}

func TestContextCancelStopsSession(t *testing.T) {
	fs := newFakeServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := Dial(ctx, Config{URL: fs.url(), ReconnectDelay: 20 * time.Millisecond}, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	fs.waitAccept(t)

	cancel()
	fs.latest().Close()

	time.Sleep(100 * time.Millisecond)

	fs.mu.Lock()
	n := len(fs.conns)
	fs.mu.Unlock()
	if n != 1 {
		t.Errorf("connections after cancel = %d, want 1", n)
	}
	_ = s.Close()
}
