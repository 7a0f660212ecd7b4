package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

func overrideWebsocketURLForTest(t *testing.T, url string) {
	t.Helper()
	original := websocketURL
	websocketURL = url
	t.Cleanup(func() { websocketURL = original })
}

// newTestServer runs a fake SP websocket endpoint that authenticates any
// token, then replays scripted server->client messages.
func newTestServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil { // the "authenticate" op
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"msg":"Successfully authenticated"}`)); err != nil {
			return
		}
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// Keep the connection open briefly so the client has time to
		// observe every message before the server closes it.
		time.Sleep(200 * time.Millisecond)
	}))
	return srv
}

func dialTestServer(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscriberDeliversEventsAfterAuth(t *testing.T) {
	srv := newTestServer(t, []string{`{"msg":"update","target":"members"}`})
	defer srv.Close()

	var mu sync.Mutex
	var connectCount int
	var events []string

	sub := &Subscriber{
		LogPrefix: "test",
		Token:     "tok",
		OnConnect: func(ctx context.Context) error {
			mu.Lock()
			connectCount++
			mu.Unlock()
			return nil
		},
		OnEvent: func(ctx context.Context, raw string) error {
			mu.Lock()
			events = append(events, raw)
			mu.Unlock()
			return nil
		},
	}

	overrideWebsocketURLForTest(t, dialTestServer(t, srv))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	sub.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if connectCount != 1 {
		t.Fatalf("expected exactly one OnConnect call, got %d", connectCount)
	}
	if len(events) != 1 || events[0] != `{"msg":"update","target":"members"}` {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestSubscriberCurrentStateReflectsClosedAfterCancel(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()

	sub := &Subscriber{LogPrefix: "test", Token: "tok"}
	overrideWebsocketURLForTest(t, dialTestServer(t, srv))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	if sub.CurrentState() != Closed {
		t.Fatalf("expected Closed state, got %v", sub.CurrentState())
	}
}
