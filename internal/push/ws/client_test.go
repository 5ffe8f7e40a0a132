package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mekforge/forcesync/internal/force"
)

// frameServer upgrades one connection and forwards every decoded frame.
// Malformed frames are dropped, which shows up as a count shortfall.
func frameServer(frames chan<- frame) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg frame
			if err := json.Unmarshal(raw, &msg); err != nil {
				return
			}
			frames <- msg
		}
	}
}

func startClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client := NewClient("ws" + strings.TrimPrefix(serverURL, "http"))

	connected := make(chan struct{})
	var once sync.Once
	client.OnConnectivityChange(func(up bool) {
		if up {
			once.Do(func() { close(connected) })
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go client.Run(ctx)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}
	return client
}

func TestConcurrentSubscribesArriveIntact(t *testing.T) {
	const subscribers = 40
	frames := make(chan frame, subscribers)
	srv := httptest.NewServer(frameServer(frames))
	defer srv.Close()

	client := startClient(t, srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < subscribers; i++ {
		wg.Add(1)
		instanceID := fmt.Sprintf("force-%02d", i)
		go func() {
			defer wg.Done()
			client.Subscribe(instanceID, func(force.Snapshot) {})
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < subscribers {
		select {
		case msg := <-frames:
			if msg.Action != "subscribe" {
				t.Fatalf("unexpected action %q", msg.Action)
			}
			seen[msg.InstanceID] = true
		case <-deadline:
			t.Fatalf("received %d intact subscribe frames, want %d", len(seen), subscribers)
		}
	}
}

func TestUnsubscribeSendsFrame(t *testing.T) {
	frames := make(chan frame, 4)
	srv := httptest.NewServer(frameServer(frames))
	defer srv.Close()

	client := startClient(t, srv.URL)

	client.Subscribe("abc", func(force.Snapshot) {})
	client.Unsubscribe("abc")

	for _, want := range []string{"subscribe", "unsubscribe"} {
		select {
		case msg := <-frames:
			if msg.Action != want || msg.InstanceID != "abc" {
				t.Fatalf("got %s/%s, want %s/abc", msg.Action, msg.InstanceID, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s frame received", want)
		}
	}
}
