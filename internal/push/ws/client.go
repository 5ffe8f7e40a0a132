// Package ws implements the push channel over a websocket connection to
// the remote force store's notification endpoint.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mekforge/forcesync/internal/force"
	"github.com/mekforge/forcesync/internal/push"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// frame is the wire format exchanged with the push endpoint. Outbound
// frames carry an action; inbound frames carry a snapshot.
type frame struct {
	Action     string          `json:"action,omitempty"`
	InstanceID string          `json:"instance_id"`
	Snapshot   *force.Snapshot `json:"snapshot,omitempty"`
}

// Client maintains a websocket connection to the push endpoint,
// re-subscribing after every reconnect and reporting connectivity edges.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu           sync.Mutex
	conn         *websocket.Conn
	subs         map[string]push.Handler
	connectivity []func(bool)
	connected    bool

	// writeMu serializes WriteMessage calls: the connection supports at
	// most one concurrent writer, and Subscribe/Unsubscribe race the Run
	// goroutine's post-reconnect resubscription.
	writeMu sync.Mutex
}

// NewClient creates a push client for the given websocket URL. Run must
// be called to establish the connection.
func NewClient(url string) *Client {
	return &Client{
		url:    url,
		dialer: websocket.DefaultDialer,
		subs:   make(map[string]push.Handler),
	}
}

// Subscribe implements push.Channel. The subscription survives reconnects.
func (c *Client) Subscribe(instanceID string, handler push.Handler) {
	if instanceID == "" || handler == nil {
		return
	}
	c.mu.Lock()
	c.subs[instanceID] = handler
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.send(conn, frame{Action: "subscribe", InstanceID: instanceID})
	}
}

// Unsubscribe implements push.Channel.
func (c *Client) Unsubscribe(instanceID string) {
	c.mu.Lock()
	delete(c.subs, instanceID)
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.send(conn, frame{Action: "unsubscribe", InstanceID: instanceID})
	}
}

// OnConnectivityChange implements push.Channel.
func (c *Client) OnConnectivityChange(fn func(connected bool)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.connectivity = append(c.connectivity, fn)
	c.mu.Unlock()
}

// Connected implements push.Channel.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Run dials the push endpoint and processes frames until ctx is done,
// reconnecting with exponential backoff after every failure.
func (c *Client) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.Printf("push dial %s: %v", c.url, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = initialBackoff

		c.setConnected(conn, true)
		c.resubscribe(conn)
		c.readLoop(ctx, conn)
		c.setConnected(nil, false)
		_ = conn.Close()
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("push read: %v", err)
			}
			return
		}
		var msg frame
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("push decode frame: %v", err)
			continue
		}
		if msg.Snapshot == nil || msg.InstanceID == "" {
			continue
		}
		c.mu.Lock()
		handler := c.subs[msg.InstanceID]
		c.mu.Unlock()
		if handler != nil {
			handler(*msg.Snapshot)
		}
	}
}

func (c *Client) resubscribe(conn *websocket.Conn) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.subs))
	for instanceID := range c.subs {
		ids = append(ids, instanceID)
	}
	c.mu.Unlock()
	for _, instanceID := range ids {
		c.send(conn, frame{Action: "subscribe", InstanceID: instanceID})
	}
}

func (c *Client) send(conn *websocket.Conn, msg frame) {
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("push encode frame: %v", err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		log.Printf("push write: %v", err)
	}
}

func (c *Client) setConnected(conn *websocket.Conn, connected bool) {
	c.mu.Lock()
	c.conn = conn
	changed := c.connected != connected
	c.connected = connected
	callbacks := append([]func(bool){}, c.connectivity...)
	c.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range callbacks {
		fn(connected)
	}
}
