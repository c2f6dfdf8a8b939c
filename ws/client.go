// Package ws pushes analyzer snapshots to a remote dashboard over a
// websocket. Delivery is best effort: a full send buffer or a dead
// connection drops the snapshot rather than blocking the analyzer.
package ws

import (
	"encoding/json"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BorjaTR/sentinel-hft/collector/model"
)

const (
	sendBufferSize = 100
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must be less than pongWait
	reconnectDelay = 5 * time.Second
)

type Client struct {
	serverURL string

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool

	send chan model.Snapshot
	done chan struct{}
}

func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		send:      make(chan model.Snapshot, sendBufferSize),
		done:      make(chan struct{}),
	}
}

// Connect dials the server and starts the read/write pumps. Safe to call
// again after the connection drops.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected = true

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump(conn)
	go c.writePump(conn)

	log.Printf("ws: connected to %s", c.serverURL)
	return nil
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
	c.connected = false
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Push queues a snapshot for delivery without blocking the caller.
func (c *Client) Push(s model.Snapshot) {
	select {
	case c.send <- s:
	default:
		log.Printf("ws: send buffer full, dropping snapshot")
	}
}

// StartReconnectLoop keeps retrying Connect in the background whenever the
// connection is down.
func (c *Client) StartReconnectLoop() {
	go func() {
		for {
			select {
			case <-c.done:
				return
			case <-time.After(reconnectDelay):
			}
			if c.IsConnected() {
				continue
			}
			if err := c.Connect(); err != nil {
				log.Printf("ws: reconnect failed: %v", err)
			}
		}
	}()
}

func (c *Client) markDisconnected(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn.Close()
	if c.conn == conn {
		c.connected = false
	}
}

// readPump drains server messages; the dashboard sends nothing we act on,
// but reads are required to process pong frames.
func (c *Client) readPump(conn *websocket.Conn) {
	defer c.markDisconnected(conn)
	for {
		select {
		case <-c.done:
			return
		default:
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.markDisconnected(conn)
	}()

	for {
		select {
		case <-c.done:
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case s := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(s)
			if err != nil {
				log.Printf("ws: marshal snapshot: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws: write error: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
