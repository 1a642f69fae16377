package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sotto/internal/domain"
)

// sendBuffer bounds how many outbound frames may queue per socket before
// the connection is considered stuck and dropped.
const sendBuffer = 64

// wsClient adapts one websocket to domain.Conn. All writes funnel through
// a single pump goroutine, so frames queued by concurrent fanouts reach
// the socket in queue order.
type wsClient struct {
	ws  *websocket.Conn
	log zerolog.Logger

	mu     sync.Mutex
	queue  chan []byte
	closed bool
}

func newWSClient(ws *websocket.Conn, log zerolog.Logger) *wsClient {
	return &wsClient{
		ws:    ws,
		log:   log,
		queue: make(chan []byte, sendBuffer),
	}
}

// Send marshals the frame and queues it for the write pump. A full queue
// closes the connection rather than blocking a fanout on one slow reader.
func (c *wsClient) Send(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrTransportClosed
	}
	select {
	case c.queue <- data:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		c.log.Warn().Msg("send queue full, dropping connection")
		_ = c.Close()
		return domain.ErrTransportClosed
	}
}

// Close makes further Sends fail and lets the write pump drain and exit.
// Safe to call more than once.
func (c *wsClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()
	return c.ws.Close()
}

// writePump is the only goroutine writing to the socket. It exits when
// Close closes the queue or a write fails.
func (c *wsClient) writePump() {
	for data := range c.queue {
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			c.log.Debug().Err(err).Msg("websocket write failed")
			_ = c.Close()
			for range c.queue {
				// Drain so queued senders are not stranded.
			}
			return
		}
	}
}

var _ domain.Conn = (*wsClient)(nil)
