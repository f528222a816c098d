package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteWait = 5 * time.Second

// WebsocketDialer connects to a relay over gorilla/websocket.
type WebsocketDialer struct {
	Dialer    *websocket.Dialer
	WriteWait time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url string, ev Events) (Channel, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("collab: dial %s: %w", url, err)
	}
	wait := d.WriteWait
	if wait <= 0 {
		wait = defaultWriteWait
	}
	ch := &wsChannel{conn: conn, writeWait: wait}
	go ch.readLoop(ev)
	return ch, nil
}

type wsChannel struct {
	conn      *websocket.Conn
	writeWait time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	closed    bool
}

// Send writes one text frame under the channel's write lock and deadline.
func (c *wsChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("collab: channel closed")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *wsChannel) readLoop(ev Events) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ev.OnClose != nil {
				ev.OnClose(err)
			}
			return
		}
		if ev.OnMessage != nil {
			ev.OnMessage(data)
		}
	}
}
