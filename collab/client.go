// Package collab mirrors a project store to peers through a relay using
// whole-document snapshots, last snapshot wins.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/wire"
)

// ErrTransport wraps connect and send failures.
var ErrTransport = errors.New("collab: transport failure")

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// DragGuard tells the client whether the local user is dragging an entity.
// It is consulted when a snapshot is applied, never cached.
type DragGuard interface {
	MovingEntity() bool
}

type noDrag struct{}

func (noDrag) MovingEntity() bool { return false }

type eventKind int

const (
	eventMessage eventKind = iota
	eventClose
)

type event struct {
	gen  int
	kind eventKind
	data []byte
	err  error
}

// Client keeps one store in sync with a relay session. Everything except the
// transport callbacks runs on the owner's goroutine; callbacks only queue
// events, which Pump applies in arrival order.
type Client struct {
	store     *project.Store
	dialer    Dialer
	guard     DragGuard
	logger    *log.Logger
	url       string
	sessionID string
	clientID  string

	mu    sync.Mutex
	queue []event

	status         Status
	ch             Channel
	gen            int
	applyingRemote bool
	participants   []string
	lastErr        error
	unsubscribe    func()
}

type Option func(*Client)

func WithDragGuard(g DragGuard) Option {
	return func(c *Client) { c.guard = g }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient attaches a client to store. The client id is the store's actor.
func NewClient(store *project.Store, dialer Dialer, url, sessionID string, opts ...Option) *Client {
	c := &Client{
		store:     store,
		dialer:    dialer,
		guard:     noDrag{},
		logger:    log.Default(),
		url:       url,
		sessionID: sessionID,
		clientID:  store.Actor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = store.Subscribe(c.onChange)
	return c
}

func (c *Client) Status() Status { return c.status }

func (c *Client) SessionID() string { return c.sessionID }

// Participants returns the client ids the relay last reported for the session.
func (c *Client) Participants() []string {
	return append([]string(nil), c.participants...)
}

// LastError returns the transport error that last forced a disconnect.
func (c *Client) LastError() error { return c.lastErr }

// Connect dials the relay, then announces the session and pushes the current
// project. It is a no-op unless disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if c.status != StatusDisconnected {
		return nil
	}
	c.status = StatusConnecting
	c.gen++
	gen := c.gen
	ch, err := c.dialer.Dial(ctx, c.url, Events{
		OnMessage: func(data []byte) { c.enqueue(event{gen: gen, kind: eventMessage, data: data}) },
		OnClose:   func(err error) { c.enqueue(event{gen: gen, kind: eventClose, err: err}) },
	})
	if err != nil {
		c.status = StatusDisconnected
		c.lastErr = err
		return fmt.Errorf("%w: dial %s: %v", ErrTransport, c.url, err)
	}
	c.ch = ch
	c.status = StatusConnected
	c.lastErr = nil
	c.logger.Printf("collab: connected to %s session=%s client=%s", c.url, c.sessionID, c.clientID)

	if err := c.send(wire.Join(c.sessionID, c.clientID)); err != nil {
		return err
	}
	raw, err := c.encodeProject()
	if err != nil {
		return err
	}
	return c.send(wire.Snapshot(c.sessionID, c.clientID, raw))
}

// Disconnect closes the channel and forgets it without waiting for the close
// event. Safe in any state.
func (c *Client) Disconnect() {
	c.drop()
	c.lastErr = nil
}

// Close disconnects and detaches from the store.
func (c *Client) Close() {
	c.Disconnect()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Client) drop() {
	ch := c.ch
	c.ch = nil
	c.status = StatusDisconnected
	c.participants = nil
	c.applyingRemote = false
	c.gen++
	if ch != nil {
		if err := ch.Close(); err != nil {
			c.logger.Printf("collab: close: %v", err)
		}
	}
}

func (c *Client) fail(err error) {
	c.logger.Printf("collab: disconnected: %v", err)
	c.drop()
	c.lastErr = err
}

// RequestSnapshot asks the relay for the session's stored project.
func (c *Client) RequestSnapshot() error {
	return c.send(wire.RequestSnapshot(c.sessionID, c.clientID))
}

func (c *Client) Ping() error {
	return c.send(wire.Ping(c.sessionID, c.clientID))
}

func (c *Client) send(m wire.Message) error {
	if c.ch == nil || c.status != StatusConnected {
		return fmt.Errorf("%w: not connected", ErrTransport)
	}
	data, err := wire.Encode(m)
	if err != nil {
		return err
	}
	if err := c.ch.Send(data); err != nil {
		c.fail(err)
		return fmt.Errorf("%w: send %s: %v", ErrTransport, m.Type, err)
	}
	return nil
}

func (c *Client) encodeProject() (json.RawMessage, error) {
	raw, err := json.Marshal(c.store.Project())
	if err != nil {
		return nil, fmt.Errorf("collab: encode project: %w", err)
	}
	return raw, nil
}

func (c *Client) onChange(project.Change) {
	if c.applyingRemote {
		c.applyingRemote = false
		return
	}
	if c.status != StatusConnected {
		return
	}
	raw, err := c.encodeProject()
	if err != nil {
		c.logger.Print(err)
		return
	}
	if err := c.send(wire.Update(c.sessionID, c.clientID, raw)); err != nil {
		c.logger.Print(err)
	}
}

func (c *Client) enqueue(ev event) {
	c.mu.Lock()
	c.queue = append(c.queue, ev)
	c.mu.Unlock()
}

// Pump applies queued transport events in arrival order and returns how many
// it processed. Events from a channel that has since been replaced or closed
// locally are discarded.
func (c *Client) Pump() int {
	c.mu.Lock()
	events := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, ev := range events {
		if ev.gen != c.gen || c.ch == nil {
			continue
		}
		switch ev.kind {
		case eventMessage:
			c.handle(ev.data)
		case eventClose:
			err := ev.err
			if err == nil {
				err = errors.New("closed by relay")
			}
			c.fail(err)
		}
	}
	return len(events)
}

func (c *Client) handle(data []byte) {
	m, err := wire.Parse(data)
	if err != nil {
		c.logger.Printf("collab: dropping message: %v", err)
		return
	}
	if m.SessionID != "" && m.SessionID != c.sessionID {
		return
	}
	switch m.Type {
	case wire.TypeProjectSnapshot:
		if m.SessionID == "" {
			return
		}
		c.applySnapshot(m)
	case wire.TypeParticipants:
		c.participants = append([]string(nil), m.Clients...)
	case wire.TypeNoSnapshot:
		c.logger.Printf("collab: relay has no snapshot for session %s", c.sessionID)
	case wire.TypeError:
		c.logger.Printf("collab: relay error: %s", m.Message)
	}
}

func (c *Client) applySnapshot(m wire.Message) {
	if c.guard.MovingEntity() {
		c.logger.Printf("collab: snapshot from %q dropped during entity drag", m.ClientID)
		return
	}
	p, err := project.Decode(m.Project)
	if err != nil {
		c.logger.Printf("collab: dropping snapshot: %v", err)
		return
	}
	c.applyingRemote = true
	c.store.ApplyRemote(c.store.Normalize(p))
}
