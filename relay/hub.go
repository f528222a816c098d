// Package relay fans project snapshots out to every editor in a session and
// remembers the latest one so late joiners can catch up.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/milk9111/stagecraft/storage"
	"github.com/milk9111/stagecraft/wire"
	"golang.org/x/time/rate"
)

const defaultClientID = "guest"

// Peer is one connected editor. write must be safe for concurrent use.
type Peer struct {
	remote  string
	write   func([]byte) error
	limiter *rate.Limiter

	// Only touched by the peer's own read loop.
	sessionID string
	clientID  string
}

// NewPeer wraps a write function; remote is used in log lines.
func NewPeer(remote string, write func([]byte) error) *Peer {
	return &Peer{remote: remote, write: write}
}

func (p *Peer) SessionID() string { return p.sessionID }

type session struct {
	peers   []*Peer
	clients map[*Peer]string
	last    json.RawMessage
	loaded  bool
}

func (s *session) add(p *Peer, clientID string) {
	if _, ok := s.clients[p]; !ok {
		s.peers = append(s.peers, p)
	}
	s.clients[p] = clientID
}

func (s *session) remove(p *Peer) bool {
	if _, ok := s.clients[p]; !ok {
		return false
	}
	delete(s.clients, p)
	for i, q := range s.peers {
		if q == p {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			break
		}
	}
	return true
}

func (s *session) participants() []string {
	out := make([]string, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, s.clients[p])
	}
	return out
}

// Hub routes messages between peers of the same session.
type Hub struct {
	store  storage.Store
	logger *log.Logger
	limit  rate.Limit
	burst  int

	mu       sync.Mutex
	sessions map[string]*session
}

type Option func(*Hub)

func WithLogger(l *log.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithRateLimit caps inbound messages per peer. A non-positive rate disables
// limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *Hub) {
		h.limit = rate.Limit(perSecond)
		h.burst = burst
	}
}

// NewHub creates a hub persisting snapshots to store.
func NewHub(store storage.Store, opts ...Option) *Hub {
	h := &Hub{
		store:    store,
		logger:   log.Default(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SessionKey is the storage key of a session's last snapshot.
func SessionKey(sessionID string) string {
	return "session-" + storage.SafeKey(sessionID, "session")
}

// Attach prepares a peer for Handle, installing its rate limiter.
func (h *Hub) Attach(p *Peer) *Peer {
	if h.limit > 0 {
		burst := h.burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(h.limit, burst)
	}
	return p
}

// Sessions returns the number of sessions with at least one peer.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Participants returns the client ids in a session in join order.
func (h *Hub) Participants(sessionID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[sessionID]; ok {
		return s.participants()
	}
	return nil
}

func (h *Hub) send(p *Peer, m wire.Message) bool {
	data, err := wire.Encode(m)
	if err != nil {
		h.logger.Printf("relay: %v", err)
		return false
	}
	if err := p.write(data); err != nil {
		h.logger.Printf("relay: failed to send %s to %s: %v", m.Type, p.remote, err)
		return false
	}
	return true
}

// broadcast sends m to every peer in the session except skip. Peers that
// cannot be written to are removed.
func (h *Hub) broadcast(sessionID string, m wire.Message, skip *Peer) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	var peers []*Peer
	if ok {
		peers = append(peers, s.peers...)
	}
	h.mu.Unlock()

	for _, p := range peers {
		if p == skip {
			continue
		}
		if !h.send(p, m) {
			h.mu.Lock()
			s.remove(p)
			h.mu.Unlock()
		}
	}
}

// join adds p to its session, moving it out of a previous one, and loads the
// stored snapshot the first time the session is used.
func (h *Hub) join(ctx context.Context, p *Peer, prev string) {
	h.mu.Lock()
	if prev != "" && prev != p.sessionID {
		if old, ok := h.sessions[prev]; ok {
			old.remove(p)
			if len(old.peers) == 0 {
				delete(h.sessions, prev)
			}
		}
	}
	s, ok := h.sessions[p.sessionID]
	if !ok {
		s = &session{clients: make(map[*Peer]string)}
		h.sessions[p.sessionID] = s
	}
	s.add(p, p.clientID)
	needLoad := !s.loaded
	s.loaded = true
	h.mu.Unlock()

	if !needLoad || h.store == nil {
		return
	}
	data, err := h.store.Load(ctx, SessionKey(p.sessionID))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Printf("relay: failed to load session %s: %v", p.sessionID, err)
		}
		return
	}
	if _, ok := wire.ProjectStamp(data); !ok {
		h.logger.Printf("relay: ignoring stored session %s: not a project", p.sessionID)
		return
	}
	h.mu.Lock()
	if s.last == nil {
		s.last = data
	}
	h.mu.Unlock()
}

func (h *Hub) snapshot(sessionID string) json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[sessionID]; ok {
		return s.last
	}
	return nil
}

// Handle processes one inbound text message from p.
func (h *Hub) Handle(ctx context.Context, p *Peer, data []byte) {
	m, err := wire.Parse(data)
	if err != nil {
		h.logger.Printf("relay: invalid JSON from %s", p.remote)
		return
	}
	if p.limiter != nil && !p.limiter.Allow() {
		h.logger.Printf("relay: rate limit exceeded for %s, dropping %s", p.remote, m.Type)
		return
	}

	prev := p.sessionID
	if m.SessionID != "" {
		p.sessionID = m.SessionID
	}
	switch {
	case m.ClientID != "":
		p.clientID = m.ClientID
	case p.clientID == "":
		p.clientID = defaultClientID
	}
	if p.sessionID == "" {
		h.send(p, wire.Error("sessionId required"))
		return
	}
	sid := p.sessionID
	h.join(ctx, p, prev)

	switch m.Type {
	case wire.TypeJoin:
		h.logger.Printf("relay: client %s joined session %s", p.clientID, sid)
		if last := h.snapshot(sid); last != nil {
			h.send(p, wire.Snapshot(sid, "", last))
		}
		h.broadcast(sid, wire.Participants(sid, h.Participants(sid)), nil)

	case wire.TypeRequestSnapshot:
		if last := h.snapshot(sid); last != nil {
			h.send(p, wire.Snapshot(sid, "", last))
		} else {
			h.send(p, wire.Message{Type: wire.TypeNoSnapshot, SessionID: sid})
		}

	case wire.TypeUpdateProject, wire.TypeProjectSnapshot:
		incoming, ok := wire.ProjectStamp(m.Project)
		if !ok {
			return
		}
		h.mu.Lock()
		s, ok := h.sessions[sid]
		if !ok {
			h.mu.Unlock()
			return
		}
		current, _ := wire.ProjectStamp(s.last)
		if current != 0 && incoming != 0 && incoming < current {
			h.mu.Unlock()
			h.logger.Printf("relay: ignoring stale snapshot from %s in session %s (%d < %d)", p.clientID, sid, incoming, current)
			return
		}
		s.last = m.Project
		h.mu.Unlock()

		if h.store != nil {
			if err := h.store.Save(ctx, SessionKey(sid), m.Project); err != nil {
				h.logger.Printf("relay: failed to save session %s: %v", sid, err)
			}
		}
		h.broadcast(sid, wire.Snapshot(sid, p.clientID, m.Project), p)

	case wire.TypePing:
		h.send(p, wire.Message{Type: wire.TypePong})
	}
}

// Leave removes p from its session, tells the remaining peers, and forgets
// the session once it is empty.
func (h *Hub) Leave(p *Peer) {
	sid := p.sessionID
	if sid == "" {
		return
	}
	h.mu.Lock()
	s, ok := h.sessions[sid]
	if !ok || !s.remove(p) {
		h.mu.Unlock()
		return
	}
	remaining := len(s.peers)
	if remaining == 0 {
		delete(h.sessions, sid)
	}
	clients := s.participants()
	h.mu.Unlock()

	h.logger.Printf("relay: client %s (%s) left session %s", p.clientID, p.remote, sid)
	if remaining > 0 {
		h.broadcast(sid, wire.Participants(sid, clients), nil)
	}
}
