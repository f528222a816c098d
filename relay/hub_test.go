package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/milk9111/stagecraft/storage"
	"github.com/milk9111/stagecraft/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []wire.Message
	fail bool
}

func (r *recorder) write(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	m, err := wire.Parse(data)
	if err != nil {
		return err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recorder) take() []wire.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.msgs
	r.msgs = nil
	return out
}

func quietHub(store storage.Store, opts ...Option) *Hub {
	return NewHub(store, append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)...)
}

func newPeer(h *Hub, name string) (*Peer, *recorder) {
	rec := &recorder{}
	return h.Attach(NewPeer(name, rec.write)), rec
}

func send(t *testing.T, h *Hub, p *Peer, m wire.Message) {
	t.Helper()
	b, err := wire.Encode(m)
	require.NoError(t, err)
	h.Handle(context.Background(), p, b)
}

func doc(name string, ts int64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"name":%q,"prefabs":[],"entities":[],"lastUpdatedAt":%d}`, name, ts))
}

func TestSessionRequired(t *testing.T) {
	h := quietHub(storage.NewMemoryStore())
	p, rec := newPeer(h, "a")
	send(t, h, p, wire.Message{Type: wire.TypeJoin, ClientID: "alice"})

	msgs := rec.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, wire.TypeError, msgs[0].Type)
	assert.Equal(t, "sessionId required", msgs[0].Message)
	assert.Zero(t, h.Sessions())
}

func TestJoinBroadcastsParticipants(t *testing.T) {
	h := quietHub(storage.NewMemoryStore())
	alice, ra := newPeer(h, "a")
	bob, rb := newPeer(h, "b")

	send(t, h, alice, wire.Join("s1", "alice"))
	msgs := ra.take()
	require.Len(t, msgs, 1, "no snapshot is sent for an empty session")
	assert.Equal(t, wire.TypeParticipants, msgs[0].Type)
	assert.Equal(t, []string{"alice"}, msgs[0].Clients)

	send(t, h, bob, wire.Join("s1", "bob"))
	for _, rec := range []*recorder{ra, rb} {
		msgs := rec.take()
		require.Len(t, msgs, 1)
		assert.Equal(t, []string{"alice", "bob"}, msgs[0].Clients)
	}
	assert.Equal(t, 1, h.Sessions())
}

func TestUpdateIsStoredAndForwarded(t *testing.T) {
	store := storage.NewMemoryStore()
	h := quietHub(store)
	alice, ra := newPeer(h, "a")
	bob, rb := newPeer(h, "b")
	send(t, h, alice, wire.Join("s1", "alice"))
	send(t, h, bob, wire.Join("s1", "bob"))
	ra.take()
	rb.take()

	send(t, h, alice, wire.Update("s1", "alice", doc("v1", 200)))
	assert.Empty(t, ra.take(), "the sender does not get its own update back")
	msgs := rb.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, wire.TypeProjectSnapshot, msgs[0].Type)
	assert.Equal(t, "s1", msgs[0].SessionID)
	assert.JSONEq(t, string(doc("v1", 200)), string(msgs[0].Project))

	saved, err := store.Load(context.Background(), SessionKey("s1"))
	require.NoError(t, err)
	assert.JSONEq(t, string(doc("v1", 200)), string(saved))

	send(t, h, bob, wire.Snapshot("s1", "bob", doc("stale", 100)))
	assert.Empty(t, ra.take(), "older snapshots are ignored")

	send(t, h, bob, wire.Snapshot("s1", "bob", doc("unstamped", 0)))
	assert.Len(t, ra.take(), 1, "an unstamped snapshot is accepted")

	send(t, h, bob, wire.Update("s1", "bob", json.RawMessage(`{}`)))
	send(t, h, bob, wire.Message{Type: wire.TypeUpdateProject, SessionID: "s1"})
	assert.Empty(t, ra.take(), "updates without a project are ignored")
}

func TestRequestSnapshotAndPing(t *testing.T) {
	h := quietHub(storage.NewMemoryStore())
	p, rec := newPeer(h, "a")

	send(t, h, p, wire.RequestSnapshot("s1", "alice"))
	msgs := rec.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, wire.TypeNoSnapshot, msgs[0].Type)

	send(t, h, p, wire.Snapshot("s1", "alice", doc("v1", 5)))
	send(t, h, p, wire.RequestSnapshot("", ""))
	msgs = rec.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, wire.TypeProjectSnapshot, msgs[0].Type, "the session id sticks to the connection")

	send(t, h, p, wire.Ping("", ""))
	msgs = rec.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, wire.TypePong, msgs[0].Type)

	h.Handle(context.Background(), p, []byte(`{broken`))
	assert.Empty(t, rec.take())
}

func TestStoredSessionIsLoadedOnJoin(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), SessionKey("room 1"), doc("persisted", 9)))

	h := quietHub(store)
	p, rec := newPeer(h, "a")
	send(t, h, p, wire.Join("room 1", ""))

	msgs := rec.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, wire.TypeProjectSnapshot, msgs[0].Type)
	assert.JSONEq(t, string(doc("persisted", 9)), string(msgs[0].Project))
	assert.Equal(t, []string{"guest"}, msgs[1].Clients)
	assert.True(t, strings.HasPrefix(SessionKey("room 1"), "session-room_1~"))
	assert.NotEqual(t, SessionKey("room_1"), SessionKey("room 1"))
}

func TestLeave(t *testing.T) {
	h := quietHub(nil)
	alice, ra := newPeer(h, "a")
	bob, _ := newPeer(h, "b")
	send(t, h, alice, wire.Join("s1", "alice"))
	send(t, h, bob, wire.Join("s1", "bob"))
	ra.take()

	h.Leave(bob)
	msgs := ra.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"alice"}, msgs[0].Clients)

	h.Leave(bob)
	assert.Empty(t, ra.take(), "leaving twice is harmless")

	h.Leave(alice)
	assert.Zero(t, h.Sessions())
	assert.Nil(t, h.Participants("s1"))

	stranger, _ := newPeer(h, "c")
	h.Leave(stranger)
}

func TestFailedWriteDropsPeer(t *testing.T) {
	h := quietHub(storage.NewMemoryStore())
	alice, _ := newPeer(h, "a")
	bob, rb := newPeer(h, "b")
	send(t, h, alice, wire.Join("s1", "alice"))
	send(t, h, bob, wire.Join("s1", "bob"))

	rb.fail = true
	send(t, h, alice, wire.Update("s1", "alice", doc("v1", 1)))
	assert.Equal(t, []string{"alice"}, h.Participants("s1"))
}

func TestSwitchingSessionsMovesPeer(t *testing.T) {
	h := quietHub(nil)
	p, _ := newPeer(h, "a")
	send(t, h, p, wire.Join("s1", "alice"))
	send(t, h, p, wire.Join("s2", ""))

	assert.Nil(t, h.Participants("s1"))
	assert.Equal(t, []string{"alice"}, h.Participants("s2"))
	assert.Equal(t, "s2", p.SessionID())
}

func TestRateLimit(t *testing.T) {
	h := quietHub(nil, WithRateLimit(1, 2))
	p, rec := newPeer(h, "a")
	for i := 0; i < 5; i++ {
		send(t, h, p, wire.Ping("s1", "alice"))
	}
	assert.Len(t, rec.take(), 2)
}
