package collab

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/milk9111/stagecraft/gesture"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	ev      Events
	sent    []wire.Message
	closed  int
	sendErr error
}

func (f *fakeChannel) Send(data []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	m, err := wire.Parse(data)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func (f *fakeChannel) deliver(t *testing.T, m wire.Message) {
	t.Helper()
	b, err := wire.Encode(m)
	require.NoError(t, err)
	f.ev.OnMessage(b)
}

func (f *fakeChannel) types() []string {
	var out []string
	for _, m := range f.sent {
		out = append(out, m.Type)
	}
	return out
}

type fakeDialer struct {
	chans []*fakeChannel
	err   error
	urls  []string
}

func (d *fakeDialer) Dial(_ context.Context, url string, ev Events) (Channel, error) {
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	ch := &fakeChannel{ev: ev}
	d.chans = append(d.chans, ch)
	return ch, nil
}

func (d *fakeDialer) last() *fakeChannel { return d.chans[len(d.chans)-1] }

type fixture struct {
	store  *project.Store
	dialer *fakeDialer
	drag   *gesture.DragCell
	client *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := project.NewProject("Local", 1024, 768, []project.Prefab{
		{ID: "crate", Name: "Crate", Color: "#c08040", DefaultWidth: 96, DefaultHeight: 96},
	})
	store := project.NewStore("alice", p)
	f := &fixture{store: store, dialer: &fakeDialer{}, drag: &gesture.DragCell{}}
	f.client = NewClient(store, f.dialer, "ws://relay/ws", "s1",
		WithDragGuard(f.drag), WithLogger(log.New(io.Discard, "", 0)))
	t.Cleanup(f.client.Close)
	return f
}

func (f *fixture) connect(t *testing.T) *fakeChannel {
	t.Helper()
	require.NoError(t, f.client.Connect(context.Background()))
	require.Equal(t, StatusConnected, f.client.Status())
	return f.dialer.last()
}

func remoteProject(t *testing.T, name string, ids ...string) (project.Project, json.RawMessage) {
	t.Helper()
	p := project.NewProject(name, 2000, 1000, []project.Prefab{
		{ID: "tree", Name: "Tree", Color: "#40a040", DefaultWidth: 64, DefaultHeight: 128},
	})
	for i, id := range ids {
		p.Entities = append(p.Entities, project.Entity{ID: id, PrefabID: "tree", X: float64(i * 10), Scale: 1, Width: 64, Height: 128})
	}
	p.LastUpdatedAt = 1_700_000_000_000
	p.LastUpdatedBy = "bob"
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return p, raw
}

func TestConnectJoinsAndPushesSnapshot(t *testing.T) {
	f := newFixture(t)
	ch := f.connect(t)

	assert.Equal(t, []string{"ws://relay/ws"}, f.dialer.urls)
	require.Equal(t, []string{wire.TypeJoin, wire.TypeProjectSnapshot}, ch.types())
	assert.Equal(t, "s1", ch.sent[0].SessionID)
	assert.Equal(t, "alice", ch.sent[0].ClientID)

	got, err := project.Decode(ch.sent[1].Project)
	require.NoError(t, err)
	assert.Equal(t, f.store.Project(), got)

	require.NoError(t, f.client.Connect(context.Background()), "connecting twice is a no-op")
	assert.Len(t, f.dialer.chans, 1)
}

func TestLocalChangesBroadcastUpdates(t *testing.T) {
	f := newFixture(t)
	f.store.Rename("offline edit")

	ch := f.connect(t)
	_, err := f.store.PlaceEntity("crate", 10, 10, project.DefaultPlacement())
	require.NoError(t, err)

	require.Equal(t, []string{wire.TypeJoin, wire.TypeProjectSnapshot, wire.TypeUpdateProject}, ch.types())
	sent, err := project.Decode(ch.sent[2].Project)
	require.NoError(t, err)
	assert.Len(t, sent.Entities, 1)
	assert.Equal(t, "alice", sent.LastUpdatedBy)
}

func TestRemoteSnapshotWhileIdleReplacesProject(t *testing.T) {
	f := newFixture(t)
	ch := f.connect(t)
	_, err := f.store.PlaceEntity("crate", 10, 10, project.DefaultPlacement())
	require.NoError(t, err)
	sentBefore := len(ch.sent)

	want, raw := remoteProject(t, "Remote", "r1", "r2")
	ch.deliver(t, wire.Snapshot("s1", "bob", raw))
	assert.Equal(t, "Local", f.store.Project().Name, "nothing applies until pumped")

	assert.Equal(t, 1, f.client.Pump())
	assert.Equal(t, want, f.store.Project(), "the remote document replaces the local one, stamp included")
	assert.Len(t, ch.sent, sentBefore, "applying a remote snapshot is not echoed")

	f.store.Rename("after")
	require.Len(t, ch.sent, sentBefore+1, "the suppression lasts for one change only")
	assert.Equal(t, wire.TypeUpdateProject, ch.sent[sentBefore].Type)
}

func TestRemoteSnapshotDuringEntityDragIsDropped(t *testing.T) {
	f := newFixture(t)
	ch := f.connect(t)
	before := f.store.Project()

	f.drag.Store(gesture.DragMoveEntity)
	_, raw := remoteProject(t, "Remote", "r1")
	ch.deliver(t, wire.Snapshot("s1", "bob", raw))
	f.client.Pump()
	assert.Equal(t, before, f.store.Project())

	f.drag.Store(gesture.DragPan)
	ch.deliver(t, wire.Snapshot("s1", "bob", raw))
	f.client.Pump()
	assert.Equal(t, "Remote", f.store.Project().Name, "only entity drags block remote snapshots")
}

func TestRemoteSnapshotIsNormalized(t *testing.T) {
	f := newFixture(t)
	ch := f.connect(t)

	ch.deliver(t, wire.Snapshot("s1", "bob", json.RawMessage(`{"name":"bare","prefabs":[],"entities":[]}`)))
	f.client.Pump()
	p := f.store.Project()
	assert.Equal(t, "bare", p.Name)
	assert.NotZero(t, p.LastUpdatedAt)
	assert.Equal(t, "alice", p.LastUpdatedBy)
}

func TestIgnoredInboundMessages(t *testing.T) {
	f := newFixture(t)
	ch := f.connect(t)
	before := f.store.Project()
	_, raw := remoteProject(t, "Remote", "r1")

	ch.ev.OnMessage([]byte(`{not json`))
	ch.deliver(t, wire.Snapshot("other-session", "bob", raw))
	ch.deliver(t, wire.Snapshot("", "bob", raw))
	ch.deliver(t, wire.Update("s1", "bob", raw))
	ch.deliver(t, wire.Snapshot("s1", "bob", json.RawMessage(`{"name":"no arrays"}`)))
	ch.deliver(t, wire.Message{Type: wire.TypeNoSnapshot, SessionID: "s1"})
	ch.deliver(t, wire.Message{Type: wire.TypePong})
	ch.deliver(t, wire.Error("sessionId required"))

	assert.Equal(t, 8, f.client.Pump())
	assert.Equal(t, before, f.store.Project())
	assert.Equal(t, StatusConnected, f.client.Status(), "bad messages never break the connection")
}

func TestParticipantsAndRequests(t *testing.T) {
	f := newFixture(t)
	require.Error(t, f.client.RequestSnapshot())

	ch := f.connect(t)
	ch.deliver(t, wire.Participants("s1", []string{"alice", "bob"}))
	ch.deliver(t, wire.Participants("s2", []string{"mallory"}))
	f.client.Pump()
	assert.Equal(t, []string{"alice", "bob"}, f.client.Participants())

	require.NoError(t, f.client.RequestSnapshot())
	require.NoError(t, f.client.Ping())
	types := ch.types()
	assert.Equal(t, []string{wire.TypeRequestSnapshot, wire.TypePing}, types[len(types)-2:])
}

func TestDialFailure(t *testing.T) {
	f := newFixture(t)
	f.dialer.err = errors.New("connection refused")

	err := f.client.Connect(context.Background())
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, StatusDisconnected, f.client.Status())
	assert.EqualError(t, f.client.LastError(), "connection refused")

	f.store.Rename("still editable")
	assert.Equal(t, "still editable", f.store.Project().Name)
}

func TestCloseEventForcesDisconnect(t *testing.T) {
	f := newFixture(t)
	ch := f.connect(t)

	ch.ev.OnClose(errors.New("reset by peer"))
	f.client.Pump()
	assert.Equal(t, StatusDisconnected, f.client.Status())
	assert.EqualError(t, f.client.LastError(), "reset by peer")
	assert.Equal(t, 1, ch.closed)

	f.store.Rename("offline")
	assert.Len(t, ch.sent, 2, "nothing is sent after the channel is gone")
}

func TestExplicitDisconnect(t *testing.T) {
	f := newFixture(t)
	first := f.connect(t)

	f.client.Disconnect()
	assert.Equal(t, StatusDisconnected, f.client.Status())
	assert.Equal(t, 1, first.closed)
	f.client.Disconnect()
	assert.Equal(t, 1, first.closed, "a second disconnect does not touch the old channel")

	second := f.connect(t)
	_, raw := remoteProject(t, "Stale", "x")
	first.deliver(t, wire.Snapshot("s1", "bob", raw))
	first.ev.OnClose(nil)
	f.client.Pump()

	assert.Equal(t, StatusConnected, f.client.Status(), "late events from the discarded channel are ignored")
	assert.Equal(t, "Local", f.store.Project().Name)
	assert.Zero(t, second.closed)
}

func TestSendFailureForcesDisconnect(t *testing.T) {
	f := newFixture(t)
	ch := f.connect(t)
	ch.sendErr = errors.New("broken pipe")

	f.store.Rename("x")
	assert.Equal(t, StatusDisconnected, f.client.Status())
	assert.Equal(t, 1, ch.closed)
	assert.EqualError(t, f.client.LastError(), "broken pipe")

	err := f.client.Ping()
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "disconnected", Status(9).String())
}
