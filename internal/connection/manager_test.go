package connection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqttscope/mqttscope/internal/broker"
	"github.com/mqttscope/mqttscope/internal/profile"
)

func fakeDialer(sess *fakeSession) SessionDialer {
	return func(profile.Connection) DialFunc {
		return dialTo(sess)
	}
}

func newTestManager(sess *fakeSession) *Manager {
	m := NewManager(fakeDialer(sess))
	m.SetSettleDelay(0)
	return m
}

func drainUntilConnected(t *testing.T, m *Manager, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		m.Drain(DefaultDrainPerTick)
		return m.Status(id).IsConnected()
	}, 2*time.Second, time.Millisecond)
}

func TestManagerStartToConnected(t *testing.T) {
	sess := newFakeSession()
	m := newTestManager(sess)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	assert.Equal(t, StatusConnecting, m.Status(cfg.ID).Kind)

	drainUntilConnected(t, m, cfg.ID)

	state, ok := m.State(cfg.ID)
	require.True(t, ok)
	assert.True(t, state.Active())
	assert.Equal(t, cfg.Host, state.Config.Host)
}

func TestManagerStartIsIdempotentWhileActive(t *testing.T) {
	sess := newFakeSession()
	m := newTestManager(sess)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	drainUntilConnected(t, m, cfg.ID)
	m.Start(cfg)
	assert.True(t, m.Status(cfg.ID).IsConnected(), "second start must not reset a live connection")
}

func TestManagerDrainHonoursPerTickCap(t *testing.T) {
	m := NewManager(fakeDialer(newFakeSession()))
	cfg := testProfile("broker.example")
	e := m.ensure(cfg)
	e.state.bridge = NewBridge(1000)

	for i := 0; i < 120; i++ {
		require.True(t, e.state.bridge.TrySend(messageEvent(fmt.Sprintf("t/%d", i), "x")))
	}

	m.Drain(50)
	tree, ok := m.Tree(cfg.ID)
	require.True(t, ok)
	assert.Equal(t, 50, tree.TotalMessages, "first tick stops at the cap")

	m.Drain(50)
	assert.Equal(t, 100, tree.TotalMessages, "leftovers stay queued, not lost")

	m.Drain(50)
	assert.Equal(t, 120, tree.TotalMessages)
}

func TestManagerDrainAppliesStatusEvents(t *testing.T) {
	m := NewManager(fakeDialer(newFakeSession()))
	cfg := testProfile("broker.example")
	e := m.ensure(cfg)
	e.state.bridge = NewBridge(10)
	e.state.Status = Connecting()

	e.state.bridge.TrySend(Event{Kind: EventConnected})
	e.state.bridge.TrySend(Event{Kind: EventError, Err: "keepalive timeout"})
	m.Drain(50)

	status := m.Status(cfg.ID)
	assert.Equal(t, StatusError, status.Kind)
	assert.Equal(t, "keepalive timeout", status.Detail)
}

func TestManagerWorkerPanicBecomesErrorEvent(t *testing.T) {
	m := NewManager(func(profile.Connection) DialFunc {
		return func(context.Context, string) (Session, error) {
			panic("boom")
		}
	})
	m.SetSettleDelay(0)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	require.Eventually(t, func() bool {
		m.Drain(DefaultDrainPerTick)
		return m.Status(cfg.ID).Kind != StatusConnecting
	}, 2*time.Second, time.Millisecond)

	status := m.Status(cfg.ID)
	require.Equal(t, StatusError, status.Kind)
	assert.Contains(t, status.Detail, "Worker crashed: boom")
}

func TestManagerStopIsSynchronousForTheUI(t *testing.T) {
	sess := newFakeSession()
	m := newTestManager(sess)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	drainUntilConnected(t, m, cfg.ID)

	m.Stop(cfg.ID)
	state, ok := m.State(cfg.ID)
	require.True(t, ok)
	assert.Equal(t, StatusDisconnected, state.Status.Kind, "status flips before the worker winds down")
	assert.False(t, state.Active())

	// The relay still received the advisory disconnect.
	require.Eventually(t, sess.isDisconnected, 2*time.Second, time.Millisecond)
}

func TestManagerStopDisconnectSurvivesFullCommandBuffer(t *testing.T) {
	sess := newFakeSession()
	m := NewManager(fakeDialer(sess))
	m.SetSettleDelay(50 * time.Millisecond)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	drainUntilConnected(t, m, cfg.ID)

	// The relay is still settling, so these pile up until the buffer is
	// full and further sends drop.
	for i := 0; i < 2*defaultCommandCapacity; i++ {
		m.Publish(cfg.ID, "backlog", nil, broker.AtMostOnce, false)
	}

	m.Stop(cfg.ID)
	assert.Equal(t, StatusDisconnected, m.Status(cfg.ID).Kind)
	require.Eventually(t, sess.isDisconnected, 2*time.Second, time.Millisecond,
		"the disconnect must reach the session even through a full buffer")
}

func TestManagerSessionEndFreesEntryForRestart(t *testing.T) {
	sess := newFakeSession()
	m := newTestManager(sess)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	drainUntilConnected(t, m, cfg.ID)

	sess.done <- nil
	require.Eventually(t, func() bool {
		m.Drain(DefaultDrainPerTick)
		return m.Status(cfg.ID).Kind == StatusDisconnected
	}, 2*time.Second, time.Millisecond)

	state, ok := m.State(cfg.ID)
	require.True(t, ok)
	assert.False(t, state.Active(), "a finished session must not pin the worker handles")

	m.dialer = fakeDialer(newFakeSession())
	m.Start(cfg)
	drainUntilConnected(t, m, cfg.ID)
}

func TestManagerPublishReachesSession(t *testing.T) {
	sess := newFakeSession()
	m := newTestManager(sess)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	drainUntilConnected(t, m, cfg.ID)

	m.Publish(cfg.ID, "cmd/land", []byte(`{"now":true}`), broker.AtLeastOnce, false)
	require.Eventually(t, func() bool {
		return len(sess.publishes()) == 1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, "cmd/land", sess.publishes()[0].Topic)

	m.Stop(cfg.ID)
	m.Publish(cfg.ID, "cmd/late", nil, broker.AtMostOnce, false)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sess.publishes(), 1, "publish after stop is a no-op")
}

func TestManagerSelectionFollowsDrain(t *testing.T) {
	m := NewManager(fakeDialer(newFakeSession()))
	cfg := testProfile("broker.example")
	e := m.ensure(cfg)
	e.state.bridge = NewBridge(10)

	e.state.bridge.TrySend(messageEvent("x/y", "first"))
	m.Drain(50)

	m.Select(cfg.ID, "x/y")
	got, ok := m.SelectedMessage(cfg.ID)
	require.True(t, ok)
	assert.Equal(t, "first", got.PayloadString())

	e.state.bridge.TrySend(messageEvent("x/y", "second"))
	e.state.bridge.TrySend(messageEvent("other", "noise"))
	m.Drain(50)

	got, ok = m.SelectedMessage(cfg.ID)
	require.True(t, ok)
	assert.Equal(t, "second", got.PayloadString(), "selection tracks the newest drained message")
}

func TestManagerSelectWithoutMessagesPinsNothing(t *testing.T) {
	m := NewManager(fakeDialer(newFakeSession()))
	cfg := testProfile("broker.example")
	e := m.ensure(cfg)
	e.state.bridge = NewBridge(10)

	e.state.bridge.TrySend(messageEvent("a/b", "payload-b"))
	m.Drain(50)

	m.Select(cfg.ID, "a/b")
	_, ok := m.SelectedMessage(cfg.ID)
	require.True(t, ok)

	// "a" exists as a branch but has no direct messages; the previous
	// selection's message must not bleed through.
	m.Select(cfg.ID, "a")
	_, ok = m.SelectedMessage(cfg.ID)
	assert.False(t, ok)
	assert.Equal(t, "a", m.SelectedTopic(cfg.ID))

	m.Select(cfg.ID, "never/seen")
	_, ok = m.SelectedMessage(cfg.ID)
	assert.False(t, ok)
}

func TestManagerCachesRebuildOnlyWhenDirty(t *testing.T) {
	m := NewManager(fakeDialer(newFakeSession()))
	cfg := testProfile("broker.example")
	e := m.ensure(cfg)
	e.state.bridge = NewBridge(10)

	e.state.bridge.TrySend(messageEvent("a/b", "1"))
	m.Drain(50)

	// Before any rebuild the rows are computed on demand.
	rows := m.VisibleNodes(cfg.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].FullPath)

	m.RebuildDirtyCaches()
	m.Expand(cfg.ID, "a")
	m.RebuildDirtyCaches()
	rows = m.VisibleNodes(cfg.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "a/b", rows[1].FullPath)
}

func TestManagerClearTopics(t *testing.T) {
	m := NewManager(fakeDialer(newFakeSession()))
	cfg := testProfile("broker.example")
	e := m.ensure(cfg)
	e.state.bridge = NewBridge(10)

	e.state.bridge.TrySend(messageEvent("a/b", "1"))
	m.Drain(50)
	m.Select(cfg.ID, "a/b")
	m.RebuildDirtyCaches()

	m.ClearTopics(cfg.ID)
	tree, _ := m.Tree(cfg.ID)
	assert.Equal(t, 0, tree.TotalMessages)
	assert.Empty(t, m.VisibleNodes(cfg.ID))
	_, ok := m.SelectedMessage(cfg.ID)
	assert.False(t, ok)
	assert.Equal(t, "", m.SelectedTopic(cfg.ID))
}

func TestManagerRemoveForgetsConnection(t *testing.T) {
	sess := newFakeSession()
	m := newTestManager(sess)
	cfg := testProfile("broker.example")

	m.Start(cfg)
	drainUntilConnected(t, m, cfg.ID)
	m.Remove(cfg.ID)

	assert.Empty(t, m.IDs())
	_, ok := m.Tree(cfg.ID)
	assert.False(t, ok)
}
