package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqttscope/mqttscope/internal/broker"
	"github.com/mqttscope/mqttscope/internal/profile"
)

// fakeSession records everything the worker asks of it and lets tests feed
// the incoming stream and end the session.
type fakeSession struct {
	mu           sync.Mutex
	subscribed   []profile.Subscription
	unsubscribed []string
	published    []broker.Message
	disconnected bool

	incoming chan broker.Message
	done     chan error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		incoming: make(chan broker.Message, 256),
		done:     make(chan error, 1),
	}
}

func (f *fakeSession) Publish(_ context.Context, topic string, payload []byte, qos broker.QoS, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, broker.Message{Topic: topic, Payload: payload, QoS: qos, Retain: retain})
	return nil
}

func (f *fakeSession) Subscribe(_ context.Context, topic string, qos broker.QoS) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, profile.Subscription{Topic: topic, QoS: byte(qos)})
	return nil
}

func (f *fakeSession) Unsubscribe(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topic)
	return nil
}

func (f *fakeSession) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

func (f *fakeSession) Incoming() <-chan broker.Message { return f.incoming }
func (f *fakeSession) Done() <-chan error              { return f.done }

func (f *fakeSession) subscriptions() []profile.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]profile.Subscription(nil), f.subscribed...)
}

func (f *fakeSession) publishes() []broker.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broker.Message(nil), f.published...)
}

func (f *fakeSession) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

func dialTo(sess Session) DialFunc {
	return func(context.Context, string) (Session, error) {
		return sess, nil
	}
}

func testProfile(host string, subs ...profile.Subscription) profile.Connection {
	cfg := profile.NewConnection("test", host, 1883)
	cfg.Subscriptions = subs
	return cfg
}

// waitEvent polls the bridge for the next event.
func waitEvent(t *testing.T, b *Bridge) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ev, ok := b.TryRecv(); ok {
			return ev
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a bridge event")
	return Event{}
}

func assertNoEvent(t *testing.T, b *Bridge) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	ev, ok := b.TryRecv()
	assert.False(t, ok, "unexpected event %+v", ev)
}

func startWorker(cfg profile.Connection, dial DialFunc) (*Bridge, chan Command, chan struct{}) {
	cmds := make(chan Command, 8)
	bridge := NewBridge(64)
	w := NewWorker(cfg, dial, cmds, bridge)
	w.settle = 0
	ran := make(chan struct{})
	go func() {
		defer close(ran)
		w.Run(context.Background())
	}()
	return bridge, cmds, ran
}

func TestWorkerConnectSubscribesAndStreams(t *testing.T) {
	sess := newFakeSession()
	cfg := testProfile("broker.example", profile.Subscription{Topic: "a/#", QoS: 1})
	bridge, _, ran := startWorker(cfg, dialTo(sess))

	ev := waitEvent(t, bridge)
	assert.Equal(t, EventConnected, ev.Kind)

	require.Eventually(t, func() bool {
		return len(sess.subscriptions()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, profile.Subscription{Topic: "a/#", QoS: 1}, sess.subscriptions()[0])

	sess.incoming <- broker.NewMessage("a/b", []byte("payload"), broker.AtLeastOnce, true)
	ev = waitEvent(t, bridge)
	require.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "a/b", ev.Message.Topic)
	assert.Equal(t, "payload", ev.Message.PayloadString())
	assert.Equal(t, broker.AtLeastOnce, ev.Message.QoS)
	assert.True(t, ev.Message.Retain)
	assert.False(t, ev.Message.Timestamp.IsZero())

	sess.done <- nil
	assert.Equal(t, EventDisconnected, waitEvent(t, bridge).Kind)
	assert.Equal(t, EventDisconnected, waitEvent(t, bridge).Kind)
	<-ran
}

func TestWorkerDefaultsToMatchAllSubscription(t *testing.T) {
	sess := newFakeSession()
	bridge, _, ran := startWorker(testProfile("broker.example"), dialTo(sess))

	waitEvent(t, bridge) // Connected
	require.Eventually(t, func() bool {
		return len(sess.subscriptions()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, profile.Subscription{Topic: "#", QoS: 0}, sess.subscriptions()[0])

	sess.done <- nil
	<-ran
}

func TestWorkerLocalhostFallback(t *testing.T) {
	sess := newFakeSession()
	var attempts []string
	dial := func(_ context.Context, host string) (Session, error) {
		attempts = append(attempts, host)
		if host == "localhost" {
			return nil, errors.New("connection refused")
		}
		return sess, nil
	}

	bridge, _, ran := startWorker(testProfile("LocalHost"), dial)
	assert.Equal(t, EventConnected, waitEvent(t, bridge).Kind)
	assert.Equal(t, []string{"localhost", "127.0.0.1"}, attempts)

	sess.done <- nil
	<-ran
}

func TestWorkerAllCandidatesFail(t *testing.T) {
	var attempts []string
	dial := func(_ context.Context, host string) (Session, error) {
		attempts = append(attempts, host)
		return nil, errors.New("connection refused: " + host)
	}

	bridge, _, ran := startWorker(testProfile("localhost"), dial)
	<-ran

	ev := waitEvent(t, bridge)
	require.Equal(t, EventError, ev.Kind)
	assert.Contains(t, ev.Err, "127.0.0.1", "the last candidate's error is reported")
	assert.Equal(t, []string{"localhost", "127.0.0.1"}, attempts)
	assertNoEvent(t, bridge)
}

func TestWorkerNonLoopbackHostHasNoFallback(t *testing.T) {
	var attempts []string
	dial := func(_ context.Context, host string) (Session, error) {
		attempts = append(attempts, host)
		return nil, errors.New("no route to host")
	}

	bridge, _, ran := startWorker(testProfile("broker.example"), dial)
	<-ran

	assert.Equal(t, EventError, waitEvent(t, bridge).Kind)
	assert.Equal(t, []string{"broker.example"}, attempts)
}

func TestWorkerTransportErrorIsTerminal(t *testing.T) {
	sess := newFakeSession()
	bridge, _, ran := startWorker(testProfile("broker.example"), dialTo(sess))

	waitEvent(t, bridge) // Connected
	sess.done <- errors.New("broken pipe")
	<-ran

	ev := waitEvent(t, bridge)
	require.Equal(t, EventError, ev.Kind)
	assert.Equal(t, "broken pipe", ev.Err)
	assert.Equal(t, EventDisconnected, waitEvent(t, bridge).Kind)
	assertNoEvent(t, bridge)
}

func TestWorkerRelayForwardsCommands(t *testing.T) {
	sess := newFakeSession()
	bridge, cmds, ran := startWorker(testProfile("broker.example"), dialTo(sess))
	waitEvent(t, bridge) // Connected

	cmds <- Command{Kind: CommandPublish, Topic: "out", Payload: []byte("x"), QoS: broker.ExactlyOnce, Retain: true}
	require.Eventually(t, func() bool {
		return len(sess.publishes()) == 1
	}, time.Second, time.Millisecond)
	pub := sess.publishes()[0]
	assert.Equal(t, "out", pub.Topic)
	assert.Equal(t, broker.ExactlyOnce, pub.QoS)
	assert.True(t, pub.Retain)

	cmds <- Command{Kind: CommandDisconnect}
	require.Eventually(t, sess.isDisconnected, time.Second, time.Millisecond)

	// The relay is gone but the event stream is not: incoming messages
	// still cross the bridge until the broker side ends the session.
	sess.incoming <- broker.NewMessage("still/alive", nil, broker.AtMostOnce, false)
	ev := waitEvent(t, bridge)
	require.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "still/alive", ev.Message.Topic)

	sess.done <- nil
	<-ran
}

func TestWorkerRelaySurvivesCommandChannelClose(t *testing.T) {
	sess := newFakeSession()
	bridge, cmds, ran := startWorker(testProfile("broker.example"), dialTo(sess))
	waitEvent(t, bridge) // Connected

	close(cmds)

	sess.incoming <- broker.NewMessage("t", []byte("1"), broker.AtMostOnce, false)
	assert.Equal(t, EventMessage, waitEvent(t, bridge).Kind)
	assert.False(t, sess.isDisconnected(), "channel close alone does not disconnect the session")

	sess.done <- nil
	<-ran
}
