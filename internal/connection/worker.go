package connection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mqttscope/mqttscope/internal/broker"
	"github.com/mqttscope/mqttscope/internal/logging"
	"github.com/mqttscope/mqttscope/internal/logging/events"
	"github.com/mqttscope/mqttscope/internal/profile"
)

// Session is the broker capability a worker drives. *broker.Session
// implements it; tests substitute fakes. It is internally synchronized, so
// the event-stream goroutine and the command relay share it freely.
type Session interface {
	Publish(ctx context.Context, topic string, payload []byte, qos broker.QoS, retain bool) error
	Subscribe(ctx context.Context, topic string, qos broker.QoS) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect() error
	Incoming() <-chan broker.Message
	Done() <-chan error
}

// DialFunc resolves one host candidate into a live session.
type DialFunc func(ctx context.Context, host string) (Session, error)

// defaultSettleDelay gives the freshly acknowledged session a moment before
// the relay issues the configured subscriptions.
const defaultSettleDelay = 500 * time.Millisecond

// Worker owns the broker session for one connection. Run blocks until the
// session ends; the worker never reconnects on its own, and panic
// containment is the spawner's job, not the worker's.
type Worker struct {
	cfg    profile.Connection
	dial   DialFunc
	cmds   <-chan Command
	bridge *Bridge
	settle time.Duration
}

// NewWorker wires a worker to its command source and event bridge.
func NewWorker(cfg profile.Connection, dial DialFunc, cmds <-chan Command, bridge *Bridge) *Worker {
	return &Worker{
		cfg:    cfg,
		dial:   dial,
		cmds:   cmds,
		bridge: bridge,
		settle: defaultSettleDelay,
	}
}

// Run establishes the session and pumps broker events onto the bridge until
// the session ends. Failure to connect on every candidate emits a single
// Error event. All bridge sends are best-effort; drops are silent.
func (w *Worker) Run(ctx context.Context) {
	sess, err := w.connect(ctx)
	if err != nil {
		w.bridge.TrySend(Event{Kind: EventError, Err: err.Error()})
		return
	}

	w.bridge.TrySend(Event{Kind: EventConnected})
	events.Connection.Connected(w.cfg.ID)

	go w.relay(ctx, sess)

	for {
		select {
		case msg := <-sess.Incoming():
			w.bridge.TrySend(Event{Kind: EventMessage, Message: msg})
		case err := <-sess.Done():
			if err != nil {
				w.bridge.TrySend(Event{Kind: EventError, Err: err.Error()})
				events.Connection.Error(w.cfg.ID, err.Error())
			} else {
				w.bridge.TrySend(Event{Kind: EventDisconnected})
			}
			// The stream is exhausted; always finish with Disconnected.
			w.bridge.TrySend(Event{Kind: EventDisconnected})
			return
		}
	}
}

// candidates returns the hosts to attempt, in order. The logical loopback
// name gets an explicit-address fallback because some resolvers map
// localhost to ::1 while the broker only listens on IPv4.
func (w *Worker) candidates() []string {
	if strings.EqualFold(w.cfg.Host, "localhost") {
		return []string{"localhost", "127.0.0.1"}
	}
	return []string{w.cfg.Host}
}

// connect tries each candidate host until one completes the handshake.
// Earlier failures only matter when every candidate fails, in which case the
// last error is reported.
func (w *Worker) connect(ctx context.Context) (Session, error) {
	var lastErr error
	for _, host := range w.candidates() {
		sess, err := w.dial(ctx, host)
		if err != nil {
			events.Connection.DialFailed(host, err)
			lastErr = err
			continue
		}
		return sess, nil
	}
	if lastErr == nil {
		lastErr = errors.New("failed to connect")
	}
	return nil, lastErr
}

// relay issues the configured subscriptions after the settling delay, then
// forwards commands until the channel closes or a disconnect arrives. Relay
// exit never stops the event stream; the stream ends when the broker side
// does.
func (w *Worker) relay(ctx context.Context, sess Session) {
	time.Sleep(w.settle)

	subs := w.cfg.Subscriptions
	if len(subs) == 0 {
		// Nothing configured: watch everything rather than nothing.
		subs = []profile.Subscription{profile.DefaultSubscription()}
	}
	for _, sub := range subs {
		if err := sess.Subscribe(ctx, sub.Topic, broker.QoS(sub.QoS)); err != nil {
			logging.Errorf("subscribe %s: %w", sub.Topic, err)
			continue
		}
		events.Connection.Subscribe(w.cfg.ID, sub.Topic, sub.QoS)
	}

	for cmd := range w.cmds {
		switch cmd.Kind {
		case CommandPublish:
			if err := sess.Publish(ctx, cmd.Topic, cmd.Payload, cmd.QoS, cmd.Retain); err != nil {
				logging.Errorf("publish %s: %w", cmd.Topic, err)
			}
		case CommandSubscribe:
			if err := sess.Subscribe(ctx, cmd.Topic, cmd.QoS); err != nil {
				logging.Errorf("subscribe %s: %w", cmd.Topic, err)
			}
		case CommandUnsubscribe:
			if err := sess.Unsubscribe(ctx, cmd.Topic); err != nil {
				logging.Errorf("unsubscribe %s: %w", cmd.Topic, err)
			}
		case CommandDisconnect:
			if err := sess.Disconnect(); err != nil {
				logging.Errorf("disconnect: %w", err)
			}
			return
		}
	}
}
