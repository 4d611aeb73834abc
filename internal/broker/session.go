package broker

import (
	"context"
	"sync"

	"github.com/eclipse/paho.golang/paho"
)

// Session is one live broker connection. It is internally synchronized and
// may be shared between goroutines without external locking; the paho client
// serializes outgoing packets itself.
//
// Incoming application messages are surfaced on Incoming. Session end is
// surfaced exactly once on Done: nil for a broker-initiated disconnect, the
// transport or protocol error otherwise.
type Session struct {
	client   *paho.Client
	incoming chan Message
	done     chan error
	doneOnce sync.Once
}

// Incoming returns the stream of application messages received on this
// session.
func (s *Session) Incoming() <-chan Message {
	return s.incoming
}

// Done reports session end. It delivers at most one value.
func (s *Session) Done() <-chan error {
	return s.done
}

// Publish sends one application message to the broker.
func (s *Session) Publish(ctx context.Context, topic string, payload []byte, qos QoS, retain bool) error {
	_, err := s.client.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     byte(qos),
		Retain:  retain,
	})
	return err
}

// Subscribe registers a single topic filter at the requested QoS.
func (s *Session) Subscribe(ctx context.Context, topic string, qos QoS) error {
	_, err := s.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: byte(qos)},
		},
	})
	return err
}

// Unsubscribe removes a single topic filter.
func (s *Session) Unsubscribe(ctx context.Context, topic string) error {
	_, err := s.client.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: []string{topic},
	})
	return err
}

// Disconnect sends a clean DISCONNECT to the broker and closes the network
// connection.
func (s *Session) Disconnect() error {
	return s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}

// deliver hands a received publish to the incoming channel. The buffer only
// decouples the paho router goroutine from the consumer; when it is full the
// message is dropped rather than stalling the session.
func (s *Session) deliver(pub *paho.Publish) {
	msg := NewMessage(pub.Topic, pub.Payload, QoS(pub.QoS), pub.Retain)
	select {
	case s.incoming <- msg:
	default:
	}
}

// finish records session end. Only the first cause wins; paho can report
// both a server disconnect and a subsequent client error.
func (s *Session) finish(err error) {
	s.doneOnce.Do(func() {
		s.done <- err
	})
}
