package connection

import "github.com/mqttscope/mqttscope/internal/broker"

// CommandKind enumerates the commands the foreground can issue toward a
// worker. Connecting is implicit: starting a worker is the connect.
type CommandKind int

const (
	CommandPublish CommandKind = iota
	CommandSubscribe
	CommandUnsubscribe
	CommandDisconnect
)

// Command travels from the foreground loop to a worker's command relay.
type Command struct {
	Kind    CommandKind
	Topic   string
	Payload []byte
	QoS     broker.QoS
	Retain  bool
}

// EventKind enumerates the events a worker emits toward the foreground.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessage
	EventError
)

// Event crosses the bridge from a worker to the foreground loop. Message is
// only meaningful for EventMessage, Err only for EventError.
type Event struct {
	Kind    EventKind
	Message broker.Message
	Err     string
}
