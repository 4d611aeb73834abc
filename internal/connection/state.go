package connection

import "github.com/mqttscope/mqttscope/internal/profile"

// StatusKind enumerates the connection state machine:
//
//	Disconnected -> Connecting -> Connected -> {Disconnected, Error}
//
// Error is terminal until a new connect restarts the worker from Connecting.
type StatusKind int

const (
	StatusDisconnected StatusKind = iota
	StatusConnecting
	StatusConnected
	StatusError
)

// Status is the FSM state plus the error description for StatusError.
type Status struct {
	Kind   StatusKind
	Detail string
}

func Disconnected() Status         { return Status{Kind: StatusDisconnected} }
func Connecting() Status           { return Status{Kind: StatusConnecting} }
func Connected() Status            { return Status{Kind: StatusConnected} }
func Errored(detail string) Status { return Status{Kind: StatusError, Detail: detail} }

// IsConnected reports whether the session is up.
func (s Status) IsConnected() bool {
	return s.Kind == StatusConnected
}

// Text returns the display label for the status.
func (s Status) Text() string {
	switch s.Kind {
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected"
	case StatusError:
		return "Error"
	default:
		return "Disconnected"
	}
}

// State ties a connection's config snapshot to its status and, while a
// worker runs, the command and event handles. The record outlives the
// worker: status and history survive until the tab is closed.
type State struct {
	Config profile.Connection
	Status Status

	cmds   chan Command
	bridge *Bridge
}

// Active reports whether a worker currently holds the other end of the
// command channel.
func (s *State) Active() bool {
	return s.cmds != nil
}

// apply advances the status for one bridge event. Message events do not
// touch the FSM.
func (s *State) apply(ev Event) {
	switch ev.Kind {
	case EventConnected:
		s.Status = Connected()
	case EventDisconnected:
		s.Status = Disconnected()
	case EventError:
		s.Status = Errored(ev.Err)
	}
}
