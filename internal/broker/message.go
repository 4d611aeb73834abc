package broker

import (
	"bytes"
	"encoding/json"
	"time"
)

// QoS is the MQTT quality-of-service level for a message or subscription.
type QoS byte

const (
	AtMostOnce QoS = iota
	AtLeastOnce
	ExactlyOnce
)

// Message is one application message as captured off the wire. Timestamp is
// stamped when the packet is taken off the session, not when the broker sent
// it.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       QoS
	Retain    bool
	Timestamp time.Time
}

// NewMessage builds a message stamped with the current UTC time.
func NewMessage(topic string, payload []byte, qos QoS, retain bool) Message {
	return Message{
		Topic:     topic,
		Payload:   payload,
		QoS:       qos,
		Retain:    retain,
		Timestamp: time.Now().UTC(),
	}
}

// PayloadString returns the payload interpreted as text.
func (m Message) PayloadString() string {
	return string(m.Payload)
}

// JSON decodes the payload, reporting whether it parses as JSON.
func (m Message) JSON() (interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal(m.Payload, &v); err != nil {
		return nil, false
	}
	return v, true
}

// IsJSON reports whether the payload parses as JSON.
func (m Message) IsJSON() bool {
	_, ok := m.JSON()
	return ok
}

// FormattedPayload pretty-prints JSON payloads and falls back to the raw
// text for everything else.
func (m Message) FormattedPayload() string {
	if !m.IsJSON() {
		return m.PayloadString()
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, m.Payload, "", "  "); err != nil {
		return m.PayloadString()
	}
	return buf.String()
}

// Preview returns the payload text truncated to max runes. A non-positive
// max yields the empty string.
func (m Message) Preview(max int) string {
	if max <= 0 {
		return ""
	}
	s := m.PayloadString()
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
