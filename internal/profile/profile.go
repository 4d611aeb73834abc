package profile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Protocol selects the transport used to reach the broker.
type Protocol string

const (
	ProtocolMQTT  Protocol = "mqtt"
	ProtocolMQTTS Protocol = "mqtts"
	ProtocolWS    Protocol = "ws"
	ProtocolWSS   Protocol = "wss"
)

// All lists the protocols offered by the connection form.
func All() []Protocol {
	return []Protocol{ProtocolMQTT, ProtocolMQTTS, ProtocolWS, ProtocolWSS}
}

// DefaultPort returns the conventional broker port for the protocol.
func (p Protocol) DefaultPort() uint16 {
	switch p {
	case ProtocolMQTTS:
		return 8883
	case ProtocolWS:
		return 8083
	case ProtocolWSS:
		return 8084
	default:
		return 1883
	}
}

// Subscription pairs a topic filter with its requested QoS level.
type Subscription struct {
	Topic string `json:"topic"`
	QoS   byte   `json:"qos"`
}

// DefaultSubscription matches everything at QoS 0.
func DefaultSubscription() Subscription {
	return Subscription{Topic: "#", QoS: 0}
}

// Connection is one saved broker connection profile. The core derives an
// effective client identifier from it at session-establishment time and
// otherwise treats it as read-only.
type Connection struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Protocol          Protocol       `json:"protocol"`
	Host              string         `json:"host"`
	Port              uint16         `json:"port"`
	Username          string         `json:"username,omitempty"`
	Password          string         `json:"password,omitempty"`
	ClientID          string         `json:"client_id,omitempty"`
	UseCustomClientID bool           `json:"use_custom_client_id"`
	Subscriptions     []Subscription `json:"subscriptions"`
	CreatedAt         time.Time      `json:"created_at"`
	LastConnected     *time.Time     `json:"last_connected,omitempty"`
}

// NewConnection builds a profile with a fresh id and the match-all default
// subscription.
func NewConnection(name, host string, port uint16) Connection {
	return Connection{
		ID:            uuid.NewString(),
		Name:          name,
		Protocol:      ProtocolMQTT,
		Host:          host,
		Port:          port,
		Subscriptions: []Subscription{DefaultSubscription()},
		CreatedAt:     time.Now().UTC(),
	}
}

// EffectiveClientID returns the configured client identifier, or a freshly
// generated unique one when the profile does not pin its own.
func (c Connection) EffectiveClientID() string {
	if c.UseCustomClientID && c.ClientID != "" {
		return c.ClientID
	}
	return "mqttscope-" + uuid.NewString()[:8]
}

// URI renders the broker address for display.
func (c Connection) URI() string {
	auth := ""
	if c.Username != "" {
		auth = c.Username + "@"
	}
	proto := c.Protocol
	if proto == "" {
		proto = ProtocolMQTT
	}
	return fmt.Sprintf("%s://%s%s:%d", proto, auth, c.Host, c.Port)
}
