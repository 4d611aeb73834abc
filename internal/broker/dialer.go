package broker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/packets"
	"github.com/eclipse/paho.golang/paho"
)

const (
	defaultKeepAlive      = 30
	defaultConnectTimeout = 10 * time.Second
	defaultIncomingBuffer = 256
)

// Options describe one connection attempt against a single host.
type Options struct {
	Host     string
	Port     uint16
	Protocol string // "mqtt" (default) or "mqtts"
	ClientID string
	Username string
	Password string
	TLS      *tls.Config
}

// Dialer establishes MQTT v5 sessions. The zero value is usable.
//
// There is no reconnect logic here on purpose: a failed or dropped session
// is terminal and the caller decides whether to dial again.
type Dialer struct {
	// KeepAlive period in seconds (defaults to 30).
	KeepAlive uint16

	// How long to wait for the dial plus the CONNECT/CONNACK handshake
	// (defaults to 10s).
	ConnectTimeout time.Duration

	// Capacity of the session's incoming message buffer (defaults to 256).
	IncomingBuffer int
}

func (d *Dialer) keepAlive() uint16 {
	if d.KeepAlive == 0 {
		return defaultKeepAlive
	}
	return d.KeepAlive
}

func (d *Dialer) connectTimeout() time.Duration {
	if d.ConnectTimeout == 0 {
		return defaultConnectTimeout
	}
	return d.ConnectTimeout
}

func (d *Dialer) incomingBuffer() int {
	if d.IncomingBuffer == 0 {
		return defaultIncomingBuffer
	}
	return d.IncomingBuffer
}

// Dial connects to the broker described by opts and completes the MQTT
// handshake. A non-zero CONNACK reason code is an error.
func (d *Dialer) Dial(ctx context.Context, opts Options) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, d.connectTimeout())
	defer cancel()

	conn, err := dialTransport(ctx, opts)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		incoming: make(chan Message, d.incomingBuffer()),
		done:     make(chan error, 1),
	}
	sess.client = paho.NewClient(paho.ClientConfig{
		ClientID: opts.ClientID,
		Conn:     packets.NewThreadSafeConn(conn),
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				sess.deliver(pr.Packet)
				return true, nil
			},
		},
		OnServerDisconnect: func(*paho.Disconnect) { sess.finish(nil) },
		OnClientError:      func(err error) { sess.finish(err) },
	})

	ca, err := sess.client.Connect(ctx, connectPacket(opts, d.keepAlive()))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect %s: %w", opts.Host, err)
	}
	if ca != nil && ca.ReasonCode != 0 {
		conn.Close()
		return nil, fmt.Errorf("connect %s: broker refused connection (reason code %d)", opts.Host, ca.ReasonCode)
	}
	return sess, nil
}

func dialTransport(ctx context.Context, opts Options) (net.Conn, error) {
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(int(opts.Port)))
	switch strings.ToLower(opts.Protocol) {
	case "", "mqtt", "tcp":
		var nd net.Dialer
		conn, err := nd.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				conn.Close()
				return nil, err
			}
		}
		return conn, nil
	case "mqtts", "ssl", "tls":
		td := tls.Dialer{Config: opts.TLS}
		conn, err := td.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", opts.Protocol)
	}
}

// connectPacket builds the CONNECT packet. Credentials are only flagged when
// present; a username with no password is sent without the password flag.
func connectPacket(opts Options, keepAlive uint16) *paho.Connect {
	cp := &paho.Connect{
		ClientID:   opts.ClientID,
		KeepAlive:  keepAlive,
		CleanStart: true,
	}
	if opts.Username != "" {
		cp.UsernameFlag = true
		cp.Username = opts.Username
		if opts.Password != "" {
			cp.PasswordFlag = true
			cp.Password = []byte(opts.Password)
		}
	}
	return cp
}
