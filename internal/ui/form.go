package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mqttscope/mqttscope/internal/broker"
	"github.com/mqttscope/mqttscope/internal/profile"
)

const (
	connInputName = iota
	connInputHost
	connInputPort
	connInputUsername
	connInputPassword
	connInputClientID
	connInputTopic
	connInputCount
)

// connFormRows interleaves the protocol selector between host and port.
var connFormLabels = []string{"Name", "Host", "Protocol", "Port", "Username", "Password", "Client ID", "Subscribe"}

const connFormProtocolRow = 2

// ConnectionForm edits or creates a broker connection profile.
type ConnectionForm struct {
	inputs      [connInputCount]textinput.Model
	protocolIdx int
	focus       int
	editing     *profile.Connection
	err         string
	result      profile.Connection
}

// NewConnectionForm builds the form, pre-filled from an existing profile when
// editing.
func NewConnectionForm(existing *profile.Connection) *ConnectionForm {
	f := &ConnectionForm{editing: existing}
	placeholders := [connInputCount]string{
		"my broker", "localhost", "1883", "(none)", "(none)", "(generated)", "#",
	}
	limits := [connInputCount]int{64, 255, 5, 128, 128, 64, 255}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = limits[i]
		f.inputs[i] = ti
	}
	f.inputs[connInputPassword].EchoMode = textinput.EchoPassword
	if existing != nil {
		f.inputs[connInputName].SetValue(existing.Name)
		f.inputs[connInputHost].SetValue(existing.Host)
		f.inputs[connInputPort].SetValue(strconv.Itoa(int(existing.Port)))
		f.inputs[connInputUsername].SetValue(existing.Username)
		f.inputs[connInputPassword].SetValue(existing.Password)
		if existing.UseCustomClientID {
			f.inputs[connInputClientID].SetValue(existing.ClientID)
		}
		if len(existing.Subscriptions) > 0 {
			f.inputs[connInputTopic].SetValue(existing.Subscriptions[0].Topic)
		}
		for i, p := range profile.All() {
			if p == existing.Protocol {
				f.protocolIdx = i
			}
		}
	}
	f.inputs[connInputName].Focus()
	return f
}

func (f *ConnectionForm) rowCount() int { return len(connFormLabels) }

// inputForRow maps a form row to its text input index; the protocol row has
// no input and returns -1.
func (f *ConnectionForm) inputForRow(row int) int {
	if row == connFormProtocolRow {
		return -1
	}
	if row < connFormProtocolRow {
		return row
	}
	return row - 1
}

func (f *ConnectionForm) protocol() profile.Protocol {
	all := profile.All()
	return all[((f.protocolIdx%len(all))+len(all))%len(all)]
}

func (f *ConnectionForm) setFocus(row int) tea.Cmd {
	n := f.rowCount()
	f.focus = ((row % n) + n) % n
	var cmd tea.Cmd
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	if idx := f.inputForRow(f.focus); idx >= 0 {
		cmd = f.inputs[idx].Focus()
	}
	return cmd
}

// Update consumes a message; done reports submission and cancel dismissal.
func (f *ConnectionForm) Update(msg tea.Msg) (cmd tea.Cmd, done, cancel bool) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return f.updateFocused(msg), false, false
	}
	switch key.String() {
	case "esc":
		return nil, false, true
	case "tab", "down":
		return f.setFocus(f.focus + 1), false, false
	case "shift+tab", "up":
		return f.setFocus(f.focus - 1), false, false
	case "left":
		if f.focus == connFormProtocolRow {
			f.cycleProtocol(-1)
			return nil, false, false
		}
	case "right":
		if f.focus == connFormProtocolRow {
			f.cycleProtocol(1)
			return nil, false, false
		}
	case "enter":
		if f.focus < f.rowCount()-1 {
			return f.setFocus(f.focus + 1), false, false
		}
		return nil, f.submit(), false
	case "ctrl+s":
		return nil, f.submit(), false
	}
	return f.updateFocused(msg), false, false
}

func (f *ConnectionForm) updateFocused(msg tea.Msg) tea.Cmd {
	idx := f.inputForRow(f.focus)
	if idx < 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[idx], cmd = f.inputs[idx].Update(msg)
	return cmd
}

func (f *ConnectionForm) cycleProtocol(delta int) {
	all := profile.All()
	f.protocolIdx = ((f.protocolIdx+delta)%len(all) + len(all)) % len(all)
}

func (f *ConnectionForm) submit() bool {
	name := strings.TrimSpace(f.inputs[connInputName].Value())
	host := strings.TrimSpace(f.inputs[connInputHost].Value())
	if name == "" || host == "" {
		f.err = "name and host are required"
		return false
	}
	proto := f.protocol()
	port := proto.DefaultPort()
	if raw := strings.TrimSpace(f.inputs[connInputPort].Value()); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 16)
		if err != nil || parsed == 0 {
			f.err = fmt.Sprintf("invalid port %q", raw)
			return false
		}
		port = uint16(parsed)
	}

	var cfg profile.Connection
	if f.editing != nil {
		cfg = *f.editing
		cfg.Name = name
		cfg.Host = host
		cfg.Port = port
	} else {
		cfg = profile.NewConnection(name, host, port)
	}
	cfg.Protocol = proto
	cfg.Username = strings.TrimSpace(f.inputs[connInputUsername].Value())
	cfg.Password = f.inputs[connInputPassword].Value()
	clientID := strings.TrimSpace(f.inputs[connInputClientID].Value())
	cfg.ClientID = clientID
	cfg.UseCustomClientID = clientID != ""
	topic := strings.TrimSpace(f.inputs[connInputTopic].Value())
	if topic == "" {
		cfg.Subscriptions = []profile.Subscription{profile.DefaultSubscription()}
	} else {
		cfg.Subscriptions = []profile.Subscription{{Topic: topic, QoS: 0}}
	}

	f.err = ""
	f.result = cfg
	return true
}

// Result returns the submitted profile.
func (f *ConnectionForm) Result() profile.Connection { return f.result }

func (f *ConnectionForm) Error() string { return f.err }

func (f *ConnectionForm) Title() string {
	if f.editing != nil {
		return fmt.Sprintf("Edit %s", f.editing.Name)
	}
	return "New Connection"
}

func (f *ConnectionForm) Editing() bool { return f.editing != nil }

func (m *Model) handleConnectionForm(msg tea.Msg) (bool, tea.Cmd) {
	cmd, done, cancel := m.form.Update(msg)
	if cancel {
		m.form = nil
		m.setMode(ModeHome)
		return true, cmd
	}
	if done {
		cfg := m.form.Result()
		editing := m.form.Editing()
		m.form = nil
		m.setMode(ModeHome)
		if editing {
			m.store.Update(cfg)
		} else {
			m.store.Add(cfg)
		}
		if err := m.store.Save(); err != nil {
			m.errMsg = err.Error()
			return true, cmd
		}
		m.errMsg = ""
		m.setInfo("Saved " + cfg.Name)
		return true, cmd
	}
	return true, cmd
}

const (
	pubInputTopic = iota
	pubInputPayload
	pubInputCount
)

var pubFormLabels = []string{"Topic", "Payload", "QoS", "Retain"}

const (
	pubFormQoSRow    = 2
	pubFormRetainRow = 3
)

// PublishForm composes an outbound message for the active connection.
type PublishForm struct {
	inputs [pubInputCount]textinput.Model
	qos    broker.QoS
	retain bool
	focus  int
	err    string
}

// NewPublishForm pre-fills the topic from the current tree selection.
func NewPublishForm(topic string) *PublishForm {
	f := &PublishForm{}
	ti := textinput.New()
	ti.Placeholder = "some/topic"
	ti.CharLimit = 255
	ti.SetValue(topic)
	f.inputs[pubInputTopic] = ti

	payload := textinput.New()
	payload.Placeholder = "payload"
	payload.CharLimit = 4096
	f.inputs[pubInputPayload] = payload

	f.inputs[pubInputTopic].Focus()
	return f
}

func (f *PublishForm) setFocus(row int) tea.Cmd {
	n := len(pubFormLabels)
	f.focus = ((row % n) + n) % n
	var cmd tea.Cmd
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	if f.focus < pubInputCount {
		cmd = f.inputs[f.focus].Focus()
	}
	return cmd
}

// Update consumes a message; done reports submission and cancel dismissal.
func (f *PublishForm) Update(msg tea.Msg) (cmd tea.Cmd, done, cancel bool) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return f.updateFocused(msg), false, false
	}
	switch key.String() {
	case "esc":
		return nil, false, true
	case "tab", "down":
		return f.setFocus(f.focus + 1), false, false
	case "shift+tab", "up":
		return f.setFocus(f.focus - 1), false, false
	case "left":
		switch f.focus {
		case pubFormQoSRow:
			f.qos = broker.QoS(((int(f.qos)-1)%3 + 3) % 3)
			return nil, false, false
		case pubFormRetainRow:
			f.retain = !f.retain
			return nil, false, false
		}
	case "right", " ":
		switch f.focus {
		case pubFormQoSRow:
			f.qos = broker.QoS((int(f.qos) + 1) % 3)
			return nil, false, false
		case pubFormRetainRow:
			f.retain = !f.retain
			return nil, false, false
		}
	case "enter":
		if f.focus < len(pubFormLabels)-1 {
			return f.setFocus(f.focus + 1), false, false
		}
		return nil, f.submit(), false
	case "ctrl+s":
		return nil, f.submit(), false
	}
	return f.updateFocused(msg), false, false
}

func (f *PublishForm) updateFocused(msg tea.Msg) tea.Cmd {
	if f.focus >= pubInputCount {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *PublishForm) submit() bool {
	if strings.TrimSpace(f.inputs[pubInputTopic].Value()) == "" {
		f.err = "topic is required"
		return false
	}
	f.err = ""
	return true
}

// Result returns the composed message parameters.
func (f *PublishForm) Result() (topic string, payload []byte, qos broker.QoS, retain bool) {
	return strings.TrimSpace(f.inputs[pubInputTopic].Value()),
		[]byte(f.inputs[pubInputPayload].Value()),
		f.qos,
		f.retain
}

func (f *PublishForm) Error() string { return f.err }

func (m *Model) handlePublishForm(msg tea.Msg) (bool, tea.Cmd) {
	cmd, done, cancel := m.publishForm.Update(msg)
	if cancel {
		m.publishForm = nil
		return true, cmd
	}
	if done {
		topic, payload, qos, retain := m.publishForm.Result()
		m.publishForm = nil
		id := m.activeID()
		if id == "" {
			return true, cmd
		}
		m.manager.Publish(id, topic, payload, qos, retain)
		m.setInfo("Published to " + topic)
		return true, cmd
	}
	return true, cmd
}
