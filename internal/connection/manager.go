package connection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mqttscope/mqttscope/internal/broker"
	"github.com/mqttscope/mqttscope/internal/logging/events"
	"github.com/mqttscope/mqttscope/internal/profile"
	"github.com/mqttscope/mqttscope/internal/topics"
)

// DefaultDrainPerTick caps how many Message events a single tick may route
// into the trees per connection. Leftovers stay queued for the next tick;
// this is flow control for the foreground loop, not data loss.
const DefaultDrainPerTick = 50

const defaultCommandCapacity = 32

// SessionDialer builds the per-candidate dial function for a profile. Tests
// inject fakes here; production wiring uses BrokerDialer.
type SessionDialer func(cfg profile.Connection) DialFunc

// BrokerDialer adapts a broker.Dialer into a SessionDialer. The effective
// client identifier is derived once per worker start, so every host
// candidate of one attempt presents the same identity.
func BrokerDialer(d *broker.Dialer) SessionDialer {
	if d == nil {
		d = &broker.Dialer{}
	}
	return func(cfg profile.Connection) DialFunc {
		clientID := cfg.EffectiveClientID()
		return func(ctx context.Context, host string) (Session, error) {
			return d.Dial(ctx, broker.Options{
				Host:     host,
				Port:     cfg.Port,
				Protocol: string(cfg.Protocol),
				ClientID: clientID,
				Username: cfg.Username,
				Password: cfg.Password,
			})
		}
	}
}

// entry is everything the foreground loop owns for one connection id.
type entry struct {
	state         *State
	tree          *topics.Tree
	cached        []topics.VisibleNode
	dirty         bool
	selectedTopic string
	selected      *broker.Message
}

// Manager is the per-connection aggregate owned by the foreground loop:
// states, trees, visible-node caches and selections, keyed by connection id.
// Its methods are not safe for concurrent use — the tick handler is the only
// caller. Workers communicate with it exclusively through bridges.
type Manager struct {
	entries map[string]*entry
	dialer  SessionDialer
	settle  time.Duration

	eventCapacity   int
	commandCapacity int
}

// NewManager builds a manager that dials sessions through dialer.
func NewManager(dialer SessionDialer) *Manager {
	return &Manager{
		entries:         make(map[string]*entry),
		dialer:          dialer,
		settle:          defaultSettleDelay,
		eventCapacity:   DefaultEventCapacity,
		commandCapacity: defaultCommandCapacity,
	}
}

// SetSettleDelay overrides the relay's subscription settling delay. Tests
// set it to zero.
func (m *Manager) SetSettleDelay(d time.Duration) {
	m.settle = d
}

// SetEventCapacity overrides the bridge capacity for subsequently started
// workers.
func (m *Manager) SetEventCapacity(n int) {
	m.eventCapacity = n
}

// Open ensures state and an empty tree exist for the profile without
// starting a worker. Called when a tab is opened.
func (m *Manager) Open(cfg profile.Connection) {
	m.ensure(cfg)
}

// Start spawns the worker pair for the profile. A connection that already
// has live handles is left alone. The hosting goroutine carries the panic
// boundary: a crashing worker becomes a best-effort Error event, never a
// crashed process.
func (m *Manager) Start(cfg profile.Connection) {
	e := m.ensure(cfg)
	if e.state.Active() {
		return
	}

	cmds := make(chan Command, m.commandCapacity)
	bridge := NewBridge(m.eventCapacity)
	e.state.Config = cfg
	e.state.Status = Connecting()
	e.state.cmds = cmds
	e.state.bridge = bridge

	worker := NewWorker(cfg, m.dialer(cfg), cmds, bridge)
	worker.settle = m.settle

	events.Connection.Start(cfg.ID, cfg.Host, cfg.Port)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				bridge.TrySend(Event{Kind: EventError, Err: fmt.Sprintf("Worker crashed: %v", r)})
				events.Connection.WorkerCrash(cfg.ID, r)
			}
		}()
		worker.Run(context.Background())
	}()
}

// Stop asks the relay to disconnect and tears down the handles locally. The
// UI-visible effect is immediate; the worker pair winds down on its own once
// the broker session ends.
func (m *Manager) Stop(id string) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	if e.state.cmds != nil {
		// The disconnect itself must reach the relay. When the buffer is
		// full, evict queued commands to make room: a pending publish is
		// moot on a connection that is being torn down.
		for {
			select {
			case e.state.cmds <- Command{Kind: CommandDisconnect}:
			default:
				select {
				case <-e.state.cmds:
				default:
				}
				continue
			}
			break
		}
	}
	e.releaseHandles()
	e.state.Status = Disconnected()
	events.Connection.Stop(id)
}

// releaseHandles closes the relay's command channel and drops both worker
// handles. After this the entry is inactive and Start may dial again.
func (e *entry) releaseHandles() {
	if e.state.cmds != nil {
		close(e.state.cmds)
	}
	e.state.cmds = nil
	e.state.bridge = nil
}

// Remove stops the connection and forgets everything about it.
func (m *Manager) Remove(id string) {
	m.Stop(id)
	delete(m.entries, id)
}

// Publish forwards a publish command to the connection's relay. No-op when
// the connection has no live worker.
func (m *Manager) Publish(id, topic string, payload []byte, qos broker.QoS, retain bool) {
	if m.send(id, Command{Kind: CommandPublish, Topic: topic, Payload: payload, QoS: qos, Retain: retain}) {
		events.Connection.Publish(id, topic, len(payload))
	}
}

// Subscribe forwards a live subscribe command to the relay.
func (m *Manager) Subscribe(id, topic string, qos broker.QoS) {
	m.send(id, Command{Kind: CommandSubscribe, Topic: topic, QoS: qos})
}

// Unsubscribe forwards an unsubscribe command to the relay.
func (m *Manager) Unsubscribe(id, topic string) {
	m.send(id, Command{Kind: CommandUnsubscribe, Topic: topic})
}

func (m *Manager) send(id string, cmd Command) bool {
	e, ok := m.entries[id]
	if !ok || e.state.cmds == nil {
		return false
	}
	select {
	case e.state.cmds <- cmd:
		return true
	default:
		// The relay is badly behind; dropping beats blocking the loop.
		return false
	}
}

// Drain pulls queued events from every live bridge, at most perTickCap
// Message events per connection. Status events are free: they always apply
// within the tick that sees them. A terminal event releases the worker
// handles so a later Start can dial a fresh session.
func (m *Manager) Drain(perTickCap int) {
	if perTickCap <= 0 {
		perTickCap = DefaultDrainPerTick
	}
	for _, id := range m.IDs() {
		e := m.entries[id]
		bridge := e.state.bridge
		if bridge == nil {
			continue
		}
		drained := 0
		for {
			ev, ok := bridge.TryRecv()
			if !ok {
				break
			}
			if ev.Kind != EventMessage {
				e.state.apply(ev)
				if ev.Kind == EventDisconnected || ev.Kind == EventError {
					e.releaseHandles()
					break
				}
				continue
			}
			if e.selectedTopic != "" && e.selectedTopic == ev.Message.Topic {
				msg := ev.Message
				e.selected = &msg
			}
			e.tree.Insert(ev.Message)
			e.dirty = true
			drained++
			if drained >= perTickCap {
				break
			}
		}
	}
}

// RebuildDirtyCaches refreshes the flattened visible-node cache for every
// connection whose tree changed since the last rebuild. Called on a coarser
// cadence than Drain.
func (m *Manager) RebuildDirtyCaches() {
	for _, e := range m.entries {
		if !e.dirty {
			continue
		}
		e.cached = topics.Flatten(e.tree.Root)
		e.dirty = false
	}
}

// VisibleNodes returns the cached flattened rows for the connection,
// computing them on the spot when no cache has been built yet.
func (m *Manager) VisibleNodes(id string) []topics.VisibleNode {
	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	if e.cached == nil {
		return topics.Flatten(e.tree.Root)
	}
	return e.cached
}

// Tree exposes the connection's topic tree for read-only inspection.
func (m *Manager) Tree(id string) (*topics.Tree, bool) {
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.tree, true
}

// Status returns the connection's current FSM state.
func (m *Manager) Status(id string) Status {
	e, ok := m.entries[id]
	if !ok {
		return Disconnected()
	}
	return e.state.Status
}

// State returns the connection record itself.
func (m *Manager) State(id string) (*State, bool) {
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.state, true
}

// Select records the inspected topic and pins its latest message. A topic
// with no direct messages pins nothing; it never shows the previous
// selection's message.
func (m *Manager) Select(id, topic string) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	e.selectedTopic = topic
	if msg, found := e.tree.Latest(topic); found {
		e.selected = &msg
	} else {
		e.selected = nil
	}
	events.Topic.Select(id, topic)
}

// SelectedTopic returns the currently inspected topic path.
func (m *Manager) SelectedTopic(id string) string {
	if e, ok := m.entries[id]; ok {
		return e.selectedTopic
	}
	return ""
}

// SelectedMessage returns the pinned message for the inspected topic.
func (m *Manager) SelectedMessage(id string) (broker.Message, bool) {
	e, ok := m.entries[id]
	if !ok || e.selected == nil {
		return broker.Message{}, false
	}
	return *e.selected, true
}

// Expand opens a tree node and marks the cache dirty.
func (m *Manager) Expand(id, topic string) {
	if e, ok := m.entries[id]; ok {
		e.tree.Expand(topic)
		e.dirty = true
		events.Topic.Expand(id, topic)
	}
}

// Collapse closes a tree node and marks the cache dirty.
func (m *Manager) Collapse(id, topic string) {
	if e, ok := m.entries[id]; ok {
		e.tree.Collapse(topic)
		e.dirty = true
		events.Topic.Collapse(id, topic)
	}
}

// ClearTopics replaces the connection's tree wholesale and drops the cache
// and selection.
func (m *Manager) ClearTopics(id string) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	e.tree.Clear()
	e.cached = nil
	e.dirty = false
	e.selectedTopic = ""
	e.selected = nil
	events.Topic.Clear(id)
}

// IDs returns the known connection ids in stable sorted order.
func (m *Manager) IDs() []string {
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) ensure(cfg profile.Connection) *entry {
	if e, ok := m.entries[cfg.ID]; ok {
		return e
	}
	e := &entry{
		state: &State{Config: cfg, Status: Disconnected()},
		tree:  topics.NewTree(),
	}
	m.entries[cfg.ID] = e
	return e
}
