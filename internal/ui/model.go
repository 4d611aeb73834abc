package ui

import (
	"reflect"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mqttscope/mqttscope/internal/connection"
	"github.com/mqttscope/mqttscope/internal/logging/events"
	"github.com/mqttscope/mqttscope/internal/profile"
	"github.com/mqttscope/mqttscope/internal/theme"
)

// Mode selects which top-level view the model renders.
type Mode int

const (
	ModeHome Mode = iota
	ModeForm
	ModeConnection
)

const (
	defaultTickInterval = 50 * time.Millisecond
	cacheRebuildEvery   = 10
)

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// tickMsg drives the poll/drain loop.
type tickMsg time.Time

// tabState holds per-connection view state: topic cursor, viewport offset
// and the fuzzy filter string.
type tabState struct {
	cursor int
	offset int
	filter string
}

// Model implements the Bubble Tea model for the broker inspector.
type Model struct {
	manager *connection.Manager
	store   *profile.Store

	mode        Mode
	width       int
	height      int
	fixedWidth  bool
	fixedHeight bool

	homeCursor int

	tabs      []string
	activeTab int
	tabState  map[string]*tabState

	form        *ConnectionForm
	publishForm *PublishForm

	ticks        int
	tickInterval time.Duration

	errMsg     string
	infoMsg    string
	infoExpire time.Time

	handlers map[reflect.Type]msgHandler
}

// NewModel initialises the UI with the saved profiles and connection manager.
func NewModel(store *profile.Store, manager *connection.Manager, width, height int, tickInterval time.Duration) *Model {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	m := &Model{
		manager:      manager,
		store:        store,
		mode:         ModeHome,
		tabState:     map[string]*tabState{},
		tickInterval: tickInterval,
	}
	if width > 0 {
		m.width = width
		m.fixedWidth = true
	}
	if height > 0 {
		m.height = height
		m.fixedHeight = true
	}
	m.reopenLastTabs()
	m.registerHandlers()
	return m
}

// reopenLastTabs restores the tab set from the previous run without
// reconnecting; each restored tab starts disconnected.
func (m *Model) reopenLastTabs() {
	for _, id := range m.store.LastOpenedTabs {
		cfg, ok := m.store.Get(id)
		if !ok {
			continue
		}
		m.manager.Open(cfg)
		m.tabs = append(m.tabs, id)
		m.tabState[id] = &tabState{}
	}
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if handled, cmd := m.handleActiveForm(msg); handled {
		return m, cmd
	}
	if handler := m.handlerFor(msg); handler != nil {
		return m, handler(msg)
	}
	return m, nil
}

func (m *Model) handleActiveForm(msg tea.Msg) (bool, tea.Cmd) {
	// Ticks keep draining even while a form has focus.
	if _, isTick := msg.(tickMsg); isTick {
		return false, nil
	}
	if _, isResize := msg.(tea.WindowSizeMsg); isResize {
		return false, nil
	}
	switch {
	case m.mode == ModeForm && m.form != nil:
		return m.handleConnectionForm(msg)
	case m.publishForm != nil:
		return m.handlePublishForm(msg)
	default:
		return false, nil
	}
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(tickMsg{}):           m.handleTickMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) handleTickMsg(tea.Msg) tea.Cmd {
	m.manager.Drain(connection.DefaultDrainPerTick)
	m.ticks++
	if m.ticks%cacheRebuildEvery == 0 {
		m.manager.RebuildDirtyCaches()
	}
	return m.tickCmd()
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	resize, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = resize.Width
	}
	if !m.fixedHeight {
		m.height = resize.Height
	}
	return nil
}

// activeID returns the connection id of the active tab, or "".
func (m *Model) activeID() string {
	if len(m.tabs) == 0 {
		return ""
	}
	if m.activeTab < 0 || m.activeTab >= len(m.tabs) {
		m.activeTab = 0
	}
	return m.tabs[m.activeTab]
}

func (m *Model) activeTabState() *tabState {
	id := m.activeID()
	if id == "" {
		return nil
	}
	ts, ok := m.tabState[id]
	if !ok {
		ts = &tabState{}
		m.tabState[id] = ts
	}
	return ts
}

// openTab brings a profile's tab to the front, creating it when absent,
// and switches to the connection view.
func (m *Model) openTab(cfg profile.Connection) {
	for i, id := range m.tabs {
		if id == cfg.ID {
			m.activeTab = i
			m.setMode(ModeConnection)
			return
		}
	}
	m.manager.Open(cfg)
	m.tabs = append(m.tabs, cfg.ID)
	m.tabState[cfg.ID] = &tabState{}
	m.activeTab = len(m.tabs) - 1
	m.rememberTabs()
	m.setMode(ModeConnection)
}

// closeTab stops the connection and removes the tab.
func (m *Model) closeTab() {
	id := m.activeID()
	if id == "" {
		return
	}
	m.manager.Stop(id)
	m.tabs = append(m.tabs[:m.activeTab], m.tabs[m.activeTab+1:]...)
	delete(m.tabState, id)
	if m.activeTab >= len(m.tabs) {
		m.activeTab = len(m.tabs) - 1
	}
	m.rememberTabs()
	if len(m.tabs) == 0 {
		m.setMode(ModeHome)
	}
}

func (m *Model) nextTab() {
	if n := len(m.tabs); n > 1 {
		m.activeTab = (m.activeTab + 1) % n
	}
}

func (m *Model) prevTab() {
	if n := len(m.tabs); n > 1 {
		m.activeTab = (m.activeTab - 1 + n) % n
	}
}

func (m *Model) rememberTabs() {
	m.store.LastOpenedTabs = append([]string(nil), m.tabs...)
	if err := m.store.Save(); err != nil {
		m.errMsg = err.Error()
	}
}

func (m *Model) setMode(mode Mode) {
	if m.mode == mode {
		return
	}
	m.mode = mode
	switch mode {
	case ModeHome:
		events.App.ViewChange("home")
	case ModeForm:
		events.App.ViewChange("form")
	case ModeConnection:
		events.App.ViewChange("connection")
	}
}

func (m *Model) setInfo(message string) {
	m.infoMsg = message
	m.infoExpire = time.Now().Add(5 * time.Second)
}

func (m *Model) forceClearInfo() {
	m.infoMsg = ""
	m.infoExpire = time.Time{}
}

func (m *Model) currentInfo() string {
	if m.infoMsg != "" && !m.infoExpire.IsZero() && time.Now().After(m.infoExpire) {
		m.infoMsg = ""
		m.infoExpire = time.Time{}
	}
	return m.infoMsg
}
