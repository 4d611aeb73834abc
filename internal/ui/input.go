package ui

import (
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mqttscope/mqttscope/internal/logging"
	"github.com/mqttscope/mqttscope/internal/profile"
)

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if key.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	switch m.mode {
	case ModeHome:
		return m.handleHomeKey(key)
	case ModeConnection:
		return m.handleConnectionKey(key)
	}
	return nil
}

func (m *Model) handleHomeKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "up", "k":
		m.moveHomeCursor(-1)
	case "down", "j":
		m.moveHomeCursor(1)
	case "enter":
		return m.connectSelected()
	case "n":
		m.form = NewConnectionForm(nil)
		m.setMode(ModeForm)
	case "e":
		if cfg, ok := m.selectedProfile(); ok {
			m.form = NewConnectionForm(&cfg)
			m.setMode(ModeForm)
		}
	case "d":
		m.deleteSelected()
	case "q", "esc":
		return tea.Quit
	}
	return nil
}

func (m *Model) moveHomeCursor(delta int) {
	n := len(m.store.Connections)
	if n == 0 {
		m.homeCursor = 0
		return
	}
	m.homeCursor = (m.homeCursor + delta + n) % n
}

func (m *Model) selectedProfile() (profile.Connection, bool) {
	if m.homeCursor < 0 || m.homeCursor >= len(m.store.Connections) {
		return profile.Connection{}, false
	}
	return m.store.Connections[m.homeCursor], true
}

func (m *Model) connectSelected() tea.Cmd {
	cfg, ok := m.selectedProfile()
	if !ok {
		return nil
	}
	m.errMsg = ""
	m.openTab(cfg)
	if !m.manager.Status(cfg.ID).IsConnected() {
		m.manager.Start(cfg)
		m.markConnected(cfg)
	}
	return nil
}

// markConnected stamps the profile's last-connected time. Persistence is
// best-effort; a failed save never blocks the connect.
func (m *Model) markConnected(cfg profile.Connection) {
	now := time.Now()
	cfg.LastConnected = &now
	m.store.Update(cfg)
	if err := m.store.Save(); err != nil {
		logging.Error(err)
	}
}

func (m *Model) deleteSelected() {
	cfg, ok := m.selectedProfile()
	if !ok {
		return
	}
	m.manager.Stop(cfg.ID)
	m.manager.Remove(cfg.ID)
	for i, id := range m.tabs {
		if id == cfg.ID {
			m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
			delete(m.tabState, id)
			break
		}
	}
	if m.activeTab >= len(m.tabs) {
		m.activeTab = len(m.tabs) - 1
		if m.activeTab < 0 {
			m.activeTab = 0
		}
	}
	m.store.Remove(cfg.ID)
	if err := m.store.Save(); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.moveHomeCursor(0)
	m.setInfo("Deleted " + cfg.Name)
}

func (m *Model) handleConnectionKey(key tea.KeyMsg) tea.Cmd {
	id := m.activeID()
	ts := m.activeTabState()
	if id == "" || ts == nil {
		m.setMode(ModeHome)
		return nil
	}
	switch key.String() {
	case "esc":
		m.setMode(ModeHome)
		return nil
	case "tab":
		m.nextTab()
		return nil
	case "shift+tab":
		m.prevTab()
		return nil
	case "up":
		m.moveTopicCursor(id, ts, -1)
		return nil
	case "down":
		m.moveTopicCursor(id, ts, 1)
		return nil
	case "left":
		if row, ok := m.cursorRow(id, ts); ok && row.HasChildren && row.Expanded {
			m.manager.Collapse(id, row.FullPath)
		}
		return nil
	case "right":
		if row, ok := m.cursorRow(id, ts); ok && row.HasChildren && !row.Expanded {
			m.manager.Expand(id, row.FullPath)
		}
		return nil
	case "enter":
		m.activateTopicRow(id, ts)
		return nil
	case "ctrl+u":
		if ts.filter != "" {
			ts.filter = ""
			ts.cursor = 0
			ts.offset = 0
		}
		return nil
	case "ctrl+p":
		m.publishForm = NewPublishForm(m.manager.SelectedTopic(id))
		return nil
	case "ctrl+l":
		m.manager.ClearTopics(id)
		ts.cursor = 0
		ts.offset = 0
		return nil
	case "ctrl+r":
		m.toggleConnection(id)
		return nil
	case "ctrl+x":
		m.closeTab()
		return nil
	}
	switch key.Type {
	case tea.KeyBackspace, tea.KeyCtrlH:
		if runes := []rune(ts.filter); len(runes) > 0 {
			ts.filter = string(runes[:len(runes)-1])
			ts.cursor = 0
			ts.offset = 0
		}
	case tea.KeyRunes:
		if key.Alt {
			return nil
		}
		for _, r := range key.Runes {
			if unicode.IsControl(r) {
				return nil
			}
		}
		ts.filter += string(key.Runes)
		ts.cursor = 0
		ts.offset = 0
	case tea.KeySpace:
		m.activateTopicRow(id, ts)
	}
	return nil
}

func (m *Model) moveTopicCursor(id string, ts *tabState, delta int) {
	rows := m.visibleRows(id, ts)
	n := len(rows)
	if n == 0 {
		ts.cursor = 0
		return
	}
	ts.cursor = (ts.cursor + delta + n) % n
}

func (m *Model) cursorRow(id string, ts *tabState) (topicRow, bool) {
	rows := m.visibleRows(id, ts)
	if len(rows) == 0 {
		return topicRow{}, false
	}
	if ts.cursor < 0 {
		ts.cursor = 0
	}
	if ts.cursor >= len(rows) {
		ts.cursor = len(rows) - 1
	}
	return rows[ts.cursor], true
}

// activateTopicRow toggles expansion on branch rows and selects the row's
// topic so the message pane follows it.
func (m *Model) activateTopicRow(id string, ts *tabState) {
	row, ok := m.cursorRow(id, ts)
	if !ok {
		return
	}
	if row.HasChildren {
		if row.Expanded {
			m.manager.Collapse(id, row.FullPath)
		} else {
			m.manager.Expand(id, row.FullPath)
		}
	}
	m.manager.Select(id, row.FullPath)
}

// toggleConnection reconnects a stopped tab or stops an active one.
func (m *Model) toggleConnection(id string) {
	state, ok := m.manager.State(id)
	if !ok {
		return
	}
	if state.Active() {
		m.manager.Stop(id)
		return
	}
	cfg, ok := m.store.Get(id)
	if !ok {
		cfg = state.Config
	}
	m.errMsg = ""
	m.manager.Start(cfg)
	if _, known := m.store.Get(cfg.ID); known {
		m.markConnected(cfg)
	}
}
