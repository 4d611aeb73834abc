package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/muesli/reflow/truncate"

	"github.com/mqttscope/mqttscope/internal/connection"
	"github.com/mqttscope/mqttscope/internal/topics"
)

const (
	messagePanelMinWidth = 40  // minimum cols for the message panel; below this no split
	messagePanelFraction = 0.5 // fraction of total width given to the message panel
)

type topicRow = topics.VisibleNode

type styledLine struct {
	text          string
	style         *lipgloss.Style
	prefixStyle   *lipgloss.Style
	highlightFrom int
	raw           bool // text contains ANSI escapes; skip style wrapping, use ANSI-aware truncation
}

// View implements tea.Model.
func (m *Model) View() string {
	switch {
	case m.mode == ModeForm && m.form != nil:
		return m.viewConnectionForm()
	case m.mode == ModeConnection && m.publishForm != nil:
		return m.viewPublishForm()
	case m.mode == ModeConnection:
		return m.viewConnection()
	default:
		return m.viewHome()
	}
}

// viewHome renders the saved profile list with identicons and live status.
func (m *Model) viewHome() string {
	lines := make([]styledLine, 0, 16)
	lines = append(lines, styledLine{text: "mqttscope", style: styles.Header})
	lines = append(lines, styledLine{})
	if len(m.store.Connections) == 0 {
		lines = append(lines, styledLine{text: "(no saved connections — press n to add one)", style: styles.Info})
	}
	for i, cfg := range m.store.Connections {
		status := m.manager.Status(cfg.ID)
		lineStyle := styles.Item
		if i == m.homeCursor {
			lineStyle = styles.SelectedItem
		}
		statusStyle := m.statusStyle(status.Kind)
		text := lineStyle.Render("▌") + " " + InlineIdenticon(cfg.ID) + " " +
			lineStyle.Render(fmt.Sprintf("%s  %s  ", cfg.Name, cfg.URI())) +
			statusStyle.Render(status.Text())
		lines = append(lines, styledLine{text: text, raw: true})
	}
	lines = append(lines, styledLine{})
	lines = append(lines, styledLine{
		text:  "↑/↓ move  enter connect  n new  e edit  d delete  q quit",
		style: styles.Footer,
	})
	if info := m.currentInfo(); info != "" {
		lines = append(lines, styledLine{text: info, style: styles.Info})
	}
	if m.errMsg != "" {
		lines = append(lines, styledLine{text: "Error: " + m.errMsg, style: styles.Error})
	}
	lines = limitHeight(lines, m.height, m.width)
	lines = applyWidth(lines, m.width)
	return renderLines(lines)
}

func (m *Model) viewConnectionForm() string {
	f := m.form
	lines := make([]styledLine, 0, 24)
	lines = append(lines, styledLine{text: f.Title(), style: styles.Header})
	lines = append(lines, styledLine{})
	for row, label := range connFormLabels {
		labelStyle := styles.FormLabel
		if row == f.focus {
			labelStyle = styles.FormFocus
		}
		var value string
		if row == connFormProtocolRow {
			value = fmt.Sprintf("◂ %s ▸", f.protocol())
		} else {
			value = f.inputs[f.inputForRow(row)].View()
		}
		lines = append(lines, styledLine{text: fmt.Sprintf("%-10s %s", label, value), style: labelStyle})
	}
	if err := f.Error(); err != "" {
		lines = append(lines, styledLine{})
		lines = append(lines, styledLine{text: err, style: styles.Error})
	}
	lines = append(lines, styledLine{})
	lines = append(lines, styledLine{
		text:  "tab next field  ◂/▸ protocol  ctrl+s save  esc cancel",
		style: styles.Footer,
	})
	lines = limitHeight(lines, m.height, m.width)
	lines = applyWidth(lines, m.width)
	return renderLines(lines)
}

func (m *Model) viewPublishForm() string {
	f := m.publishForm
	lines := make([]styledLine, 0, 12)
	lines = append(lines, styledLine{text: "Publish Message", style: styles.Header})
	lines = append(lines, styledLine{})
	for row, label := range pubFormLabels {
		labelStyle := styles.FormLabel
		if row == f.focus {
			labelStyle = styles.FormFocus
		}
		var value string
		switch row {
		case pubFormQoSRow:
			value = fmt.Sprintf("◂ %d ▸", f.qos)
		case pubFormRetainRow:
			mark := " "
			if f.retain {
				mark = "✓"
			}
			value = fmt.Sprintf("[%s]", mark)
		default:
			value = f.inputs[row].View()
		}
		lines = append(lines, styledLine{text: fmt.Sprintf("%-8s %s", label, value), style: labelStyle})
	}
	if err := f.Error(); err != "" {
		lines = append(lines, styledLine{})
		lines = append(lines, styledLine{text: err, style: styles.Error})
	}
	lines = append(lines, styledLine{})
	lines = append(lines, styledLine{
		text:  "tab next field  ctrl+s publish  esc cancel",
		style: styles.Footer,
	})
	lines = limitHeight(lines, m.height, m.width)
	lines = applyWidth(lines, m.width)
	return renderLines(lines)
}

// visibleRows applies the tab's fuzzy filter to the cached visible nodes.
func (m *Model) visibleRows(id string, ts *tabState) []topicRow {
	rows := m.manager.VisibleNodes(id)
	trimmed := strings.TrimSpace(ts.filter)
	if trimmed == "" {
		return rows
	}
	paths := make([]string, len(rows))
	for i, row := range rows {
		paths[i] = row.FullPath
	}
	ranks := fuzzy.RankFindNormalizedFold(trimmed, paths)
	if len(ranks) > 0 {
		matches := make(map[int]struct{}, len(ranks))
		for _, rank := range ranks {
			matches[rank.OriginalIndex] = struct{}{}
		}
		filtered := make([]topicRow, 0, len(matches))
		for idx, row := range rows {
			if _, ok := matches[idx]; ok {
				filtered = append(filtered, row)
			}
		}
		if len(filtered) > 0 {
			return filtered
		}
	}
	lower := strings.ToLower(trimmed)
	filtered := make([]topicRow, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.FullPath), lower) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func (m *Model) messagePanelWidth() int {
	if m.width <= 0 {
		return 0
	}
	w := int(float64(m.width) * messagePanelFraction)
	if w < messagePanelMinWidth {
		return 0
	}
	return w
}

func (m *Model) viewConnection() string {
	id := m.activeID()
	ts := m.activeTabState()
	if id == "" || ts == nil {
		return m.viewHome()
	}

	header := m.tabBar()
	statusLine := m.statusLine(id)

	rows := m.visibleRows(id, ts)
	if ts.cursor >= len(rows) {
		ts.cursor = len(rows) - 1
	}
	if ts.cursor < 0 {
		ts.cursor = 0
	}

	panelW := m.messagePanelWidth()
	topicW := m.width - panelW
	if m.width <= 0 {
		topicW = 0
	}

	// header + status + blank + bottom bar (error/info + filter prompt)
	maxRows := m.height - 5
	if m.height <= 0 {
		maxRows = len(rows)
	}
	if maxRows < 1 {
		maxRows = 1
	}
	start := clampOffset(ts, len(rows), maxRows)

	topicLines := make([]styledLine, 0, maxRows+1)
	if len(rows) == 0 {
		msg := "(no topics yet)"
		if ts.filter != "" {
			msg = fmt.Sprintf("No matches for %q", ts.filter)
		}
		topicLines = append(topicLines, styledLine{text: msg, style: styles.Info})
	}
	end := start + maxRows
	if end > len(rows) {
		end = len(rows)
	}
	for i := start; i < end; i++ {
		topicLines = append(topicLines, m.buildTopicLine(rows[i], i == ts.cursor, topicW))
	}
	for len(topicLines) < maxRows {
		topicLines = append(topicLines, styledLine{})
	}
	topicLines = applyWidth(topicLines, topicW)

	var topSection string
	if panelW > 0 {
		leftStr := renderLines(topicLines)
		leftRows := strings.Split(leftStr, "\n")
		for i, row := range leftRows {
			w := lipgloss.Width(row)
			if w > topicW {
				leftRows[i] = truncate.StringWithTail(row, uint(topicW-1), "…")
			} else if w < topicW {
				leftRows[i] = row + strings.Repeat(" ", topicW-w)
			}
		}
		leftStr = strings.Join(leftRows, "\n")
		rightStr := m.renderMessagePanel(id, panelW, maxRows)
		topSection = lipgloss.JoinHorizontal(lipgloss.Top, leftStr, rightStr)
	} else {
		msgLines := m.messageLines(id)
		all := append(topicLines, styledLine{})
		all = append(all, msgLines...)
		all = applyWidth(all, m.width)
		topSection = renderLines(all)
	}

	var statusBar styledLine
	switch {
	case m.errMsg != "":
		statusBar = styledLine{text: "Error: " + m.errMsg, style: styles.Error}
	case m.currentInfo() != "":
		statusBar = styledLine{text: m.currentInfo(), style: styles.Info}
	}
	prompt := m.filterPrompt(ts)
	bottom := applyWidth([]styledLine{statusBar, {text: prompt}}, m.width)

	out := []string{header, statusLine, topSection, renderLines(bottom)}
	return strings.Join(out, "\n")
}

func clampOffset(ts *tabState, total, visible int) int {
	if total <= visible {
		ts.offset = 0
		return 0
	}
	if ts.cursor < ts.offset {
		ts.offset = ts.cursor
	}
	if ts.cursor >= ts.offset+visible {
		ts.offset = ts.cursor - visible + 1
	}
	if ts.offset > total-visible {
		ts.offset = total - visible
	}
	if ts.offset < 0 {
		ts.offset = 0
	}
	return ts.offset
}

func (m *Model) tabBar() string {
	parts := make([]string, 0, len(m.tabs))
	for i, id := range m.tabs {
		name := id
		if cfg, ok := m.store.Get(id); ok {
			name = cfg.Name
		}
		label := fmt.Sprintf("%s %s", InlineIdenticon(id), name)
		if i == m.activeTab {
			parts = append(parts, styles.ActiveTab.Render(label))
		} else {
			parts = append(parts, styles.Tab.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) statusStyle(kind connection.StatusKind) *lipgloss.Style {
	switch kind {
	case connection.StatusConnecting:
		return styles.StatusConnecting
	case connection.StatusConnected:
		return styles.StatusConnected
	case connection.StatusError:
		return styles.StatusError
	default:
		return styles.StatusDisconnected
	}
}

func (m *Model) statusLine(id string) string {
	status := m.manager.Status(id)
	style := m.statusStyle(status.Kind)
	text := status.Text()
	stats := ""
	if tree, ok := m.manager.Tree(id); ok {
		stats = fmt.Sprintf("  %d topics, %d messages", tree.TotalTopics, tree.TotalMessages)
	}
	return style.Render(text) + styles.TopicCount.Render(stats)
}

func (m *Model) buildTopicLine(row topicRow, selected bool, width int) styledLine {
	marker := "•"
	if row.HasChildren {
		if row.Expanded {
			marker = "▾"
		} else {
			marker = "▸"
		}
	}
	indent := strings.Repeat("  ", row.Depth)
	count := ""
	if row.MessageCount > 0 {
		count = fmt.Sprintf(" (%d)", row.MessageCount)
	}
	text := indent + marker + " " + row.Name + count
	lineStyle := styles.Item
	if selected {
		lineStyle = styles.SelectedItem
		if width > 0 {
			if pad := width - len([]rune(text)); pad > 0 {
				text += strings.Repeat(" ", pad)
			}
		}
	}
	return styledLine{text: text, style: lineStyle}
}

// messageLines renders the message pane body for the current selection.
func (m *Model) messageLines(id string) []styledLine {
	lines := make([]styledLine, 0, 8)
	topic := m.manager.SelectedTopic(id)
	if topic == "" {
		lines = append(lines, styledLine{text: "(select a topic)", style: styles.Info})
		return lines
	}
	lines = append(lines, styledLine{text: topic, style: styles.PayloadTitle})
	msg, ok := m.manager.SelectedMessage(id)
	if !ok {
		lines = append(lines, styledLine{text: "(no message yet)", style: styles.Info})
		return lines
	}
	meta := fmt.Sprintf("%s  QoS %d", msg.Timestamp.Local().Format("15:04:05"), msg.QoS)
	lines = append(lines, styledLine{text: meta, style: styles.Timestamp})
	if msg.Retain {
		lines = append(lines, styledLine{text: styles.RetainBadge.Render("retained"), raw: true})
	}
	lines = append(lines, styledLine{})
	for _, line := range strings.Split(msg.FormattedPayload(), "\n") {
		lines = append(lines, styledLine{text: line, style: styles.PayloadBody})
	}
	return lines
}

// renderMessagePanel builds the bordered message box with exactly height+2
// rows and totalWidth columns.
func (m *Model) renderMessagePanel(id string, totalWidth, height int) string {
	const (
		tlc = "╭"
		trc = "╮"
		blc = "╰"
		brc = "╯"
		hz  = "─"
		vt  = "│"
	)
	borderStyle := styles.TreeBranch

	innerW := totalWidth - 2
	innerH := height - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}

	titleSeg := " Message "
	dashes := totalWidth - 4 - len([]rune(titleSeg))
	if dashes < 0 {
		dashes = 0
	}
	topLine := borderStyle.Render(tlc+hz) +
		styles.PayloadTitle.Render(titleSeg) +
		borderStyle.Render(strings.Repeat(hz, dashes)+hz+trc)
	bottomLine := borderStyle.Render(blc + strings.Repeat(hz, innerW) + brc)

	content := m.messageLines(id)
	rows := make([]string, 0, height)
	rows = append(rows, topLine)
	for i := 0; i < innerH; i++ {
		var line styledLine
		if i < len(content) {
			line = content[i]
		}
		text := line.text
		if w := lipgloss.Width(text); w > innerW {
			text = truncate.StringWithTail(text, uint(innerW-1), "…")
		}
		if line.style != nil {
			text = line.style.Render(text)
		}
		if w := lipgloss.Width(text); w < innerW {
			text += strings.Repeat(" ", innerW-w)
		}
		rows = append(rows, borderStyle.Render(vt)+text+borderStyle.Render(vt))
	}
	rows = append(rows, bottomLine)
	return strings.Join(rows, "\n")
}

func (m *Model) filterPrompt(ts *tabState) string {
	prompt := "» "
	if styles.FilterPrompt != nil {
		prompt = styles.FilterPrompt.Render(prompt)
	}
	if ts.filter == "" {
		return prompt + styles.TopicCount.Render("(type to filter topics)")
	}
	return prompt + styles.Filter.Render(ts.filter)
}

func limitHeight(lines []styledLine, height, width int) []styledLine {
	if height <= 0 || len(lines) <= height {
		return lines
	}
	if height == 1 {
		return []styledLine{{text: truncateText("…", width)}}
	}
	trimmed := make([]styledLine, 0, height)
	trimmed = append(trimmed, lines[:height-1]...)
	trimmed = append(trimmed, styledLine{text: truncateText("…", width)})
	return trimmed
}

func applyWidth(lines []styledLine, width int) []styledLine {
	if width <= 0 {
		return lines
	}
	result := make([]styledLine, len(lines))
	for i, line := range lines {
		text := line.text
		if line.raw {
			if w := lipgloss.Width(text); w > width {
				text = truncate.StringWithTail(text, uint(width-1), "…")
			}
		} else {
			text = truncateText(text, width)
		}
		result[i] = styledLine{
			text:          text,
			style:         line.style,
			prefixStyle:   line.prefixStyle,
			highlightFrom: line.highlightFrom,
			raw:           line.raw,
		}
	}
	return result
}

func renderLines(lines []styledLine) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		text := line.text
		if line.raw {
			out[i] = text
			continue
		}
		runes := []rune(text)
		if line.highlightFrom > 0 && line.highlightFrom < len(runes) {
			head := string(runes[:line.highlightFrom])
			tail := string(runes[line.highlightFrom:])
			if line.prefixStyle != nil {
				head = line.prefixStyle.Render(head)
			}
			if line.style != nil {
				tail = line.style.Render(tail)
			}
			text = head + tail
		} else if line.style != nil {
			text = line.style.Render(text)
		}
		out[i] = text
	}
	return strings.Join(out, "\n")
}

func truncateText(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "…"
}
