package ui

import "testing"

func TestTruncateTextRespectsWidth(t *testing.T) {
	if got := truncateText("hello world", 5); got != "hell…" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateText("hi", 5); got != "hi" {
		t.Fatalf("expected short text unchanged, got %q", got)
	}
	if got := truncateText("héllo", 3); got != "hé…" {
		t.Fatalf("expected rune-aware truncation, got %q", got)
	}
}

func TestClampOffsetFollowsCursor(t *testing.T) {
	ts := &tabState{}
	if off := clampOffset(ts, 3, 10); off != 0 {
		t.Fatalf("expected no scrolling when everything fits, got %d", off)
	}
	ts.cursor = 9
	if off := clampOffset(ts, 20, 5); off != 5 {
		t.Fatalf("expected offset to track cursor downward, got %d", off)
	}
	ts.cursor = 2
	if off := clampOffset(ts, 20, 5); off != 2 {
		t.Fatalf("expected offset to track cursor upward, got %d", off)
	}
}

func TestBuildTopicLineMarkers(t *testing.T) {
	m := &Model{}
	branch := topicRow{Name: "sensors", FullPath: "sensors", HasChildren: true}
	line := m.buildTopicLine(branch, false, 0)
	if got := line.text; got != "▸ sensors" {
		t.Fatalf("unexpected collapsed branch line %q", got)
	}
	branch.Expanded = true
	if got := m.buildTopicLine(branch, false, 0).text; got != "▾ sensors" {
		t.Fatalf("unexpected expanded branch line %q", got)
	}
	leaf := topicRow{Name: "temp", FullPath: "sensors/temp", Depth: 1, HasMessages: true, MessageCount: 7}
	if got := m.buildTopicLine(leaf, false, 0).text; got != "  • temp (7)" {
		t.Fatalf("unexpected leaf line %q", got)
	}
}
