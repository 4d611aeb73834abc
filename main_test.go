package main

import (
	"testing"
	"time"

	"github.com/mqttscope/mqttscope/internal/app"
	"github.com/mqttscope/mqttscope/internal/config"
)

func TestInspectTerminalCoversStandardStreams(t *testing.T) {
	info := inspectTerminal()
	if len(info.Streams) != 3 {
		t.Fatalf("expected 3 stream entries, got %d", len(info.Streams))
	}
	for _, name := range []string{"stdin", "stdout", "stderr"} {
		if _, ok := info.Streams[name]; !ok {
			t.Fatalf("expected stream entry for %q", name)
		}
	}
	if info.SizedFrom != "" && (info.Width <= 0 || info.Height <= 0) {
		t.Fatalf("sized terminal reported non-positive dimensions %dx%d", info.Width, info.Height)
	}
}

func TestStartupTracePayloadIncludesFlags(t *testing.T) {
	cfg := config.Config{
		App: app.Config{
			ProfilePath:  "profiles.json",
			Width:        80,
			Height:       24,
			TickInterval: 50 * time.Millisecond,
		},
		Logging: config.Logging{
			FilePath: "trace.log",
			Trace:    true,
		},
		Flags: map[string]string{
			"profiles": "profiles.json",
			"width":    "80",
			"height":   "24",
			"tickMS":   "50",
			"trace":    "true",
			"logFile":  "trace.log",
		},
		Args: []string{"-profiles", "profiles.json"},
	}

	payload := startupTracePayload(cfg)

	flagsValue, ok := payload["flags"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected flags map in payload")
	}
	if flagsValue["profiles"] != "profiles.json" {
		t.Fatalf("expected profiles flag, got %v", flagsValue["profiles"])
	}
	if flagsValue["width"] != "80" {
		t.Fatalf("expected width 80, got %v", flagsValue["width"])
	}
	if flagsValue["logFile"] != "trace.log" {
		t.Fatalf("expected log file trace.log, got %v", flagsValue["logFile"])
	}

	if _, ok := payload["terminal"].(terminalInfo); !ok {
		t.Fatalf("expected terminal details in payload")
	}
	argv, ok := payload["argv"].([]string)
	if !ok || len(argv) != 2 {
		t.Fatalf("expected argv in payload, got %v", payload["argv"])
	}
}
