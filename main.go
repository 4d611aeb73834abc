package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/mqttscope/mqttscope/internal/app"
	"github.com/mqttscope/mqttscope/internal/config"
	"github.com/mqttscope/mqttscope/internal/logging"
	"github.com/mqttscope/mqttscope/internal/logging/events"
)

func main() {
	runtimeCfg := config.MustLoad()
	logging.Configure(runtimeCfg.Logging.FilePath)
	logging.SetTraceEnabled(runtimeCfg.Logging.Trace)

	traceStartup(runtimeCfg)

	err := app.Run(runtimeCfg.App)
	events.App.Exit(err)
	if err != nil {
		logging.Error(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func traceStartup(cfg config.Config) {
	events.App.Start(startupTracePayload(cfg))
}

// startupTracePayload bundles runtime context for trace logging.
func startupTracePayload(cfg config.Config) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags))
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	payload := map[string]interface{}{
		"argv":  cfg.Args,
		"flags": flags,
	}
	if exe, err := os.Executable(); err == nil {
		payload["executable"] = exe
	} else {
		payload["executableError"] = err.Error()
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	} else {
		payload["cwdError"] = err.Error()
	}
	payload["terminal"] = inspectTerminal()
	return payload
}

// terminalInfo is the startup snapshot of the controlling terminal. The
// viewport falls back to the terminal size when -width/-height are unset, so
// size-related reports need the environment they happened in.
type terminalInfo struct {
	Streams   map[string]streamInfo `json:"streams"`
	Width     int                   `json:"width,omitempty"`
	Height    int                   `json:"height,omitempty"`
	SizedFrom string                `json:"sized_from,omitempty"`
}

type streamInfo struct {
	TTY    bool   `json:"tty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Error  string `json:"error,omitempty"`
}

// inspectTerminal probes the standard streams; the first one that yields a
// size becomes the reported terminal dimensions.
func inspectTerminal() terminalInfo {
	names := [...]string{"stdin", "stdout", "stderr"}
	files := [...]*os.File{os.Stdin, os.Stdout, os.Stderr}

	info := terminalInfo{Streams: make(map[string]streamInfo, len(names))}
	for i, f := range files {
		var s streamInfo
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			s.TTY = true
			if w, h, err := term.GetSize(fd); err != nil {
				s.Error = err.Error()
			} else {
				s.Width, s.Height = w, h
				if info.SizedFrom == "" {
					info.Width, info.Height = w, h
					info.SizedFrom = names[i]
				}
			}
		}
		info.Streams[names[i]] = s
	}
	return info
}
