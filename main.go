package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"keysynth/input"
	"keysynth/internal/clients"
	"keysynth/internal/config"
	in "keysynth/internal/input"
	"keysynth/internal/logging"
	"keysynth/internal/peer"
	"keysynth/internal/server"
	"keysynth/internal/tag"
	t "keysynth/internal/types"
)

const usage = `usage: keysynth [-config path] [-log-level level] [mode] [args]

modes:
  server                 serve /ws and /api/events (default, or $MODE)
  peer                   accept events on a WebRTC "input" DataChannel
  type <text...>         type text into the focused window
  press <vk|key>         press one virtual key (e.g. 0x0D) or named key
  shift-enter            emit Shift+Enter
  tag <name> [k=v ...]   type <name k="v">, two Shift+Enter, </name>, Up
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "keysynth:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("keysynth", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "Path to config file (default: ./keysynth.yaml if present)")
	logLevel := fs.String("log-level", "", "Override log level (trace, debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToLower(*logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	factory, err := logging.NewFactory(logging.Options{Level: cfg.Logging.Level, Output: stderr})
	if err != nil {
		return err
	}
	log := factory.NewLogger("main")
	log.Debugf("config loaded from %s", cfg.Source)

	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" {
		// robotgo needs an X display.
		os.Setenv("DISPLAY", ":0")
	}

	k := input.NewPlatform(
		input.WithDelays(cfg.Typing.Delays()),
		input.WithLogger(factory.NewLogger("input")),
	)
	dispatcher := in.NewDispatcher(k, cfg.Typing.TagDelay(), factory.NewLogger("dispatch"))

	mode, rest := cfg.Mode, fs.Args()
	if len(rest) > 0 {
		mode, rest = strings.ToLower(rest[0]), rest[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case config.ModeServer:
		srv := server.New(server.Config{
			Addr:            cfg.Server.Addr,
			ReadLimit:       cfg.Server.ReadLimit,
			PongTimeout:     time.Duration(cfg.Server.PongTimeoutSeconds) * time.Second,
			ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSecs) * time.Second,
			Manager:         clients.NewManager(),
			Dispatcher:      dispatcher,
			Logger:          factory.NewLogger("server"),
		})
		return srv.Run(ctx)
	case config.ModePeer:
		p, err := peer.New(peer.Config{
			STUNURLs:    cfg.Peer.STUNURLs,
			OpenTimeout: time.Duration(cfg.Peer.OpenTimeoutSeconds) * time.Second,
			Dispatcher:  dispatcher,
			Logger:      factory.NewLogger("peer"),
		})
		if err != nil {
			return err
		}
		return p.Run(ctx, stdin, stdout)
	}

	ev, err := cliEvent(mode, rest)
	if err != nil {
		fs.Usage()
		return err
	}
	// Start delay lets the launching keystroke finish first.
	select {
	case <-time.After(cfg.Typing.StartDelay()):
	case <-ctx.Done():
		return ctx.Err()
	}
	return dispatcher.HandleEvent(ev)
}

// cliEvent turns a one-shot command line into the Event the dispatcher runs.
func cliEvent(mode string, args []string) (t.Event, error) {
	switch mode {
	case "type":
		if len(args) == 0 {
			return t.Event{}, errors.New("type: missing text")
		}
		return t.Event{Type: t.EventType, Text: strings.Join(args, " ")}, nil
	case "press":
		if len(args) != 1 {
			return t.Event{}, errors.New("press: expected one key")
		}
		if len(args[0]) > 1 {
			if vk, err := strconv.ParseUint(args[0], 0, 8); err == nil && vk != 0 {
				return t.Event{Type: t.EventPress, KeyCode: int(vk)}, nil
			}
		}
		return t.Event{Type: t.EventPress, Key: args[0]}, nil
	case "shift-enter", "shift_enter":
		return t.Event{Type: t.EventShiftEnter}, nil
	case "tag":
		if len(args) == 0 {
			return t.Event{}, errors.New("tag: missing name")
		}
		ev := t.Event{Type: t.EventTag, Tag: args[0]}
		for _, a := range tag.ParseAttributes(args[1:]) {
			ev.Attributes = append(ev.Attributes, t.Attribute{Key: a.Key, Value: a.Value})
		}
		return ev, nil
	default:
		return t.Event{}, fmt.Errorf("unknown mode %q", mode)
	}
}
