package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"scrollfeed/distance"
	"scrollfeed/frame"
	"scrollfeed/journal"
	"scrollfeed/manifest"
	"scrollfeed/stream"
	"scrollfeed/ui"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("scrollfeed v%s\n", version)
	fmt.Println("Gesture-driven infinite content feed daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  scrollfeed [OPTIONS]")
	fmt.Println("  scrollfeed journal [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Turns wheel, dial and touch input (Linux input devices, the terminal,")
	fmt.Println("  or control clients) into a signed/absolute distance with momentum,")
	fmt.Println("  scrolls a virtualized two-layer content feed with it, and broadcasts")
	fmt.Println("  distance, card, notification and milestone events over WebSocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -items string")
	fmt.Println("        Content manifest: file path or http(s) URL (overrides manifest.items)")
	fmt.Println()
	fmt.Println("  -flashcards string")
	fmt.Println("        Flashcard list: file path or http(s) URL (overrides manifest.flashcards)")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device (overrides input.devices; empty disables)")
	fmt.Println()
	fmt.Println("  -listen string")
	fmt.Printf("        WebSocket/HTTP listen address, empty disables (default %q)\n", defaultListen)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix socket path for control clients (default %q)\n", defaultIPCSocket)
	fmt.Println()
	fmt.Println("  -frame-hz int")
	fmt.Printf("        Frame rate for momentum and re-layout (default %d)\n", defaultFrameHz)
	fmt.Println()
	fmt.Println("  -schedule-mode string")
	fmt.Println("        Card spawn layout: fixed|random (default \"fixed\")")
	fmt.Println()
	fmt.Println("  -seed uint")
	fmt.Println("        Shuffle/gap seed, 0 picks one at random (default 0)")
	fmt.Println()
	fmt.Println("  -terminal")
	fmt.Println("        Draw the feed in the terminal (logs go to -log-file)")
	fmt.Println()
	fmt.Println("  -journal string")
	fmt.Println("        SQLite session journal path, empty disables")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-file string")
	fmt.Println("        Write logs to this file instead of stdout")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Headless with a scroll wheel and a remote manifest")
	fmt.Println("  scrollfeed -input-device /dev/input/event4 -items https://example.org/manifest.json")
	fmt.Println()
	fmt.Println("  # Terminal viewer with a session journal")
	fmt.Println("  scrollfeed -config ~/.config/scrollfeed.yaml -terminal -journal ~/.local/state/scrollfeed.db")
	fmt.Println()
	fmt.Println("  # Watch the event stream")
	fmt.Println("  ws_listen -ws ws://127.0.0.1:8088/ws")
	fmt.Println()
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "journal" {
		runJournalCommand(os.Args[2:])
		return
	}

	for _, arg := range os.Args[1:] {
		switch arg {
		case "-version", "--version":
			printVersion()
			return
		case "-help", "--help", "-h":
			printUsage()
			return
		}
	}

	var (
		configPath = flag.String("config", "", "Path to YAML config file")

		items       = flag.String("items", "", "Content manifest path or URL")
		flashcards  = flag.String("flashcards", "", "Flashcard list path or URL")
		inputDevice = flag.String("input-device", "", "Linux input event device")
		listen      = flag.String("listen", defaultListen, "WebSocket/HTTP listen address")
		ipcSocket   = flag.String("ipc-socket", defaultIPCSocket, "Unix socket path for control clients")
		frameHz     = flag.Int("frame-hz", defaultFrameHz, "Frame rate in Hz")
		mode        = flag.String("schedule-mode", "fixed", "Card spawn layout: fixed|random")
		seed        = flag.Uint64("seed", 0, "Shuffle/gap seed (0 = random)")
		terminal    = flag.Bool("terminal", false, "Draw the feed in the terminal")
		journalPath = flag.String("journal", "", "SQLite session journal path")
		logLevel    = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		logFile     = flag.String("log-file", "", "Log file path")
	)
	flag.Usage = printUsage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "items":
			ov.Items = items
		case "flashcards":
			ov.Flashcards = flashcards
		case "input-device":
			ov.InputDevice = inputDevice
		case "listen":
			ov.Listen = listen
		case "ipc-socket":
			ov.IPCSocket = ipcSocket
		case "frame-hz":
			ov.FrameHz = frameHz
		case "schedule-mode":
			ov.ScheduleMode = mode
		case "seed":
			ov.Seed = seed
		case "terminal":
			ov.Terminal = terminal
		case "journal":
			ov.Journal = journalPath
		case "log-level":
			ov.LogLevel = logLevel
		case "log-file":
			ov.LogFile = logFile
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logOut, closeLog, err := openLogOutput(cfg.Logging, cfg.Terminal.Enabled)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	logger := setupLogger(level, logOut)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	// Manifest
	loader := &manifest.Loader{
		Timeout: time.Duration(cfg.Manifest.FetchTimeoutMS) * time.Millisecond,
		Logger:  logger,
	}
	m, err := loader.Load(ctx, cfg.Manifest.Items, cfg.Manifest.Flashcards)
	if err != nil {
		logger.Error("failed to load manifest", "error", err)
		os.Exit(1)
	}

	s := cfg.Stream.Seed
	if s == 0 {
		s = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
	logger.Debug("feed seed", "seed", s)

	// Daemon-owned components
	sched := frame.NewScheduler(frame.SystemClock{}, cfg.Engine.FrameHz)
	engine := distance.New(cfg.ToEngineConfig(), sched, logger)
	surface := ui.NewSurface(cfg.Terminal.RowPixels, m.Flashcard)
	feed := stream.New[manifest.Item](cfg.ToStreamConfig(), m.Items, m.Images(), surface, sched, rng, logger)

	ocfg, err := cfg.overlayConfig()
	if err != nil {
		logger.Error("invalid schedule config", "error", err)
		os.Exit(1)
	}
	overlays, err := newOverlayTracker(ocfg, m.Flashcards, rng, nil)
	if err != nil {
		logger.Error("failed to build spawn schedule", "error", err)
		os.Exit(1)
	}

	// Journal
	var recorder *journal.Recorder
	recorderDone := make(chan struct{})
	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()
	if cfg.Journal.Path != "" {
		store, err := journal.NewStore(ExpandPath(cfg.Journal.Path))
		if err != nil {
			logger.Error("failed to open journal", "path", cfg.Journal.Path, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		if n, meters, err := store.Totals(); err == nil {
			logger.Info("journal opened",
				"path", cfg.Journal.Path,
				"sessions", humanize.Comma(n),
				"absolute_meters", humanize.FormatFloat("#,###.##", meters))
		}
		recorder = journal.NewRecorder(store, journal.DefaultQueueSize, logger)
		go func() {
			defer close(recorderDone)
			recorder.Run(journalCtx)
		}()
	} else {
		close(recorderDone)
	}

	actions := make(chan Action, actionQueueSize)
	broadcasts := make(chan StateBroadcast, broadcastQueueSize)

	// Terminal viewer
	var viewer *ui.Viewer
	viewerErr := make(chan error, 1)
	if cfg.Terminal.Enabled {
		send := func(a Action) {
			select {
			case actions <- a:
			default:
				logger.Warn("action queue full, dropping terminal input")
			}
		}
		view := ui.NewFeedView(surface).
			SetWheelFunc(func(px float64) { send(WheelScroll{Pixels: px}) }).
			SetResetFunc(func() { send(ResetDistance{}) }).
			SetQuitFunc(cancel).
			SetResizeFunc(func(h float64) { send(Resize{Height: h}) })
		view.WheelPixels = cfg.Input.WheelPixelsPerDetent
		viewer = ui.NewViewer(view, nil)
	}

	opts := daemonOptions{Broadcasts: broadcasts, Journal: recorder}
	if viewer != nil {
		opts.Invalidate = viewer.Invalidate
	}
	st := newDaemonState(sched, engine, feed, surface, overlays, opts, logger)

	daemonDone := make(chan struct{})
	go func() {
		defer close(daemonDone)
		runDaemon(ctx, actions, st, logger)
	}()

	// WebSocket + HTTP
	if cfg.Server.Listen != "" {
		srv := NewStateServer(logger, actions, StateServerConfig{})
		mux := http.NewServeMux()
		srv.Register(mux)
		go srv.Hub().Run(ctx)
		go RunBroadcaster(ctx, srv.Hub(), broadcasts, logger)
		go func() {
			if err := runHTTPServer(ctx, cfg.Server.Listen, mux, logger); err != nil {
				logger.Error("http server error", "error", err)
			}
		}()
	} else {
		// Nobody consumes broadcasts; drain so the daemon's drops stay quiet.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-broadcasts:
				}
			}
		}()
	}

	// IPC
	if cfg.Server.IPCSocket != "" {
		go func() {
			if err := runIPCServer(ctx, cfg.Server.IPCSocket, actions, logger); err != nil {
				logger.Error("IPC server error", "error", err)
			}
		}()
	}

	// Input devices
	readErr := make(chan error, len(cfg.Input.Devices)+1)
	if files := openInputDevices(cfg.Input.Devices, logger); len(files) > 0 {
		defer func() {
			for _, f := range files {
				f.Close()
			}
		}()
		events := make(chan inputEvent, 256)
		startInputReaders(files, events, readErr)
		go translateInput(events, newEvdevTranslator(cfg.evdevConfig()), actions, logger)
	}

	if viewer != nil {
		go func() {
			viewerErr <- viewer.Run()
		}()
	}

	logger.Info("scrollfeed started",
		"version", version,
		"items", len(m.Items),
		"flashcards", len(m.Flashcards),
		"devices", len(cfg.Input.Devices),
		"listen", cfg.Server.Listen,
		"ipc_socket", cfg.Server.IPCSocket,
		"terminal", cfg.Terminal.Enabled,
		"journal", cfg.Journal.Path != "")

	for running := true; running; {
		select {
		case sig := <-sigc:
			logger.Info("shutting down", "signal", sig.String())
			running = false

		case <-ctx.Done():
			logger.Info("shutting down")
			running = false

		case err := <-readErr:
			// Losing an input device is not fatal; the other inputs keep working.
			logger.Error("input device error", "error", err)

		case err := <-viewerErr:
			if err != nil {
				logger.Error("terminal viewer error", "error", err)
			}
			running = false
		}
	}

	cancel()
	if viewer != nil {
		viewer.Stop()
	}
	<-daemonDone
	// The daemon has queued its last journal write; let the recorder drain it.
	stopJournal()
	<-recorderDone
}
