package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/sceneshift/sceneshift/internal/config"
	"github.com/sceneshift/sceneshift/internal/daemon"
	"github.com/sceneshift/sceneshift/internal/ipc"
	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/scene"
	"github.com/sceneshift/sceneshift/internal/tracker"
	"github.com/sceneshift/sceneshift/internal/visibility"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: sceneshift daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: sceneshift daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "scenes":
		os.Exit(runScenes(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "switch":
		os.Exit(runSwitch(os.Args[2:]))
	case "desktop":
		os.Exit(runDesktop(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "float":
		os.Exit(runFloat(os.Args[2:]))
	case "icons":
		os.Exit(runIcons(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: sceneshift <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the sceneshift daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  scenes              List scenes and the active selection")
	fmt.Fprintln(w, "  windows             List windows in the active scene")
	fmt.Fprintln(w, "  switch <scene>      Switch to a scene by id")
	fmt.Fprintln(w, "  desktop             Switch to the desktop (hide all scenes)")
	fmt.Fprintln(w, "  move                Move a window to another scene")
	fmt.Fprintln(w, "  float               Toggle floating for the focused window")
	fmt.Fprintln(w, "  icons on|off        Show or hide desktop icons")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'sceneshift <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("current_scene:  %s\n", formatScene(status.CurrentScene))
	fmt.Printf("scene_count:    %d\n", status.SceneCount)
	fmt.Printf("window_count:   %d\n", status.WindowCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatScene(id string) string {
	if id == "" {
		return "(desktop)"
	}
	return id
}

func runScenes(args []string) int {
	fs := flag.NewFlagSet("scenes", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift scenes [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List scenes with their windows; the active scene is marked with '*'.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output scene details as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	data, err := client.ListScenes()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(data)
	}
	if len(data.Scenes) == 0 {
		fmt.Println("no scenes")
		return 0
	}
	for _, s := range data.Scenes {
		marker := " "
		if s.ID == data.Current {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  (%d windows)\n", marker, s.ID, s.Title, len(s.Windows))
		for _, w := range s.Windows {
			fmt.Printf("    %#x  %s  %s\n", w.Handle, w.Process, w.Title)
		}
	}
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift windows [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List the windows of the active scene (all tracked windows on the desktop).")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output window details as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	data, err := client.ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(data)
	}
	for _, w := range data.Windows {
		fmt.Printf("%#x  pid=%d  %s  %s\n", w.Handle, w.PID, w.Process, w.Title)
	}
	return 0
}

func runSwitch(args []string) int {
	fs := flag.NewFlagSet("switch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift switch <scene-id>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Make the given scene the only visible one.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "switch requires <scene-id>")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.SwitchScene(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runDesktop(args []string) int {
	fs := flag.NewFlagSet("desktop", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift desktop")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Hide all scenes and show the bare desktop.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if err := client.Desktop(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift move --window <handle> [--from <scene-id>] --to <scene-id>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Move a window to another scene. The handle accepts decimal or 0x hex.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	windowArg := fs.String("window", "", "Window handle")
	fromScene := fs.String("from", "", "Source scene id (resolved from the window when omitted)")
	toScene := fs.String("to", "", "Target scene id")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *windowArg == "" || *toScene == "" {
		fmt.Fprintln(os.Stderr, "move requires --window and --to")
		fs.Usage()
		return 2
	}
	handle, err := strconv.ParseUint(*windowArg, 0, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window handle %q: %v\n", *windowArg, err)
		return 2
	}

	client := ipc.NewClient()
	if err := client.MoveWindow(handle, *fromScene, *toScene); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runFloat(args []string) int {
	fs := flag.NewFlagSet("float", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift float")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Toggle floating for the focused window. Floating windows stay visible")
		fmt.Fprintln(os.Stderr, "across scene switches.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if err := client.ToggleFloat(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runIcons(args []string) int {
	fs := flag.NewFlagSet("icons", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift icons on|off")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show or hide the desktop icon layer.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 || (fs.Arg(0) != "on" && fs.Arg(0) != "off") {
		fmt.Fprintln(os.Stderr, "icons requires 'on' or 'off'")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.SetIcons(fs.Arg(0) == "on"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sceneshift reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the running daemon to reload its configuration file.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if err := client.Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  sceneshift config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  sceneshift config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/sceneshift/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/sceneshift/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var cfg *config.Config
		var err error
		switch {
		case *printDefaults:
			cfg = config.Default()
		case *path == "":
			cfg, err = config.Load()
		default:
			cfg, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := config.Print(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(out)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded (hide_desktop_icons: %v, fade: %s/%d steps)",
		cfg.HideDesktopIcons, cfg.FadeDuration, cfg.FadeSteps)

	backend := platform.NewBackend()
	engine := visibility.New(backend, cfg.FadeDuration, cfg.FadeSteps)
	hub := tracker.New(backend, cfg.Policy, cfg.ShortClickMax)

	coordLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	coord := scene.New(engine, backend, hub, cfg.Policy, scene.Options{
		HideDesktopIcons: cfg.HideDesktopIcons,
		ReentrancyWindow: cfg.ReentrancyWindow,
		DestroyGrace:     cfg.DestroyGrace,
		ToggleDebounce:   cfg.ToggleDebounce,
		Logger:           coordLogger,
	})
	hub.Subscribe(coord.Listener())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hub.Start(ctx); err != nil {
		log.Fatalf("Failed to start window tracking: %v", err)
	}
	log.Println("sceneshift daemon started successfully")

	// Pre-existing windows form their scenes without triggering a switch.
	coord.Bootstrap(hub.Windows())

	reloadChan := make(chan struct{}, 1)

	ipcServer, err := ipc.NewServer(coord, hub, reloadChan)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: cfg.ReconcileInterval,
		Logger:   coordLogger,
	}, hub, backend)
	reconciler.ReconcileNow()
	go reconciler.Run(ctx)

	// Watch the config file so edits apply without a manual reload.
	if watcher, werr := fsnotify.NewWatcher(); werr != nil {
		log.Printf("Warning: config file watching unavailable: %v", werr)
	} else {
		defer watcher.Close()
		if path, perr := config.DefaultConfigPath(); perr == nil {
			if aerr := watcher.Add(filepath.Dir(path)); aerr != nil {
				log.Printf("Warning: failed to watch config directory: %v", aerr)
			} else {
				go forwardConfigChanges(watcher, path, reloadChan)
			}
		}
	}

	applyConfig := func() {
		newCfg, err := config.Load()
		if err != nil {
			log.Printf("Config reload failed: %v", err)
			return
		}
		hub.UpdateRules(newCfg.Policy)
		engine.SetFade(newCfg.FadeDuration, newCfg.FadeSteps)
		coord.UpdateConfig(newCfg.Policy, scene.Options{
			HideDesktopIcons: newCfg.HideDesktopIcons,
			ReentrancyWindow: newCfg.ReentrancyWindow,
			DestroyGrace:     newCfg.DestroyGrace,
			ToggleDebounce:   newCfg.ToggleDebounce,
			Logger:           coordLogger,
		})
		cfg = newCfg
		log.Println("Config reloaded successfully")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading config...")
				applyConfig()

			case os.Interrupt, syscall.SIGTERM:
				log.Println("Shutting down sceneshift daemon...")
				// Every hidden window comes back before the process exits.
				engine.RestoreAll()
				if cfg.HideDesktopIcons {
					_ = backend.SetDesktopIconsVisible(true)
				}
				ipcServer.Stop()
				hub.Stop()
				return
			}

		case <-reloadChan:
			applyConfig()
		}
	}
}

// forwardConfigChanges turns writes to the config file into reload requests.
func forwardConfigChanges(watcher *fsnotify.Watcher, path string, reload chan<- struct{}) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case reload <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}
