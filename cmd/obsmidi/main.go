package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("obsmidi v%s\n", version)
	fmt.Println("MIDI control surface bridge for OBS Studio")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  obsmidi [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that maps faders, buttons and toggles on a MIDI controller to")
	fmt.Println("  obs-websocket requests (scenes, transitions, stream/record, volume),")
	fmt.Println("  and mirrors OBS stream/record state onto the controller's LEDs.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Printf("        YAML configuration file (default %q)\n", defaultConfigPath)
	fmt.Println()
	fmt.Println("  -device string")
	fmt.Println("        Override the controller name substring from the config")
	fmt.Println()
	fmt.Println("  -obs-host string, -obs-port int, -obs-password string")
	fmt.Printf("        obs-websocket endpoint (default %s:%d)\n", defaultOBSHost, defaultOBSPort)
	fmt.Println()
	fmt.Println("  -strict")
	fmt.Println("        Fail on unknown action names instead of ignoring them")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Enable the IPC server on this Unix socket")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -list-devices")
	fmt.Println("        Print available MIDI input ports and exit")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - OBS must run obs-websocket 4.x (default port 4444)")
	fmt.Println("  - Scene switching requires OBS studio mode")
	fmt.Println()
}

func main() {
	os.Exit(run())
}

func run() int {
	defer midi.CloseDriver()

	var (
		configPath  = flag.String("config", defaultConfigPath, "YAML configuration file")
		device      = flag.String("device", "", "Controller name substring (overrides config name)")
		obsHost     = flag.String("obs-host", "", "obs-websocket host")
		obsPort     = flag.Int("obs-port", 0, "obs-websocket port")
		obsPassword = flag.String("obs-password", "", "obs-websocket password")
		strict      = flag.Bool("strict", false, "Fail on unknown action names")
		ipcSocket   = flag.String("ipc-socket", "", "Enable the IPC server on this Unix socket")
		logLevel    = flag.String("log-level", "", "Log level: error, warn, info, debug")
		listDevices = flag.Bool("list-devices", false, "Print available MIDI input ports and exit")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return 0
	}
	if *showVersion {
		printVersion()
		return 0
	}
	if *listDevices {
		for _, name := range ListDevices() {
			fmt.Println(name)
		}
		return 0
	}

	// Only flags given on the command line override the file
	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			overrides.Device = device
		case "obs-host":
			overrides.OBSHost = obsHost
		case "obs-port":
			overrides.OBSPort = obsPort
		case "obs-password":
			overrides.OBSPassword = obsPassword
		case "strict":
			overrides.Strict = strict
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocket
		case "log-level":
			overrides.LogLevel = logLevel
		}
	})

	cfg, err := LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	logger, err := setupLogger(os.Stdout, cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	logger.Debug("starting obsmidi", "version", version)
	logger.Debug("configuration",
		"config", *configPath,
		"device", cfg.Name,
		"channel", cfg.Channel,
		"strict", cfg.Strict,
		"obs", cfg.OBSAddress(),
		"obs_timeout_ms", cfg.OBS.TimeoutMS,
		"ipc_enabled", cfg.IPC.Enabled,
		"ipc_socket", cfg.IPC.SocketPath)

	reg, err := NewRegistry(&cfg, logger)
	if err != nil {
		logger.Error("invalid controller configuration", "error", err)
		return 1
	}

	surface, err := OpenMIDISurface(cfg.Name, uint8(cfg.Channel), logger)
	if err != nil {
		if errors.Is(err, ErrNoDevice) {
			logger.Error("no controller devices found", "name", cfg.Name, "available", ListDevices())
		} else {
			logger.Error("failed to open controller", "error", err)
		}
		return 1
	}
	defer surface.Close()

	client, err := NewOBSClient(cfg.OBSAddress(), cfg.OBS.Password, logger, cfg.OBS.TimeoutMS)
	if err != nil {
		logger.Error("failed to connect to OBS", "error", err)
		return 1
	}
	defer client.Close()

	if plugin, studio, err := client.Version(); err == nil {
		logger.Info("OBS version", "obs_websocket", plugin, "obs_studio", studio)
	}

	if cfg.OBS.Verbose {
		sources, err := client.Sources()
		if err != nil {
			logger.Warn("could not list OBS sources", "error", err)
		}
		for _, s := range sources {
			logger.Info("source detected", "source", s)
		}
	}

	leds := NewLEDs(reg, surface, logger)
	client.Register(leds.HandleOBSEvent)
	if err := syncLEDs(client, leds); err != nil {
		logger.Warn("could not sync LEDs with OBS state", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	bridge := NewBridge(surface, reg, client, logger)
	g.Go(func() error {
		return bridge.Run(gctx)
	})

	if cfg.IPC.Enabled {
		g.Go(func() error {
			return runIPCServer(gctx, ExpandPath(cfg.IPC.SocketPath), surface, leds, logger)
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-client.Done():
			return fmt.Errorf("obs connection lost: %w", errors.Join(errOBSClosed, client.Err()))
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("stopped", "error", err)
		return 1
	}
	logger.Info("shutting down")
	return 0
}

// Concrete collaborators satisfy the interfaces the loop depends on
var (
	_ Remote        = (*OBSClient)(nil)
	_ statusQuerier = (*OBSClient)(nil)
	_ Surface       = (*MIDISurface)(nil)
	_ eventInjector = (*MIDISurface)(nil)
)
