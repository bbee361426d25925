// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/dicebox/internal/api/connect"
	"github.com/osa030/dicebox/internal/app/game"
	"github.com/osa030/dicebox/internal/domain/fragment"
	"github.com/osa030/dicebox/internal/domain/piece"
	"github.com/osa030/dicebox/internal/infra/audio"
	"github.com/osa030/dicebox/internal/infra/config"
	"github.com/osa030/dicebox/internal/infra/logger"
)

const defaultConfigPath = "config/server.yaml"

var (
	app        = kingpin.New("dicebox-server", "dicebox musical dice game server")
	configPath = app.Flag("config", "Path to config file (default: "+defaultConfigPath+" when present)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	startCmd      = app.Command("start", "Start the server (default)").Default()
	playCmd       = app.Command("play", "Draw one minuet, play it on this machine and exit")
	listPiecesCmd = app.Command("list-pieces", "List the full pieces and their files and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if command == listPiecesCmd.FullCommand() {
		printPieces(cfg)
		return
	}

	// Command-line flags override the config file
	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	switch command {
	case startCmd.FullCommand():
		err = run(cfg)
	case playCmd.FullCommand():
		err = playOnce(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("Server error: %+v", err)
		os.Exit(1)
	}
}

// loadConfig reads path, falling back to the default file and then to
// built-in defaults when no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return config.Load(defaultConfigPath)
	}
	return config.Default(), nil
}

func newGame(cfg *config.Config) (*game.Manager, *audio.Loader, error) {
	loader, err := audio.NewLoader(cfg.Audio.Backend, cfg.Assets.Root, cfg.Audio.Settings)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create audio loader")
	}

	mgr, err := game.NewManager(cfg, loader)
	if err != nil {
		loader.Close()
		return nil, nil, errors.Wrap(err, "failed to create game manager")
	}
	return mgr, loader, nil
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	mgr, loader, err := newGame(cfg)
	if err != nil {
		return err
	}
	defer loader.Close()

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		// The initial selection may fail on a bad asset; clients can retry.
		zlog.Error().Msgf("Failed to build initial selection: %v", err)
	}

	var opts []connect.HandlerOption
	if cfg.IsControlProtected() {
		opts = append(opts, connect.WithInterceptors(apiconnect.NewControlTokenInterceptor(cfg.Server.ControlToken)))
	} else {
		zlog.Warn().Msg("Control token not configured, any client may control the game")
	}

	mux := http.NewServeMux()
	path, handler := apiconnect.NewHandler(apiconnect.NewGameService(mgr), opts...)
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s backend=%s assets=%s", cfg.Server.Addr, cfg.Audio.Backend, cfg.Assets.Root)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the game first to stop sound and end subscription streams
	mgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// playOnce draws a selection, plays it through and returns when the
// sequence has finished or the process is interrupted.
func playOnce(cfg *config.Config) error {
	mgr, loader, err := newGame(cfg)
	if err != nil {
		return err
	}
	defer loader.Close()
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		return err
	}

	waiter := newFinishWaiter(cfg.Messages.PlayAgain)
	notifManager := mgr.GetNotificationManager()
	id := notifManager.Subscribe(waiter)
	defer notifManager.Unsubscribe(id)

	if _, err := mgr.TogglePlay(ctx); err != nil {
		return err
	}
	zlog.Info().Msgf("Playing minuet: %v", mgr.Status().Selection)

	select {
	case err := <-waiter.done:
		if err != nil {
			return err
		}
		zlog.Info().Msg("Minuet finished")
	case <-ctx.Done():
		zlog.Info().Msg("Interrupted")
	}
	return nil
}

func printPieces(cfg *config.Config) {
	labels := fragment.NormalizeLabels(cfg.Game.Labels)
	fmt.Println("Available Pieces:")
	for _, p := range piece.Originals(labels, cfg.Assets.Full, cfg.Assets.Extension) {
		fmt.Printf("  %-3s %-14s %s\n", p.Label, p.Name, p.Path)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
