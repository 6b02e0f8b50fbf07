package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xmproxy/webapp/internal/config"
	"github.com/xmproxy/webapp/internal/control"
	"github.com/xmproxy/webapp/internal/eventbus"
	"github.com/xmproxy/webapp/internal/restart"
	"github.com/xmproxy/webapp/internal/server"
	"github.com/xmproxy/webapp/internal/status"
	"github.com/xmproxy/webapp/internal/version"
	"github.com/xmproxy/webapp/internal/xmppconf"
)

var appRoot string

func main() {
	rootCmd := &cobra.Command{
		Use:           "xmproxy-webappd",
		Short:         "xmproxy webapp daemon - relay configuration HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	rootCmd.Version = version.FormatVersion(version.String())
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	rootCmd.Flags().StringVar(&appRoot, "app-root", "/app/xmproxy-webapp", "application install root (for default config lookup)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	paths := config.GetAppPaths()

	if err := config.EnsureAppDirs(paths); err != nil {
		return fmt.Errorf("failed to prepare app directories: %w", err)
	}
	if err := setupLogging(paths); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
	}

	settings := config.LoadSettings(paths, appRoot)

	store := xmppconf.NewStore(paths.LoginFile, paths.PresetsDir, paths.BackupDir, settings.MaxBackups)
	controlClient := control.NewClient(settings.RelayHost, settings.RelayPort, settings.RelayCallTimeout())
	bus := eventbus.New()
	monitor := status.NewMonitor(controlClient, bus, settings.PollInterval())

	orchestrator := restart.New(restart.Options{
		Control:       controlClient,
		Bus:           bus,
		ScriptPath:    paths.RestartScript,
		ScriptTimeout: settings.ScriptTimeout(),
		Binary:        settings.RelayBinary,
		PIDFile:       settings.RelayPIDFile,
		LogFile:       settings.RelayLogFile,
		ConfigFiles:   []string{store.LoginFile()},
	})

	api := server.NewAPIServer(store, controlClient, monitor, orchestrator, bus, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go monitor.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := api.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	log.Printf("xmproxy webapp started (PID: %d)", os.Getpid())
	log.Printf("Listening on %s:%d, relay control at %s", settings.Host, settings.Port, controlClient.Addr())

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %s, shutting down...", sig)
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		bus.Shutdown()
	case err := <-errChan:
		log.Printf("Daemon error: %v", err)
		bus.Shutdown()
		return err
	}

	log.Println("Daemon stopped")
	return nil
}

func setupLogging(paths config.AppPaths) error {
	if err := os.MkdirAll(filepath.Dir(paths.LogFile), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	logFile, err := os.OpenFile(paths.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	multi := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multi)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	log.Printf("=== xmproxy webapp starting (PID: %d) ===", os.Getpid())
	log.Printf("Log file: %s", paths.LogFile)
	return nil
}
