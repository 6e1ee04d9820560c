package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpm-project/gpm/internal/config"
	"github.com/gpm-project/gpm/internal/logger"
	"github.com/gpm-project/gpm/internal/metrics"
	"github.com/gpm-project/gpm/internal/server"
	"github.com/gpm-project/gpm/internal/store"
	"github.com/gpm-project/gpm/internal/supervisor"
)

func newDaemonCmd(gf *GlobalFlags) *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the gpm daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !foreground {
				return spawnDaemon(gf.ConfigPath)
			}
			return runDaemon(gf)
		},
	}
	cmd.Flags().BoolVar(&foreground, "foreground", false, "stay in the foreground instead of daemonizing")
	return cmd
}

// spawnDaemon re-executes this binary as a detached background daemon.
func spawnDaemon(configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	args := []string{"daemon", "--foreground"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	c := exec.Command(executable, args...)
	daemonAttrs(c)
	c.Stdin = nil
	c.Stdout = nil
	c.Stderr = nil
	if err := c.Start(); err != nil {
		return fmt.Errorf("start daemon process: %w", err)
	}
	fmt.Printf("Daemon started with PID %d\n", c.Process.Pid)
	return nil
}

func runDaemon(gf *GlobalFlags) error {
	cfg, err := config.Load(gf.ConfigPath)
	if err != nil {
		return err
	}
	if gf.Socket != "" {
		cfg.Daemon.Socket = gf.Socket
	}
	if gf.Port != 0 {
		cfg.Daemon.Port = gf.Port
	}
	if err := os.MkdirAll(cfg.Daemon.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	log := setupDaemonLog(cfg)
	_ = metrics.Register(nil)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	sup := supervisor.New(
		supervisor.WithLimits(cfg.Limits()),
		supervisor.WithLogDefaults(cfg.LogDefaults()),
		supervisor.WithStore(st),
		supervisor.WithLogger(log),
	)

	// Processes declared in the config file start with the daemon.
	for _, spec := range cfg.Specs() {
		if err := sup.Start(spec); err != nil {
			log.Error("config process failed to start", "process", spec.Name, "error", err)
		}
	}

	killCh := make(chan struct{}, 1)
	router := server.NewRouter(sup, func() {
		select {
		case killCh <- struct{}{}:
		default:
		}
	})
	srv, err := server.New(router, cfg.Daemon.Socket, cfg.Daemon.Port)
	if err != nil {
		return err
	}
	log.Info("daemon listening", "endpoint", srv.Addr(), "pid", os.Getpid())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down on signal", "signal", sig.String())
	case <-killCh:
		log.Info("shutting down on kill request")
	case err := <-serveErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Daemon.GracePeriod))
	defer cancel()
	_ = srv.Shutdown(shutCtx)
	sup.Shutdown(shutCtx)
	log.Info("daemon stopped")
	return nil
}

// shutdownTimeout bounds daemon shutdown at twice the stop grace period so
// every instance gets one full graceful attempt plus escalation to kill.
func shutdownTimeout(grace time.Duration) time.Duration {
	if grace <= 0 {
		return 30 * time.Second
	}
	return 2 * grace
}

// setupDaemonLog writes the daemon's own log under the data directory with
// the same rotation stack used for process output, and mirrors to stderr
// with colors when running in the foreground on a terminal.
func setupDaemonLog(cfg config.Config) *slog.Logger {
	logPath := filepath.Join(cfg.Daemon.DataDir, "daemon.log")
	w := logger.RotatingWriter(logPath, cfg.LogDefaults())
	if isTerminal(os.Stderr) {
		return logger.Setup(os.Stderr, slog.LevelInfo, true)
	}
	return logger.Setup(w, slog.LevelInfo, false)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
