package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/modoterra/tender/internal/buildinfo"
	"github.com/modoterra/tender/internal/logging"
	"github.com/modoterra/tender/pkg/daemon"
	"github.com/modoterra/tender/pkg/hooks"
	"github.com/modoterra/tender/pkg/lineproc"
	"github.com/modoterra/tender/pkg/logs"
	"github.com/modoterra/tender/pkg/manifest"
	"github.com/modoterra/tender/pkg/notify"
	"github.com/modoterra/tender/pkg/rotate"
	"github.com/modoterra/tender/pkg/schedule"
	"github.com/modoterra/tender/pkg/transport/uds"
)

var configPath string

// exitCode carries the supervisor's exit status out of cobra.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "tender [flags] [-- command args...]",
	Short: "Container entrypoint supervisor",
	Long: "Tender launches one long-running application, normalizes and colors its log output, " +
		"runs hook scripts on a schedule and stops the application gracefully on SIGTERM.",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSupervisor,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to tender.yaml or tender.toml")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(configCmd)
}

func defaultConfigPath() string {
	if p := os.Getenv("TENDER_CONFIG"); p != "" {
		return p
	}
	return manifest.DefaultFile
}

// loadManifest reads the config file. A missing file yields the defaults
// and a nil error; the returned bool reports whether a file was read.
func loadManifest() (*manifest.Manifest, bool, error) {
	m, err := manifest.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return manifest.Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// logConfig layers the manifest's log settings under the environment.
func logConfig(m *manifest.Manifest) *logging.Config {
	cfg := logging.FromEnv()
	if m.Log.Level != "" && os.Getenv("TENDER_DEBUG") == "" && os.Getenv("TENDER_LOG_LEVEL") == "" && os.Getenv("LOG_LEVEL") == "" {
		cfg.Level = m.Log.Level
	}
	if m.Log.Format != "" && os.Getenv("LOG_FORMAT") == "" {
		cfg.Format = logging.Format(m.Log.Format)
	}
	return cfg
}

// --- Run ---

func runSupervisor(cmd *cobra.Command, args []string) error {
	m, found, err := loadManifest()
	if err != nil {
		return err
	}

	engine, _ := m.Rules(os.Stdout) // invalid specs are reported by Validate
	proc := lineproc.New(m.ProcessorConfig(), engine, lineproc.WithOutput(cmd.OutOrStdout()))

	logCfg := logConfig(m)
	logCfg.Emitter = proc
	logger := logging.New(logCfg)
	slog.SetDefault(logger)

	cfgLog := logging.WithComponent(logger, "config")
	cfgLog.Info("starting", "version", buildinfo.Version)
	if found {
		cfgLog.Info("config loaded", "path", m.FilePath)
	} else {
		cfgLog.Warn("no config file, using defaults", "path", configPath)
	}
	for _, e := range manifest.Validate(m) {
		cfgLog.Warn("config validation", "error", e)
	}

	agg, err := logs.New(m.LogsConfig(), proc, logger)
	if err != nil {
		return err
	}

	vars := hooks.NewContext(nil)
	runner := hooks.NewRunner(m.Hooks.Root, vars, agg, logger)

	var sup *daemon.Supervisor
	notifier := notify.New(logger)
	sched := schedule.New(schedule.Config{
		Targets:        m.Targets(),
		UptimeAnnounce: m.UptimeAnnounce,
		Vars:           vars,
		Uptime: func(now time.Time) time.Duration {
			if h := sup.Handle(); h != nil {
				return h.Uptime(now)
			}
			return 0
		},
		Status: notifier.Status,
	}, runner, logger)

	var sink string
	if m.Logs.Sink != "" {
		sink = filepath.Join(m.Logs.Root, m.Logs.Sink)
		if err := os.MkdirAll(m.Logs.Root, 0o755); err != nil {
			logger.Warn("cannot create log root", "path", m.Logs.Root, "error", err)
		}
	}

	command := m.Command
	if len(args) > 0 {
		command = args
	}

	var (
		srv    *uds.Server
		events daemon.Broadcaster
	)
	if m.ControlSocket != "" {
		srv = uds.NewServer(m.ControlSocket, logger)
		events = srv
	}

	sup = daemon.New(daemon.Config{
		Command:         command,
		Dir:             m.Dir,
		Env:             m.Env,
		SinkPath:        sink,
		ProcessGroup:    m.ProcessGroup,
		TickInterval:    m.TickInterval.D(),
		ShutdownTimeout: m.ShutdownTimeout.D(),
	}, daemon.Deps{
		Hooks:     runner,
		Vars:      vars,
		Scheduler: sched,
		Logs:      agg,
		Notifier:  notifier,
		Events:    events,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Background services outlive ctx so the control socket answers during
	// shutdown; they stop once Run has returned.
	bg, cancelBG := context.WithCancel(context.Background())
	defer cancelBG()

	if srv != nil {
		sup.RegisterHandlers(srv)
		go func() {
			if err := srv.Start(bg); err != nil {
				logger.Warn("control socket unavailable", "path", m.ControlSocket, "error", err)
			}
		}()
		defer srv.Shutdown()
	}
	go rotate.Loop(bg, m.RotateConfig(), m.Rotation.Interval.D(), logger)

	if code := sup.Run(ctx); code != daemon.ExitOK {
		return exitCode(code)
	}
	return nil
}
