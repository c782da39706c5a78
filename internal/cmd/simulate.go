package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Iron-Ham/homeclock/internal/config"
	"github.com/Iron-Ham/homeclock/internal/event"
	"github.com/Iron-Ham/homeclock/internal/logging"
	"github.com/Iron-Ham/homeclock/internal/metrics"
	"github.com/Iron-Ham/homeclock/internal/provider"
	"github.com/Iron-Ham/homeclock/internal/shell"
	"github.com/Iron-Ham/homeclock/internal/tui"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Play a clock lifecycle scenario against simulated providers",
	Long: `Play a scenario file against the clock service and simulated widget
providers and print every lifecycle event.

By default the scenario runs on virtual time and finishes instantly.
--realtime plays it on the wall clock; --watch shows it in a live
terminal view and implies --realtime.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Bool("realtime", false, "run on the wall clock instead of virtual time")
	simulateCmd.Flags().BoolP("watch", "w", false, "show a live terminal view (implies --realtime)")
	simulateCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.listen_addr)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	watch, _ := cmd.Flags().GetBool("watch")
	realtime, _ := cmd.Flags().GetBool("realtime")
	realtime = realtime || watch

	if watch && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("--watch needs an interactive terminal")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.ListenAddr = addr
	}

	sc, err := shell.LoadScenario(args[0])
	if err != nil {
		return err
	}

	logger, err := simulationLogger(cfg, watch, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	}

	var clk clockwork.Clock = clockwork.NewFakeClock()
	if realtime {
		clk = clockwork.NewRealClock()
	}

	sh, err := shell.New(cfg, shell.Options{Clock: clk, Metrics: recorder, Logger: logger})
	if err != nil {
		return err
	}
	defer sh.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if realtime {
		stopWatchers := startWatchers(sh, cfg, logger)
		defer stopWatchers()
	}
	if recorder != nil && cfg.Metrics.ListenAddr != "" {
		stopServer := serveMetrics(recorder, cfg.Metrics.ListenAddr, logger)
		defer stopServer()
	}

	sh.Loop().Post(func() {
		if err := sh.Boot(); err != nil {
			logger.Warn("first instance boot failed", "error", err)
		}
	})
	if err := sh.Schedule(sc); err != nil {
		return err
	}

	if watch {
		return watchScenario(ctx, sh, sc)
	}

	start := clk.Now()
	sh.Bus().SubscribeAll(func(e event.Event) {
		fmt.Fprintf(out, "[%8.3fs] %s\n", clk.Since(start).Seconds(), tui.Format(e))
	})
	if err := sh.Drive(ctx, sc.Duration()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	st := sh.Snapshot()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "attached:  %s\n", orNone(st.Attached))
	fmt.Fprintf(out, "candidate: %s\n", orNone(st.Candidate))
	fmt.Fprintf(out, "pending: %d  deleting: %d  frozen: %d  instances: %d\n",
		st.Pending, st.Deleting, st.Frozen, st.Instances)
	return nil
}

// simulationLogger logs to the configured directory, or to stderr. The live
// view owns the terminal, so it only gets file logging.
func simulationLogger(cfg *config.Config, watch bool, stderr io.Writer) (*logging.Logger, error) {
	if cfg.Logging.Dir != "" {
		return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	}
	if watch {
		return logging.NopLogger(), nil
	}
	return logging.NewWriterLogger(stderr, cfg.Logging.Level), nil
}

// startWatchers reloads the provider registry and the retry budget while a
// realtime scenario runs.
func startWatchers(sh *shell.Shell, cfg *config.Config, logger *logging.Logger) func() {
	var stops []func()

	if cfg.Provider.WatchRegistry && sh.Registry().Path() != "" {
		w, err := provider.NewWatcher(sh.Registry(), logger)
		if err != nil {
			logger.Warn("registry watch unavailable", "error", err)
		} else {
			w.Start()
			stops = append(stops, w.Stop)
		}
	}

	if viper.ConfigFileUsed() != "" {
		config.Watch(func(next *config.Config) {
			sh.Loop().Post(func() {
				sh.Coordinator().SetRetryCount(next.Clock.RetryCount)
				logger.Info("configuration reloaded", "retry_count", next.Clock.RetryCount)
			})
		}, func(err error) {
			logger.Warn("ignoring invalid configuration change", "error", err)
		})
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func serveMetrics(recorder *metrics.Recorder, addr string, logger *logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// watchScenario plays the scenario behind the live view. The view stays up
// after the scenario ends until the user quits.
func watchScenario(ctx context.Context, sh *shell.Shell, sc *shell.Scenario) error {
	updates := make(chan tui.Update, 256)
	sh.Bus().SubscribeAll(func(e event.Event) {
		select {
		case updates <- tui.Update{Event: e, Status: sh.Snapshot()}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	driveErr := make(chan error, 1)
	go func() {
		err := sh.Drive(ctx, sc.Duration())
		close(updates)
		driveErr <- err
	}()

	title := "homeclock"
	if sc.Name != "" {
		title += " · " + sc.Name
	}
	p := tea.NewProgram(tui.New(title, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	err := <-driveErr
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
