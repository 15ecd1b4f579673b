package cli

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

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/metrics"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/reminder"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/update"
)

func newWatchCmd(flags *globalFlags) *cobra.Command {
	var (
		metricsAddr string
		once        bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the due-today reminder scan without the board",
		Long: `watch re-reads the task list on every scan interval and raises one
reminder per open task due today. With --metrics-addr it also serves
Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				if !cmd.Flags().Changed("metrics-addr") {
					metricsAddr = s.cfg.Metrics.Addr
				}
				scanner := newScanner(s, cmd.OutOrStdout(), printNotifier(cmd.OutOrStdout()))
				if once {
					fired := scanner.Scan(ctx)
					fmt.Fprintf(cmd.OutOrStdout(), "%d reminder(s) fired\n", len(fired))
					return nil
				}
				if metricsAddr != "" {
					shutdown := serveMetrics(s, metricsAddr)
					defer shutdown()
				}
				return watchLoop(ctx, s, scanner)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single scan and exit")
	return cmd
}

// newScanner wires the configured notifiers and chime around the session's
// store. extra notifiers run after the built-in ones.
func newScanner(s *session, bellOut io.Writer, extra ...reminder.Notifier) *reminder.Scanner {
	notifiers := reminder.MultiNotifier{reminder.LogNotifier{Logger: s.logger}, s.metrics}
	if s.cfg.Reminder.Desktop {
		notifiers = append(notifiers, reminder.ExecNotifier{AppName: "taskboard"})
	}
	notifiers = append(notifiers, extra...)

	chime, err := reminder.ParseChime(s.cfg.Reminder.Chime, bellOut)
	if err != nil {
		s.logger.Warn("chime disabled", "err", err)
		chime = reminder.NoopChime{}
	}
	return &reminder.Scanner{
		Store:    s.store,
		Clock:    s.clock,
		Location: s.location,
		Notifier: notifiers,
		Chime:    chime,
		Logger:   s.logger,
	}
}

func printNotifier(out io.Writer) reminder.Notifier {
	return reminder.NotifierFunc(func(_ context.Context, n model.Notification) error {
		_, err := fmt.Fprintf(out, "%s %s\n", n.FiredAt.Format(time.TimeOnly), n.Message())
		return err
	})
}

func watchLoop(ctx context.Context, s *session, scanner *reminder.Scanner) error {
	engine := scheduler.NewEngine(s.cfg.UI.SchedulerBuffer, s.clock)
	if err := engine.Every(update.JobReminders, s.cfg.Reminder.ScanInterval); err != nil {
		return err
	}
	engine.Start()
	defer engine.Stop()
	s.logger.Info("watching for due tasks", "interval", s.cfg.Reminder.ScanInterval, "today", scanner.Today())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watch stopped")
			return nil
		case tick, ok := <-engine.C():
			if !ok {
				return nil
			}
			if tick.Job != update.JobReminders {
				continue
			}
			// Another process may own the board; scan what is on disk now.
			if err := s.store.Reload(ctx); err != nil {
				s.logger.Warn("reload failed, scanning last known list", "err", err)
			}
			scanner.Scan(ctx)
		}
	}
}

func serveMetrics(s *session, addr string) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(s.registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		s.logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
