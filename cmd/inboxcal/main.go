// Command inboxcal scans a mailbox for event-like messages, tracks
// them through a pending/declined/confirmed lifecycle, and commits
// accepted ones to a calendar with reminder notifications.
//
// Usage:
//
//	inboxcal [flags] <command>
//
// Commands:
//
//	run        start the polling daemon and HTTP surface (default)
//	serve      start the HTTP surface without background polling
//	scan       run a single polling cycle and exit
//	review     review pending candidates in the terminal
//	setup      interactive first-run configuration
//	autostart  on|off|status for session autostart
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nhle/inbox-calendar/internal/autostart"
	"github.com/nhle/inbox-calendar/internal/calendar"
	"github.com/nhle/inbox-calendar/internal/credential"
	"github.com/nhle/inbox-calendar/internal/detect"
	"github.com/nhle/inbox-calendar/internal/lifecycle"
	"github.com/nhle/inbox-calendar/internal/mailbox"
	"github.com/nhle/inbox-calendar/internal/model"
	"github.com/nhle/inbox-calendar/internal/notify"
	"github.com/nhle/inbox-calendar/internal/review"
	"github.com/nhle/inbox-calendar/internal/server"
	"github.com/nhle/inbox-calendar/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String(
		"config", model.DefaultConfigPath(), "path to the configuration file",
	)
	flag.Usage = usage
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "run"
	}

	var err error
	switch cmd {
	case "run":
		err = runDaemon(*configPath, true)
	case "serve":
		err = runDaemon(*configPath, false)
	case "scan":
		err = runScan(*configPath)
	case "review":
		err = runReview(*configPath)
	case "setup":
		err = review.RunSetup(*configPath)
	case "autostart":
		err = runAutostart(flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("inboxcal %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: inboxcal [flags] <command>

Commands:
  run        start the polling daemon and HTTP surface (default)
  serve      start the HTTP surface without background polling
  scan       run a single polling cycle and exit
  review     review pending candidates in the terminal
  setup      interactive first-run configuration
  autostart  on|off|status for session autostart

Flags:
`)
	flag.PrintDefaults()
}

// app bundles the wired components a command needs.
type app struct {
	cfg   *model.AppConfig
	store *store.SQLiteStore
	coord *lifecycle.Coordinator
	sched *notify.Scheduler
}

// buildApp loads the configuration and wires the store, mailbox,
// calendar backend, scorer, and coordinator.
func buildApp(configPath string, onChange func(lifecycle.Change)) (*app, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Mailbox.IMAPHost == "" || cfg.Mailbox.Username == "" {
		return nil, errors.New("mailbox is not configured; run `inboxcal setup` first")
	}

	password, err := credential.Get(credential.KeyIMAPPassword)
	if err != nil {
		return nil, fmt.Errorf("reading IMAP password from keyring: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	mb := mailbox.NewIMAPMailbox(
		cfg.Mailbox.IMAPHost,
		cfg.Mailbox.IMAPPort,
		cfg.Mailbox.Username,
		password,
		cfg.Mailbox.UseTLS,
	)

	cal, err := newCalendar(cfg.Calendar)
	if err != nil {
		st.Close()
		return nil, err
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Reminders.Command != "" {
		notifier = notify.CommandNotifier{Path: cfg.Reminders.Command}
	}
	var sched *notify.Scheduler
	if cfg.Reminders.Enabled {
		sched = notify.NewScheduler(notifier, cfg.Reminders.MorningHour)
	}

	coord := lifecycle.New(st, mb, cal, detect.NewScorer(cfg.Detector), lifecycle.Options{
		Reminders:          sched,
		Alerts:             notifier,
		ProcessedLabel:     cfg.Mailbox.ProcessedLabel,
		RepresentRecovered: cfg.Review.RepresentRecovered,
		OnChange:           onChange,
	})

	return &app{cfg: cfg, store: st, coord: coord, sched: sched}, nil
}

func (a *app) close() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if err := a.store.Close(); err != nil {
		log.Printf("closing store: %v", err)
	}
}

// newCalendar selects the configured calendar backend.
func newCalendar(cfg model.CalendarConfig) (calendar.Calendar, error) {
	switch cfg.Backend {
	case "ics":
		if dir := filepath.Dir(cfg.ICSPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating calendar directory %s: %w", dir, err)
			}
		}
		return calendar.NewICSCalendar(cfg.ICSPath), nil
	case "http":
		if cfg.BaseURL == "" || cfg.CalendarID == "" {
			return nil, errors.New("http calendar backend needs base_url and calendar_id")
		}
		tokens := &credential.KeyringTokenProvider{Key: credential.KeyCalendarToken}
		return calendar.NewHTTPCalendar(cfg.BaseURL, cfg.CalendarID, tokens), nil
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.Backend)
	}
}

// runDaemon starts the HTTP surface and, when poll is set, the
// background mailbox poller. It blocks until SIGINT or SIGTERM.
func runDaemon(configPath string, poll bool) error {
	hub := server.NewHub()
	a, err := buildApp(configPath, hub.Publish)
	if err != nil {
		return err
	}
	defer a.close()

	srv := server.NewServer(
		a.cfg.Server.Addr, server.NewRouter(a.coord, a.store, hub),
	)

	var poller *lifecycle.Poller
	if poll {
		interval := time.Duration(a.cfg.PollIntervalSec) * time.Second
		poller = lifecycle.NewPoller(a.coord, interval)
		if err := poller.Start(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP surface listening on %s", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	select {
	case <-ctx.Done():
		log.Println("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	}

	if poller != nil {
		poller.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutting down HTTP server: %v", err)
	}
	hub.Close()
	return nil
}

// runScan executes one polling cycle and prints its stats.
func runScan(configPath string) error {
	a, err := buildApp(configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stats, err := a.coord.RunCycle(ctx)
	if err != nil {
		return err
	}
	fmt.Printf(
		"fetched=%d known=%d detected=%d rejected=%d\n",
		stats.Fetched, stats.AlreadyKnown, stats.Detected, stats.Rejected,
	)
	return nil
}

// runReview opens the terminal decision surface over the local store.
func runReview(configPath string) error {
	a, err := buildApp(configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	return review.Run(a.coord, a.store)
}

func runAutostart(arg string) error {
	switch arg {
	case "on":
		if err := autostart.Enable(); err != nil {
			return err
		}
		fmt.Println("autostart enabled")
	case "off":
		if err := autostart.Disable(); err != nil {
			return err
		}
		fmt.Println("autostart disabled")
	case "status", "":
		enabled, err := autostart.Enabled()
		if err != nil {
			return err
		}
		if enabled {
			fmt.Println("autostart: enabled")
		} else {
			fmt.Println("autostart: disabled")
		}
	default:
		return fmt.Errorf("unknown autostart action %q (want on, off, or status)", arg)
	}
	return nil
}
