package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeassist/internal/config"
	"homeassist/internal/event"
	appLog "homeassist/internal/log"
	"homeassist/internal/reminder"
	"homeassist/internal/temporal"
	"homeassist/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool

	// One-shot resolution mode.
	resolve     string
	anchor      string
	clock       string
	title       string
	description string
}

func main() {
	flags := parseFlags()

	if flags.resolve != "" {
		os.Exit(runResolve(flags))
	}

	appLog.Info("homeassist starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level, _ := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("unknown timezone, using UTC", "timezone", conf.Timezone, "err", err)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"default_time", conf.DefaultTime,
		"data_dir", conf.DataDir,
		"reminder_cron", conf.ReminderCron,
		"horizon_days", conf.HorizonDays,
		"basic_auth", conf.BasicAuth != nil,
	)

	store, err := event.OpenStore(conf.EventsPath())
	if err != nil {
		appLog.Error("failed to open event store", err, "path", conf.EventsPath())
		os.Exit(1)
	}
	svc := event.NewService(store, temporal.DefaultResolver(), event.Options{
		Location:    loc,
		DefaultTime: conf.DefaultTime,
	})

	sweeper, err := reminder.NewSweeper(svc, conf.ReminderCron, loc)
	if err != nil {
		appLog.Error("failed to set up reminders", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	sweeper.Start()

	srv := web.NewServer(conf, flags.debug, svc, web.WithReminders(sweeper))
	if err := srv.Run(ctx); err != nil {
		appLog.Error("http server failed", err)
		cancel()
	}

	// Let an in-flight sweep finish, but not forever.
	select {
	case <-sweeper.Stop().Done():
	case <-time.After(5 * time.Second):
		appLog.Warn("reminder sweep still running at exit")
	}
	appLog.Info("homeassist exiting")
}

// runResolve prints the schedule for one phrase as JSON and returns the
// process exit code.
func runResolve(flags flagConfig) int {
	anchor := temporal.Today(time.Now(), time.Local)
	if flags.anchor != "" {
		a, err := temporal.ParseISO(flags.anchor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -anchor %q: want YYYY-MM-DD\n", flags.anchor)
			return 2
		}
		anchor = a
	}

	sched := temporal.ResolveEventSchedule(anchor, flags.resolve, flags.clock, flags.description, flags.title)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sched); err != nil {
		appLog.Error("failed to encode result", err)
		return 1
	}
	if !sched.Resolved() {
		return 3
	}
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/homeassist/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.StringVar(&cfg.resolve, "resolve", "", "Resolve a date phrase, print the schedule as JSON and exit")
	flag.StringVar(&cfg.anchor, "anchor", "", "Anchor date YYYY-MM-DD for -resolve (default today)")
	flag.StringVar(&cfg.clock, "time", temporal.DefaultTimeOfDay.String(), "Time HH:MM for -resolve")
	flag.StringVar(&cfg.title, "title", "", "Event title for -resolve")
	flag.StringVar(&cfg.description, "description", "", "Event description for -resolve")

	flag.Parse()

	return cfg
}
