package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"whisperdrop/internal/announce"
	"whisperdrop/internal/catalog"
	"whisperdrop/internal/config"
	"whisperdrop/internal/drop"
	appLog "whisperdrop/internal/log"
	"whisperdrop/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	tz         string
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("whisperdrop failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", flags.configPath, err)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	level, _ := appLog.ParseLevel(conf.LogLevel)
	appLog.Setup(os.Stderr, appLog.Format(conf.LogFormat), level)
	appLog.Info("whisperdrop starting", "version", version)

	sched, err := newScheduler(conf)
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"release_time", sched.Boundary().String(),
		"catalog_path", conf.CatalogPath,
		"catalog_size", sched.Catalog().Len(),
		"max_upcoming_days", conf.MaxUpcomingDays,
		"announce", conf.Announce,
		"once", flags.once,
	)

	if flags.once {
		return printToday(os.Stdout, sched, flags.tz)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if conf.Announce {
		a, err := announce.New(sched)
		if err != nil {
			return err
		}
		a.Start()
		defer a.Stop()
	}

	srv := web.NewServer(conf, sched)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	appLog.Info("whisperdrop exiting")
	return nil
}

// newScheduler loads the catalog and builds the drop scheduler. An empty
// catalog is fatal here, at startup, rather than per request.
func newScheduler(conf *config.Config) (*drop.Scheduler, error) {
	cat, err := catalog.Load(conf.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	boundary, err := conf.Boundary()
	if err != nil {
		return nil, err
	}
	return drop.NewScheduler(drop.Config{
		Catalog:     cat,
		Boundary:    boundary,
		DefaultZone: conf.Timezone,
	})
}

// printToday writes today's drop as indented JSON.
func printToday(w io.Writer, sched *drop.Scheduler, tz string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sched.Today(tz))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/whisperdrop/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print today's drop as JSON and exit")
	flag.StringVar(&cfg.tz, "tz", "", "Time zone for -once (defaults to the configured zone)")

	flag.Parse()

	return cfg
}
