package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"multical/internal/config"
	"multical/internal/ics"
	appLog "multical/internal/log"
	"multical/internal/metrics"
	"multical/internal/registry"
	"multical/internal/scheduler"
	"multical/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	export     string
	importSrc  string
	into       string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	setupLogging(conf)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"calendars", len(conf.Calendars),
		"imports", len(conf.Imports),
		"status_cron", conf.StatusCron,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags, os.Stdout); err != nil {
		appLog.Error("multical failed", err)
		os.Exit(1)
	}
	appLog.Info("multical exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./multical.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.export, "export", "", "Write the named calendar as ICS to stdout and exit")
	flag.StringVar(&cfg.importSrc, "import", "", "ICS file or URL to import at startup")
	flag.StringVar(&cfg.into, "into", "", "Calendar receiving -import (default: current)")

	flag.Parse()

	return cfg
}

func setupLogging(conf *config.Config) {
	appLog.SetOutput(os.Stderr, conf.LogFormat != "json")
	if lvl, ok := appLog.ParseLevel(conf.LogLevel); ok {
		appLog.SetLevel(lvl)
	}
}

// run boots the registry and either exports one calendar or serves until
// ctx is canceled.
func run(ctx context.Context, conf *config.Config, flags flagConfig, stdout io.Writer) error {
	fetcher := ics.NewFetcher(conf.ICSCacheDir)

	reg, err := bootstrap(ctx, conf, fetcher)
	if err != nil {
		return err
	}

	if flags.importSrc != "" {
		target := flags.into
		if target == "" {
			target = reg.CurrentName()
		}
		if err := importSource(ctx, reg, fetcher, target, flags.importSrc); err != nil {
			return err
		}
	}

	if flags.export != "" {
		return reg.ExportICS(flags.export, stdout)
	}

	var wg sync.WaitGroup
	if conf.StatusCron != "" {
		sched, err := scheduler.New(reg, conf.StatusCron, conf.Timezone)
		if err != nil {
			return err
		}
		sched.Tick()
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Start(ctx)
		}()
	}

	err = web.StartServer(ctx, conf.Listen, web.NewServer(reg, conf.BasicAuth))
	wg.Wait()
	return err
}

// bootstrap creates the configured calendars, selects the current one and
// runs the configured imports. A failed import is logged and skipped.
func bootstrap(ctx context.Context, conf *config.Config, fetcher *ics.Fetcher) (*registry.Registry, error) {
	reg := registry.New()
	for _, c := range conf.Calendars {
		if err := reg.CreateCalendar(c.Name, c.Timezone); err != nil {
			return nil, fmt.Errorf("create calendar %q: %w", c.Name, err)
		}
	}
	if conf.Current != "" {
		if _, err := reg.UseCalendar(conf.Current); err != nil {
			return nil, err
		}
	}

	for _, imp := range conf.Imports {
		if err := importSource(ctx, reg, fetcher, imp.Calendar, imp.Source); err != nil {
			appLog.Warn("startup import skipped", "error", err, "calendar", imp.Calendar)
		}
	}
	return reg, nil
}

func importSource(ctx context.Context, reg *registry.Registry, fetcher *ics.Fetcher, calendar, source string) error {
	body, err := fetcher.Read(ctx, source)
	if err != nil {
		metrics.Observe("import_ics", err)
		return fmt.Errorf("read %s: %w", calendar, err)
	}
	n, err := reg.ImportICS(calendar, bytes.NewReader(body))
	metrics.Observe("import_ics", err)
	if err != nil {
		return fmt.Errorf("import into %s: %w", calendar, err)
	}
	metrics.AddImported(calendar, n)
	return nil
}
