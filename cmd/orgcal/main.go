package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"orgcal/internal/config"
	appLog "orgcal/internal/log"
	"orgcal/internal/refresh"
	"orgcal/internal/store"
	"orgcal/internal/view"
	"orgcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	check      bool
	verbose    bool
}

func main() {
	appLog.Info("orgcal starting", "version", "0.1.0-dev")

	flags := parseFlags()
	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI -listen overrides the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"database", conf.Database,
		"repo", conf.Repo.URL,
		"org_files", len(conf.OrgFiles),
		"views_file", conf.ViewsFile,
		"sync", conf.SyncCron,
	)

	// -check parses the views file and exits; useful as a pre-commit hook on
	// the org repo.
	if flags.check {
		os.Exit(checkViews(conf))
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

	st, err := store.Open(conf.Database)
	if err != nil {
		appLog.Error("failed to open record store", err, "database", conf.Database)
		os.Exit(1)
	}
	defer st.Close()

	holder := view.NewHolder()
	refresher := refresh.New(conf, st, holder)

	// The first cycle runs before the server accepts traffic. A failing sync
	// or import is tolerated (existing records keep serving), but a views
	// file that has never parsed leaves nothing to serve.
	if err := refresher.RunCycle(ctx); err != nil {
		appLog.Warn("initial cycle finished with errors", "err", err)
	}
	if holder.Load() == nil {
		appLog.Error("no usable view table after initial load", nil,
			"views_file", conf.ViewsPath())
		os.Exit(1)
	}

	if flags.once {
		appLog.Info("single cycle complete, exiting")
		return
	}

	server := web.NewServer(conf, st, holder, refresher)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := refresher.Run(ctx); err != nil {
			appLog.Error("refresh loop stopped", err)
			cancel()
		}
	}()

	if err := server.Run(ctx); err != nil {
		appLog.Error("http server stopped", err)
	}
	cancel()
	wg.Wait()

	appLog.Info("orgcal exiting")
}

// checkViews parses the configured views file and reports the result.
func checkViews(conf *config.Config) int {
	path := conf.ViewsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		appLog.Error("cannot read views file", err, "path", path)
		return 1
	}
	table, err := view.Rebuild(string(data))
	if err != nil {
		appLog.Error("views file is invalid", err, "path", path)
		return 1
	}
	appLog.Info("views file is valid", "path", path, "views", table.Len())
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/orgcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one sync+import+rebuild cycle and exit")
	flag.BoolVar(&cfg.check, "check", false, "Validate the views file and exit")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
