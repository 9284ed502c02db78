package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/memoize/internal/build"
	"git.home.luguber.info/inful/memoize/internal/config"
	"git.home.luguber.info/inful/memoize/internal/gitmeta"
	"git.home.luguber.info/inful/memoize/internal/logfields"
	"git.home.luguber.info/inful/memoize/internal/metrics"
	"git.home.luguber.info/inful/memoize/internal/preview"
	"git.home.luguber.info/inful/memoize/internal/version"
)

const defaultConfigPath = "memoize.yaml"

// metadataCacheSize bounds the commit lookup cache during a serve session.
const metadataCacheSize = 4096

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"memoize.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Source string `arg:"" optional:"" help:"Source directory to render (default: current directory)"`
		Output string `short:"o" help:"Output directory for the generated site"`
		Jobs   int    `short:"j" help:"Number of parallel render jobs (default: number of CPUs)"`
	} `cmd:"" help:"Render the Markdown tree into a mirrored HTML tree"`

	Serve struct {
		Source   string `arg:"" optional:"" help:"Source directory to render (default: current directory)"`
		Output   string `short:"o" help:"Output directory for the generated site"`
		Port     int    `short:"p" help:"Preview server port"`
		WatchDir string `help:"Directory to watch for changes (default: the source directory)"`
	} `cmd:"" help:"Build the site, then serve it rebuilding on change"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Execute command
	switch ctx.Command() {
	case "build", "build <source>":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", logfields.Error(err))
			os.Exit(1)
		}
		applyBuildFlags(cfg)
		if err := runBuild(cfg); err != nil {
			slog.Error("Build failed", logfields.Error(err))
			os.Exit(1)
		}
	case "serve", "serve <source>":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", logfields.Error(err))
			os.Exit(1)
		}
		applyServeFlags(cfg)
		if err := runServe(cfg); err != nil {
			slog.Error("Serve failed", logfields.Error(err))
			os.Exit(1)
		}
	case "version":
		fmt.Println(version.String())
	}
}

// loadConfig reads the configuration file. The default path is optional so
// the tool works out of the box; an explicitly named file must exist.
func loadConfig() (*config.Config, error) {
	return config.Load(CLI.Config, CLI.Config == defaultConfigPath)
}

// Flags layer over the config file, which layers over the defaults.
func applyBuildFlags(cfg *config.Config) {
	if CLI.Build.Source != "" {
		cfg.Source = CLI.Build.Source
	}
	if CLI.Build.Output != "" {
		cfg.Output = CLI.Build.Output
	}
	if CLI.Build.Jobs > 0 {
		cfg.Jobs = CLI.Build.Jobs
	}
}

func applyServeFlags(cfg *config.Config) {
	if CLI.Serve.Source != "" {
		cfg.Source = CLI.Serve.Source
	}
	if CLI.Serve.Output != "" {
		cfg.Output = CLI.Serve.Output
	}
	if CLI.Serve.Port > 0 {
		cfg.Serve.Port = CLI.Serve.Port
	}
	if CLI.Serve.WatchDir != "" {
		cfg.Watch.Dir = CLI.Serve.WatchDir
	}
}

// runBuild performs one clean build. Any failed path is listed on stderr and
// turns the exit code non-zero; siblings of a failed job still complete.
func runBuild(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline := build.New(cfg).WithMetadata(openMetadata(cfg))

	res, err := pipeline.Build(ctx, build.Options{Clean: true, Trigger: metrics.TriggerInitial})
	if err != nil {
		return err
	}
	if failed := res.Report.FailedPaths(); len(failed) > 0 {
		fmt.Fprintln(os.Stderr, "failed paths:")
		for _, path := range failed {
			fmt.Fprintln(os.Stderr, "  "+path)
		}
		return fmt.Errorf("%d of %d jobs failed", len(failed), res.Report.Pages+res.Report.Assets)
	}
	return nil
}

// runServe starts the watch session and preview server, running until
// interrupted. Rebuild failures are logged per cycle; only a broken startup
// or listen error ends the session.
func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline := build.New(cfg)
	session := preview.NewSession(cfg, pipeline)

	meta := openMetadata(cfg)
	if _, disabled := meta.(gitmeta.Disabled); !disabled {
		// Serve mode re-renders the same pages across cycles; cache lookups
		// and let the session evict what each change batch touched.
		cached, err := gitmeta.NewCached(meta, metadataCacheSize)
		if err != nil {
			return err
		}
		meta = cached
		session.WithEvicter(cached)
	}
	pipeline.WithMetadata(meta)

	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		recorder := metrics.NewPrometheusRecorder(reg)
		pipeline.WithRecorder(recorder)
		session.WithRecorder(recorder).WithMetricsHandler(metrics.HTTPHandler(reg))
	}

	return session.Run(ctx)
}

// openMetadata wires the commit metadata source per config. Failures degrade
// to pages without the history footer, never to startup errors.
func openMetadata(cfg *config.Config) gitmeta.Source {
	if !cfg.Git.Enabled {
		return gitmeta.Disabled{}
	}
	src, err := gitmeta.Open(cfg.Source, cfg.Git.LookupTimeout)
	if err != nil {
		slog.Info("Building without git metadata", logfields.Error(err))
		return gitmeta.Disabled{}
	}
	return src
}
