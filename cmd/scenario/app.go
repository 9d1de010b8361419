package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"botharness/internal/logging"
	"botharness/modules/dicegame"
	"botharness/modules/echo"
	"botharness/modules/form"
	"botharness/modules/help"
	"botharness/modules/pingpong"
	"botharness/pkg/bottest"
	"botharness/pkg/bottest/scenario"
	"botharness/pkg/dispatch"
)

const defaultEnvFile = ".env"

// defaultModuleNames is the module set used when none is configured. echo
// is left out because it answers every text the form fallback would.
var defaultModuleNames = []string{"pingpong", "help", "dicegame", "form"}

var moduleFactories = map[string]func() dispatch.Module{
	"echo":     func() dispatch.Module { return echo.New() },
	"pingpong": func() dispatch.Module { return pingpong.New() },
	"help":     func() dispatch.Module { return help.New() },
	"dicegame": func() dispatch.Module { return dicegame.New() },
	"form":     func() dispatch.Module { return form.New() },
}

var errScenariosFailed = errors.New("scenarios failed")

type appConfig struct {
	envFile     string
	paths       []string
	showMetrics bool

	harness  bottest.Config
	logLevel slog.Level
	modules  []string
}

func run(args []string, stdout io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	if err := logging.InstallBotAPILogger(logger); err != nil {
		return fmt.Errorf("install bot api logger: %w", err)
	}

	scenarios, err := loadScenarios(cfg.paths)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	failed := runScenarios(ctx, logger, cfg, registry, scenarios)

	if cfg.showMetrics {
		if err := writeMetrics(stdout, registry); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d: %w", failed, len(scenarios), errScenariosFailed)
	}

	return nil
}

func loadConfig(args []string) (appConfig, error) {
	flags := flag.NewFlagSet("scenario", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	cfg := appConfig{}
	flags.StringVar(&cfg.envFile, "env", defaultEnvFile, "dotenv file with BOTHARNESS_* settings")
	flags.BoolVar(&cfg.showMetrics, "metrics", false, "print harness metrics after the run")
	if err := flags.Parse(args); err != nil {
		return appConfig{}, fmt.Errorf("parse flags: %w", err)
	}
	cfg.paths = flags.Args()
	if len(cfg.paths) == 0 {
		return appConfig{}, fmt.Errorf("at least one scenario file or directory is required")
	}

	harness, err := bottest.LoadConfig(cfg.envFile)
	if err != nil {
		return appConfig{}, err
	}
	cfg.harness = harness

	level, err := logging.ParseLevel(harness.LogLevel)
	if err != nil {
		return appConfig{}, fmt.Errorf("parse %s: %w", bottest.EnvLogLevel, err)
	}
	cfg.logLevel = level

	modules, err := resolveModules(harness.Modules)
	if err != nil {
		return appConfig{}, fmt.Errorf("parse %s: %w", bottest.EnvModules, err)
	}
	cfg.modules = modules

	return cfg, nil
}

// resolveModules validates configured module names, keeping their order.
func resolveModules(names []string) ([]string, error) {
	if len(names) == 0 {
		return append([]string(nil), defaultModuleNames...), nil
	}

	seen := make(map[string]struct{}, len(names))
	resolved := make([]string, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, known := moduleFactories[name]; !known {
			return nil, fmt.Errorf("unknown module %q", raw)
		}
		if _, duplicate := seen[name]; duplicate {
			return nil, fmt.Errorf("duplicate module %q", raw)
		}
		seen[name] = struct{}{}
		resolved = append(resolved, name)
	}

	return resolved, nil
}

func loadScenarios(paths []string) ([]*scenario.Scenario, error) {
	loaded := make([]*scenario.Scenario, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat scenario path %s: %w", path, err)
		}
		if info.IsDir() {
			scenarios, err := scenario.LoadDir(path)
			if err != nil {
				return nil, err
			}
			loaded = append(loaded, scenarios...)
			continue
		}
		item, err := scenario.LoadFile(path)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, item)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", strings.Join(paths, ", "))
	}

	return loaded, nil
}

// runScenarios plays every scenario on its own client, so conversation state
// never carries over, and returns the number of failed scenarios.
func runScenarios(
	ctx context.Context,
	logger *slog.Logger,
	cfg appConfig,
	registry *prometheus.Registry,
	scenarios []*scenario.Scenario,
) int {
	failed := 0
	for idx, item := range scenarios {
		registerer := prometheus.WrapRegistererWith(prometheus.Labels{"scenario": fmt.Sprintf("%03d", idx+1)}, registry)
		result, err := runScenario(ctx, logger, cfg, registerer, item)
		attrs := []any{
			"scenario", item.Name,
			"run_id", result.RunID.String(),
			"steps", result.Steps,
			"calls", result.Calls,
			"duration", result.Duration,
		}
		if err != nil {
			failed++
			logger.ErrorContext(ctx, "scenario failed", append(attrs, "error", err)...)
			continue
		}
		logger.InfoContext(ctx, "scenario passed", attrs...)
	}

	return failed
}

func runScenario(
	ctx context.Context,
	logger *slog.Logger,
	cfg appConfig,
	registerer prometheus.Registerer,
	item *scenario.Scenario,
) (scenario.Result, error) {
	client, err := bottest.New(
		bottest.WithConfig(cfg.harness),
		bottest.WithLogger(logger),
		bottest.WithRegisterer(registerer),
		bottest.WithSetup(func(_ *tgbotapi.BotAPI, dispatcher *dispatch.Dispatcher) error {
			return registerModules(ctx, dispatcher, cfg.modules)
		}),
	)
	if err != nil {
		return scenario.Result{Scenario: item.Name}, fmt.Errorf("build client: %w", err)
	}

	var result scenario.Result
	err = client.Run(ctx, func(ctx context.Context, client *bottest.Client) error {
		client.Reset()
		var runErr error
		result, runErr = item.Run(ctx, client)
		return runErr
	})

	return result, err
}

func registerModules(ctx context.Context, dispatcher *dispatch.Dispatcher, names []string) error {
	for _, name := range names {
		factory, ok := moduleFactories[name]
		if !ok {
			return fmt.Errorf("register module %s: unknown module", name)
		}
		if err := dispatcher.RegisterModule(ctx, factory()); err != nil {
			return fmt.Errorf("register %s module: %w", name, err)
		}
	}

	return nil
}

func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return fmt.Errorf("encode metric family %s: %w", family.GetName(), err)
		}
	}

	return nil
}
