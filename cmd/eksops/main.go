package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/majiny/eksops/internal/adapter/outbound/aws"
	"github.com/majiny/eksops/internal/adapter/outbound/kubernetes"
	slacknotifier "github.com/majiny/eksops/internal/adapter/outbound/notification/slack"
	"github.com/majiny/eksops/internal/adapter/outbound/persistence/sqlite"
	"github.com/majiny/eksops/internal/config"
	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/internal/domain/service"
	"github.com/majiny/eksops/pkg/health"
	"github.com/majiny/eksops/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	payloadFile := flag.String("f", "", "read the request payload from a file (- for stdin)")
	printVersion := flag.Bool("version", false, "print version and exit")
	healthcheck := flag.Bool("healthcheck", false, "probe cluster access and the audit store, then exit")
	history := flag.Bool("history", false, "print recent invocation records and exit")
	historyLimit := flag.Int("history-limit", 20, "number of records to print with -history")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	if *history {
		os.Exit(runHistory(cfg, logger, *historyLimit))
	}

	ctx := context.Background()

	// --- AWS ---
	awsCfg, err := aws.NewConfig(ctx, cfg.Cluster.Region)
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	// Endpoint and CA are fixed per process; resolve them once at startup
	// unless the config pins them.
	info := model.ClusterInfo{Endpoint: cfg.Cluster.Endpoint, CAData: cfg.Cluster.CAData}
	if info.Endpoint == "" {
		resolver := aws.NewClusterResolver(awsCfg)
		info, err = resolver.ResolveCluster(ctx, cfg.Cluster.Name)
		if err != nil {
			logger.Error("failed to resolve cluster", "cluster", cfg.Cluster.Name, "error", err)
			os.Exit(1)
		}
	}

	// --- Cluster access ---
	tokens := aws.NewSTSTokenSource(awsCfg)
	builder, err := kubernetes.NewAccessBuilder(kubernetes.BuilderConfig{
		ClusterName:      cfg.Cluster.Name,
		Info:             info,
		Timeout:          cfg.Executor.Timeout,
		FieldManager:     cfg.Executor.FieldManager,
		DefaultNamespace: cfg.Executor.DefaultNamespace,
	}, tokens)
	if err != nil {
		logger.Error("failed to build cluster access", "error", err)
		os.Exit(1)
	}

	// --- Audit store (optional) ---
	var store *sqlite.Store
	var audits outbound.InvocationRepository
	if cfg.Audit.Enabled {
		store, err = sqlite.NewStore(sqlite.Config{
			Path:              cfg.Audit.Path,
			MaxOpenConns:      cfg.Audit.MaxOpenConns,
			PragmaJournalMode: cfg.Audit.PragmaJournalMode,
			PragmaBusyTimeout: cfg.Audit.PragmaBusyTimeout,
		})
		if err != nil {
			logger.Error("failed to open audit store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		audits = sqlite.NewInvocationRepo(store)
	}

	// --- Notifier (optional) ---
	var notifier outbound.Notifier
	if cfg.Slack.Enabled {
		notifier = slacknotifier.NewNotifier(slacknotifier.Config{
			BotToken: cfg.Slack.BotToken,
			Channel:  cfg.Slack.Channel,
		})
	}

	if *healthcheck {
		os.Exit(runHealthcheck(ctx, logger, builder, cfg.Executor.DefaultNamespace, store))
	}

	payload, err := readPayload(*payloadFile, flag.Args())
	if err != nil {
		logger.Error("failed to read payload", "error", err)
		os.Exit(1)
	}

	dispatcher := service.NewDispatcher(service.Deps{
		Access:   builder,
		Audits:   audits,
		Notifier: notifier,
		Logger:   logger,
	})

	env := dispatcher.Dispatch(ctx, payload)

	out, err := json.Marshal(env)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if env.Status != model.StatusOK {
		os.Exit(1)
	}
}

// readPayload returns the request body from the first positional argument,
// the -f file, or stdin, in that order of preference.
func readPayload(file string, args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	if file == "" || file == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(file)
}

func runHistory(cfg *config.Config, logger *slog.Logger, limit int) int {
	if !cfg.Audit.Enabled {
		logger.Error("audit store is disabled; enable audit in the config to use -history")
		return 1
	}
	store, err := sqlite.NewStore(sqlite.Config{
		Path:              cfg.Audit.Path,
		MaxOpenConns:      cfg.Audit.MaxOpenConns,
		PragmaJournalMode: cfg.Audit.PragmaJournalMode,
		PragmaBusyTimeout: cfg.Audit.PragmaBusyTimeout,
	})
	if err != nil {
		logger.Error("failed to open audit store", "error", err)
		return 1
	}
	defer store.Close()

	repo := sqlite.NewInvocationRepo(store)
	page, err := repo.List(context.Background(), outbound.InvocationFilter{}, outbound.PageRequest{
		Size: limit,
		Desc: true,
	})
	if err != nil {
		logger.Error("failed to list invocations", "error", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range page.Items {
		if err := enc.Encode(rec); err != nil {
			logger.Error("failed to encode record", "error", err)
			return 1
		}
	}
	return 0
}

func runHealthcheck(ctx context.Context, logger *slog.Logger, builder outbound.ClusterAccessBuilder, namespace string, store *sqlite.Store) int {
	checker := health.NewChecker()
	checker.Register("cluster", func(ctx context.Context) error {
		access, err := builder.Build(ctx)
		if err != nil {
			return err
		}
		_, err = access.Commander.Get(ctx, namespace)
		return err
	})
	if store != nil {
		checker.Register("audit", func(ctx context.Context) error {
			return store.DB.PingContext(ctx)
		})
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := checker.Check(checkCtx)
	out, _ := json.Marshal(result)
	fmt.Println(string(out))

	if result.Status != health.StatusHealthy {
		return 1
	}
	return 0
}

// buildLogger constructs a slog.Logger based on config. Logs go to stderr so
// stdout carries only the response envelope.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
