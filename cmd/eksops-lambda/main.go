package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/majiny/eksops/internal/adapter/outbound/aws"
	"github.com/majiny/eksops/internal/adapter/outbound/kubernetes"
	slacknotifier "github.com/majiny/eksops/internal/adapter/outbound/notification/slack"
	"github.com/majiny/eksops/internal/adapter/outbound/persistence/sqlite"
	"github.com/majiny/eksops/internal/config"
	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/internal/domain/service"
	"github.com/majiny/eksops/pkg/version"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("failed to load config from environment", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	awsCfg, err := aws.NewConfig(ctx, cfg.Cluster.Region)
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	// Endpoint and CA resolve once per cold start; the bearer token is
	// refreshed on every invocation by the access builder.
	info := model.ClusterInfo{Endpoint: cfg.Cluster.Endpoint, CAData: cfg.Cluster.CAData}
	if info.Endpoint == "" {
		info, err = aws.NewClusterResolver(awsCfg).ResolveCluster(ctx, cfg.Cluster.Name)
		if err != nil {
			logger.Error("failed to resolve cluster", "cluster", cfg.Cluster.Name, "error", err)
			os.Exit(1)
		}
	}

	builder, err := kubernetes.NewAccessBuilder(kubernetes.BuilderConfig{
		ClusterName:      cfg.Cluster.Name,
		Info:             info,
		Timeout:          cfg.Executor.Timeout,
		FieldManager:     cfg.Executor.FieldManager,
		DefaultNamespace: cfg.Executor.DefaultNamespace,
	}, aws.NewSTSTokenSource(awsCfg))
	if err != nil {
		logger.Error("failed to build cluster access", "error", err)
		os.Exit(1)
	}

	var audits outbound.InvocationRepository
	if cfg.Audit.Enabled {
		store, err := sqlite.NewStore(sqlite.Config{
			Path:              cfg.Audit.Path,
			MaxOpenConns:      cfg.Audit.MaxOpenConns,
			PragmaJournalMode: cfg.Audit.PragmaJournalMode,
			PragmaBusyTimeout: cfg.Audit.PragmaBusyTimeout,
		})
		if err != nil {
			logger.Error("failed to open audit store", "error", err)
			os.Exit(1)
		}
		audits = sqlite.NewInvocationRepo(store)
	}

	var notifier outbound.Notifier
	if cfg.Slack.Enabled {
		notifier = slacknotifier.NewNotifier(slacknotifier.Config{
			BotToken: cfg.Slack.BotToken,
			Channel:  cfg.Slack.Channel,
		})
	}

	dispatcher := service.NewDispatcher(service.Deps{
		Access:   builder,
		Audits:   audits,
		Notifier: notifier,
		Logger:   logger,
	})

	logger.Info("eksops lambda ready", "version", version.String(), "cluster", cfg.Cluster.Name)

	// The envelope itself carries success or failure; returning a non-nil
	// error would make the runtime retry and mask the structured response.
	lambda.Start(func(ctx context.Context, event json.RawMessage) (model.ResponseEnvelope, error) {
		return dispatcher.Dispatch(ctx, event), nil
	})
}
