// Package main provides the shipdeck server for deploying repository snapshots.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/envfile"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/gitcli"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/githubarchive"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/httpin"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/perms"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/treediff"
	"github.com/nathantilsley/shipdeck/internal/deploy/app"
	"github.com/nathantilsley/shipdeck/internal/deploy/ports"
	"github.com/nathantilsley/shipdeck/internal/platform/config"
	ghclient "github.com/nathantilsley/shipdeck/internal/platform/github"
	"github.com/nathantilsley/shipdeck/internal/platform/telemetry"
)

// Container holds all application dependencies.
type Container struct {
	Config        config.Config
	Logger        *slog.Logger
	Telemetry     *telemetry.Telemetry
	DeployService ports.DeployUseCase
	DeployHandler *httpin.Handler
}

// NewContainer builds and wires all dependencies.
func NewContainer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Container, error) {
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	// Adapters
	gitFetcher := gitcli.New(log)
	envWriter := envfile.New()
	treePerms := perms.New(log)
	summary := treediff.New()

	// Optionally create the GitHub archive fetcher (preferred for
	// github.com remotes when App credentials are configured)
	var archiveFetcher ports.SourceFetcherPort
	if cfg.GitHubConfigured() {
		log.Info("github archive fetching enabled", "appID", cfg.GitHubAppID)
		githubClient, err := ghclient.NewClient(
			cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKey,
		)
		if err != nil {
			return nil, fmt.Errorf("creating github client: %w", err)
		}
		archiveFetcher = githubarchive.New(githubClient, log)
	} else {
		log.Info("github app not configured, fetching through git only")
	}

	// Domain service
	deployService, err := app.NewDeployService(
		gitFetcher,
		archiveFetcher, // nil if not configured
		envWriter,
		treePerms,
		summary,
		log,
		tel.Tracer,
		tel.Meter,
	)
	if err != nil {
		return nil, fmt.Errorf("creating deploy service: %w", err)
	}

	// Deploy handler
	deployHandler := httpin.NewHandler(deployService, cfg.WebhookSecret, log)

	return &Container{
		Config:        cfg,
		Logger:        log,
		Telemetry:     tel,
		DeployService: deployService,
		DeployHandler: deployHandler,
	}, nil
}
