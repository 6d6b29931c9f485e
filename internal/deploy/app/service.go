package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
	"github.com/nathantilsley/shipdeck/internal/deploy/ports"
)

// DeployService implements ports.DeployUseCase by driving one deployment
// through its phases: validate the descriptor, fetch the resolved revision
// into local_dir, materialize the env mapping, report. Any phase failure
// moves the run to Failed and no later phase executes.
type DeployService struct {
	gitFetcher     ports.SourceFetcherPort
	archiveFetcher ports.SourceFetcherPort // optional: GitHub tarball path
	envWriter      ports.EnvWriterPort
	perms          ports.PermissionsPort
	summary        ports.ChangeSummaryPort
	logger         *slog.Logger
	tracer         trace.Tracer
	deployCounter  metric.Int64Counter
	failCounter    metric.Int64Counter
}

// NewDeployService creates a DeployService wired with all driven ports.
// archiveFetcher is optional (can be nil) - when present it is preferred
// for github.com remotes, with gitFetcher handling everything else.
func NewDeployService(
	gitFetcher ports.SourceFetcherPort,
	archiveFetcher ports.SourceFetcherPort,
	envWriter ports.EnvWriterPort,
	perms ports.PermissionsPort,
	summary ports.ChangeSummaryPort,
	logger *slog.Logger,
	tracer trace.Tracer,
	meter metric.Meter,
) (*DeployService, error) {
	deployCounter, err := meter.Int64Counter("shipdeck.deployments",
		metric.WithDescription("Completed deployment runs"))
	if err != nil {
		return nil, fmt.Errorf("creating deployment counter: %w", err)
	}
	failCounter, err := meter.Int64Counter("shipdeck.deployment.failures",
		metric.WithDescription("Deployment runs that ended in the Failed phase"))
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}

	return &DeployService{
		gitFetcher:     gitFetcher,
		archiveFetcher: archiveFetcher,
		envWriter:      envWriter,
		perms:          perms,
		summary:        summary,
		logger:         logger,
		tracer:         tracer,
		deployCounter:  deployCounter,
		failCounter:    failCounter,
	}, nil
}

// Execute runs one deployment. The returned Report is populated in both
// the success and failure cases; err carries the originating typed error.
func (s *DeployService) Execute(ctx context.Context, desc domain.Descriptor) (domain.Report, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "deploy.execute", trace.WithAttributes(
		attribute.String("deploy.repo_url", desc.RepoURL),
		attribute.String("deploy.ref", desc.Ref()),
	))
	defer span.End()

	rep := domain.Report{Phase: domain.PhaseIdle}
	desc.Normalize()

	s.advance(&rep, domain.PhaseLoading)
	if err := desc.Validate(); err != nil {
		return s.fail(ctx, &rep, start, fmt.Errorf("validating descriptor: %w", err))
	}
	s.logger.Info("descriptor loaded",
		"repoURL", desc.RepoURL,
		"ref", desc.Ref(),
		"pinned", desc.Pinned(),
		"localDir", desc.LocalDir,
	)

	s.advance(&rep, domain.PhaseFetching)
	before, err := s.summary.Manifest(desc.LocalDir)
	if err != nil {
		s.logger.Warn("could not capture previous tree manifest", "error", err)
	}
	if err := s.perms.Unlock(desc.LocalDir); err != nil {
		s.logger.Warn("could not unlock previous deployment", "localDir", desc.LocalDir, "error", err)
	}
	snap, err := s.fetcher(desc).Fetch(ctx, desc)
	if err != nil {
		return s.fail(ctx, &rep, start, fmt.Errorf("fetching source: %w", err))
	}
	rep.Revision = snap.Revision
	rep.FilesDeployed = snap.FileCount
	rep.FilesExcluded = snap.ExcludedCount
	span.SetAttributes(attribute.String("deploy.revision", snap.Revision))
	s.logger.Info("source fetched",
		"revision", snap.Revision,
		"files", snap.FileCount,
		"excluded", snap.ExcludedCount,
	)

	s.advance(&rep, domain.PhaseApplyingEnv)
	if err := s.envWriter.Apply(ctx, desc.LocalDir, desc.Env); err != nil {
		return s.fail(ctx, &rep, start, fmt.Errorf("applying environment: %w", err))
	}
	s.logger.Info("environment applied", "vars", len(desc.Env))
	if desc.ReadOnly {
		if err := s.perms.Lock(desc.LocalDir); err != nil {
			return s.fail(ctx, &rep, start, fmt.Errorf("locking deployed tree: %w", err))
		}
		s.logger.Info("deployed tree locked read-only")
	}

	s.advance(&rep, domain.PhaseDone)
	after, err := s.summary.Manifest(desc.LocalDir)
	if err != nil {
		s.logger.Warn("could not capture deployed tree manifest", "error", err)
	} else {
		rep.ChangeSummary = s.summary.Summarize(
			treeLabel(desc.LocalDir, ""),
			treeLabel(desc.LocalDir, snap.Revision),
			before, after,
		)
	}
	rep.Status = domain.StatusSucceeded
	rep.Elapsed = time.Since(start)
	s.deployCounter.Add(ctx, 1)
	s.logger.Info("deployment complete",
		"revision", rep.Revision,
		"elapsed", rep.Elapsed,
		"changed", rep.ChangeSummary != "",
	)
	return rep, nil
}

// fetcher picks the source fetcher for a descriptor: the archive fetcher
// for github.com remotes when configured, the git fetcher otherwise.
func (s *DeployService) fetcher(desc domain.Descriptor) ports.SourceFetcherPort {
	if s.archiveFetcher != nil {
		if _, _, ok := domain.ParseGitHubRemote(desc.RepoURL); ok {
			return s.archiveFetcher
		}
	}
	return s.gitFetcher
}

func (s *DeployService) advance(rep *domain.Report, next domain.Phase) {
	if !rep.Phase.CanTransition(next) {
		s.logger.Error("illegal phase transition", "from", rep.Phase.String(), "to", next.String())
	}
	rep.Phase = next
	s.logger.Debug("phase transition", "phase", next.String())
}

func (s *DeployService) fail(
	ctx context.Context,
	rep *domain.Report,
	start time.Time,
	err error,
) (domain.Report, error) {
	rep.FailedIn = rep.Phase
	rep.Phase = domain.PhaseFailed
	rep.Status = domain.StatusFailed
	rep.Error = err.Error()
	rep.Elapsed = time.Since(start)
	s.failCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("deploy.failed_phase", rep.FailedIn.String()),
	))
	s.logger.Error("deployment failed", "phase", rep.FailedIn.String(), "error", err)
	return *rep, err
}

// treeLabel identifies a tree state in the change summary.
// Example: "/srv/app @ 4fa21b0c9d3e" or "/srv/app @ previous"
func treeLabel(dir, revision string) string {
	if revision == "" {
		return dir + " @ previous"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return dir + " @ " + revision
}
