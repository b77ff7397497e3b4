package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/convergelabs/onboarding-service/internal/config"
	"github.com/convergelabs/onboarding-service/internal/core/ports"
	"github.com/convergelabs/onboarding-service/internal/core/usecase"
	"github.com/convergelabs/onboarding-service/internal/infrastructure/queue/nats"
	"github.com/convergelabs/onboarding-service/internal/infrastructure/repository/postgres"
	"github.com/convergelabs/onboarding-service/internal/infrastructure/resilience"
	"github.com/convergelabs/onboarding-service/internal/infrastructure/storage/localfs"
	"github.com/convergelabs/onboarding-service/internal/observability/metrics"
)

type App struct {
	Config config.Config

	OnboardingUC ports.OnboardingService
	DocumentsUC  ports.DocumentService
	StatusUC     ports.StatusService
	Metrics      *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewOnboardingRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	blobs, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	policies, err := config.LoadUploadPolicies(cfg.UploadPolicyPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load upload policies: %w", err)
	}

	// NATS is optional: without a URL the service runs without lifecycle
	// events, which the use cases tolerate.
	var publisher ports.EventPublisher
	var closeQueue func()
	if cfg.NATSURL != "" {
		executor := resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts: cfg.ResilienceRetryMaxAttempts,
			BreakerEnabled:   cfg.ResilienceBreakerEnabled,
		})
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		publisher = queue
		closeQueue = queue.Close
	}

	registryUC := usecase.NewDocumentRegistryUseCase(
		repo,
		blobs,
		policies,
		time.Duration(cfg.BlobTimeoutSeconds)*time.Second,
	)
	onboardingUC := usecase.NewOnboardingUseCase(repo, registryUC, publisher)
	statusUC := usecase.NewStatusUseCase(repo, publisher)

	return &App{
		Config: cfg,

		OnboardingUC: onboardingUC,
		DocumentsUC:  registryUC,
		StatusUC:     statusUC,
		Metrics:      metrics.NewHTTPServerMetrics("api"),

		closeFn: func() {
			if closeQueue != nil {
				closeQueue()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
