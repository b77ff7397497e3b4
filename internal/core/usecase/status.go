package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
	"github.com/convergelabs/onboarding-service/internal/core/ports"
)

// StatusUseCase governs the review status of onboarding records.
// Transitions are unrestricted: an administrator may move any record to
// any canonical state.
type StatusUseCase struct {
	repo      ports.OnboardingRepository
	publisher ports.EventPublisher
}

func NewStatusUseCase(repo ports.OnboardingRepository, publisher ports.EventPublisher) *StatusUseCase {
	return &StatusUseCase{repo: repo, publisher: publisher}
}

// SetStatus normalizes rawStatus to a canonical state and persists it.
// Administrative. The status-changed event is best-effort: a publish
// failure is logged, never surfaced.
func (uc *StatusUseCase) SetStatus(
	ctx context.Context,
	principal domain.Principal,
	recordID, rawStatus string,
) (*domain.Record, error) {
	if !principal.IsAdmin() {
		return nil, domain.WrapError(domain.ErrForbidden, "set status",
			fmt.Errorf("role %s cannot change review status", principal.Role))
	}

	status, err := domain.NormalizeStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateStatus(ctx, recordID, status); err != nil {
		return nil, fmt.Errorf("persist status: %w", err)
	}

	record, err := uc.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("reload onboarding: %w", err)
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishStatusChanged(ctx, record.ID, status); err != nil {
			slog.Warn("status_changed_event_publish_failed", "record_id", record.ID, "status", status, "error", err)
		}
	}
	return record, nil
}
