package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
	"github.com/convergelabs/onboarding-service/internal/core/ports"
)

// OnboardingUseCase owns create/merge/fetch of onboarding records.
type OnboardingUseCase struct {
	repo      ports.OnboardingRepository
	registry  *DocumentRegistryUseCase
	publisher ports.EventPublisher
}

func NewOnboardingUseCase(
	repo ports.OnboardingRepository,
	registry *DocumentRegistryUseCase,
	publisher ports.EventPublisher,
) *OnboardingUseCase {
	return &OnboardingUseCase{
		repo:      repo,
		registry:  registry,
		publisher: publisher,
	}
}

// Upsert creates the caller's record on first submission and merges the
// provided sections over it afterwards. The returned bool reports whether
// a new record was created. Two concurrent first-time submissions race on
// the owner uniqueness constraint; the loser retries as a fetch-and-merge.
func (uc *OnboardingUseCase) Upsert(
	ctx context.Context,
	principal domain.Principal,
	submission domain.Submission,
) (*domain.Record, bool, error) {
	existing, err := uc.repo.GetByOwner(ctx, principal.ID)
	switch {
	case err == nil:
		record, mergeErr := uc.merge(ctx, existing, submission)
		return record, false, mergeErr
	case !domain.IsKind(err, domain.ErrNotFound):
		return nil, false, fmt.Errorf("resolve onboarding for owner: %w", err)
	}

	if err := submission.ValidateForCreate(); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	record := &domain.Record{
		ID:        uuid.NewString(),
		OwnerID:   principal.ID,
		Documents: []domain.Document{},
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	submission.Apply(record)

	if err := uc.repo.Create(ctx, record); err != nil {
		if !domain.IsKind(err, domain.ErrConflict) {
			return nil, false, fmt.Errorf("create onboarding: %w", err)
		}
		// Lost the creation race: the record exists now, merge into it.
		existing, fetchErr := uc.repo.GetByOwner(ctx, principal.ID)
		if fetchErr != nil {
			return nil, false, fmt.Errorf("resolve onboarding after conflict: %w", fetchErr)
		}
		merged, mergeErr := uc.merge(ctx, existing, submission)
		return merged, false, mergeErr
	}
	return record, true, nil
}

func (uc *OnboardingUseCase) merge(
	ctx context.Context,
	record *domain.Record,
	submission domain.Submission,
) (*domain.Record, error) {
	submission.Apply(record)
	record.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("update onboarding: %w", err)
	}
	return record, nil
}

// GetByOwner fetches the record owned by ownerID. Any authenticated
// principal may read; mutations are where ownership is enforced.
func (uc *OnboardingUseCase) GetByOwner(
	ctx context.Context,
	_ domain.Principal,
	ownerID string,
) (*domain.Record, error) {
	record, err := uc.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get onboarding by owner: %w", err)
	}
	return record, nil
}

// UpdateOwned applies a partial patch to the record identified by
// recordID after verifying the caller owns it.
func (uc *OnboardingUseCase) UpdateOwned(
	ctx context.Context,
	principal domain.Principal,
	recordID string,
	patch domain.Submission,
) (*domain.Record, error) {
	record, err := uc.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get onboarding: %w", err)
	}
	if record.OwnerID != principal.ID {
		return nil, domain.WrapError(domain.ErrForbidden, "update onboarding",
			fmt.Errorf("record %s is not owned by caller", recordID))
	}
	return uc.merge(ctx, record, patch)
}

// ListAll returns every record. Administrative.
func (uc *OnboardingUseCase) ListAll(ctx context.Context, principal domain.Principal) ([]domain.Record, error) {
	if !principal.IsAdmin() {
		return nil, domain.WrapError(domain.ErrForbidden, "list onboardings",
			fmt.Errorf("role %s cannot list onboardings", principal.Role))
	}
	records, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list onboardings: %w", err)
	}
	return records, nil
}

// DeleteCascade destroys a record and every blob its documents reference.
// Administrative. Blob deletes are attempted before the row goes away;
// individual failures are logged and tolerated.
func (uc *OnboardingUseCase) DeleteCascade(ctx context.Context, principal domain.Principal, recordID string) error {
	if !principal.IsAdmin() {
		return domain.WrapError(domain.ErrForbidden, "delete onboarding",
			fmt.Errorf("role %s cannot delete onboardings", principal.Role))
	}

	record, err := uc.repo.GetByID(ctx, recordID)
	if err != nil {
		return fmt.Errorf("get onboarding: %w", err)
	}

	uc.registry.DetachAll(ctx, record)

	if err := uc.repo.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("delete onboarding: %w", err)
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishRecordDeleted(ctx, record.ID); err != nil {
			slog.Warn("record_deleted_event_publish_failed", "record_id", record.ID, "error", err)
		}
	}
	return nil
}
