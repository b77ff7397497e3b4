package ports

import (
	"context"
	"io"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

// OnboardingService is the inbound contract for record lifecycle calls.
type OnboardingService interface {
	Upsert(ctx context.Context, principal domain.Principal, submission domain.Submission) (*domain.Record, bool, error)
	GetByOwner(ctx context.Context, principal domain.Principal, ownerID string) (*domain.Record, error)
	UpdateOwned(ctx context.Context, principal domain.Principal, recordID string, patch domain.Submission) (*domain.Record, error)
	ListAll(ctx context.Context, principal domain.Principal) ([]domain.Record, error)
	DeleteCascade(ctx context.Context, principal domain.Principal, recordID string) error
}

// DocumentService is the inbound contract for document attach/stream/detach.
type DocumentService interface {
	Attach(ctx context.Context, principal domain.Principal, upload domain.Upload) (*domain.Document, error)
	Open(ctx context.Context, principal domain.Principal, ownerID, handle string) (io.ReadCloser, *domain.Document, error)
	Detach(ctx context.Context, principal domain.Principal, handle string) error
}

// StatusService governs the record review status.
type StatusService interface {
	SetStatus(ctx context.Context, principal domain.Principal, recordID, rawStatus string) (*domain.Record, error)
}
