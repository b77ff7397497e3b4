package ports

import (
	"context"
	"io"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

// OnboardingRepository persists onboarding records. Create must enforce
// owner uniqueness and report a duplicate as domain.ErrConflict.
// AppendDocument and RemoveDocument serialize concurrent document-list
// mutations per record (single writer per record id).
type OnboardingRepository interface {
	Create(ctx context.Context, record *domain.Record) error
	GetByOwner(ctx context.Context, ownerID string) (*domain.Record, error)
	GetByID(ctx context.Context, id string) (*domain.Record, error)
	Update(ctx context.Context, record *domain.Record) error
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	AppendDocument(ctx context.Context, recordID string, doc domain.Document) error
	RemoveDocument(ctx context.Context, recordID, handle string) error
	List(ctx context.Context) ([]domain.Record, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore stores file bytes addressed by an opaque key. Save consumes
// the reader incrementally and fails with domain.ErrPayloadTooLarge once
// limit bytes are exceeded; a failed or abandoned Save must never leave a
// readable blob behind.
type BlobStore interface {
	Save(ctx context.Context, key string, data io.Reader, limit int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// EventPublisher emits review-lifecycle notifications. Delivery is
// best-effort from the caller's perspective.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, recordID string, status domain.Status) error
	PublishRecordDeleted(ctx context.Context, recordID string) error
}
