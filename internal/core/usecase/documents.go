package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
	"github.com/convergelabs/onboarding-service/internal/core/ports"
)

// DocumentRegistryUseCase is the only component that mutates a record's
// document list. It writes blobs before metadata so a failed upload never
// leaves a dangling reference.
type DocumentRegistryUseCase struct {
	repo     ports.OnboardingRepository
	blobs    ports.BlobStore
	policies domain.PolicySet
	// Bound on individual blob operations. Zero disables the deadline.
	blobTimeout time.Duration
}

func NewDocumentRegistryUseCase(
	repo ports.OnboardingRepository,
	blobs ports.BlobStore,
	policies domain.PolicySet,
	blobTimeout time.Duration,
) *DocumentRegistryUseCase {
	return &DocumentRegistryUseCase{
		repo:        repo,
		blobs:       blobs,
		policies:    policies,
		blobTimeout: blobTimeout,
	}
}

func (uc *DocumentRegistryUseCase) blobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.blobTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, uc.blobTimeout)
}

// Attach validates the upload against the category policy, streams the
// bytes into the blob store, then appends the reference to the caller's
// record. The record must already exist.
func (uc *DocumentRegistryUseCase) Attach(
	ctx context.Context,
	principal domain.Principal,
	upload domain.Upload,
) (*domain.Document, error) {
	record, err := uc.repo.GetByOwner(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve onboarding for upload: %w", err)
	}

	policy := uc.policies.For(upload.Category)
	if !policy.AllowsContentType(upload.ContentType) {
		return nil, domain.WrapError(domain.ErrUnsupportedMedia, "attach document",
			fmt.Errorf("content type %q not allowed for category %q", upload.ContentType, upload.Category))
	}

	handle := uuid.NewString()
	blobCtx, cancel := uc.blobContext(ctx)
	defer cancel()
	if err := uc.blobs.Save(blobCtx, handle, upload.Body, policy.MaxSizeBytes); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	doc := domain.Document{
		Handle:      handle,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Category:    upload.Category,
		UploadedAt:  time.Now().UTC(),
	}
	if err := uc.repo.AppendDocument(ctx, record.ID, doc); err != nil {
		// The blob is in but the reference never landed; drop the blob so
		// nothing unreferenced lingers.
		cleanupCtx, cleanupCancel := uc.blobContext(context.WithoutCancel(ctx))
		defer cleanupCancel()
		if delErr := uc.blobs.Delete(cleanupCtx, handle); delErr != nil {
			slog.Warn("orphan_blob", "handle", handle, "error", delErr)
		}
		return nil, fmt.Errorf("append document reference: %w", err)
	}
	return &doc, nil
}

// Open streams a stored file. The handle must belong to the targeted
// record: a blob that exists but is referenced by another record is
// still reported as not found. Non-admins may only target their own
// record.
func (uc *DocumentRegistryUseCase) Open(
	ctx context.Context,
	principal domain.Principal,
	ownerID, handle string,
) (io.ReadCloser, *domain.Document, error) {
	if ownerID == "" || !principal.IsAdmin() {
		ownerID = principal.ID
	}
	record, err := uc.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve onboarding for download: %w", err)
	}
	doc, ok := record.FindDocument(handle)
	if !ok {
		return nil, nil, domain.WrapError(domain.ErrNotFound, "open document",
			fmt.Errorf("handle %s not in record %s", handle, record.ID))
	}

	reader, err := uc.blobs.Open(ctx, handle)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return reader, doc, nil
}

// Detach removes a document from the caller's record. The blob delete is
// attempted first; its failure is logged and tolerated, so removing the
// reference is never blocked by blob-layer inconsistency. A second detach
// of the same handle fails NotFound at the lookup.
func (uc *DocumentRegistryUseCase) Detach(ctx context.Context, principal domain.Principal, handle string) error {
	record, err := uc.repo.GetByOwner(ctx, principal.ID)
	if err != nil {
		return fmt.Errorf("resolve onboarding for delete: %w", err)
	}
	if _, ok := record.FindDocument(handle); !ok {
		return domain.WrapError(domain.ErrNotFound, "detach document",
			fmt.Errorf("handle %s not in record %s", handle, record.ID))
	}

	blobCtx, cancel := uc.blobContext(ctx)
	defer cancel()
	if err := uc.blobs.Delete(blobCtx, handle); err != nil {
		slog.Warn("blob_delete_failed", "handle", handle, "record_id", record.ID, "error", err)
	}

	if err := uc.repo.RemoveDocument(ctx, record.ID, handle); err != nil {
		return fmt.Errorf("remove document reference: %w", err)
	}
	return nil
}

// DetachAll attempts to delete every blob the record references,
// tolerating individual failures. Used by the administrative cascade
// delete just before the record row is destroyed.
func (uc *DocumentRegistryUseCase) DetachAll(ctx context.Context, record *domain.Record) {
	for _, doc := range record.Documents {
		blobCtx, cancel := uc.blobContext(ctx)
		if err := uc.blobs.Delete(blobCtx, doc.Handle); err != nil {
			slog.Warn("blob_delete_failed", "handle", doc.Handle, "record_id", record.ID, "error", err)
		}
		cancel()
	}
}
