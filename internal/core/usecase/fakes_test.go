package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

type repoFake struct {
	mu      sync.Mutex
	records map[string]*domain.Record

	createErr error
	// conflictWith simulates losing a creation race: the first Create
	// fails with ErrConflict and the winner's record becomes visible.
	conflictWith *domain.Record
	updateErr    error
	appendErr    error
	removeErr    error
	deleteErr    error
}

func newRepoFake() *repoFake {
	return &repoFake{records: map[string]*domain.Record{}}
}

func (f *repoFake) Create(_ context.Context, record *domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.conflictWith != nil {
		winner := f.conflictWith
		f.conflictWith = nil
		f.records[winner.ID] = winner
		return domain.WrapError(domain.ErrConflict, "create onboarding", fmt.Errorf("owner %s already onboarded", record.OwnerID))
	}
	for _, existing := range f.records {
		if existing.OwnerID == record.OwnerID {
			return domain.WrapError(domain.ErrConflict, "create onboarding", fmt.Errorf("owner %s already onboarded", record.OwnerID))
		}
	}
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *repoFake) GetByOwner(_ context.Context, ownerID string) (*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.OwnerID == ownerID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get onboarding by owner", fmt.Errorf("owner %s", ownerID))
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get onboarding", fmt.Errorf("id %s", id))
	}
	clone := *record
	return &clone, nil
}

func (f *repoFake) Update(_ context.Context, record *domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.records[record.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update onboarding", fmt.Errorf("id %s", record.ID))
	}
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update status", fmt.Errorf("id %s", id))
	}
	record.Status = status
	return nil
}

func (f *repoFake) AppendDocument(_ context.Context, recordID string, doc domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	record, ok := f.records[recordID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "append document", fmt.Errorf("id %s", recordID))
	}
	record.Documents = append(record.Documents, doc)
	return nil
}

func (f *repoFake) RemoveDocument(_ context.Context, recordID, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	record, ok := f.records[recordID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "remove document", fmt.Errorf("id %s", recordID))
	}
	kept := record.Documents[:0]
	for _, doc := range record.Documents {
		if doc.Handle != handle {
			kept = append(kept, doc)
		}
	}
	record.Documents = kept
	return nil
}

func (f *repoFake) List(context.Context) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Record, 0, len(f.records))
	for _, record := range f.records {
		out = append(out, *record)
	}
	return out, nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.records[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete onboarding", fmt.Errorf("id %s", id))
	}
	delete(f.records, id)
	return nil
}

type blobsFake struct {
	mu    sync.Mutex
	blobs map[string][]byte

	saveErr   error
	deleteErr error
	deleted   []string
}

func newBlobsFake() *blobsFake {
	return &blobsFake{blobs: map[string][]byte{}}
}

func (f *blobsFake) Save(_ context.Context, key string, data io.Reader, limit int64) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if limit > 0 && int64(len(raw)) > limit {
		return domain.WrapError(domain.ErrPayloadTooLarge, "save blob", fmt.Errorf("%d bytes over limit %d", len(raw), limit))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = raw
	return nil
}

func (f *blobsFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.blobs[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open blob", fmt.Errorf("key %s", key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *blobsFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.blobs[key]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete blob", fmt.Errorf("key %s", key))
	}
	delete(f.blobs, key)
	return nil
}

type publisherFake struct {
	statusChanged []string
	deleted       []string
	err           error
}

func (f *publisherFake) PublishStatusChanged(_ context.Context, recordID string, status domain.Status) error {
	if f.err != nil {
		return f.err
	}
	f.statusChanged = append(f.statusChanged, recordID+":"+string(status))
	return nil
}

func (f *publisherFake) PublishRecordDeleted(_ context.Context, recordID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, recordID)
	return nil
}

func validSubmission() domain.Submission {
	notes := "first contact"
	return domain.Submission{
		Profile:              &domain.Profile{LegalName: "Acme Comercio LTDA", TradeName: "Acme", TaxID: "12.345.678/0001-90"},
		Address:              &domain.Address{Street: "Rua Augusta", Number: "100", City: "Sao Paulo", State: "SP"},
		LegalRepresentatives: []domain.LegalRepresentative{{Name: "Maria Souza", Email: "maria@acme.example"}},
		OperationalContact:   &domain.Contact{Name: "Ops", Email: "ops@acme.example"},
		FinancialContact:     &domain.Contact{Name: "Fin", Email: "fin@acme.example"},
		Notes:                &notes,
	}
}
