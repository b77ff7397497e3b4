package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*OnboardingRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &OnboardingRepository{db: db}, mock, func() { _ = db.Close() }
}

func sampleRecord() *domain.Record {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return &domain.Record{
		ID:        "rec-1",
		OwnerID:   "user-1",
		Profile:   domain.Profile{LegalName: "Acme LTDA"},
		Address:   &domain.Address{Street: "Rua Augusta", City: "Sao Paulo", State: "SP"},
		Documents: []domain.Document{},
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO onboardings").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "onboardings_owner_id_key"})

	err := repo.Create(context.Background(), sampleRecord())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByOwnerReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, owner_id, profile").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByOwner(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE onboardings").
		WithArgs("missing", string(domain.StatusApproved), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusApproved)
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendDocumentLocksRowAndAppends(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	existing, _ := json.Marshal([]domain.Document{{Handle: "h1", Filename: "old.pdf"}})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT documents FROM onboardings WHERE id = .+ FOR UPDATE").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"documents"}).AddRow(existing))
	mock.ExpectExec("UPDATE onboardings SET documents").
		WithArgs("rec-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc := domain.Document{Handle: "h2", Filename: "new.pdf", ContentType: "application/pdf"}
	if err := repo.AppendDocument(context.Background(), "rec-1", doc); err != nil {
		t.Fatalf("AppendDocument() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendDocumentMissingRecord(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT documents FROM onboardings WHERE id = .+ FOR UPDATE").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.AppendDocument(context.Background(), "missing", domain.Document{Handle: "h1"})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRemoveDocumentIsIdempotent(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	// The handle is already gone; the mutation commits an unchanged list.
	existing, _ := json.Marshal([]domain.Document{{Handle: "h1"}})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT documents FROM onboardings WHERE id = .+ FOR UPDATE").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"documents"}).AddRow(existing))
	mock.ExpectExec("UPDATE onboardings SET documents").
		WithArgs("rec-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.RemoveDocument(context.Background(), "rec-1", "gone"); err != nil {
		t.Fatalf("RemoveDocument() of absent handle error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM onboardings").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
