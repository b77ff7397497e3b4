package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

func TestSetStatusRequiresAdmin(t *testing.T) {
	repo := newRepoFake()
	repo.records["rec-1"] = &domain.Record{ID: "rec-1", OwnerID: "user-1", Status: domain.StatusDraft}
	uc := NewStatusUseCase(repo, &publisherFake{})

	client := domain.Principal{ID: "user-1", Role: domain.RoleClient, Active: true}
	_, err := uc.SetStatus(context.Background(), client, "rec-1", "approved")
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if repo.records["rec-1"].Status != domain.StatusDraft {
		t.Fatalf("status must be unchanged after forbidden call")
	}
}

func TestSetStatusNormalizesSynonyms(t *testing.T) {
	repo := newRepoFake()
	repo.records["rec-1"] = &domain.Record{ID: "rec-1", OwnerID: "user-1", Status: domain.StatusDraft}
	publisher := &publisherFake{}
	uc := NewStatusUseCase(repo, publisher)
	admin := domain.Principal{ID: "admin-1", Role: domain.RoleAdmin, Active: true}

	cases := map[string]domain.Status{
		"em_analise": domain.StatusUnderReview,
		"aprovado":   domain.StatusApproved,
		"reprovado":  domain.StatusRejected,
		"rejected":   domain.StatusRejected,
		"pendente":   domain.StatusDraft,
	}
	for raw, want := range cases {
		record, err := uc.SetStatus(context.Background(), admin, "rec-1", raw)
		if err != nil {
			t.Fatalf("SetStatus(%q) error = %v", raw, err)
		}
		if record.Status != want {
			t.Fatalf("SetStatus(%q) stored %q, want %q", raw, record.Status, want)
		}
	}
	if len(publisher.statusChanged) != len(cases) {
		t.Fatalf("expected %d status events, got %d", len(cases), len(publisher.statusChanged))
	}
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	repo := newRepoFake()
	repo.records["rec-1"] = &domain.Record{ID: "rec-1", OwnerID: "user-1", Status: domain.StatusUnderReview}
	uc := NewStatusUseCase(repo, &publisherFake{})
	admin := domain.Principal{ID: "admin-1", Role: domain.RoleAdmin, Active: true}

	_, err := uc.SetStatus(context.Background(), admin, "rec-1", "archived")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if repo.records["rec-1"].Status != domain.StatusUnderReview {
		t.Fatalf("status must be unchanged after rejected value")
	}
}

func TestSetStatusToleratesPublishFailure(t *testing.T) {
	repo := newRepoFake()
	repo.records["rec-1"] = &domain.Record{ID: "rec-1", OwnerID: "user-1", Status: domain.StatusDraft}
	uc := NewStatusUseCase(repo, &publisherFake{err: errors.New("nats down")})
	admin := domain.Principal{ID: "admin-1", Role: domain.RoleAdmin, Active: true}

	record, err := uc.SetStatus(context.Background(), admin, "rec-1", "approved")
	if err != nil {
		t.Fatalf("SetStatus() must tolerate publish failure, got %v", err)
	}
	if record.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %s", record.Status)
	}
}
