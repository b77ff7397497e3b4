package httpadapter

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/convergelabs/onboarding-service/internal/config"
	"github.com/convergelabs/onboarding-service/internal/core/domain"
	"github.com/convergelabs/onboarding-service/internal/observability/metrics"
)

const testJWTSecret = "router-test-secret"

type onboardingFake struct {
	record  *domain.Record
	created bool
	records []domain.Record
	err     error

	lastPrincipal domain.Principal
}

func (f *onboardingFake) Upsert(_ context.Context, principal domain.Principal, _ domain.Submission) (*domain.Record, bool, error) {
	f.lastPrincipal = principal
	if f.err != nil {
		return nil, false, f.err
	}
	return f.record, f.created, nil
}

func (f *onboardingFake) GetByOwner(_ context.Context, principal domain.Principal, _ string) (*domain.Record, error) {
	f.lastPrincipal = principal
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *onboardingFake) UpdateOwned(_ context.Context, principal domain.Principal, _ string, _ domain.Submission) (*domain.Record, error) {
	f.lastPrincipal = principal
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *onboardingFake) ListAll(_ context.Context, principal domain.Principal) ([]domain.Record, error) {
	f.lastPrincipal = principal
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *onboardingFake) DeleteCascade(_ context.Context, principal domain.Principal, _ string) error {
	f.lastPrincipal = principal
	return f.err
}

type documentsFake struct {
	doc     *domain.Document
	content []byte
	err     error

	lastUpload  domain.Upload
	lastOwnerID string
	uploadBody  []byte
}

func (f *documentsFake) Attach(_ context.Context, _ domain.Principal, upload domain.Upload) (*domain.Document, error) {
	f.lastUpload = upload
	if upload.Body != nil {
		f.uploadBody, _ = io.ReadAll(upload.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *documentsFake) Open(_ context.Context, _ domain.Principal, ownerID, _ string) (io.ReadCloser, *domain.Document, error) {
	f.lastOwnerID = ownerID
	if f.err != nil {
		return nil, nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.content)), f.doc, nil
}

func (f *documentsFake) Detach(context.Context, domain.Principal, string) error {
	return f.err
}

type statusFake struct {
	record *domain.Record
	err    error

	lastRaw string
}

func (f *statusFake) SetStatus(_ context.Context, _ domain.Principal, _ string, rawStatus string) (*domain.Record, error) {
	f.lastRaw = rawStatus
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type routerFakes struct {
	onboarding *onboardingFake
	documents  *documentsFake
	status     *statusFake
}

func newTestHandler(cfg config.Config) (http.Handler, *routerFakes) {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = testJWTSecret
	}

	fakes := &routerFakes{
		onboarding: &onboardingFake{},
		documents:  &documentsFake{},
		status:     &statusFake{},
	}
	router := NewRouter(
		cfg,
		fakes.onboarding,
		fakes.documents,
		fakes.status,
		metrics.NewHTTPServerMetrics("api-test"),
	)
	return router.Handler(), fakes
}

func signToken(t *testing.T, subject string, role domain.Role, active bool) string {
	t.Helper()

	claims := accessClaims{
		Role:   string(role),
		Active: active,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authorize(t *testing.T, r *http.Request, subject string, role domain.Role) {
	t.Helper()
	r.Header.Set("Authorization", "Bearer "+signToken(t, subject, role, true))
}

func testRecord(ownerID string) *domain.Record {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &domain.Record{
		ID:      "rec-1",
		OwnerID: ownerID,
		Profile: domain.Profile{LegalName: "Acme Ltda"},
		Status:  domain.StatusDraft,
		Documents: []domain.Document{
			{Handle: "blob-1", Filename: "contrato.pdf", ContentType: "application/pdf", UploadedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
