package domain

import "testing"

func TestParseCategory(t *testing.T) {
	if _, err := ParseCategory("contrato_social"); err != nil {
		t.Fatalf("ParseCategory(contrato_social) error = %v", err)
	}
	if got, err := ParseCategory(""); err != nil || got != "" {
		t.Fatalf("empty category must be valid, got %q err %v", got, err)
	}
	if _, err := ParseCategory("selfie"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown category, got %v", err)
	}
}

func TestPolicySelectionByCategory(t *testing.T) {
	policies := DefaultPolicySet()

	logo := policies.For(CategoryLogo)
	if logo.MaxSizeBytes != 2<<20 {
		t.Fatalf("logo limit = %d, want 2MB", logo.MaxSizeBytes)
	}
	if logo.AllowsContentType("application/pdf") {
		t.Fatalf("logo policy must not admit pdf")
	}
	if !logo.AllowsContentType("image/svg+xml") {
		t.Fatalf("logo policy must admit svg")
	}

	general := policies.For(CategoryIdentityDocument)
	if general.MaxSizeBytes != 10<<20 {
		t.Fatalf("document limit = %d, want 10MB", general.MaxSizeBytes)
	}
	if uncategorized := policies.For(""); uncategorized.MaxSizeBytes != general.MaxSizeBytes {
		t.Fatalf("uncategorized uploads share the general policy")
	}
}

func TestAllowsContentTypeIgnoresParams(t *testing.T) {
	policy := DefaultPolicySet().Document
	if !policy.AllowsContentType("image/png; charset=binary") {
		t.Fatalf("content type parameters must be ignored")
	}
	if policy.AllowsContentType("text/plain") {
		t.Fatalf("text/plain is never admitted")
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"rascunho":       StatusDraft,
		"pendente":       StatusDraft,
		"em_analise":     StatusUnderReview,
		"em análise":     StatusUnderReview,
		"APROVADO":       StatusApproved,
		"reprovado":      StatusRejected,
		"rejeitado":      StatusRejected,
		" under_review ": StatusUnderReview,
	}
	for raw, want := range cases {
		got, err := NormalizeStatus(raw)
		if err != nil {
			t.Fatalf("NormalizeStatus(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := NormalizeStatus("done"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}
