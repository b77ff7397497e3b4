package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// statusSynonyms maps the legacy Portuguese labels still sent by older
// clients onto the canonical states. Only canonical values are stored.
var statusSynonyms = map[string]Status{
	"draft":        StatusDraft,
	"rascunho":     StatusDraft,
	"pendente":     StatusDraft,
	"under_review": StatusUnderReview,
	"em_analise":   StatusUnderReview,
	"em análise":   StatusUnderReview,
	"approved":     StatusApproved,
	"aprovado":     StatusApproved,
	"rejected":     StatusRejected,
	"rejeitado":    StatusRejected,
	"reprovado":    StatusRejected,
}

// NormalizeStatus resolves a submitted status label to its canonical
// state. Unrecognized labels are rejected before any mutation happens.
func NormalizeStatus(raw string) (Status, error) {
	status, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", WrapError(ErrInvalidInput, "normalize status", fmt.Errorf("unrecognized status %q", raw))
	}
	return status, nil
}
