package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Profile is the registered business identity of the onboarding owner.
type Profile struct {
	LegalName string `json:"legal_name"`
	TradeName string `json:"trade_name,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
}

type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code,omitempty"`
}

type LegalRepresentative struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Document is a reference to a stored blob, owned by exactly one record.
// Handle is the blob key; it is unrelated to the record id.
type Document struct {
	Handle      string    `json:"handle"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Category    Category  `json:"category,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Record is the per-user onboarding submission. OwnerID is unique across
// all records: a user has at most one onboarding.
type Record struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"owner_id"`
	Profile Profile `json:"profile"`

	Address              *Address              `json:"address,omitempty"`
	LegalRepresentatives []LegalRepresentative `json:"legal_representatives,omitempty"`
	OperationalContact   *Contact              `json:"operational_contact,omitempty"`
	FinancialContact     *Contact              `json:"financial_contact,omitempty"`

	// Free-form onboarding sections, carried verbatim.
	Channel      json.RawMessage `json:"communication_and_channel,omitempty"`
	Agent        json.RawMessage `json:"intelligent_agent,omitempty"`
	Integrations json.RawMessage `json:"integrations_and_settings,omitempty"`

	Notes     string     `json:"notes"`
	Documents []Document `json:"documents"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FindDocument looks a document up by blob handle. Documents are keyed by
// handle, never by position: attach/detach may reorder the slice.
func (r *Record) FindDocument(handle string) (*Document, bool) {
	for i := range r.Documents {
		if r.Documents[i].Handle == handle {
			return &r.Documents[i], true
		}
	}
	return nil, false
}

// Submission is the payload of a create-or-merge request. Nil section
// pointers mean "leave untouched" on merge; on create the required
// sections must all be present.
type Submission struct {
	Profile              *Profile              `json:"profile"`
	Address              *Address              `json:"address"`
	LegalRepresentatives []LegalRepresentative `json:"legal_representatives"`
	OperationalContact   *Contact              `json:"operational_contact"`
	FinancialContact     *Contact              `json:"financial_contact"`
	Notes                *string               `json:"notes"`
	Channel              json.RawMessage       `json:"communication_and_channel"`
	Agent                json.RawMessage       `json:"intelligent_agent"`
	Integrations         json.RawMessage       `json:"integrations_and_settings"`
}

// ValidateForCreate checks the required-section rule for first-time
// submissions. Merges against an existing record have no required fields.
func (s Submission) ValidateForCreate() error {
	switch {
	case s.Profile == nil || strings.TrimSpace(s.Profile.LegalName) == "":
		return WrapError(ErrInvalidInput, "validate submission", errFieldRequired("profile.legal_name"))
	case s.Address == nil:
		return WrapError(ErrInvalidInput, "validate submission", errFieldRequired("address"))
	case len(s.LegalRepresentatives) == 0:
		return WrapError(ErrInvalidInput, "validate submission", errFieldRequired("legal_representatives"))
	case s.OperationalContact == nil:
		return WrapError(ErrInvalidInput, "validate submission", errFieldRequired("operational_contact"))
	case s.FinancialContact == nil:
		return WrapError(ErrInvalidInput, "validate submission", errFieldRequired("financial_contact"))
	}
	return nil
}

// Apply merges the submission over the record. Only sections present in
// the submission are replaced; everything else is left as stored.
func (s Submission) Apply(r *Record) {
	if s.Profile != nil {
		r.Profile = *s.Profile
	}
	if s.Address != nil {
		r.Address = s.Address
	}
	if s.LegalRepresentatives != nil {
		r.LegalRepresentatives = s.LegalRepresentatives
	}
	if s.OperationalContact != nil {
		r.OperationalContact = s.OperationalContact
	}
	if s.FinancialContact != nil {
		r.FinancialContact = s.FinancialContact
	}
	if s.Notes != nil {
		r.Notes = *s.Notes
	}
	if s.Channel != nil {
		r.Channel = s.Channel
	}
	if s.Agent != nil {
		r.Agent = s.Agent
	}
	if s.Integrations != nil {
		r.Integrations = s.Integrations
	}
}
