package domain

import (
	"fmt"
	"strings"
)

// Category tags the kind of document an upload represents.
type Category string

const (
	CategoryArticlesOfIncorporation Category = "contrato_social"
	CategoryIdentityDocument        Category = "rg_cpf"
	CategoryProofOfAddress          Category = "comprovante_endereco"
	CategoryLogo                    Category = "logotipo"
	CategoryOfficialWhatsAppNumber  Category = "numero_whatsapp_oficial"
	CategoryMetaBusinessConfig      Category = "configuracao_meta_business"
	CategoryMessageTemplates        Category = "templates_mensagem"
	CategoryAgentIdentity           Category = "nome_identidade_agente"
	CategoryVisualProfile           Category = "perfil_visual"
	CategoryKnowledgeBase           Category = "base_conhecimento"
	CategoryConversationJourney     Category = "jornada_conversacional"
	CategoryCRM                     Category = "crm"
	CategoryReportsDashboards       Category = "relatorios_dashboards"
	CategoryOtherIntegrations       Category = "outras_integracoes"
	CategoryCommunicationChannel    Category = "communication_and_channel"
	CategoryIntelligentAgent        Category = "intelligent_agent"
	CategoryIntegrationsSettings    Category = "integrations_and_settings"
)

var knownCategories = map[Category]struct{}{
	CategoryArticlesOfIncorporation: {},
	CategoryIdentityDocument:        {},
	CategoryProofOfAddress:          {},
	CategoryLogo:                    {},
	CategoryOfficialWhatsAppNumber:  {},
	CategoryMetaBusinessConfig:      {},
	CategoryMessageTemplates:        {},
	CategoryAgentIdentity:           {},
	CategoryVisualProfile:           {},
	CategoryKnowledgeBase:           {},
	CategoryConversationJourney:     {},
	CategoryCRM:                     {},
	CategoryReportsDashboards:       {},
	CategoryOtherIntegrations:       {},
	CategoryCommunicationChannel:    {},
	CategoryIntelligentAgent:        {},
	CategoryIntegrationsSettings:    {},
}

// ParseCategory validates a declared category. The empty string is valid:
// uploads may be uncategorized.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	category := Category(raw)
	if _, ok := knownCategories[category]; !ok {
		return "", WrapError(ErrInvalidInput, "parse category", fmt.Errorf("unrecognized document category %q", raw))
	}
	return category, nil
}

// UploadPolicy bounds a single upload: maximum size in bytes plus the
// declared content types admitted for it.
type UploadPolicy struct {
	MaxSizeBytes int64
	ContentTypes []string
}

func (p UploadPolicy) AllowsContentType(contentType string) bool {
	contentType = normalizeContentType(contentType)
	for _, allowed := range p.ContentTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

func normalizeContentType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

const (
	maxDocumentSizeBytes = 10 << 20
	maxLogoSizeBytes     = 2 << 20
)

// PolicySet selects the upload policy for a declared category. The logo
// policy is tighter than the general one; everything else shares the
// general document policy.
type PolicySet struct {
	Document UploadPolicy
	Logo     UploadPolicy
}

func DefaultPolicySet() PolicySet {
	return PolicySet{
		Document: UploadPolicy{
			MaxSizeBytes: maxDocumentSizeBytes,
			ContentTypes: []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"image/jpeg",
				"image/jpg",
				"image/png",
			},
		},
		Logo: UploadPolicy{
			MaxSizeBytes: maxLogoSizeBytes,
			ContentTypes: []string{
				"image/png",
				"image/jpg",
				"image/jpeg",
				"image/svg+xml",
			},
		},
	}
}

func (s PolicySet) For(category Category) UploadPolicy {
	if category == CategoryLogo {
		return s.Logo
	}
	return s.Document
}
