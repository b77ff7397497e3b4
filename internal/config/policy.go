package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

type uploadPolicyFile struct {
	Document uploadPolicyEntry `yaml:"document"`
	Logo     uploadPolicyEntry `yaml:"logo"`
}

type uploadPolicyEntry struct {
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
	ContentTypes []string `yaml:"content_types"`
}

// LoadUploadPolicies returns the compiled-in policy table, overlaid with
// the YAML file at path when one is configured. Absent fields in the file
// keep their defaults.
func LoadUploadPolicies(path string) (domain.PolicySet, error) {
	policies := domain.DefaultPolicySet()
	if path == "" {
		return policies, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return policies, fmt.Errorf("read upload policy file: %w", err)
	}

	var file uploadPolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return policies, fmt.Errorf("parse upload policy file: %w", err)
	}

	applyEntry(&policies.Document, file.Document)
	applyEntry(&policies.Logo, file.Logo)
	return policies, nil
}

func applyEntry(policy *domain.UploadPolicy, entry uploadPolicyEntry) {
	if entry.MaxSizeBytes > 0 {
		policy.MaxSizeBytes = entry.MaxSizeBytes
	}
	if len(entry.ContentTypes) > 0 {
		policy.ContentTypes = entry.ContentTypes
	}
}
