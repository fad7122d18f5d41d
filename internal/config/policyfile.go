package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	policyDomain "ledenbeheer/internal/domain/policy"
)

// PolicyDocument is the YAML form of the VOG policy.
type PolicyDocument struct {
	FromEmail        string  `yaml:"from_email"`
	FromName         string  `yaml:"from_name"`
	TemplateNew      string  `yaml:"template_new"`
	TemplateRenewal  string  `yaml:"template_renewal"`
	ExemptCommittees []int64 `yaml:"exempt_commissies"`
}

// ReadPolicyFile parses a policy document from path.
func ReadPolicyFile(path string) (policyDomain.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policyDomain.Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes YAML into a policy. Unknown keys are rejected; the
// policy itself is validated when it is saved.
func ParsePolicy(data []byte) (policyDomain.Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc PolicyDocument
	if err := dec.Decode(&doc); err != nil {
		return policyDomain.Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	return policyDomain.Policy{
		FromEmail:        doc.FromEmail,
		FromName:         doc.FromName,
		TemplateNew:      doc.TemplateNew,
		TemplateRenewal:  doc.TemplateRenewal,
		ExemptCommittees: doc.ExemptCommittees,
	}, nil
}

// WritePolicy encodes p as YAML.
func WritePolicy(w io.Writer, p policyDomain.Policy) error {
	exempt := p.ExemptCommittees
	if exempt == nil {
		exempt = []int64{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(PolicyDocument{
		FromEmail:        p.FromEmail,
		FromName:         p.FromName,
		TemplateNew:      p.TemplateNew,
		TemplateRenewal:  p.TemplateRenewal,
		ExemptCommittees: exempt,
	}); err != nil {
		return err
	}
	return enc.Close()
}
