package policy

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
)

// Placeholder names understood by the reminder templates.
const (
	PlaceholderFirstName       = "first_name"
	PlaceholderPreviousVOGDate = "previous_vog_date"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength     = 100
	MaxTemplateLength = 20000
)

// placeholderPattern matches {name} tokens in a template body.
var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// PolicyError rejects a settings save. Policy is a singleton, so a rejected
// save changes nothing.
type PolicyError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid policy %s: %s", e.Field, e.Reason)
}

// Policy is the process-wide certificate-of-conduct configuration.
type Policy struct {
	FromEmail        string
	FromName         string
	TemplateNew      string
	TemplateRenewal  string
	ExemptCommittees []int64
}

// Default returns the policy used before an administrator saves settings.
func Default() Policy {
	return Policy{
		FromEmail: "vog@example.org",
		FromName:  "Vrijwilligerscoördinatie",
		TemplateNew: "Beste {first_name},\n\n" +
			"Voor je vrijwilligerswerk met jeugdleden hebben we een Verklaring Omtrent Gedrag (VOG) van je nodig. " +
			"Je ontvangt binnenkort een aanvraag van Justis. Wil je die zo snel mogelijk afronden?\n\n" +
			"Met vriendelijke groet,\nVrijwilligerscoördinatie",
		TemplateRenewal: "Beste {first_name},\n\n" +
			"Je huidige VOG is afgegeven op {previous_vog_date} en is bijna drie jaar oud. " +
			"Daarom vragen we een nieuwe VOG voor je aan. Je ontvangt binnenkort een aanvraag van Justis.\n\n" +
			"Met vriendelijke groet,\nVrijwilligerscoördinatie",
	}
}

// Validate checks if the Policy has valid data.
// PRE: Policy struct is initialized
// POST: Returns a *PolicyError if validation fails, nil otherwise
// INVARIANT: templates may only reference placeholders that resolve for their variant
func (p *Policy) Validate() error {
	if strings.TrimSpace(p.FromEmail) == "" {
		return &PolicyError{Field: "from_email", Reason: "is required"}
	}
	addr, err := mail.ParseAddress(p.FromEmail)
	if err != nil || addr.Address != strings.TrimSpace(p.FromEmail) {
		return &PolicyError{Field: "from_email", Reason: "must be a plain email address"}
	}
	if len(p.FromName) > MaxNameLength {
		return &PolicyError{Field: "from_name", Reason: "cannot exceed 100 characters"}
	}
	if strings.ContainsAny(p.FromName, "\r\n") {
		return &PolicyError{Field: "from_name", Reason: "cannot contain line breaks"}
	}
	if err := validateTemplate("template_new", p.TemplateNew, PlaceholderFirstName); err != nil {
		return err
	}
	if err := validateTemplate("template_renewal", p.TemplateRenewal, PlaceholderFirstName, PlaceholderPreviousVOGDate); err != nil {
		return err
	}
	for _, id := range p.ExemptCommittees {
		if id <= 0 {
			return &PolicyError{Field: "exempt_commissies", Reason: "committee ids must be positive"}
		}
	}
	return nil
}

func validateTemplate(field, body string, allowed ...string) error {
	if strings.TrimSpace(body) == "" {
		return &PolicyError{Field: field, Reason: "is required"}
	}
	if len(body) > MaxTemplateLength {
		return &PolicyError{Field: field, Reason: "is too long"}
	}
	for _, name := range Placeholders(body) {
		if !slices.Contains(allowed, name) {
			return &PolicyError{Field: field, Reason: fmt.Sprintf("unknown placeholder {%s}", name)}
		}
	}
	return nil
}

// Placeholders lists the distinct placeholder names referenced by body, in order of appearance.
func Placeholders(body string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Normalized returns a copy with trimmed sender fields and a sorted,
// de-duplicated exempt committee list.
func (p Policy) Normalized() Policy {
	out := p
	out.FromEmail = strings.TrimSpace(p.FromEmail)
	out.FromName = strings.TrimSpace(p.FromName)
	out.ExemptCommittees = slices.Clone(p.ExemptCommittees)
	slices.Sort(out.ExemptCommittees)
	out.ExemptCommittees = slices.Compact(out.ExemptCommittees)
	return out
}

// Clone returns a deep copy.
func (p Policy) Clone() Policy {
	out := p
	out.ExemptCommittees = slices.Clone(p.ExemptCommittees)
	return out
}

// Sender formats the From header, e.g. "Vrijwilligers <vog@example.org>".
func (p Policy) Sender() string {
	if p.FromName == "" {
		return p.FromEmail
	}
	return (&mail.Address{Name: p.FromName, Address: p.FromEmail}).String()
}

// ExemptListChanged reports whether next exempts a different set of committees.
func (p Policy) ExemptListChanged(next Policy) bool {
	return !slices.Equal(p.Normalized().ExemptCommittees, next.Normalized().ExemptCommittees)
}
