package reminder

import (
	"regexp"
	"strings"

	"ledenbeheer/internal/domain/compliance"
	"ledenbeheer/internal/domain/policy"
)

// DateLayout formats {previous_vog_date} the way Dutch letters write dates.
const DateLayout = "02-01-2006"

// Subjects per template variant.
const (
	SubjectNew     = "Aanvraag Verklaring Omtrent Gedrag (VOG)"
	SubjectRenewal = "Vernieuwing Verklaring Omtrent Gedrag (VOG)"
)

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// Message is a rendered reminder, ready to hand to an email sender.
type Message struct {
	Category compliance.Category
	Subject  string
	Body     string
}

// Select picks the template variant for the record and renders it.
// PRE: firstName is the display first name of the volunteer
// POST: Returns a Message with every placeholder substituted, or a *compliance.TemplateError
func Select(rec compliance.Record, firstName string, p policy.Policy) (Message, error) {
	category := compliance.CategoryNew
	if rec.HasCertificate() {
		category = compliance.CategoryRenewal
	}

	values := map[string]string{
		policy.PlaceholderFirstName: strings.TrimSpace(firstName),
	}
	msg := Message{Category: category}
	var tmpl string
	switch category {
	case compliance.CategoryRenewal:
		tmpl = p.TemplateRenewal
		msg.Subject = SubjectRenewal
		values[policy.PlaceholderPreviousVOGDate] = compliance.Date(rec.CertificateDate).Format(DateLayout)
	default:
		tmpl = p.TemplateNew
		msg.Subject = SubjectNew
	}

	body, err := Render(tmpl, values)
	if err != nil {
		return Message{}, err
	}
	msg.Body = body
	return msg, nil
}

// Render substitutes {name} placeholders. A placeholder with no value, or an
// empty value, is an error rather than left in the output.
func Render(tmpl string, values map[string]string) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return "", &compliance.TemplateError{Reason: "template is empty"}
	}
	var renderErr error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(tok string) string {
		if renderErr != nil {
			return tok
		}
		name := tok[1 : len(tok)-1]
		v, ok := values[name]
		switch {
		case !ok:
			renderErr = &compliance.TemplateError{Placeholder: name, Reason: "has no value for this template"}
		case v == "":
			renderErr = &compliance.TemplateError{Placeholder: name, Reason: "resolved to an empty value"}
		}
		return v
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}
