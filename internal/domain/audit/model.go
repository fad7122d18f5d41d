package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events by the area they touch.
type Category string

const (
	CategoryVOG    Category = "vog"
	CategoryPolicy Category = "policy"
	CategoryImport Category = "import"
)

// Action represents the action that occurred.
type Action string

const (
	ActionReminderSent       Action = "reminder_sent"
	ActionMarkedRequested    Action = "marked_requested"
	ActionRegistrySubmitted  Action = "registry_submitted"
	ActionPolicySaved        Action = "policy_saved"
	ActionPolicyReverted     Action = "policy_reverted"
	ActionVolunteersImported Action = "volunteers_imported"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Resource types referenced by events.
const (
	ResourceVolunteer = "volunteer"
	ResourcePolicy    = "vog_policy"
)

// Event represents a single audit log entry. Failed per-item actions are
// recorded too, with Severity warning and the reason in Description.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Description  string    `json:"description"`
	RequestID    string    `json:"request_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Metadata     string    `json:"metadata,omitempty"`
}

// NewEvent creates an audit event stamped with now.
// PRE: action is non-empty
// POST: Returns an Event with a fresh random ID and info severity
func NewEvent(now time.Time, category Category, action Action) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
	}
}

// Validate checks if the Event has valid data.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("audit event needs an id")
	}
	if e.Action == "" {
		return errors.New("audit event needs an action")
	}
	if e.Timestamp.IsZero() {
		return errors.New("audit event needs a timestamp")
	}
	return nil
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
// PRE: resourceType and resourceID are non-empty
// POST: Event resource fields are populated
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithRequest attaches the originating request id and client address.
func (e Event) WithRequest(requestID, ipAddress string) Event {
	e.RequestID = requestID
	e.IPAddress = ipAddress
	return e
}

// WithMetadata sets optional JSON metadata.
// PRE: metadata is valid JSON or empty
func (e Event) WithMetadata(metadata string) Event {
	e.Metadata = metadata
	return e
}
