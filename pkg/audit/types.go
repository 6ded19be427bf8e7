package audit

import (
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Session events
	EventTypeSessionCreate       EventType = "session.create"
	EventTypeSessionClaimsStore  EventType = "session.claims_store"
	EventTypeSessionReinitialize EventType = "session.reinitialize"
	EventTypeSessionDestroy      EventType = "session.destroy"

	// Department mapping events
	EventTypeDirectoryMappingAdd     EventType = "directory.mapping_add"
	EventTypeDirectoryMappingRemove  EventType = "directory.mapping_remove"
	EventTypeDirectoryMappingReplace EventType = "directory.mapping_replace"
	EventTypeDirectoryMappingReset   EventType = "directory.mapping_reset"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
)

// Event represents a single audit log entry
type Event struct {
	// Core fields
	ID        int64       `json:"id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	Actor     string `json:"actor,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Resource information
	ResourceID string `json:"resource_id,omitempty"`

	// Request context
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Changes      *ChangeDetails         `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before interface{} `json:"before,omitempty"`
	After  interface{} `json:"after,omitempty"`
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	EventTypes []EventType
	Status     EventStatus
	Actor      string
	Since      time.Time
	// Limit caps the number of results; zero means DefaultSearchLimit
	Limit int
}

// DefaultSearchLimit bounds unfiltered searches
const DefaultSearchLimit = 100

// Matches reports whether e passes the filter
func (f Filter) Matches(e *Event) bool {
	if len(f.EventTypes) > 0 {
		found := false
		for _, t := range f.EventTypes {
			if e.EventType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
