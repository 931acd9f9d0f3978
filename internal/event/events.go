// Package event defines the portal's domain events and their constructors.
// Handlers and the sweep worker publish events after a successful store
// write; consumers on the in-process bus react to them (logging, FileMaker
// mirroring, live dashboard updates).
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypePropertyCreated    = "property_created"
	TypePropertyUpdated    = "property_updated"
	TypeSubmissionReceived = "submission_received"
	TypeNoticeSent         = "notice_sent"
	TypeNoticeDue          = "notice_due"
	TypeTokenIssued        = "token_issued"
	TypeTokenRevoked       = "token_revoked"
	TypeSweepCompleted     = "sweep_completed"
)

// DomainEvent carries the canonical shape of every portal event.
type DomainEvent struct {
	ID         string
	EventType  string
	OccurredAt time.Time
	PropertyID string // empty for portfolio-wide events like sweep_completed
	Summary    string
	Payload    json.RawMessage
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// PropertyCreatedPayload carries event-specific data for property_created.
type PropertyCreatedPayload struct {
	PropertyID  string `json:"property_id"`
	ParcelID    string `json:"parcel_id"`
	ProgramType string `json:"program_type"`
}

func NewPropertyCreated(p PropertyCreatedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypePropertyCreated,
		OccurredAt: time.Now(),
		PropertyID: p.PropertyID,
		Summary:    fmt.Sprintf("Property %s enrolled in %s", p.ParcelID, p.ProgramType),
		Payload:    mustJSON(p),
	}
}

// PropertyUpdatedPayload carries event-specific data for property_updated.
type PropertyUpdatedPayload struct {
	PropertyID string   `json:"property_id"`
	ParcelID   string   `json:"parcel_id"`
	Fields     []string `json:"fields,omitempty"`
}

func NewPropertyUpdated(p PropertyUpdatedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypePropertyUpdated,
		OccurredAt: time.Now(),
		PropertyID: p.PropertyID,
		Summary:    fmt.Sprintf("Property %s updated", p.ParcelID),
		Payload:    mustJSON(p),
	}
}

// SubmissionReceivedPayload carries event-specific data for submission_received.
type SubmissionReceivedPayload struct {
	SubmissionID   string `json:"submission_id"`
	ConfirmationID string `json:"confirmation_id"`
	PropertyID     string `json:"property_id"`
	ParcelID       string `json:"parcel_id"`
	Type           string `json:"type"`
	DocumentCount  int    `json:"document_count"`
}

func NewSubmissionReceived(p SubmissionReceivedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeSubmissionReceived,
		OccurredAt: time.Now(),
		PropertyID: p.PropertyID,
		Summary:    fmt.Sprintf("Buyer submission %s received for parcel %s", p.ConfirmationID, p.ParcelID),
		Payload:    mustJSON(p),
	}
}

// NoticeSentPayload carries event-specific data for notice_sent.
type NoticeSentPayload struct {
	CommunicationID string `json:"communication_id"`
	PropertyID      string `json:"property_id"`
	Action          string `json:"action"`
	Recipient       string `json:"recipient_email"`
	TemplateName    string `json:"template_name,omitempty"`
}

func NewNoticeSent(p NoticeSentPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeNoticeSent,
		OccurredAt: time.Now(),
		PropertyID: p.PropertyID,
		Summary:    fmt.Sprintf("%s notice sent to %s", p.Action, p.Recipient),
		Payload:    mustJSON(p),
	}
}

// NoticeDuePayload carries event-specific data for notice_due, published by
// the sweep for each property whose current action is open and past grace.
type NoticeDuePayload struct {
	PropertyID  string `json:"property_id"`
	ParcelID    string `json:"parcel_id"`
	Action      string `json:"action"`
	DaysOverdue int    `json:"days_overdue"`
}

func NewNoticeDue(p NoticeDuePayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeNoticeDue,
		OccurredAt: time.Now(),
		PropertyID: p.PropertyID,
		Summary:    fmt.Sprintf("%s due for parcel %s, %d days overdue", p.Action, p.ParcelID, p.DaysOverdue),
		Payload:    mustJSON(p),
	}
}

// TokenIssuedPayload carries event-specific data for token_issued.
type TokenIssuedPayload struct {
	TokenID    string    `json:"token_id"`
	PropertyID string    `json:"property_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func NewTokenIssued(p TokenIssuedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeTokenIssued,
		OccurredAt: time.Now(),
		PropertyID: p.PropertyID,
		Summary:    fmt.Sprintf("Submission access token issued for property %s", p.PropertyID),
		Payload:    mustJSON(p),
	}
}

// TokenRevokedPayload carries event-specific data for token_revoked.
type TokenRevokedPayload struct {
	TokenID    string `json:"token_id"`
	PropertyID string `json:"property_id"`
}

func NewTokenRevoked(p TokenRevokedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeTokenRevoked,
		OccurredAt: time.Now(),
		PropertyID: p.PropertyID,
		Summary:    fmt.Sprintf("Submission access token revoked for property %s", p.PropertyID),
		Payload:    mustJSON(p),
	}
}

// SweepCompletedPayload carries event-specific data for sweep_completed.
type SweepCompletedPayload struct {
	Evaluated int `json:"evaluated"`
	DueNow    int `json:"due_now"`
	Overdue   int `json:"overdue"`
	Excluded  int `json:"excluded"`
}

func NewSweepCompleted(p SweepCompletedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeSweepCompleted,
		OccurredAt: time.Now(),
		Summary: fmt.Sprintf("Outreach sweep: %d evaluated, %d due, %d overdue",
			p.Evaluated, p.DueNow, p.Overdue),
		Payload: mustJSON(p),
	}
}
