// Package types provides the Go structs shared across the portal: property
// compliance records, communications, message templates, buyer submissions,
// and access tokens. Field aliases from the legacy system (closeDate vs
// dateSold) are resolved at the I/O boundary; these structs carry one
// canonical field per concept.
package types

import (
	"time"
)

// Property is a land-bank property under a disposition program, together
// with the buyer contact data and compliance dates the timing engine reads.
type Property struct {
	ID          string `json:"id"`
	ParcelID    string `json:"parcel_id"`
	Address     string `json:"address"`
	ProgramType string `json:"program_type"` // display name or schedule key

	BuyerName  string `json:"buyer_name"`
	BuyerEmail string `json:"buyer_email"`
	BuyerPhone string `json:"buyer_phone,omitempty"`

	// CloseDate is the sale close date ("dateSold" in the legacy system).
	// Zero means unknown; the timing engine treats that as an error.
	CloseDate time.Time `json:"close_date"`

	FirstAttempt    *time.Time `json:"compliance_first_attempt,omitempty"`
	SecondAttempt   *time.Time `json:"compliance_second_attempt,omitempty"`
	LastContactDate *time.Time `json:"last_contact_date,omitempty"`

	// EnforcementLevel is display-only; the engine recommends a level but
	// never writes this field.
	EnforcementLevel int    `json:"enforcement_level"`
	Status           string `json:"status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Communication is one logged outreach to a buyer. A communication with
// status "sent" counts toward completing the schedule step named by Action.
type Communication struct {
	ID           string     `json:"id"`
	PropertyID   string     `json:"property_id"`
	Action       string     `json:"action"` // schedule action key, e.g. "ATTEMPT_1"
	Channel      string     `json:"channel"`
	Recipient    string     `json:"recipient_email"`
	Subject      string     `json:"subject,omitempty"`
	Body         string     `json:"body,omitempty"`
	Status       string     `json:"status"` // "draft", "sent", "failed"
	TemplateName string     `json:"template_name,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Communication statuses.
const (
	CommStatusDraft  = "draft"
	CommStatusSent   = "sent"
	CommStatusFailed = "failed"
)

// TemplateVariant is the subject/body pair a template defines for one action.
type TemplateVariant struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MessageTemplate is an outreach email template. Variants are keyed by
// schedule action; ProgramTypes lists the schedule keys it applies to.
type MessageTemplate struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	ProgramTypes []string                   `json:"program_types"`
	Variants     map[string]TemplateVariant `json:"variants"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// Submission is a buyer-submitted progress update.
type Submission struct {
	ID             string         `json:"id"`
	ConfirmationID string         `json:"confirmation_id"`
	PropertyID     string         `json:"property_id"`
	Type           string         `json:"type"` // "progress", "document", "photo"
	FormData       map[string]any `json:"form_data,omitempty"`
	Status         string         `json:"status"` // "received", "reviewed", "accepted", "rejected"
	Documents      []Document     `json:"documents,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Document is metadata for a buyer-uploaded file. Blob storage itself is
// outside the portal; only the URL is recorded.
type Document struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	PropertyID   string    `json:"property_id"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Category     string    `json:"category"`
	Slot         string    `json:"slot,omitempty"`
	BlobURL      string    `json:"blob_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccessToken grants a buyer access to the submission form for one property.
// Tokens are opaque strings embedded in a mailed link; revocation is a soft
// delete via RevokedAt.
type AccessToken struct {
	ID         string     `json:"id"`
	Token      string     `json:"token"`
	PropertyID string     `json:"property_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Revoked reports whether the token has been revoked.
func (t AccessToken) Revoked() bool {
	return t.RevokedAt != nil
}
