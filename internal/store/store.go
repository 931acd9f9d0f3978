// Package store persists portal records. The Store interface is implemented
// by SQLStore (database/sql against Postgres or SQLite) and MemoryStore
// (demos and tests). Compliance timing results are never stored; they are
// derived state, recomputed on every read.
package store

import (
	"context"
	"errors"

	"github.com/matthewbaird/landbank/internal/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PropertyFilter narrows ListProperties.
type PropertyFilter struct {
	ProgramType string
	Status      string
	Limit       int
}

// SubmissionFilter narrows ListSubmissions.
type SubmissionFilter struct {
	PropertyID string
	Status     string
	Limit      int
}

// Store is the persistence interface for the portal.
type Store interface {
	CreateProperty(ctx context.Context, p *types.Property) error
	GetProperty(ctx context.Context, id string) (types.Property, error)
	GetPropertyByParcel(ctx context.Context, parcelID string) (types.Property, error)
	ListProperties(ctx context.Context, f PropertyFilter) ([]types.Property, error)
	UpdateProperty(ctx context.Context, p *types.Property) error

	CreateCommunication(ctx context.Context, c *types.Communication) error
	// ListCommunications returns communications for one property, newest
	// first. An empty propertyID lists all.
	ListCommunications(ctx context.Context, propertyID string) ([]types.Communication, error)

	CreateTemplate(ctx context.Context, t *types.MessageTemplate) error
	GetTemplate(ctx context.Context, id string) (types.MessageTemplate, error)
	ListTemplates(ctx context.Context) ([]types.MessageTemplate, error)
	UpdateTemplate(ctx context.Context, t *types.MessageTemplate) error
	DeleteTemplate(ctx context.Context, id string) error

	CreateSubmission(ctx context.Context, s *types.Submission) error
	GetSubmission(ctx context.Context, id string) (types.Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]types.Submission, error)

	CreateAccessToken(ctx context.Context, t *types.AccessToken) error
	GetAccessToken(ctx context.Context, token string) (types.AccessToken, error)
	ListAccessTokens(ctx context.Context, propertyID string) ([]types.AccessToken, error)
	RevokeAccessToken(ctx context.Context, id string) error
}
