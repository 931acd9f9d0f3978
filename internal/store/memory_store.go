package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/landbank/internal/types"
)

// MemoryStore implements Store using in-memory maps.
// Intended for demos and testing, no database required.
type MemoryStore struct {
	mu             sync.RWMutex
	properties     map[string]types.Property
	communications []types.Communication
	templates      map[string]types.MessageTemplate
	submissions    []types.Submission
	tokens         map[string]types.AccessToken // keyed by id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties: make(map[string]types.Property),
		templates:  make(map[string]types.MessageTemplate),
		tokens:     make(map[string]types.AccessToken),
	}
}

func (s *MemoryStore) CreateProperty(_ context.Context, p *types.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.properties[p.ID] = *p
	return nil
}

func (s *MemoryStore) GetProperty(_ context.Context, id string) (types.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return types.Property{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetPropertyByParcel(_ context.Context, parcelID string) (types.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.properties {
		if p.ParcelID == parcelID {
			return p, nil
		}
	}
	return types.Property{}, ErrNotFound
}

func (s *MemoryStore) ListProperties(_ context.Context, f PropertyFilter) ([]types.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Property
	for _, p := range s.properties {
		if f.ProgramType != "" && p.ProgramType != f.ProgramType {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateProperty(_ context.Context, p *types.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.properties[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.properties[p.ID] = *p
	return nil
}

func (s *MemoryStore) CreateCommunication(_ context.Context, c *types.Communication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()
	s.communications = append(s.communications, *c)
	return nil
}

func (s *MemoryStore) ListCommunications(_ context.Context, propertyID string) ([]types.Communication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Communication
	for _, c := range s.communications {
		if propertyID != "" && c.PropertyID != propertyID {
			continue
		}
		out = append(out, c)
	}
	// Newest first, matching the SQL store.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateTemplate(_ context.Context, t *types.MessageTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	s.templates[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id string) (types.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return types.MessageTemplate{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) ListTemplates(_ context.Context) ([]types.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.MessageTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *MemoryStore) UpdateTemplate(_ context.Context, t *types.MessageTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.templates[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.templates[t.ID] = *t
	return nil
}

func (s *MemoryStore) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *MemoryStore) CreateSubmission(_ context.Context, sub *types.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.ConfirmationID == "" {
		sub.ConfirmationID = "LB-" + strings.ToUpper(sub.ID[:8])
	}
	sub.CreatedAt = time.Now().UTC()
	for i := range sub.Documents {
		doc := &sub.Documents[i]
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		doc.SubmissionID = sub.ID
		doc.PropertyID = sub.PropertyID
		doc.CreatedAt = sub.CreatedAt
	}
	s.submissions = append(s.submissions, *sub)
	return nil
}

func (s *MemoryStore) GetSubmission(_ context.Context, id string) (types.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.ID == id {
			return sub, nil
		}
	}
	return types.Submission{}, ErrNotFound
}

func (s *MemoryStore) ListSubmissions(_ context.Context, f SubmissionFilter) ([]types.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Submission
	for _, sub := range s.submissions {
		if f.PropertyID != "" && sub.PropertyID != f.PropertyID {
			continue
		}
		if f.Status != "" && sub.Status != f.Status {
			continue
		}
		out = append(out, sub)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateAccessToken(_ context.Context, t *types.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now().UTC()
	s.tokens[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetAccessToken(_ context.Context, token string) (types.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if t.Token == token {
			return t, nil
		}
	}
	return types.AccessToken{}, ErrNotFound
}

func (s *MemoryStore) ListAccessTokens(_ context.Context, propertyID string) ([]types.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.AccessToken
	for _, t := range s.tokens {
		if propertyID != "" && t.PropertyID != propertyID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) RevokeAccessToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok || t.RevokedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	s.tokens[id] = t
	return nil
}
