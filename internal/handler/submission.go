package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/eventbus"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/types"
)

// defaultTokenTTL is how long a mailed submission link stays valid.
const defaultTokenTTL = 90 * 24 * time.Hour

// SubmissionHandler serves buyer intake: access tokens, token verification,
// and progress submissions. Tokens are opaque random strings stored
// server-side so a mailed link can be revoked at any time.
type SubmissionHandler struct {
	store   store.Store
	bus     *eventbus.Bus
	catalog schedule.Catalog
}

// NewSubmissionHandler creates a submission handler.
func NewSubmissionHandler(st store.Store, bus *eventbus.Bus, cat schedule.Catalog) *SubmissionHandler {
	return &SubmissionHandler{store: st, bus: bus, catalog: cat}
}

// newTokenValue returns a 256-bit random token in hex.
func newTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateAccessToken issues a submission-form token for a property.
func (h *SubmissionHandler) CreateAccessToken(w http.ResponseWriter, r *http.Request) {
	type tokenReq struct {
		PropertyID    string `json:"property_id"`
		ExpiresInDays int    `json:"expires_in_days"`
	}
	var req tokenReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PROPERTY", "property_id is required")
		return
	}
	if _, err := h.store.GetProperty(r.Context(), req.PropertyID); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	ttl := defaultTokenTTL
	if req.ExpiresInDays > 0 {
		ttl = time.Duration(req.ExpiresInDays) * 24 * time.Hour
	}
	value, err := newTokenValue()
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	token := types.AccessToken{
		Token:      value,
		PropertyID: req.PropertyID,
		ExpiresAt:  time.Now().Add(ttl),
	}
	if err := h.store.CreateAccessToken(r.Context(), &token); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	h.bus.Publish(r.Context(), event.NewTokenIssued(event.TokenIssuedPayload{
		TokenID:    token.ID,
		PropertyID: token.PropertyID,
		ExpiresAt:  token.ExpiresAt,
	}))

	writeJSON(w, http.StatusCreated, token)
}

// ListAccessTokens lists tokens, optionally for one property.
func (h *SubmissionHandler) ListAccessTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.store.ListAccessTokens(r.Context(), r.URL.Query().Get("property_id"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": tokens,
		"count":  len(tokens),
	})
}

// RevokeAccessToken soft-deletes a token so the mailed link stops working.
func (h *SubmissionHandler) RevokeAccessToken(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}

	// Resolve the property before revoking so the event can name it.
	var propertyID string
	if tokens, err := h.store.ListAccessTokens(r.Context(), ""); err == nil {
		for _, t := range tokens {
			if t.ID == id {
				propertyID = t.PropertyID
				break
			}
		}
	}

	if err := h.store.RevokeAccessToken(r.Context(), id); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	h.bus.Publish(r.Context(), event.NewTokenRevoked(event.TokenRevokedPayload{
		TokenID:    id,
		PropertyID: propertyID,
	}))

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// verifyToken resolves a token value to its property, rejecting revoked and
// expired tokens. Invalid, revoked, and expired all read as 401 with
// distinct codes so the form can show the right message.
func (h *SubmissionHandler) verifyToken(w http.ResponseWriter, r *http.Request, value string) (types.AccessToken, types.Property, bool) {
	if value == "" {
		writeError(w, http.StatusUnauthorized, "MISSING_TOKEN", "access token is required")
		return types.AccessToken{}, types.Property{}, false
	}
	token, err := h.store.GetAccessToken(r.Context(), value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "unknown access token")
		} else {
			storeErrorToHTTP(w, err)
		}
		return types.AccessToken{}, types.Property{}, false
	}
	if token.Revoked() {
		writeError(w, http.StatusUnauthorized, "REVOKED_TOKEN", "access token has been revoked")
		return types.AccessToken{}, types.Property{}, false
	}
	if token.Expired(time.Now()) {
		writeError(w, http.StatusUnauthorized, "EXPIRED_TOKEN", "access token has expired")
		return types.AccessToken{}, types.Property{}, false
	}
	p, err := h.store.GetProperty(r.Context(), token.PropertyID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return types.AccessToken{}, types.Property{}, false
	}
	return token, p, true
}

// VerifyToken answers whether a token is usable and returns the form
// context: the property summary plus the program's required upload and
// document categories.
func (h *SubmissionHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	_, p, ok := h.verifyToken(w, r, r.URL.Query().Get("token"))
	if !ok {
		return
	}

	resp := map[string]any{
		"valid": true,
		"property": map[string]any{
			"id":           p.ID,
			"parcel_id":    p.ParcelID,
			"address":      p.Address,
			"program_type": p.ProgramType,
			"buyer_name":   p.BuyerName,
		},
	}
	if prog, found := h.catalog[schedule.ToScheduleKey(p.ProgramType)]; found {
		resp["program_label"] = prog.Label
		resp["required_uploads"] = prog.RequiredUploads
		resp["required_documents"] = prog.RequiredDocs
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSubmission accepts a buyer progress submission. The property comes
// from the token, never from the body, so a buyer can only file against
// their own parcel.
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	type docReq struct {
		Filename  string `json:"filename"`
		MimeType  string `json:"mime_type"`
		SizeBytes int64  `json:"size_bytes"`
		Category  string `json:"category"`
		Slot      string `json:"slot"`
		BlobURL   string `json:"blob_url"`
	}
	type submissionReq struct {
		Token     string         `json:"token"`
		Type      string         `json:"type"`
		FormData  map[string]any `json:"form_data"`
		Documents []docReq       `json:"documents"`
	}
	var req submissionReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	tokenValue := req.Token
	if hdr := r.Header.Get("X-Access-Token"); hdr != "" {
		tokenValue = hdr
	}
	_, p, ok := h.verifyToken(w, r, tokenValue)
	if !ok {
		return
	}

	subType := req.Type
	if subType == "" {
		subType = "progress"
	}

	sub := types.Submission{
		PropertyID: p.ID,
		Type:       subType,
		FormData:   req.FormData,
		Status:     "received",
	}
	for _, d := range req.Documents {
		sub.Documents = append(sub.Documents, types.Document{
			PropertyID: p.ID,
			Filename:   d.Filename,
			MimeType:   d.MimeType,
			SizeBytes:  d.SizeBytes,
			Category:   d.Category,
			Slot:       d.Slot,
			BlobURL:    d.BlobURL,
		})
	}
	if err := h.store.CreateSubmission(r.Context(), &sub); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	h.bus.Publish(r.Context(), event.NewSubmissionReceived(event.SubmissionReceivedPayload{
		SubmissionID:   sub.ID,
		ConfirmationID: sub.ConfirmationID,
		PropertyID:     p.ID,
		ParcelID:       p.ParcelID,
		Type:           sub.Type,
		DocumentCount:  len(sub.Documents),
	}))

	writeJSON(w, http.StatusCreated, map[string]any{
		"confirmation_id": sub.ConfirmationID,
		"submission":      sub,
	})
}

// GetSubmission returns one submission (staff view).
func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	sub, err := h.store.GetSubmission(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ListSubmissions lists submissions, filtered by property or status.
func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePagination(r)
	subs, err := h.store.ListSubmissions(r.Context(), store.SubmissionFilter{
		PropertyID: q.Get("property_id"),
		Status:     q.Get("status"),
		Limit:      page.Limit,
	})
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"count":       len(subs),
	})
}
