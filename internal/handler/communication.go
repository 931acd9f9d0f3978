package handler

import (
	"net/http"
	"time"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/eventbus"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/types"
)

// CommunicationHandler serves the per-property outreach log.
type CommunicationHandler struct {
	store store.Store
	bus   *eventbus.Bus
}

// NewCommunicationHandler creates a communication handler.
func NewCommunicationHandler(st store.Store, bus *eventbus.Bus) *CommunicationHandler {
	return &CommunicationHandler{store: st, bus: bus}
}

// LogCommunication records one outreach against a property. A "sent"
// communication marks its schedule action completed; the engine reads it
// from the log on the next computation. The first two attempts are also
// written back to the property's attempt-date fields, mirroring how staff
// tracked them before the log existed.
func (h *CommunicationHandler) LogCommunication(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}

	type commReq struct {
		Action       string `json:"action"`
		Channel      string `json:"channel"`
		Recipient    string `json:"recipient_email"`
		Subject      string `json:"subject"`
		Body         string `json:"body"`
		Status       string `json:"status"`
		TemplateName string `json:"template_name"`
		SentAt       string `json:"sent_at"`
	}
	var req commReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ACTION", "action is required")
		return
	}

	p, err := h.store.GetProperty(r.Context(), propertyID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	status := req.Status
	if status == "" {
		status = types.CommStatusSent
	}
	switch status {
	case types.CommStatusDraft, types.CommStatusSent, types.CommStatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "status must be draft, sent, or failed")
		return
	}

	recipient := req.Recipient
	if recipient == "" {
		recipient = p.BuyerEmail
	}

	comm := types.Communication{
		PropertyID:   propertyID,
		Action:       req.Action,
		Channel:      req.Channel,
		Recipient:    recipient,
		Subject:      req.Subject,
		Body:         req.Body,
		Status:       status,
		TemplateName: req.TemplateName,
	}
	if status == types.CommStatusSent {
		sentAt := time.Now()
		if req.SentAt != "" {
			t, valid := parseOptionalDate(w, "sent_at", req.SentAt)
			if !valid {
				return
			}
			if t != nil {
				sentAt = *t
			}
		}
		comm.SentAt = &sentAt
	}

	if err := h.store.CreateCommunication(r.Context(), &comm); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	if comm.Status == types.CommStatusSent {
		changed := false
		if comm.Action == schedule.ActionAttempt1 && p.FirstAttempt == nil {
			p.FirstAttempt = comm.SentAt
			changed = true
		}
		if comm.Action == schedule.ActionAttempt2 && p.SecondAttempt == nil {
			p.SecondAttempt = comm.SentAt
			changed = true
		}
		if p.LastContactDate == nil || comm.SentAt.After(*p.LastContactDate) {
			p.LastContactDate = comm.SentAt
			changed = true
		}
		if changed {
			if err := h.store.UpdateProperty(r.Context(), &p); err != nil {
				storeErrorToHTTP(w, err)
				return
			}
		}

		h.bus.Publish(r.Context(), event.NewNoticeSent(event.NoticeSentPayload{
			CommunicationID: comm.ID,
			PropertyID:      propertyID,
			Action:          comm.Action,
			Recipient:       comm.Recipient,
			TemplateName:    comm.TemplateName,
		}))
	}

	writeJSON(w, http.StatusCreated, comm)
}

// ListCommunications lists a property's outreach log, newest first.
func (h *CommunicationHandler) ListCommunications(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetProperty(r.Context(), propertyID); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	comms, err := h.store.ListCommunications(r.Context(), propertyID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"communications": comms,
		"count":          len(comms),
	})
}
