package handler

import (
	"net/http"
	"time"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/eventbus"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/timing"
	"github.com/matthewbaird/landbank/internal/types"
)

// PropertyHandler serves the property CRUD surface.
type PropertyHandler struct {
	store   store.Store
	bus     *eventbus.Bus
	catalog schedule.Catalog
}

// NewPropertyHandler creates a property handler.
func NewPropertyHandler(st store.Store, bus *eventbus.Bus, cat schedule.Catalog) *PropertyHandler {
	return &PropertyHandler{store: st, bus: bus, catalog: cat}
}

// propertyRequest is the write shape for properties. The legacy system sent
// close dates under two names and buyer names either whole or split; all
// aliases are resolved here, at the boundary, so everything downstream sees
// one canonical field per concept.
type propertyRequest struct {
	ParcelID    *string `json:"parcel_id"`
	Address     *string `json:"address"`
	ProgramType *string `json:"program_type"`

	BuyerName      *string `json:"buyer_name"`
	BuyerFirstName *string `json:"buyer_first_name"`
	BuyerLastName  *string `json:"buyer_last_name"`
	BuyerEmail     *string `json:"buyer_email"`
	BuyerPhone     *string `json:"buyer_phone"`

	CloseDate *string `json:"close_date"`
	DateSold  *string `json:"date_sold"` // legacy alias for close_date

	FirstAttempt    *string `json:"compliance_first_attempt"`
	SecondAttempt   *string `json:"compliance_second_attempt"`
	LastContactDate *string `json:"last_contact_date"`

	EnforcementLevel *int    `json:"enforcement_level"`
	Status           *string `json:"status"`
}

// buyerName resolves the whole-name field, falling back to first+last.
func (req propertyRequest) buyerName() (string, bool) {
	if req.BuyerName != nil {
		return *req.BuyerName, true
	}
	if req.BuyerFirstName == nil && req.BuyerLastName == nil {
		return "", false
	}
	var first, last string
	if req.BuyerFirstName != nil {
		first = *req.BuyerFirstName
	}
	if req.BuyerLastName != nil {
		last = *req.BuyerLastName
	}
	if first == "" {
		return last, true
	}
	if last == "" {
		return first, true
	}
	return first + " " + last, true
}

// closeDate resolves close_date with date_sold as fallback.
func (req propertyRequest) closeDate() (string, bool) {
	if req.CloseDate != nil {
		return *req.CloseDate, true
	}
	if req.DateSold != nil {
		return *req.DateSold, true
	}
	return "", false
}

// parseOptionalDate parses a date field, treating "" as explicit clearing.
func parseOptionalDate(w http.ResponseWriter, field, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, err := timing.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "invalid "+field+": "+raw)
		return nil, false
	}
	return &t, true
}

// applyProperty copies request fields onto the property. Only fields present
// in the JSON are touched, which makes the same shape serve create and PATCH.
func applyProperty(w http.ResponseWriter, p *types.Property, req propertyRequest) bool {
	if req.ParcelID != nil {
		p.ParcelID = *req.ParcelID
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.ProgramType != nil {
		p.ProgramType = *req.ProgramType
	}
	if name, ok := req.buyerName(); ok {
		p.BuyerName = name
	}
	if req.BuyerEmail != nil {
		p.BuyerEmail = *req.BuyerEmail
	}
	if req.BuyerPhone != nil {
		p.BuyerPhone = *req.BuyerPhone
	}
	if raw, ok := req.closeDate(); ok {
		t, valid := parseOptionalDate(w, "close_date", raw)
		if !valid {
			return false
		}
		if t != nil {
			p.CloseDate = *t
		} else {
			p.CloseDate = time.Time{}
		}
	}
	if req.FirstAttempt != nil {
		t, valid := parseOptionalDate(w, "compliance_first_attempt", *req.FirstAttempt)
		if !valid {
			return false
		}
		p.FirstAttempt = t
	}
	if req.SecondAttempt != nil {
		t, valid := parseOptionalDate(w, "compliance_second_attempt", *req.SecondAttempt)
		if !valid {
			return false
		}
		p.SecondAttempt = t
	}
	if req.LastContactDate != nil {
		t, valid := parseOptionalDate(w, "last_contact_date", *req.LastContactDate)
		if !valid {
			return false
		}
		p.LastContactDate = t
	}
	if req.EnforcementLevel != nil {
		p.EnforcementLevel = *req.EnforcementLevel
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	return true
}

// CreateProperty enrolls a property in a disposition program.
func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	var p types.Property
	if !applyProperty(w, &p, req) {
		return
	}
	if p.ParcelID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARCEL", "parcel_id is required")
		return
	}
	if p.ProgramType == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PROGRAM", "program_type is required")
		return
	}
	// Unknown program types are stored as-is (the normalizer is permissive),
	// but warn the operator up front that no schedule will apply.
	resolvedSchedule := true
	if _, ok := h.catalog[schedule.ToScheduleKey(p.ProgramType)]; !ok {
		resolvedSchedule = false
	}

	if err := h.store.CreateProperty(r.Context(), &p); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	h.bus.Publish(r.Context(), event.NewPropertyCreated(event.PropertyCreatedPayload{
		PropertyID:  p.ID,
		ParcelID:    p.ParcelID,
		ProgramType: p.ProgramType,
	}))

	resp := map[string]any{"property": p}
	if !resolvedSchedule {
		resp["warning"] = "program_type does not resolve to a known schedule"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetProperty returns one property by ID.
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.store.GetProperty(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListProperties lists properties, optionally filtered by program_type,
// status, or an exact parcel_id.
func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if parcel := q.Get("parcel_id"); parcel != "" {
		p, err := h.store.GetPropertyByParcel(r.Context(), parcel)
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"properties": []types.Property{p},
			"count":      1,
		})
		return
	}

	page := parsePagination(r)
	props, err := h.store.ListProperties(r.Context(), store.PropertyFilter{
		ProgramType: q.Get("program_type"),
		Status:      q.Get("status"),
		Limit:       page.Limit,
	})
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"properties": props,
		"count":      len(props),
	})
}

// UpdateProperty applies a partial update.
func (h *PropertyHandler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req propertyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	p, err := h.store.GetProperty(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if !applyProperty(w, &p, req) {
		return
	}
	if err := h.store.UpdateProperty(r.Context(), &p); err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	h.bus.Publish(r.Context(), event.NewPropertyUpdated(event.PropertyUpdatedPayload{
		PropertyID: p.ID,
		ParcelID:   p.ParcelID,
	}))

	writeJSON(w, http.StatusOK, p)
}
