package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/matthewbaird/landbank/internal/export"
	"github.com/matthewbaird/landbank/internal/message"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/timing"
	"github.com/matthewbaird/landbank/internal/types"
)

// ComplianceHandler serves the derived compliance surface: per-property
// timing, the ranked outreach queue, dashboard stats, email previews, and
// the FileMaker export. Nothing here writes to the store.
type ComplianceHandler struct {
	store   store.Store
	catalog schedule.Catalog
}

// NewComplianceHandler creates a compliance handler.
func NewComplianceHandler(st store.Store, cat schedule.Catalog) *ComplianceHandler {
	return &ComplianceHandler{store: st, catalog: cat}
}

// GetTiming computes the timing result for one property. An as_of query
// parameter pins the computation date for reproducible reads.
func (h *ComplianceHandler) GetTiming(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	today, ok := asOf(w, r)
	if !ok {
		return
	}

	p, err := h.store.GetProperty(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	comms, err := h.store.ListCommunications(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	res, err := timing.Compute(timing.RecordFromProperty(p, comms), h.catalog, today)
	if err != nil {
		timingErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// loadPortfolio fetches every property together with its slice of the full
// communication log. One list query per table instead of one per property.
func loadPortfolio(ctx context.Context, st store.Store) ([]types.Property, map[string][]types.Communication, error) {
	props, err := st.ListProperties(ctx, store.PropertyFilter{Limit: 10000})
	if err != nil {
		return nil, nil, err
	}
	allComms, err := st.ListCommunications(ctx, "")
	if err != nil {
		return nil, nil, err
	}

	byProperty := make(map[string][]types.Communication)
	for _, c := range allComms {
		byProperty[c.PropertyID] = append(byProperty[c.PropertyID], c)
	}
	return props, byProperty, nil
}

// portfolioRecords builds engine records for the whole portfolio.
func portfolioRecords(props []types.Property, byProperty map[string][]types.Communication) []timing.Record {
	records := make([]timing.Record, 0, len(props))
	for _, p := range props {
		records = append(records, timing.RecordFromProperty(p, byProperty[p.ID]))
	}
	return records
}

// GetQueue returns the ranked outreach queue, most overdue first.
func (h *ComplianceHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	today, ok := asOf(w, r)
	if !ok {
		return
	}
	props, byProperty, err := loadPortfolio(r.Context(), h.store)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	records := portfolioRecords(props, byProperty)

	results := timing.RankByUrgency(records, h.catalog, today)
	writeJSON(w, http.StatusOK, map[string]any{
		"queue":    results,
		"count":    len(results),
		"excluded": len(records) - len(results),
	})
}

// GetStats returns the dashboard counters.
func (h *ComplianceHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	today, ok := asOf(w, r)
	if !ok {
		return
	}
	props, byProperty, err := loadPortfolio(r.Context(), h.store)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	records := portfolioRecords(props, byProperty)
	writeJSON(w, http.StatusOK, timing.Summarize(timing.RankByUrgency(records, h.catalog, today)))
}

// Preview renders the outreach email for a property without sending or
// logging anything. The action defaults to the engine's current action; the
// template defaults to the first one matching the program and action.
func (h *ComplianceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	type previewReq struct {
		PropertyID string `json:"property_id"`
		Action     string `json:"action"`
		TemplateID string `json:"template_id"`
		AsOf       string `json:"as_of"`
	}
	var req previewReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PROPERTY", "property_id is required")
		return
	}

	today := time.Now()
	if req.AsOf != "" {
		t, err := timing.ParseDate(req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_DATE", "invalid as_of date: "+req.AsOf)
			return
		}
		today = t
	}

	p, err := h.store.GetProperty(r.Context(), req.PropertyID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	comms, err := h.store.ListCommunications(r.Context(), p.ID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	rec := timing.RecordFromProperty(p, comms)

	action := req.Action
	if action == "" {
		res, err := timing.Compute(rec, h.catalog, today)
		if err != nil {
			timingErrorToHTTP(w, err)
			return
		}
		if res.CurrentAction == schedule.ActionNotDueYet {
			writeError(w, http.StatusUnprocessableEntity, "NOT_DUE_YET", "no outreach action is due for this property")
			return
		}
		action = res.CurrentAction
	}

	var tmpl types.MessageTemplate
	if req.TemplateID != "" {
		tmpl, err = h.store.GetTemplate(r.Context(), req.TemplateID)
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
	} else {
		templates, err := h.store.ListTemplates(r.Context())
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
		var found bool
		tmpl, found = message.FindTemplateForAction(templates, p.ProgramType, action)
		if !found {
			writeError(w, http.StatusNotFound, "NO_TEMPLATE",
				"no template covers program "+p.ProgramType+" action "+action)
			return
		}
	}

	rendered := message.Render(tmpl, action, rec, h.catalog, today)
	writeJSON(w, http.StatusOK, map[string]any{
		"action":        action,
		"template_name": tmpl.Name,
		"rendered":      rendered,
	})
}

// Export streams the FileMaker mirror file for the whole portfolio.
// format=csv (default) or format=json.
func (h *ComplianceHandler) Export(w http.ResponseWriter, r *http.Request) {
	today, ok := asOf(w, r)
	if !ok {
		return
	}
	props, byProperty, err := loadPortfolio(r.Context(), h.store)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	flat := make([]export.FlatRecord, 0, len(props))
	for _, p := range props {
		comms := byProperty[p.ID]
		var res *timing.Result
		if computed, err := timing.Compute(timing.RecordFromProperty(p, comms), h.catalog, today); err == nil {
			res = &computed
		}
		flat = append(flat, export.Flatten(p, comms, res))
	}

	switch r.URL.Query().Get("format") {
	case "", "csv":
		out, err := export.GenerateCSV(flat)
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="compliance_export.csv"`)
		w.Write([]byte(out))
	case "json":
		out, err := export.GenerateJSON(flat)
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(out))
	default:
		writeError(w, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or json")
	}
}
