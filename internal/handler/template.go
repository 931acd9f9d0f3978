package handler

import (
	"net/http"

	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/types"
)

// TemplateHandler serves message-template CRUD.
type TemplateHandler struct {
	store store.Store
}

// NewTemplateHandler creates a template handler.
func NewTemplateHandler(st store.Store) *TemplateHandler {
	return &TemplateHandler{store: st}
}

type templateRequest struct {
	Name         *string                          `json:"name"`
	ProgramTypes *[]string                        `json:"program_types"`
	Variants     map[string]types.TemplateVariant `json:"variants"`
}

// normalizePrograms maps display names to schedule keys so templates match
// regardless of which form the operator typed.
func normalizePrograms(programs []string) []string {
	out := make([]string, len(programs))
	for i, p := range programs {
		out[i] = schedule.ToScheduleKey(p)
	}
	return out
}

// CreateTemplate registers an outreach template.
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if req.Name == nil || *req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "name is required")
		return
	}
	if len(req.Variants) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_VARIANTS", "at least one action variant is required")
		return
	}

	t := types.MessageTemplate{
		Name:     *req.Name,
		Variants: req.Variants,
	}
	if req.ProgramTypes != nil {
		t.ProgramTypes = normalizePrograms(*req.ProgramTypes)
	}
	if err := h.store.CreateTemplate(r.Context(), &t); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTemplate returns one template by ID.
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListTemplates lists all templates.
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// UpdateTemplate applies a partial update. Variants replace wholesale when
// present; merging per-action edits is the client's job.
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	t, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.ProgramTypes != nil {
		t.ProgramTypes = normalizePrograms(*req.ProgramTypes)
	}
	if req.Variants != nil {
		t.Variants = req.Variants
	}
	if err := h.store.UpdateTemplate(r.Context(), &t); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTemplate removes a template.
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteTemplate(r.Context(), id); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
