package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"litoralcitrus/auth"
	"litoralcitrus/forms"
	"litoralcitrus/guard"
	"litoralcitrus/models"
	"litoralcitrus/reports"
	"litoralcitrus/schema"
)

// FormHandler serves the daily report form of the signed-in user.
type FormHandler struct {
	drafts  *forms.Drafts
	reports *reports.Service
	log     zerolog.Logger
}

func NewFormHandler(drafts *forms.Drafts, svc *reports.Service, log zerolog.Logger) *FormHandler {
	return &FormHandler{
		drafts:  drafts,
		reports: svc,
		log:     log.With().Str("handler", "forms").Logger(),
	}
}

// Schema returns the form schema of a plant. Without ?plant the caller's
// own plant is used.
func (h *FormHandler) Schema(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	plant := models.PlantID(r.URL.Query().Get("plant"))
	if plant == "" {
		plant = sess.PlantID
	}
	writeJSON(w, http.StatusOK, schema.Resolve(plant))
}

type OpenDraftRequest struct {
	Layout  forms.LayoutKind `json:"layout,omitempty"`
	PlantID models.PlantID   `json:"plant_id,omitempty"`
}

// Open starts a fresh draft, replacing any open one. Roles that see every
// plant may pick the plant; the rest always report for their own.
func (h *FormHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, ok := guard.SessionFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req OpenDraftRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	plant := sess.PlantID
	if req.PlantID != "" && req.PlantID != plant {
		if !auth.SessionPermissions(sess).CanViewAllPlants {
			writeError(w, "Cannot report for another plant", http.StatusForbidden)
			return
		}
		if _, known := models.FindPlant(req.PlantID); !known {
			writeError(w, "Unknown plant", http.StatusBadRequest)
			return
		}
		plant = req.PlantID
	}

	d, err := h.drafts.Open(sess.UID, plant, req.Layout)
	if err != nil {
		writeFormError(w, err)
		return
	}
	h.log.Debug().Str("uid", sess.UID).Str("draft_id", d.ID).Str("layout", string(d.Layout())).Msg("draft opened")
	writeJSON(w, http.StatusCreated, d.View())
}

// View renders the open draft.
func (h *FormHandler) View(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

// Discard drops the open draft.
func (h *FormHandler) Discard(w http.ResponseWriter, r *http.Request) {
	sess, ok := guard.SessionFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	h.drafts.Discard(sess.UID)
	w.WriteHeader(http.StatusNoContent)
}

type SetValuesRequest struct {
	Values map[string]any `json:"values"`
}

// SetValues applies several inputs at once.
func (h *FormHandler) SetValues(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req SetValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := d.SetValues(req.Values); err != nil {
		writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

type SetFieldRequest struct {
	Value any `json:"value"`
}

// SetField stores one input and returns the re-rendered widget.
func (h *FormHandler) SetField(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req SetFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	widget, err := d.SetValue(r.PathValue("field"), req.Value)
	if err != nil {
		writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, widget)
}

type SetLayoutRequest struct {
	Layout forms.LayoutKind `json:"layout"`
}

// SetLayout switches the presentation strategy. Entered values are kept.
func (h *FormHandler) SetLayout(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req SetLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := d.SetLayout(req.Layout); err != nil {
		writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

type SelectTabRequest struct {
	SectionID string `json:"section_id"`
}

func (h *FormHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req SelectTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := d.SelectTab(req.SectionID); err != nil {
		writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

func (h *FormHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*forms.Draft).NextStep)
}

func (h *FormHandler) Prev(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*forms.Draft).PrevStep)
}

func (h *FormHandler) step(w http.ResponseWriter, r *http.Request, move func(*forms.Draft) error) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	if err := move(d); err != nil {
		writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

// Submit validates and stores the draft as a new report.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	d, ok := h.draft(w, r)
	if !ok {
		return
	}

	id, err := h.reports.SubmitDraft(r.Context(), d, origin(r, sess))
	if err != nil {
		var subErr *reports.SubmissionError
		if errors.As(err, &subErr) {
			writeError(w, subErr.Error(), http.StatusInternalServerError)
			return
		}
		writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":      id,
		"message": "Datos guardados correctamente",
	})
}

func (h *FormHandler) draft(w http.ResponseWriter, r *http.Request) (*forms.Draft, bool) {
	sess, ok := guard.SessionFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return nil, false
	}
	d, err := h.drafts.Get(sess.UID)
	if err != nil {
		writeFormError(w, err)
		return nil, false
	}
	return d, true
}

// writeFormError maps form errors to responses. Validation failures carry
// the per-field messages.
func writeFormError(w http.ResponseWriter, err error) {
	var verrs forms.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "Hay campos con errores",
			"fields": verrs,
		})
	case errors.Is(err, forms.ErrNoDraft):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, forms.ErrWrongLayout), errors.Is(err, forms.ErrSubmitNotOnStep):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, forms.ErrUnknownField), errors.Is(err, forms.ErrComputedField),
		errors.Is(err, forms.ErrUnknownLayout), errors.Is(err, forms.ErrUnknownSection),
		errors.Is(err, reports.ErrEmptyState):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
