package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"litoralcitrus/auth"
	"litoralcitrus/db"
	"litoralcitrus/forms"
	"litoralcitrus/guard"
	"litoralcitrus/models"
	"litoralcitrus/reports"
	"litoralcitrus/schema"
)

type ReportsHandler struct {
	svc *reports.Service
	log zerolog.Logger
}

func NewReportsHandler(svc *reports.Service, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		svc: svc,
		log: log.With().Str("handler", "reports").Logger(),
	}
}

type ListResponse struct {
	Entries []models.ReportEntry `json:"entries"`
	Count   int                  `json:"count"`
}

// List returns the entries visible to the caller, newest first.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.svc.List(r.Context(), sess, q)
	if err != nil {
		h.log.Error().Err(err).Str("uid", sess.UID).Msg("failed to list entries")
		writeError(w, "Failed to retrieve entries", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Entries: entries, Count: len(entries)})
}

// Summary returns per-plant aggregates, plus KPIs for cross-plant roles.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.svc.List(r.Context(), sess, q)
	if err != nil {
		h.log.Error().Err(err).Str("uid", sess.UID).Msg("failed to list entries")
		writeError(w, "Failed to retrieve entries", http.StatusInternalServerError)
		return
	}
	perms := auth.SessionPermissions(sess)
	writeJSON(w, http.StatusOK, reports.Aggregate(entries, perms.CanViewAllPlants))
}

// DetailItem is one labelled value of a report.
type DetailItem struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label"`
	Value   string `json:"value"`
}

type DetailResponse struct {
	Entry       models.ReportEntry `json:"entry"`
	PlantName   string             `json:"plant_name"`
	StatusLabel string             `json:"status_label"`
	Items       []DetailItem       `json:"items"`
	CanEdit     bool               `json:"can_edit"`
	CanDelete   bool               `json:"can_delete"`
}

// Detail returns one entry with its values labelled in schema order.
func (h *ReportsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	entry, err := h.svc.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		h.writeEntryError(w, err)
		return
	}

	perms := auth.SessionPermissions(sess)
	resp := DetailResponse{
		Entry:       *entry,
		PlantName:   string(entry.PlantID),
		StatusLabel: statusLabel(entry.Status),
		Items:       detailItems(entry),
		CanEdit:     perms.CanEditEntry(entry.UserID, sess.UID),
		CanDelete:   perms.CanDeleteEntry,
	}
	if p, ok := models.FindPlant(entry.PlantID); ok {
		resp.PlantName = p.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusLabel(s models.EntryStatus) string {
	if s == models.StatusSynced {
		return "Sincronizado"
	}
	return "Pendiente Sheets"
}

// detailItems lists schema fields first, then any stored key the schema
// does not know, labelled from its id.
func detailItems(entry *models.ReportEntry) []DetailItem {
	data := forms.State(entry.Data)
	seen := make(map[string]bool, len(data))
	var items []DetailItem

	for _, f := range schema.Resolve(entry.PlantID).Fields() {
		if _, ok := data[f.ID]; !ok {
			continue
		}
		seen[f.ID] = true
		items = append(items, DetailItem{FieldID: f.ID, Label: f.Label, Value: data.Display(f.ID)})
	}

	var extra []string
	for key := range data {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)
	for _, key := range extra {
		items = append(items, DetailItem{FieldID: key, Label: strings.ReplaceAll(key, "_", " "), Value: data.Display(key)})
	}
	return items
}

type UpdateEntryRequest struct {
	Values map[string]any `json:"values"`
}

// Update merges values into an entry.
func (h *ReportsHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.svc.Update(r.Context(), sess, r.PathValue("id"), req.Values, origin(r, sess))
	if err != nil {
		h.writeEntryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), sess, r.PathValue("id"), origin(r, sess)); err != nil {
		h.writeEntryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export streams the visible entries as a CSV download.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if _, err := h.svc.Export(r.Context(), sess, q, &buf, origin(r, sess)); err != nil {
		h.writeEntryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+reports.ExportFilename(time.Now()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn().Err(err).Msg("CSV export interrupted")
	}
}

// AuditLogs lists audit entries filtered by resourceType and time range.
func (h *ReportsHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	sess, _ := guard.SessionFromContext(r.Context())
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logs, err := h.svc.AuditLog(r.Context(), sess, db.AuditQuery{
		ResourceType: r.URL.Query().Get("resourceType"),
		UserID:       r.URL.Query().Get("userId"),
		Since:        q.From,
		Until:        q.To,
		Limit:        q.Limit,
	})
	if err != nil {
		h.writeEntryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (h *ReportsHandler) writeEntryError(w http.ResponseWriter, err error) {
	switch {
	case reports.IsNotFound(err):
		writeError(w, "No se encontró el reporte.", http.StatusNotFound)
	case errors.Is(err, reports.ErrForbidden):
		writeError(w, "Insufficient permissions", http.StatusForbidden)
	case errors.Is(err, reports.ErrNoChanges):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		var verrs forms.ValidationErrors
		if errors.As(err, &verrs) || errors.Is(err, forms.ErrUnknownField) || errors.Is(err, forms.ErrComputedField) {
			writeFormError(w, err)
			return
		}
		h.log.Error().Err(err).Msg("report operation failed")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// parseListQuery reads the optional from, to (RFC3339 or YYYY-MM-DD) and
// limit parameters.
func parseListQuery(r *http.Request) (reports.ListQuery, error) {
	var q reports.ListQuery
	values := r.URL.Query()

	var err error
	if q.From, err = parseTime(values.Get("from")); err != nil {
		return q, errors.New("invalid from")
	}
	if q.To, err = parseTime(values.Get("to")); err != nil {
		return q, errors.New("invalid to")
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, errors.New("invalid limit")
		}
		q.Limit = n
	}
	return q, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(forms.DateLayout, raw)
}
