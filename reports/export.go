package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"litoralcitrus/audit"
	"litoralcitrus/auth"
	"litoralcitrus/db"
	"litoralcitrus/forms"
	"litoralcitrus/models"
)

var exportHeader = []string{"Entry ID", "Plant", "User ID", "Status", "Created At", "Updated At"}

// ExportFilename names a CSV download generated at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("litoralcitrus_reportes_%s.csv", t.Format("2006-01-02_15-04-05"))
}

// Export writes the entries visible to the session as CSV and returns the
// number of rows written. One column per field id found in the entries
// follows the fixed columns.
func (s *Service) Export(ctx context.Context, sess models.Session, q ListQuery, w io.Writer, origin Origin) (int, error) {
	if !auth.SessionPermissions(sess).CanViewAuditLogs {
		return 0, ErrForbidden
	}
	entries, err := s.List(ctx, sess, q)
	if err != nil {
		return 0, err
	}

	keys := make(map[string]struct{})
	for _, e := range entries {
		for k := range e.Data {
			keys[k] = struct{}{}
		}
	}
	fields := slices.Sorted(maps.Keys(keys))

	writer := csv.NewWriter(w)
	if err := writer.Write(append(slices.Clone(exportHeader), fields...)); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			string(e.PlantID),
			e.UserID,
			string(e.Status),
			e.CreatedAt.Format(time.RFC3339),
			e.UpdatedAt.Format(time.RFC3339),
		}
		data := forms.State(e.Data)
		for _, f := range fields {
			row = append(row, data.Display(f))
		}
		if err := writer.Write(row); err != nil {
			return 0, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush CSV: %w", err)
	}

	s.audit.Record(audit.Event{
		UserID:       sess.UID,
		UserEmail:    origin.UserEmail,
		Action:       models.ActionExport,
		ResourceType: models.ResourceDataEntry,
		Details:      map[string]interface{}{"rows": len(entries)},
		IP:           origin.IP,
		UserAgent:    origin.UserAgent,
	})
	s.log.Info().Str("user_id", sess.UID).Int("rows", len(entries)).Msg("CSV export")
	return len(entries), nil
}

// AuditLog lists audit entries for roles allowed to read them.
func (s *Service) AuditLog(ctx context.Context, sess models.Session, q db.AuditQuery) ([]models.AuditLogEntry, error) {
	if !auth.SessionPermissions(sess).CanViewAuditLogs {
		return nil, ErrForbidden
	}
	logs, err := s.store.ListAudit(ctx, q)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.AuditLogEntry{}
	}
	return logs, nil
}
