package reports

import (
	"context"
	"errors"
	"maps"
	"reflect"
	"slices"
	"time"

	"litoralcitrus/audit"
	"litoralcitrus/auth"
	"litoralcitrus/db"
	"litoralcitrus/forms"
	"litoralcitrus/models"
	"litoralcitrus/schema"
)

// ListQuery narrows an entry listing.
type ListQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// List returns the entries visible to the session, newest first. Roles with
// cross-plant visibility see every plant; the rest see only the plant they
// report to.
func (s *Service) List(ctx context.Context, sess models.Session, q ListQuery) ([]models.ReportEntry, error) {
	perms := auth.SessionPermissions(sess)
	query := db.EntryQuery{Since: q.From, Until: q.To, Limit: q.Limit}

	if !perms.CanViewAllPlants {
		query.PlantID = models.ReportingPlant(sess.PlantID)
	}

	entries, err := s.store.ListEntries(ctx, query)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ReportEntry{}
	}
	return entries, nil
}

// Get returns one entry. Entries of plants the session cannot see are
// reported as not found.
func (s *Service) Get(ctx context.Context, sess models.Session, id string) (*models.ReportEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.SessionPermissions(sess).CanViewPlant(sess.PlantID, entry.PlantID) {
		return nil, notFound(id)
	}
	return entry, nil
}

// Update merges values into an existing entry and recomputes the derived
// metrics. The result must still pass validation.
func (s *Service) Update(ctx context.Context, sess models.Session, id string, values map[string]any, origin Origin) (*models.ReportEntry, error) {
	if len(values) == 0 {
		return nil, ErrNoChanges
	}

	entry, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !auth.SessionPermissions(sess).CanEditEntry(entry.UserID, sess.UID) {
		return nil, ErrForbidden
	}

	sch := schema.Resolve(entry.PlantID)
	merged := forms.State(entry.Data).Clone()
	if err := forms.Merge(sch, merged, values); err != nil {
		return nil, err
	}
	if errs := forms.ValidateState(sch, merged); len(errs) > 0 {
		return nil, errs
	}

	changed := make(map[string]interface{})
	for key, value := range merged {
		if old, ok := entry.Data[key]; !ok || !reflect.DeepEqual(old, value) {
			changed[key] = value
		}
	}
	for key := range entry.Data {
		if _, ok := merged[key]; !ok {
			changed[key] = nil
		}
	}
	if len(changed) == 0 {
		return entry, nil
	}

	if err := s.store.UpdateEntry(ctx, id, db.EntryUpdate{Data: changed}); err != nil {
		return nil, err
	}

	s.audit.Record(audit.Event{
		UserID:       sess.UID,
		UserEmail:    origin.UserEmail,
		Action:       models.ActionUpdate,
		ResourceType: models.ResourceDataEntry,
		ResourceID:   id,
		Details:      map[string]interface{}{"plantId": string(entry.PlantID), "fields": slices.Sorted(maps.Keys(changed))},
		IP:           origin.IP,
		UserAgent:    origin.UserAgent,
	})
	s.log.Info().Str("entry_id", id).Str("user_id", sess.UID).Int("fields", len(changed)).Msg("report updated")

	entry.Data = merged
	entry.UpdatedAt = s.now()
	return entry, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, sess models.Session, id string, origin Origin) error {
	if !auth.SessionPermissions(sess).CanDeleteEntry {
		return ErrForbidden
	}
	entry, err := s.Get(ctx, sess, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return err
	}

	s.audit.Record(audit.Event{
		UserID:       sess.UID,
		UserEmail:    origin.UserEmail,
		Action:       models.ActionDelete,
		ResourceType: models.ResourceDataEntry,
		ResourceID:   id,
		Details:      map[string]interface{}{"plantId": string(entry.PlantID)},
		IP:           origin.IP,
		UserAgent:    origin.UserAgent,
	})
	s.log.Info().Str("entry_id", id).Str("user_id", sess.UID).Msg("report deleted")
	return nil
}

// IsNotFound reports whether err means the entry does not exist or is hidden.
func IsNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
