// Package reports turns form state into stored report entries and reads them back.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"litoralcitrus/audit"
	"litoralcitrus/db"
	"litoralcitrus/forms"
	"litoralcitrus/metrics"
	"litoralcitrus/models"
)

var (
	ErrForbidden  = errors.New("operation not permitted")
	ErrNoChanges  = errors.New("no values to update")
	ErrEmptyState = errors.New("form is empty")
)

// SubmissionError is shown to the user when the entry could not be stored.
// The form state is left untouched so the user can retry.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "Error al guardar los datos: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Origin describes the client that triggered an action, for the audit log.
type Origin struct {
	UserEmail string
	IP        string
	UserAgent string
}

// Service writes and reads report entries.
type Service struct {
	store   db.Store
	audit   audit.Recorder
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store db.Store, recorder audit.Recorder, log zerolog.Logger, m *metrics.Metrics) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:   store,
		audit:   recorder,
		log:     log.With().Str("component", "reports").Logger(),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores state as a new pending entry and records the creation in the
// audit log without waiting for it. Users without a plant submit to "general".
func (s *Service) Submit(ctx context.Context, userID string, plantID models.PlantID, state forms.State, origin Origin) (string, error) {
	if len(state) == 0 {
		s.count("invalid")
		return "", ErrEmptyState
	}
	plantID = models.ReportingPlant(plantID)

	now := s.now()
	entry := &models.ReportEntry{
		UserID:    userID,
		PlantID:   plantID,
		Data:      state.Clone(),
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.store.CreateEntry(ctx, entry)
	if err != nil {
		s.count("error")
		s.log.Error().Err(err).Str("user_id", userID).Str("plant_id", string(plantID)).Msg("failed to create entry")
		return "", &SubmissionError{Err: err}
	}

	s.audit.Record(audit.Event{
		UserID:       userID,
		UserEmail:    origin.UserEmail,
		Action:       models.ActionCreate,
		ResourceType: models.ResourceDataEntry,
		ResourceID:   id,
		Details:      map[string]interface{}{"plantId": string(plantID)},
		IP:           origin.IP,
		UserAgent:    origin.UserAgent,
	})

	s.count("ok")
	s.log.Info().Str("entry_id", id).Str("user_id", userID).Str("plant_id", string(plantID)).Msg("report submitted")
	return id, nil
}

// SubmitDraft validates the draft, submits it and clears it on success.
// A wizard draft can only be submitted from its last step.
func (s *Service) SubmitDraft(ctx context.Context, d *forms.Draft, origin Origin) (string, error) {
	state, rev, err := d.Checkout()
	if err != nil {
		var verrs forms.ValidationErrors
		if errors.As(err, &verrs) {
			s.count("invalid")
		}
		return "", err
	}

	id, err := s.Submit(ctx, d.UserID, d.PlantID, state, origin)
	if err != nil {
		return "", err
	}
	if !d.ResetAt(rev) {
		s.log.Debug().Str("draft_id", d.ID).Msg("draft changed during submission, kept")
	}
	return id, nil
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(result).Inc()
	}
}

func notFound(id string) error {
	return fmt.Errorf("entry %s: %w", id, db.ErrNotFound)
}
