package db

import (
	"context"
	"errors"
	"time"

	"litoralcitrus/models"
)

// Collection names
const (
	UsersCollection     = "users"
	PasswordsCollection = "passwords"
	EntriesCollection   = "data_entries"
	AuditCollection     = "audit_logs"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document already exists")
)

// UserFilter narrows a user listing. Results are ordered by creation time, newest first.
type UserFilter struct {
	Active *bool
}

// UserUpdate is a partial update of a profile; nil fields are left alone.
type UserUpdate struct {
	Role      *models.UserRole
	PlantID   *models.PlantID
	IsActive  *bool
	Theme     *string
	LastLogin *time.Time
}

// EntryQuery selects report entries. Zero values mean "no filter".
// Results are ordered by creation time, newest first.
type EntryQuery struct {
	PlantID models.PlantID
	UserID  string
	Since   time.Time // inclusive
	Until   time.Time // exclusive
	Limit   int
}

// EntryUpdate merges Data keys into an entry; a nil value removes the key.
// A nil Status is left alone.
type EntryUpdate struct {
	Data   map[string]interface{}
	Status *models.EntryStatus
}

// AuditQuery selects audit log entries, newest first.
type AuditQuery struct {
	ResourceType string
	UserID       string
	Since        time.Time
	Until        time.Time
	Limit        int
}

// Store is the document store used by the service.
type Store interface {
	CreateUser(ctx context.Context, user *models.UserProfile) error
	GetUser(ctx context.Context, uid string) (*models.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.UserProfile, error)
	UpdateUser(ctx context.Context, uid string, update UserUpdate) error

	StorePasswordHash(ctx context.Context, uid, passwordHash string) error
	GetPasswordHash(ctx context.Context, uid string) (string, error)

	CreateEntry(ctx context.Context, entry *models.ReportEntry) (string, error)
	GetEntry(ctx context.Context, id string) (*models.ReportEntry, error)
	ListEntries(ctx context.Context, q EntryQuery) ([]models.ReportEntry, error)
	UpdateEntry(ctx context.Context, id string, update EntryUpdate) error
	DeleteEntry(ctx context.Context, id string) error

	AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error
	ListAudit(ctx context.Context, q AuditQuery) ([]models.AuditLogEntry, error)

	Close() error
}

func inRange(t, since, until time.Time) bool {
	if !since.IsZero() && t.Before(since) {
		return false
	}
	if !until.IsZero() && !t.Before(until) {
		return false
	}
	return true
}
