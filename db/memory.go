package db

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"litoralcitrus/models"
)

// MemoryDB is an in-process Store used for local runs and tests.
type MemoryDB struct {
	mu        sync.RWMutex
	users     map[string]models.UserProfile
	passwords map[string]string
	entries   map[string]models.ReportEntry
	audit     []models.AuditLogEntry
}

// NewMemoryDB creates an empty store.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:     make(map[string]models.UserProfile),
		passwords: make(map[string]string),
		entries:   make(map[string]models.ReportEntry),
	}
}

func (m *MemoryDB) Close() error { return nil }

// --- Users ---

func (m *MemoryDB) CreateUser(_ context.Context, user *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.UID]; exists {
		return fmt.Errorf("failed to create user: %w", ErrConflict)
	}
	m.users[user.UID] = *user
	return nil
}

func (m *MemoryDB) GetUser(_ context.Context, uid string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[uid]
	if !ok {
		return nil, fmt.Errorf("failed to get user %s: %w", uid, ErrNotFound)
	}
	return &user, nil
}

func (m *MemoryDB) GetUserByEmail(_ context.Context, email string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(email)
	for _, user := range m.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
}

func (m *MemoryDB) ListUsers(_ context.Context, filter UserFilter) ([]models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.UserProfile
	for _, user := range m.users {
		if filter.Active != nil && user.IsActive != *filter.Active {
			continue
		}
		out = append(out, user)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryDB) UpdateUser(_ context.Context, uid string, update UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return fmt.Errorf("failed to update user %s: %w", uid, ErrNotFound)
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.PlantID != nil {
		user.PlantID = *update.PlantID
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.Theme != nil {
		user.Theme = *update.Theme
	}
	if update.LastLogin != nil {
		user.LastLogin = *update.LastLogin
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[uid] = user
	return nil
}

// --- Passwords ---

func (m *MemoryDB) StorePasswordHash(_ context.Context, uid, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwords[uid] = passwordHash
	return nil
}

func (m *MemoryDB) GetPasswordHash(_ context.Context, uid string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ok := m.passwords[uid]
	if !ok {
		return "", fmt.Errorf("%w: password hash for user %s", ErrNotFound, uid)
	}
	return hash, nil
}

// --- Entries ---

func (m *MemoryDB) CreateEntry(_ context.Context, entry *models.ReportEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uuid.NewString()
	stored := *entry
	stored.Data = maps.Clone(entry.Data)
	m.entries[entry.ID] = stored
	return entry.ID, nil
}

func (m *MemoryDB) GetEntry(_ context.Context, id string) (*models.ReportEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("failed to get entry %s: %w", id, ErrNotFound)
	}
	entry.Data = maps.Clone(entry.Data)
	return &entry, nil
}

func (m *MemoryDB) ListEntries(_ context.Context, q EntryQuery) ([]models.ReportEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ReportEntry
	for _, entry := range m.entries {
		if q.PlantID != "" && entry.PlantID != q.PlantID {
			continue
		}
		if q.UserID != "" && entry.UserID != q.UserID {
			continue
		}
		if !inRange(entry.CreatedAt, q.Since, q.Until) {
			continue
		}
		entry.Data = maps.Clone(entry.Data)
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryDB) UpdateEntry(_ context.Context, id string, update EntryUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("failed to update entry %s: %w", id, ErrNotFound)
	}
	data := maps.Clone(entry.Data)
	if data == nil {
		data = map[string]interface{}{}
	}
	for key, value := range update.Data {
		if value == nil {
			delete(data, key)
			continue
		}
		data[key] = value
	}
	entry.Data = data
	if update.Status != nil {
		entry.Status = *update.Status
	}
	entry.UpdatedAt = time.Now().UTC()
	m.entries[id] = entry
	return nil
}

func (m *MemoryDB) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("failed to delete entry %s: %w", id, ErrNotFound)
	}
	delete(m.entries, id)
	return nil
}

// --- Audit ---

func (m *MemoryDB) AppendAudit(_ context.Context, entry *models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stored := *entry
	stored.Details = maps.Clone(entry.Details)
	m.audit = append(m.audit, stored)
	return nil
}

func (m *MemoryDB) ListAudit(_ context.Context, q AuditQuery) ([]models.AuditLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.AuditLogEntry
	for _, entry := range m.audit {
		if q.ResourceType != "" && entry.ResourceType != q.ResourceType {
			continue
		}
		if q.UserID != "" && entry.UserID != q.UserID {
			continue
		}
		if !inRange(entry.Timestamp, q.Since, q.Until) {
			continue
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

var (
	_ Store = (*MemoryDB)(nil)
	_ Store = (*FirestoreDB)(nil)
)
