package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"litoralcitrus/models"
)

// FirestoreDB wraps the Firestore client
type FirestoreDB struct {
	client *firestore.Client
	log    zerolog.Logger
}

// NewFirestoreDB initializes a new Firestore client
func NewFirestoreDB(ctx context.Context, projectID, credentialsPath string, log zerolog.Logger) (*FirestoreDB, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.Info().Str("project_id", projectID).Msg("connected to Firestore")

	return &FirestoreDB{
		client: client,
		log:    log,
	}, nil
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// --- User Operations ---

// CreateUser creates a new profile; it fails if the uid is taken.
func (db *FirestoreDB) CreateUser(ctx context.Context, user *models.UserProfile) error {
	_, err := db.client.Collection(UsersCollection).Doc(user.UID).Create(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

// GetUser retrieves a user by ID
func (db *FirestoreDB) GetUser(ctx context.Context, uid string) (*models.UserProfile, error) {
	doc, err := db.client.Collection(UsersCollection).Doc(uid).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", mapError(err))
	}

	var user models.UserProfile
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (db *FirestoreDB) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	iter := db.client.Collection(UsersCollection).
		Where("email", "==", strings.ToLower(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.UserProfile
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}

	return &user, nil
}

// ListUsers retrieves users, newest first
func (db *FirestoreDB) ListUsers(ctx context.Context, filter UserFilter) ([]models.UserProfile, error) {
	q := db.client.Collection(UsersCollection).Query
	if filter.Active != nil {
		q = q.Where("isActive", "==", *filter.Active)
	}
	q = q.OrderBy("createdAt", firestore.Desc)

	return collect[models.UserProfile](db, q.Documents(ctx), "users")
}

// UpdateUser merges the set fields into an existing profile
func (db *FirestoreDB) UpdateUser(ctx context.Context, uid string, update UserUpdate) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
	if update.Role != nil {
		updates = append(updates, firestore.Update{Path: "role", Value: *update.Role})
	}
	if update.PlantID != nil {
		updates = append(updates, firestore.Update{Path: "plantId", Value: *update.PlantID})
	}
	if update.IsActive != nil {
		updates = append(updates, firestore.Update{Path: "isActive", Value: *update.IsActive})
	}
	if update.Theme != nil {
		updates = append(updates, firestore.Update{Path: "theme", Value: *update.Theme})
	}
	if update.LastLogin != nil {
		updates = append(updates, firestore.Update{Path: "lastLogin", Value: *update.LastLogin})
	}

	if _, err := db.client.Collection(UsersCollection).Doc(uid).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}
	return nil
}

// --- Password Operations ---

// StorePasswordHash stores a password hash for a user
func (db *FirestoreDB) StorePasswordHash(ctx context.Context, uid, passwordHash string) error {
	_, err := db.client.Collection(PasswordsCollection).Doc(uid).Set(ctx, map[string]interface{}{
		"uid":           uid,
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to store password hash: %w", err)
	}
	return nil
}

// GetPasswordHash retrieves a password hash for a user
func (db *FirestoreDB) GetPasswordHash(ctx context.Context, uid string) (string, error) {
	doc, err := db.client.Collection(PasswordsCollection).Doc(uid).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get password hash: %w", mapError(err))
	}

	if hash, ok := doc.Data()["password_hash"].(string); ok {
		return hash, nil
	}

	return "", fmt.Errorf("%w: password hash for user %s", ErrNotFound, uid)
}

// --- Entry Operations ---

// CreateEntry stores a new report entry under a generated document id
func (db *FirestoreDB) CreateEntry(ctx context.Context, entry *models.ReportEntry) (string, error) {
	ref := db.client.Collection(EntriesCollection).NewDoc()
	entry.ID = ref.ID
	if _, err := ref.Create(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to create entry: %w", mapError(err))
	}
	return ref.ID, nil
}

// GetEntry retrieves an entry by ID
func (db *FirestoreDB) GetEntry(ctx context.Context, id string) (*models.ReportEntry, error) {
	doc, err := db.client.Collection(EntriesCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", mapError(err))
	}

	var entry models.ReportEntry
	if err := doc.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("failed to parse entry: %w", err)
	}
	entry.ID = doc.Ref.ID

	return &entry, nil
}

// ListEntries runs an equality + creation-time range query, newest first
func (db *FirestoreDB) ListEntries(ctx context.Context, eq EntryQuery) ([]models.ReportEntry, error) {
	q := db.client.Collection(EntriesCollection).Query
	if eq.PlantID != "" {
		q = q.Where("plantId", "==", eq.PlantID)
	}
	if eq.UserID != "" {
		q = q.Where("userId", "==", eq.UserID)
	}
	if !eq.Since.IsZero() {
		q = q.Where("createdAt", ">=", eq.Since)
	}
	if !eq.Until.IsZero() {
		q = q.Where("createdAt", "<", eq.Until)
	}
	q = q.OrderBy("createdAt", firestore.Desc)
	if eq.Limit > 0 {
		q = q.Limit(eq.Limit)
	}

	return collect[models.ReportEntry](db, q.Documents(ctx), "entries")
}

// UpdateEntry merges data keys and status into an existing entry. A nil
// value removes the key.
func (db *FirestoreDB) UpdateEntry(ctx context.Context, id string, update EntryUpdate) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
	for key, value := range update.Data {
		if value == nil {
			value = firestore.Delete
		}
		// field ids may hold non-identifier characters, so use explicit paths
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"data", key}, Value: value})
	}
	if update.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: *update.Status})
	}

	if _, err := db.client.Collection(EntriesCollection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update entry: %w", mapError(err))
	}
	return nil
}

// DeleteEntry deletes an entry; deleting a missing entry reports ErrNotFound
func (db *FirestoreDB) DeleteEntry(ctx context.Context, id string) error {
	_, err := db.client.Collection(EntriesCollection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", mapError(err))
	}
	return nil
}

// --- Audit Operations ---

// AppendAudit adds an audit log entry
func (db *FirestoreDB) AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error {
	ref := db.client.Collection(AuditCollection).NewDoc()
	if entry.ID == "" {
		entry.ID = ref.ID
	} else {
		ref = db.client.Collection(AuditCollection).Doc(entry.ID)
	}
	if _, err := ref.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit log: %w", mapError(err))
	}
	return nil
}

// ListAudit runs an equality + timestamp range query over the audit log, newest first
func (db *FirestoreDB) ListAudit(ctx context.Context, aq AuditQuery) ([]models.AuditLogEntry, error) {
	q := db.client.Collection(AuditCollection).Query
	if aq.ResourceType != "" {
		q = q.Where("resourceType", "==", aq.ResourceType)
	}
	if aq.UserID != "" {
		q = q.Where("userId", "==", aq.UserID)
	}
	if !aq.Since.IsZero() {
		q = q.Where("timestamp", ">=", aq.Since)
	}
	if !aq.Until.IsZero() {
		q = q.Where("timestamp", "<", aq.Until)
	}
	q = q.OrderBy("timestamp", firestore.Desc)
	if aq.Limit > 0 {
		q = q.Limit(aq.Limit)
	}

	return collect[models.AuditLogEntry](db, q.Documents(ctx), "audit logs")
}

func collect[T any](db *FirestoreDB, iter *firestore.DocumentIterator, what string) ([]T, error) {
	defer iter.Stop()

	var out []T
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", what, err)
		}

		var item T
		if err := doc.DataTo(&item); err != nil {
			db.log.Warn().Err(err).Str("doc_id", doc.Ref.ID).Msgf("failed to parse %s document", what)
			continue
		}
		out = append(out, item)
	}

	return out, nil
}
