package forms

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"litoralcitrus/models"
)

// ErrNoDraft is returned when a user has no open draft.
var ErrNoDraft = errors.New("no open form session")

// Drafts keeps at most one open draft per user. Idle drafts expire.
type Drafts struct {
	cache         *expirable.LRU[string, *Draft]
	defaultLayout LayoutKind
}

// NewDrafts creates a registry holding up to size drafts for ttl each.
func NewDrafts(size int, ttl time.Duration, defaultLayout LayoutKind) *Drafts {
	if defaultLayout == "" {
		defaultLayout = LayoutSingle
	}
	return &Drafts{
		cache:         expirable.NewLRU[string, *Draft](size, nil, ttl),
		defaultLayout: defaultLayout,
	}
}

// Open starts a fresh draft for the user, discarding any previous one.
func (r *Drafts) Open(userID string, plantID models.PlantID, kind LayoutKind) (*Draft, error) {
	if kind == "" {
		kind = r.defaultLayout
	}
	d, err := NewDraft(uuid.NewString(), userID, plantID, kind)
	if err != nil {
		return nil, err
	}
	r.cache.Add(userID, d)
	return d, nil
}

// Get returns the user's open draft.
func (r *Drafts) Get(userID string) (*Draft, error) {
	d, ok := r.cache.Get(userID)
	if !ok {
		return nil, ErrNoDraft
	}
	return d, nil
}

// Discard drops the user's draft.
func (r *Drafts) Discard(userID string) {
	r.cache.Remove(userID)
}

// Len is the number of open drafts.
func (r *Drafts) Len() int {
	return r.cache.Len()
}
