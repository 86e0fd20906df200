package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"litoralcitrus/auth"
	"litoralcitrus/db"
	"litoralcitrus/metrics"
	"litoralcitrus/models"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

func newProvider(t *testing.T, store db.Store) *Provider {
	t.Helper()
	jwt := auth.NewJWTManager("test-secret", time.Minute, time.Hour)
	return NewProvider(store, jwt, time.Hour, Options{
		LoginAttempts:   3,
		LoginWindow:     time.Hour,
		ProfileCacheTTL: time.Minute,
	}, zerolog.Nop(), metrics.New())
}

func register(t *testing.T, p *Provider, email string) models.Identity {
	t.Helper()
	id, _, err := p.CreateAccount(context.Background(), Registration{Email: email, Password: "secret1", DisplayName: "Ana"})
	require.NoError(t, err)
	return id
}

func approve(t *testing.T, store db.Store, uid string, role models.UserRole) {
	t.Helper()
	active := true
	require.NoError(t, store.UpdateUser(context.Background(), uid, db.UserUpdate{Role: &role, IsActive: &active}))
}

func kindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func TestCreateAccount(t *testing.T) {
	store := db.NewMemoryDB()
	p := newProvider(t, store)

	id, tokens, err := p.CreateAccount(context.Background(), Registration{
		Email:       "  Ana@Litoral.Test ",
		Password:    "secret1",
		DisplayName: "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@litoral.test", id.Email)
	assert.NotEmpty(t, tokens.AccessToken)

	profile, err := store.GetUser(context.Background(), id.UID)
	require.NoError(t, err)
	assert.False(t, profile.IsActive)
	assert.Empty(t, profile.Role)
	assert.Empty(t, profile.PlantID)

	sess, err := p.Resolve(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated)
	assert.False(t, sess.AccountActive)
}

func TestCreateAccount_Rejections(t *testing.T) {
	p := newProvider(t, db.NewMemoryDB())
	register(t, p, "ana@litoral.test")

	tests := []struct {
		name string
		reg  Registration
		want ErrorKind
	}{
		{"short password", Registration{Email: "b@litoral.test", Password: "12345", DisplayName: "B"}, ErrWeakPassword},
		{"bad email", Registration{Email: "not-an-email", Password: "secret1", DisplayName: "B"}, ErrInvalidInput},
		{"missing name", Registration{Email: "b@litoral.test", Password: "secret1"}, ErrInvalidInput},
		{"duplicate email", Registration{Email: "ANA@litoral.test", Password: "secret1", DisplayName: "Ana"}, ErrEmailInUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.CreateAccount(context.Background(), tt.reg)
			assert.Equal(t, tt.want, kindOf(err))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	store := db.NewMemoryDB()
	p := newProvider(t, store)
	ctx := context.Background()

	register(t, p, "pending@litoral.test")
	noRole := register(t, p, "norole@litoral.test")
	active := true
	require.NoError(t, store.UpdateUser(ctx, noRole.UID, db.UserUpdate{IsActive: &active}))
	ok := register(t, p, "ok@litoral.test")
	approve(t, store, ok.UID, models.RoleDataEntry)

	_, _, err := p.Authenticate(ctx, "pending@litoral.test", "secret1")
	assert.Equal(t, ErrPendingApproval, kindOf(err))
	_, _, err = p.Authenticate(ctx, "norole@litoral.test", "secret1")
	assert.Equal(t, ErrNoRole, kindOf(err))
	_, _, err = p.Authenticate(ctx, "ok@litoral.test", "wrong-pass")
	assert.Equal(t, ErrInvalidCredentials, kindOf(err))
	_, _, err = p.Authenticate(ctx, "ghost@litoral.test", "secret1")
	assert.Equal(t, ErrInvalidCredentials, kindOf(err))

	id, tokens, err := p.Authenticate(ctx, "OK@litoral.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, ok.UID, id.UID)
	assert.Equal(t, int64(60), tokens.ExpiresIn)

	profile, err := store.GetUser(ctx, ok.UID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), profile.LastLogin, 5*time.Second)
	assert.Equal(t, "ok@litoral.test", profile.Email, "last-login update keeps other fields")
}

func TestAuthenticate_Throttled(t *testing.T) {
	store := db.NewMemoryDB()
	p := newProvider(t, store)
	id := register(t, p, "ana@litoral.test")
	approve(t, store, id.UID, models.RoleAdmin)

	for i := 0; i < 3; i++ {
		_, _, err := p.Authenticate(context.Background(), "ana@litoral.test", "bad-pass")
		assert.Equal(t, ErrInvalidCredentials, kindOf(err))
	}
	_, _, err := p.Authenticate(context.Background(), "ana@litoral.test", "secret1")
	assert.Equal(t, ErrTooManyAttempts, kindOf(err))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Demasiados intentos fallidos. Intente más tarde.", ae.Message())
}

func TestEndSession_RevokesTokens(t *testing.T) {
	store := db.NewMemoryDB()
	p := newProvider(t, store)
	id := register(t, p, "ana@litoral.test")
	approve(t, store, id.UID, models.RolePlantManager)

	_, tokens, err := p.Authenticate(context.Background(), "ana@litoral.test", "secret1")
	require.NoError(t, err)

	var changes []StateChange
	unsubscribe := p.OnStateChange(func(c StateChange) { changes = append(changes, c) })
	defer unsubscribe()

	p.EndSession(context.Background(), tokens.AccessToken, tokens.RefreshToken, "garbage")

	_, err = p.Resolve(context.Background(), tokens.AccessToken)
	assert.Equal(t, ErrInvalidToken, kindOf(err))
	_, err = p.Refresh(context.Background(), tokens.RefreshToken)
	assert.Equal(t, ErrInvalidToken, kindOf(err))

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeSignedOut, changes[0].Kind)
	assert.Equal(t, id.UID, changes[0].UID)
}

func TestResolve_ProfileCacheInvalidatedOnAccessChange(t *testing.T) {
	store := db.NewMemoryDB()
	p := newProvider(t, store)
	id := register(t, p, "ana@litoral.test")
	approve(t, store, id.UID, models.RoleQueryUser)

	_, tokens, err := p.Authenticate(context.Background(), "ana@litoral.test", "secret1")
	require.NoError(t, err)

	sess, err := p.Resolve(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleQueryUser, sess.Role)

	approve(t, store, id.UID, models.RoleAdmin)
	sess, _ = p.Resolve(context.Background(), tokens.AccessToken)
	assert.Equal(t, models.RoleQueryUser, sess.Role, "served from cache")

	p.AccessChanged(id.UID, id.Email)
	sess, _ = p.Resolve(context.Background(), tokens.AccessToken)
	assert.Equal(t, models.RoleAdmin, sess.Role)
	assert.NotEmpty(t, sess.TokenID)
}

func TestResolve_MissingProfile(t *testing.T) {
	jwt := auth.NewJWTManager("test-secret", time.Minute, time.Hour)
	p := NewProvider(db.NewMemoryDB(), jwt, time.Hour, Options{}, zerolog.Nop(), nil)

	token, err := jwt.GenerateToken("orphan", "orphan@litoral.test")
	require.NoError(t, err)

	sess, err := p.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated)
	assert.False(t, sess.AccountActive)
	assert.Equal(t, "orphan", sess.UID)

	_, err = p.Resolve(context.Background(), "not-a-token")
	assert.Equal(t, ErrInvalidToken, kindOf(err))
}

func TestRefresh(t *testing.T) {
	store := db.NewMemoryDB()
	p := newProvider(t, store)
	id := register(t, p, "ana@litoral.test")
	approve(t, store, id.UID, models.RoleAdmin)

	_, tokens, err := p.Authenticate(context.Background(), "ana@litoral.test", "secret1")
	require.NoError(t, err)

	fresh, err := p.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)
	assert.Equal(t, tokens.RefreshToken, fresh.RefreshToken)

	sess, err := p.Resolve(context.Background(), fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.UID, sess.UID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	store := db.NewMemoryDB()
	p := newProvider(t, store)
	id := register(t, p, "ana@litoral.test")
	approve(t, store, id.UID, models.RoleAdmin)

	_, tokens, err := p.Authenticate(context.Background(), "ana@litoral.test", "secret1")
	require.NoError(t, err)

	_, err = p.Resolve(context.Background(), tokens.RefreshToken)
	assert.Equal(t, ErrInvalidToken, kindOf(err))

	_, err = p.Refresh(context.Background(), tokens.AccessToken)
	assert.Equal(t, ErrInvalidToken, kindOf(err))
}
