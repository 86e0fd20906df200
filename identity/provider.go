// Package identity implements account creation, sign-in, sign-out and
// token-to-session resolution on top of the document store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"litoralcitrus/auth"
	"litoralcitrus/db"
	"litoralcitrus/metrics"
	"litoralcitrus/models"
)

// ChangeKind describes what happened to an account's session.
type ChangeKind string

const (
	ChangeSignedIn      ChangeKind = "signed_in"
	ChangeSignedOut     ChangeKind = "signed_out"
	ChangeRegistered    ChangeKind = "registered"
	ChangeAccessUpdated ChangeKind = "access_updated"
)

// StateChange is delivered to OnStateChange listeners.
type StateChange struct {
	Kind  ChangeKind
	UID   string
	Email string
}

// Tokens is the credential pair handed to a signed-in client.
type Tokens struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Registration is the input of CreateAccount.
type Registration struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type Options struct {
	LoginAttempts    int
	LoginWindow      time.Duration
	ProfileCacheTTL  time.Duration
	ProfileCacheSize int
}

// Provider is the identity provider used by the HTTP layer.
type Provider struct {
	store    db.Store
	jwt      *auth.JWTManager
	validate *validator.Validate
	log      zerolog.Logger
	metrics  *metrics.Metrics

	opts     Options
	limiters *expirable.LRU[string, *rate.Limiter]
	revoked  *expirable.LRU[string, struct{}]
	profiles *expirable.LRU[string, models.UserProfile]

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(StateChange)
}

func NewProvider(store db.Store, jwt *auth.JWTManager, revokeTTL time.Duration, opts Options, log zerolog.Logger, m *metrics.Metrics) *Provider {
	if opts.LoginAttempts <= 0 {
		opts.LoginAttempts = 5
	}
	if opts.LoginWindow <= 0 {
		opts.LoginWindow = 15 * time.Minute
	}
	if opts.ProfileCacheSize <= 0 {
		opts.ProfileCacheSize = 512
	}

	p := &Provider{
		store:     store,
		jwt:       jwt,
		validate:  validator.New(),
		log:       log.With().Str("component", "identity").Logger(),
		metrics:   m,
		opts:      opts,
		limiters:  expirable.NewLRU[string, *rate.Limiter](4096, nil, opts.LoginWindow),
		revoked:   expirable.NewLRU[string, struct{}](0, nil, revokeTTL),
		listeners: make(map[int]func(StateChange)),
	}
	if opts.ProfileCacheTTL > 0 {
		p.profiles = expirable.NewLRU[string, models.UserProfile](opts.ProfileCacheSize, nil, opts.ProfileCacheTTL)
	}
	return p
}

// CreateAccount registers a new account pending administrator approval.
// The new account is signed in, so the client can observe its pending state.
func (p *Provider) CreateAccount(ctx context.Context, reg Registration) (models.Identity, Tokens, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.DisplayName = strings.TrimSpace(reg.DisplayName)
	if err := p.validate.Struct(reg); err != nil {
		return models.Identity{}, Tokens{}, authErr(ErrInvalidInput, err)
	}
	if err := auth.ValidatePasswordStrength(reg.Password); err != nil {
		return models.Identity{}, Tokens{}, &AuthError{Kind: ErrWeakPassword, Detail: err.Error()}
	}

	_, err := p.store.GetUserByEmail(ctx, reg.Email)
	switch {
	case err == nil:
		return models.Identity{}, Tokens{}, authErr(ErrEmailInUse, nil)
	case !errors.Is(err, db.ErrNotFound):
		return models.Identity{}, Tokens{}, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return models.Identity{}, Tokens{}, err
	}

	now := time.Now().UTC()
	profile := &models.UserProfile{
		UID:         uuid.NewString(),
		Email:       reg.Email,
		DisplayName: reg.DisplayName,
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLogin:   now,
	}
	if err := p.store.CreateUser(ctx, profile); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return models.Identity{}, Tokens{}, authErr(ErrEmailInUse, err)
		}
		return models.Identity{}, Tokens{}, fmt.Errorf("failed to create profile: %w", err)
	}
	if err := p.store.StorePasswordHash(ctx, profile.UID, hash); err != nil {
		return models.Identity{}, Tokens{}, fmt.Errorf("failed to store credentials: %w", err)
	}

	id := models.Identity{UID: profile.UID, Email: profile.Email}
	tokens, err := p.issue(id)
	if err != nil {
		return models.Identity{}, Tokens{}, err
	}

	p.log.Info().Str("uid", id.UID).Str("email", id.Email).Msg("account registered, pending approval")
	p.publish(StateChange{Kind: ChangeRegistered, UID: id.UID, Email: id.Email})
	return id, tokens, nil
}

// Authenticate signs an account in. Only active accounts with a role succeed.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (models.Identity, Tokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := p.validate.Struct(credentials{Email: email, Password: password}); err != nil {
		p.countAuth(ErrInvalidCredentials)
		return models.Identity{}, Tokens{}, authErr(ErrInvalidCredentials, err)
	}

	limiter := p.limiter(email)
	if limiter.Tokens() < 1 {
		p.countAuth(ErrTooManyAttempts)
		p.log.Warn().Str("email", email).Msg("sign-in throttled")
		return models.Identity{}, Tokens{}, authErr(ErrTooManyAttempts, nil)
	}

	user, err := p.checkCredentials(ctx, email, password)
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) && ae.Kind == ErrInvalidCredentials {
			limiter.Allow()
			p.countAuth(ErrInvalidCredentials)
			p.log.Info().Str("email", email).Err(ae.Err).Msg("sign-in failed")
		}
		return models.Identity{}, Tokens{}, err
	}

	// re-read the profile: it may have been removed since the lookup
	profile, err := p.store.GetUser(ctx, user.UID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			p.countAuth(ErrAccountNotFound)
			return models.Identity{}, Tokens{}, authErr(ErrAccountNotFound, err)
		}
		return models.Identity{}, Tokens{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if !profile.IsActive {
		p.countAuth(ErrPendingApproval)
		return models.Identity{}, Tokens{}, authErr(ErrPendingApproval, nil)
	}
	if profile.Role == "" {
		p.countAuth(ErrNoRole)
		return models.Identity{}, Tokens{}, authErr(ErrNoRole, nil)
	}

	now := time.Now().UTC()
	if err := p.store.UpdateUser(ctx, profile.UID, db.UserUpdate{LastLogin: &now}); err != nil {
		p.log.Warn().Err(err).Str("uid", profile.UID).Msg("failed to update last login")
	}

	id := models.Identity{UID: profile.UID, Email: profile.Email}
	tokens, err := p.issue(id)
	if err != nil {
		return models.Identity{}, Tokens{}, err
	}

	p.countAuth("ok")
	p.log.Info().Str("uid", id.UID).Str("role", string(profile.Role)).Msg("user signed in")
	p.publish(StateChange{Kind: ChangeSignedIn, UID: id.UID, Email: id.Email})
	return id, tokens, nil
}

func (p *Provider) checkCredentials(ctx context.Context, email, password string) (*models.UserProfile, error) {
	user, err := p.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, authErr(ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := p.store.GetPasswordHash(ctx, user.UID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, authErr(ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if err := auth.CheckPassword(password, hash); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, authErr(ErrInvalidCredentials, err)
		}
		return nil, err
	}
	return user, nil
}

func (p *Provider) limiter(email string) *rate.Limiter {
	if lim, ok := p.limiters.Get(email); ok {
		return lim
	}
	every := p.opts.LoginWindow / time.Duration(p.opts.LoginAttempts)
	lim := rate.NewLimiter(rate.Every(every), p.opts.LoginAttempts)
	p.limiters.Add(email, lim)
	return lim
}

func (p *Provider) issue(id models.Identity) (Tokens, error) {
	access, err := p.jwt.GenerateToken(id.UID, id.Email)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := p.jwt.GenerateRefreshToken(id.UID, id.Email)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(p.jwt.TokenExpiration().Seconds()),
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	claims, err := p.claims(refreshToken, auth.TokenRefresh)
	if err != nil {
		return Tokens{}, err
	}

	profile, err := p.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Tokens{}, authErr(ErrAccountNotFound, err)
		}
		return Tokens{}, fmt.Errorf("failed to load profile: %w", err)
	}

	access, err := p.jwt.GenerateToken(profile.UID, profile.Email)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(p.jwt.TokenExpiration().Seconds()),
	}, nil
}

// EndSession revokes every given token. Invalid tokens are ignored.
func (p *Provider) EndSession(_ context.Context, tokens ...string) {
	var signedOut *auth.Claims
	for _, token := range tokens {
		claims, err := p.jwt.ValidateToken(token)
		if err != nil {
			continue
		}
		p.revoked.Add(claims.ID, struct{}{})
		signedOut = claims
	}
	if signedOut == nil {
		return
	}

	p.invalidate(signedOut.UserID)
	p.log.Info().Str("uid", signedOut.UserID).Msg("user signed out")
	p.publish(StateChange{Kind: ChangeSignedOut, UID: signedOut.UserID, Email: signedOut.Email})
}

func (p *Provider) claims(token string, want auth.TokenType) (*auth.Claims, error) {
	claims, err := p.jwt.ValidateToken(token)
	if err != nil {
		return nil, authErr(ErrInvalidToken, err)
	}
	if claims.Type != want {
		return nil, authErr(ErrInvalidToken, fmt.Errorf("%s token used as %s token", claims.Type, want))
	}
	if p.revoked.Contains(claims.ID) {
		return nil, authErr(ErrInvalidToken, errors.New("token revoked"))
	}
	return claims, nil
}

// Resolve turns a token into the session it represents. A valid token whose
// profile is missing yields an authenticated but inactive session.
func (p *Provider) Resolve(ctx context.Context, token string) (models.Session, error) {
	claims, err := p.claims(token, auth.TokenAccess)
	if err != nil {
		return models.Session{}, err
	}

	profile, err := p.profile(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			p.log.Warn().Str("uid", claims.UserID).Msg("authenticated account has no profile")
			return models.Session{
				IsAuthenticated: true,
				UID:             claims.UserID,
				Email:           claims.Email,
				TokenID:         claims.ID,
			}, nil
		}
		return models.Session{}, fmt.Errorf("failed to resolve session: %w", err)
	}

	sess := models.SessionFromProfile(&profile)
	sess.TokenID = claims.ID
	return sess, nil
}

func (p *Provider) profile(ctx context.Context, uid string) (models.UserProfile, error) {
	if p.profiles != nil {
		if cached, ok := p.profiles.Get(uid); ok {
			return cached, nil
		}
	}
	profile, err := p.store.GetUser(ctx, uid)
	if err != nil {
		return models.UserProfile{}, err
	}
	if p.profiles != nil {
		p.profiles.Add(uid, *profile)
	}
	return *profile, nil
}

func (p *Provider) invalidate(uid string) {
	if p.profiles != nil {
		p.profiles.Remove(uid)
	}
}

// AccessChanged is called after an account's role, plant or status was
// modified so cached sessions are dropped and listeners are told.
func (p *Provider) AccessChanged(uid, email string) {
	p.invalidate(uid)
	p.publish(StateChange{Kind: ChangeAccessUpdated, UID: uid, Email: email})
}

// OnStateChange registers fn for every sign-in, sign-out, registration and
// access change. The returned func unsubscribes.
func (p *Provider) OnStateChange(fn func(StateChange)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) publish(change StateChange) {
	p.mu.Lock()
	listeners := make([]func(StateChange), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (p *Provider) countAuth(result ErrorKind) {
	if p.metrics != nil {
		p.metrics.AuthAttempts.WithLabelValues(string(result)).Inc()
	}
}
