package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"litoralcitrus/audit"
	"litoralcitrus/auth"
	"litoralcitrus/db"
	"litoralcitrus/guard"
	"litoralcitrus/identity"
	"litoralcitrus/middleware"
	"litoralcitrus/models"
	"litoralcitrus/reports"
	"litoralcitrus/session"
)

// CookieOptions controls the session cookie set on sign-in.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	provider *identity.Provider
	guard    *guard.Guard
	store    db.Store
	audit    audit.Recorder
	cookie   CookieOptions
	log      zerolog.Logger
}

func NewAuthHandler(provider *identity.Provider, g *guard.Guard, store db.Store, recorder audit.Recorder, cookie CookieOptions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		guard:    g,
		store:    store,
		audit:    recorder,
		cookie:   cookie,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	identity.Tokens
	User    models.Identity `json:"user"`
	Session SessionView     `json:"session"`
}

// Register creates an account pending approval and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req identity.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, tokens, err := h.provider.CreateAccount(r.Context(), req)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.audit.Record(audit.Event{
		UserID:       id.UID,
		UserEmail:    id.Email,
		Action:       models.ActionRegister,
		ResourceType: models.ResourceAuth,
		ResourceID:   id.UID,
		IP:           middleware.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})

	h.setCookie(w, tokens.AccessToken)
	sess, _ := h.provider.Resolve(r.Context(), tokens.AccessToken)
	writeJSON(w, http.StatusCreated, AuthResponse{Tokens: tokens, User: id, Session: h.sessionView(r, sess)})
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, tokens, err := h.provider.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.audit.Record(audit.Event{
		UserID:       id.UID,
		UserEmail:    id.Email,
		Action:       models.ActionLogin,
		ResourceType: models.ResourceAuth,
		ResourceID:   id.UID,
		IP:           middleware.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})

	h.setCookie(w, tokens.AccessToken)
	sess, err := h.provider.Resolve(r.Context(), tokens.AccessToken)
	if err != nil {
		h.log.Error().Err(err).Str("uid", id.UID).Msg("failed to resolve fresh session")
		writeError(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Tokens: tokens, User: id, Session: h.sessionView(r, sess)})
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the caller's tokens and clears the session cookie. It
// succeeds for anonymous callers too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	sess := h.guard.SessionFor(r)
	h.provider.EndSession(r.Context(), h.guard.Token(r), req.RefreshToken)

	if sess.IsAuthenticated {
		h.audit.Record(audit.Event{
			UserID:       sess.UID,
			UserEmail:    sess.Email,
			Action:       models.ActionLogout,
			ResourceType: models.ResourceAuth,
			ResourceID:   sess.UID,
			IP:           middleware.ClientIP(r),
			UserAgent:    r.UserAgent(),
		})
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, h.sessionView(r, models.Session{}))
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tokens, err := h.provider.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.setCookie(w, tokens.AccessToken)
	writeJSON(w, http.StatusOK, tokens)
}

// NavItem is one entry of the navigation bar.
type NavItem struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// SessionView is what a client needs to render its shell: guard state,
// identity, permissions, navigation and theme.
type SessionView struct {
	State       guard.State       `json:"state"`
	Session     models.Session    `json:"session"`
	RoleLabel   string            `json:"role_label,omitempty"`
	Permissions auth.Permissions  `json:"permissions"`
	Nav         []NavItem         `json:"nav"`
	Theme       string            `json:"theme"`
	Themes      []string          `json:"themes"`
	Pending     map[string]string `json:"pending,omitempty"`
}

// Navigation lists the nav actions visible to a session.
func Navigation(sess models.Session) []NavItem {
	if !sess.IsAuthenticated {
		return []NavItem{{Path: "/login", Label: "Iniciar Sesión"}, {Path: "/register", Label: "Registrarse"}}
	}
	if guard.Decide(sess, nil) != guard.Authorized {
		return []NavItem{}
	}

	perms := auth.SessionPermissions(sess)
	nav := []NavItem{{Path: "/dashboard", Label: "Dashboard"}}
	if perms.CanCreateEntry {
		nav = append(nav, NavItem{Path: "/forms", Label: "Carga"})
	}
	nav = append(nav, NavItem{Path: "/reports", Label: "Reportes"})
	if perms.CanManageUsers {
		nav = append(nav, NavItem{Path: "/admin", Label: "Admin"})
	}
	return nav
}

func (h *AuthHandler) sessionView(r *http.Request, sess models.Session) SessionView {
	view := SessionView{
		State:       guard.Decide(sess, nil),
		Session:     sess,
		Permissions: auth.SessionPermissions(sess),
		Nav:         Navigation(sess),
		Theme:       session.DefaultTheme,
		Themes:      session.Themes,
	}
	if sess.IsAuthenticated {
		view.RoleLabel = sess.Role.Label()
		if profile, err := h.store.GetUser(r.Context(), sess.UID); err == nil {
			view.Theme = session.Theme(profile.Theme)
		}
	}
	if view.State == guard.PendingApproval {
		view.Pending = map[string]string{"title": guard.PendingTitle, "message": guard.PendingMessage}
	}
	return view
}

// Session reports the caller's resolved session. It never fails: anonymous
// callers get the unauthenticated view.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionView(r, h.guard.SessionFor(r)))
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

// SetTheme stores the caller's theme preference.
func (h *AuthHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	sess, ok := guard.SessionFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !session.ValidTheme(req.Theme) {
		writeError(w, fmt.Sprintf("unknown theme %q", req.Theme), http.StatusBadRequest)
		return
	}
	theme := req.Theme
	if err := h.store.UpdateUser(r.Context(), sess.UID, db.UserUpdate{Theme: &theme}); err != nil {
		h.log.Error().Err(err).Str("uid", sess.UID).Msg("failed to store theme")
		writeError(w, "Failed to store theme", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string) {
	if h.cookie.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

var authStatus = map[identity.ErrorKind]int{
	identity.ErrInvalidCredentials: http.StatusUnauthorized,
	identity.ErrTooManyAttempts:    http.StatusTooManyRequests,
	identity.ErrAccountNotFound:    http.StatusUnauthorized,
	identity.ErrPendingApproval:    http.StatusForbidden,
	identity.ErrNoRole:             http.StatusForbidden,
	identity.ErrEmailInUse:         http.StatusConflict,
	identity.ErrWeakPassword:       http.StatusBadRequest,
	identity.ErrInvalidInput:       http.StatusBadRequest,
	identity.ErrInvalidToken:       http.StatusUnauthorized,
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var ae *identity.AuthError
	if errors.As(err, &ae) {
		status, ok := authStatus[ae.Kind]
		if !ok {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]string{"error": ae.Message(), "code": string(ae.Kind)})
		return
	}
	h.log.Error().Err(err).Msg("identity operation failed")
	writeError(w, "Internal server error", http.StatusInternalServerError)
}

// origin describes the caller for audit events.
func origin(r *http.Request, sess models.Session) reports.Origin {
	return reports.Origin{
		UserEmail: sess.Email,
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
