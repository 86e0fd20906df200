package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"litoralcitrus/auth"
	"litoralcitrus/metrics"
	"litoralcitrus/models"
	"litoralcitrus/session"
)

const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"

	PendingTitle   = "Cuenta Pendiente de Aprobación"
	PendingMessage = "Tu cuenta ha sido creada exitosamente, pero un administrador debe aprobarla y asignarte un rol antes de que puedas acceder."
)

// Resolver turns a bearer token into a session.
type Resolver interface {
	Resolve(ctx context.Context, token string) (models.Session, error)
}

type contextKey string

const sessionKey contextKey = "session"

// Guard resolves the caller's session and gates routes on it.
type Guard struct {
	resolver   Resolver
	cookieName string
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

func New(resolver Resolver, cookieName string, log zerolog.Logger, m *metrics.Metrics) *Guard {
	return &Guard{
		resolver:   resolver,
		cookieName: cookieName,
		log:        log.With().Str("component", "guard").Logger(),
		metrics:    m,
	}
}

// Token returns the bearer token from the Authorization header or the session cookie.
func (g *Guard) Token(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, err := auth.ExtractToken(header); err == nil {
			return token
		}
		return ""
	}
	if g.cookieName != "" {
		if c, err := r.Cookie(g.cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// SessionFor resolves the request's session. Any failure yields the
// unauthenticated session.
func (g *Guard) SessionFor(r *http.Request) models.Session {
	token := g.Token(r)
	if token == "" {
		return models.Session{}
	}
	sess, err := g.resolver.Resolve(r.Context(), token)
	if err != nil {
		g.log.Debug().Err(err).Str("path", r.URL.Path).Msg("session not resolved")
		return models.Session{}
	}
	return sess
}

// Page guards a browser route: unauthenticated callers are sent to the
// sign-in page with the requested location, callers lacking the role go
// to the landing page, pending accounts get an explanatory block.
func (g *Guard) Page(required ...models.UserRole) func(http.Handler) http.Handler {
	return g.middleware("page", required, func(w http.ResponseWriter, r *http.Request, state State) {
		switch state {
		case Unauthenticated:
			from := r.URL.Path
			if r.URL.RawQuery != "" {
				from += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, LoginPath+"?from="+url.QueryEscape(from), http.StatusSeeOther)
		case RoleDenied:
			http.Redirect(w, r, LandingPath, http.StatusSeeOther)
		case PendingApproval:
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":   string(PendingApproval),
				"title":   PendingTitle,
				"message": PendingMessage,
			})
		}
	})
}

// API guards a JSON route with status codes instead of redirects.
func (g *Guard) API(required ...models.UserRole) func(http.Handler) http.Handler {
	return g.middleware("api", required, func(w http.ResponseWriter, _ *http.Request, state State) {
		switch state {
		case Unauthenticated:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		case PendingApproval:
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": PendingMessage,
				"code":  string(PendingApproval),
			})
		case RoleDenied:
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Insufficient permissions",
				"code":  "insufficient_role",
			})
		}
	})
}

type denyFunc func(w http.ResponseWriter, r *http.Request, state State)

func (g *Guard) middleware(kind string, required []models.UserRole, deny denyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := session.NewStore()
			machine := NewMachine(required...)
			detach := machine.Attach(st)
			st.Set(g.SessionFor(r))
			detach()

			state := machine.State()
			if g.metrics != nil {
				g.metrics.GuardDecisions.WithLabelValues(string(state), kind).Inc()
			}
			if state != Authorized {
				deny(w, r, state)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), st)))
		})
	}
}

// WithSession attaches an existing session store to ctx.
func WithSession(ctx context.Context, st *session.Store) context.Context {
	return context.WithValue(ctx, sessionKey, st)
}

// SessionStore returns the request's session store, if a guard ran.
func SessionStore(ctx context.Context) (*session.Store, bool) {
	st, ok := ctx.Value(sessionKey).(*session.Store)
	return st, ok
}

// SessionFromContext returns the authorized session of the request.
func SessionFromContext(ctx context.Context) (models.Session, bool) {
	st, ok := SessionStore(ctx)
	if !ok {
		return models.Session{}, false
	}
	sess, resolved := st.Get()
	return sess, resolved && sess.IsAuthenticated
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
