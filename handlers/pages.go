package handlers

import (
	"net/http"
	"strings"

	"litoralcitrus/auth"
	"litoralcitrus/guard"
	"litoralcitrus/models"
)

// PageView is the JSON model of a browser page.
type PageView struct {
	Page        string            `json:"page"`
	Title       string            `json:"title"`
	Session     *models.Session   `json:"session,omitempty"`
	Permissions *auth.Permissions `json:"permissions,omitempty"`
	Nav         []NavItem         `json:"nav"`
	From        string            `json:"from,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

var pageTitles = map[string]string{
	"login":         "Iniciar Sesión",
	"register":      "Registro",
	"dashboard":     "Panel de Control",
	"forms":         "Carga de Datos",
	"reports":       "Reportes y Consultas",
	"report_detail": "Detalle de Carga",
	"admin":         "Gestión de Usuarios",
}

// Page serves a guarded page. The guard has already admitted the caller.
func Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := guard.SessionFromContext(r.Context())
		perms := auth.SessionPermissions(sess)
		view := PageView{
			Page:        name,
			Title:       pageTitles[name],
			Session:     &sess,
			Permissions: &perms,
			Nav:         Navigation(sess),
		}
		if id := r.PathValue("id"); id != "" {
			view.Params = map[string]string{"id": id}
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// PublicPage serves the sign-in and registration pages. The login page
// echoes the location the caller was sent away from.
func PublicPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := PageView{
			Page:  name,
			Title: pageTitles[name],
			Nav:   Navigation(models.Session{}),
		}
		if from := r.URL.Query().Get("from"); strings.HasPrefix(from, "/") && !strings.HasPrefix(from, "//") {
			view.From = from
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// Fallback sends "/" and unknown pages to the landing page. Unknown API
// paths get a JSON 404.
func Fallback(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, "Not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, guard.LandingPath, http.StatusSeeOther)
}
