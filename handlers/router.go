package handlers

import (
	"fmt"
	"net/http"
	"time"

	"litoralcitrus/guard"
	"litoralcitrus/models"
)

// Routes bundles the handlers mounted by NewRouter.
type Routes struct {
	Guard   *guard.Guard
	Auth    *AuthHandler
	Forms   *FormHandler
	Reports *ReportsHandler
	Admin   *AdminHandler
	Metrics http.Handler
}

var (
	entryRoles = []models.UserRole{
		models.RoleAdmin,
		models.RoleOperationalManager,
		models.RolePlantManager,
		models.RoleDataEntry,
	}
	auditRoles = []models.UserRole{models.RoleAdmin, models.RoleOperationalManager}
	adminRoles = []models.UserRole{models.RoleAdmin}
)

// NewRouter builds the route table.
func NewRouter(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()
	g := rt.Guard

	// public
	mux.HandleFunc("GET /health", handleHealth)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}
	mux.HandleFunc("POST /api/auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", rt.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", rt.Auth.Logout)
	mux.HandleFunc("POST /api/auth/refresh", rt.Auth.RefreshToken)
	mux.HandleFunc("GET /api/session", rt.Auth.Session)

	// any authorized role
	api := g.API()
	mux.Handle("PUT /api/session/theme", api(http.HandlerFunc(rt.Auth.SetTheme)))
	mux.Handle("GET /api/forms/schema", api(http.HandlerFunc(rt.Forms.Schema)))
	mux.Handle("GET /api/reports", api(http.HandlerFunc(rt.Reports.List)))
	mux.Handle("GET /api/reports/summary", api(http.HandlerFunc(rt.Reports.Summary)))
	mux.Handle("GET /api/reports/{id}", api(http.HandlerFunc(rt.Reports.Detail)))

	// form session
	entry := g.API(entryRoles...)
	mux.Handle("POST /api/forms/draft", entry(http.HandlerFunc(rt.Forms.Open)))
	mux.Handle("GET /api/forms/draft", entry(http.HandlerFunc(rt.Forms.View)))
	mux.Handle("DELETE /api/forms/draft", entry(http.HandlerFunc(rt.Forms.Discard)))
	mux.Handle("PUT /api/forms/draft/values", entry(http.HandlerFunc(rt.Forms.SetValues)))
	mux.Handle("PUT /api/forms/draft/fields/{field}", entry(http.HandlerFunc(rt.Forms.SetField)))
	mux.Handle("PUT /api/forms/draft/layout", entry(http.HandlerFunc(rt.Forms.SetLayout)))
	mux.Handle("POST /api/forms/draft/tab", entry(http.HandlerFunc(rt.Forms.SelectTab)))
	mux.Handle("POST /api/forms/draft/next", entry(http.HandlerFunc(rt.Forms.Next)))
	mux.Handle("POST /api/forms/draft/prev", entry(http.HandlerFunc(rt.Forms.Prev)))
	mux.Handle("POST /api/forms/draft/submit", entry(http.HandlerFunc(rt.Forms.Submit)))

	// entry maintenance; ownership is checked per entry
	mux.Handle("PUT /api/entries/{id}", entry(http.HandlerFunc(rt.Reports.Update)))
	mux.Handle("DELETE /api/entries/{id}", entry(http.HandlerFunc(rt.Reports.Delete)))

	audit := g.API(auditRoles...)
	mux.Handle("GET /api/reports/export", audit(http.HandlerFunc(rt.Reports.Export)))
	mux.Handle("GET /api/audit-logs", audit(http.HandlerFunc(rt.Reports.AuditLogs)))

	admin := g.API(adminRoles...)
	mux.Handle("GET /api/admin/users", admin(http.HandlerFunc(rt.Admin.GetUsers)))
	mux.Handle("GET /api/admin/users/pending", admin(http.HandlerFunc(rt.Admin.GetPendingUsers)))
	mux.Handle("PUT /api/admin/users/{uid}/access", admin(http.HandlerFunc(rt.Admin.UpdateAccess)))

	// pages
	mux.HandleFunc("GET /login", PublicPage("login"))
	mux.HandleFunc("GET /register", PublicPage("register"))
	page := g.Page()
	mux.Handle("GET /dashboard", page(Page("dashboard")))
	mux.Handle("GET /forms", page(Page("forms")))
	mux.Handle("GET /reports", page(Page("reports")))
	mux.Handle("GET /reports/{id}", page(Page("report_detail")))
	mux.Handle("GET /admin", g.Page(adminRoles...)(Page("admin")))
	mux.HandleFunc("/", Fallback)

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
