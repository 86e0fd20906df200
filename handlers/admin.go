package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"litoralcitrus/audit"
	"litoralcitrus/db"
	"litoralcitrus/guard"
	"litoralcitrus/models"
)

// AccessNotifier is told when an account's access changed.
type AccessNotifier interface {
	AccessChanged(uid, email string)
}

type AdminHandler struct {
	store    db.Store
	audit    audit.Recorder
	notifier AccessNotifier
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAdminHandler(store db.Store, recorder audit.Recorder, notifier AccessNotifier, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		store:    store,
		audit:    recorder,
		notifier: notifier,
		validate: newValidator(),
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// an empty role or plant unassigns it
	_ = v.RegisterValidation("userrole", func(fl validator.FieldLevel) bool {
		role := models.UserRole(fl.Field().String())
		return role == "" || role.Valid()
	})
	_ = v.RegisterValidation("plant", func(fl validator.FieldLevel) bool {
		plant := models.PlantID(fl.Field().String())
		if plant == "" {
			return true
		}
		_, ok := models.FindPlant(plant)
		return ok
	})
	return v
}

// UserView is a profile as shown in user management.
type UserView struct {
	models.UserProfile
	RoleLabel string `json:"role_label"`
}

func userViews(users []models.UserProfile) []UserView {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{UserProfile: u, RoleLabel: u.Role.Label()})
	}
	return views
}

// GetUsers returns all users, newest first
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context(), db.UserFilter{})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		writeError(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, userViews(users))
}

// GetPendingUsers returns accounts awaiting approval.
func (h *AdminHandler) GetPendingUsers(w http.ResponseWriter, r *http.Request) {
	inactive := false
	users, err := h.store.ListUsers(r.Context(), db.UserFilter{Active: &inactive})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list pending users")
		writeError(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, userViews(users))
}

// UpdateAccessRequest is a partial update; absent fields are left alone.
type UpdateAccessRequest struct {
	Role     *models.UserRole `json:"role,omitempty" validate:"omitempty,userrole"`
	PlantID  *models.PlantID  `json:"plantId,omitempty" validate:"omitempty,plant"`
	IsActive *bool            `json:"isActive,omitempty"`
}

// UpdateAccess assigns role, plant and status. Activating a pending
// account is recorded as an approval.
func (h *AdminHandler) UpdateAccess(w http.ResponseWriter, r *http.Request) {
	admin, ok := guard.SessionFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	uid := r.PathValue("uid")

	var req UpdateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, "Invalid role or plant", http.StatusBadRequest)
		return
	}
	if req.Role == nil && req.PlantID == nil && req.IsActive == nil {
		writeError(w, "Nothing to update", http.StatusBadRequest)
		return
	}
	if uid == admin.UID && req.IsActive != nil && !*req.IsActive {
		writeError(w, "No puede desactivar su propia cuenta", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUser(r.Context(), uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, "User not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("uid", uid).Msg("failed to load user")
		writeError(w, "Failed to retrieve user", http.StatusInternalServerError)
		return
	}

	update := db.UserUpdate{Role: req.Role, PlantID: req.PlantID, IsActive: req.IsActive}
	if err := h.store.UpdateUser(r.Context(), uid, update); err != nil {
		h.log.Error().Err(err).Str("uid", uid).Msg("failed to update user access")
		writeError(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	action := models.ActionUpdateUser
	if !user.IsActive && req.IsActive != nil && *req.IsActive {
		action = models.ActionApproveUser
	}
	details := map[string]interface{}{}
	if req.Role != nil {
		details["role"] = string(*req.Role)
		user.Role = *req.Role
	}
	if req.PlantID != nil {
		details["plantId"] = string(*req.PlantID)
		user.PlantID = *req.PlantID
	}
	if req.IsActive != nil {
		details["isActive"] = *req.IsActive
		user.IsActive = *req.IsActive
	}

	h.audit.Record(audit.Event{
		UserID:       admin.UID,
		UserEmail:    admin.Email,
		Action:       action,
		ResourceType: models.ResourceUser,
		ResourceID:   uid,
		Details:      details,
		IP:           origin(r, admin).IP,
		UserAgent:    r.UserAgent(),
	})
	h.notifier.AccessChanged(uid, user.Email)

	h.log.Info().
		Str("admin_uid", admin.UID).
		Str("uid", uid).
		Str("action", string(action)).
		Str("role", string(user.Role)).
		Bool("active", user.IsActive).
		Msg("user access updated")
	writeJSON(w, http.StatusOK, UserView{UserProfile: *user, RoleLabel: user.Role.Label()})
}
