// models.go
// Defines the core data structures shared by the API handlers, the form engine and the document store.

package models

import (
	"time"
)

// UserRole defines the access level of a user.
type UserRole string

const (
	RoleAdmin              UserRole = "admin"
	RoleOperationalManager UserRole = "operational_manager"
	RolePlantManager       UserRole = "plant_manager"
	RoleDataEntry          UserRole = "data_entry"
	RoleQueryUser          UserRole = "query_user"
)

// AllRoles lists every assignable role in display order.
var AllRoles = []UserRole{
	RoleAdmin,
	RoleOperationalManager,
	RolePlantManager,
	RoleDataEntry,
	RoleQueryUser,
}

var roleLabels = map[UserRole]string{
	RoleAdmin:              "Administrador",
	RoleOperationalManager: "Gerente Operativo",
	RolePlantManager:       "Gerente de Planta",
	RoleDataEntry:          "Usuario de Carga",
	RoleQueryUser:          "Usuario de Consulta",
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label returns the localized role name, or "Pendiente" for an unassigned role.
func (r UserRole) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return "Pendiente"
}

// PlantID identifies a processing facility.
type PlantID string

const (
	PlantConcordia  PlantID = "concordia"
	PlantTucuman    PlantID = "tucuman"
	PlantBellaVista PlantID = "bella_vista"
	PlantFormosa    PlantID = "formosa"

	// PlantGeneral is recorded on entries submitted by users without a plant.
	PlantGeneral PlantID = "general"
)

// Plant describes a processing facility and its daily fruit target (kg).
type Plant struct {
	ID          PlantID `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	TargetFruit float64 `json:"target_fruit"`
}

// DefaultPlantTarget applies to plants without a configured target.
const DefaultPlantTarget = 40000

// Plants is the fixed list of facilities.
var Plants = []Plant{
	{ID: PlantConcordia, Name: "Concordia", Location: "Entre Ríos", TargetFruit: 50000},
	{ID: PlantTucuman, Name: "Tucumán", Location: "Tucumán", TargetFruit: 45000},
	{ID: PlantBellaVista, Name: "Bella Vista", Location: "Corrientes", TargetFruit: 35000},
	{ID: PlantFormosa, Name: "Formosa", Location: "Formosa", TargetFruit: 30000},
}

// ReportingPlant is the plant a user's entries are filed under. Users without
// a plant report to PlantGeneral.
func ReportingPlant(id PlantID) PlantID {
	if id == "" {
		return PlantGeneral
	}
	return id
}

// FindPlant returns the plant with the given id.
func FindPlant(id PlantID) (Plant, bool) {
	for _, p := range Plants {
		if p.ID == id {
			return p, true
		}
	}
	return Plant{}, false
}

// UserProfile is the document stored in the users collection.
type UserProfile struct {
	UID         string    `firestore:"uid" json:"uid"`
	Email       string    `firestore:"email" json:"email"`
	DisplayName string    `firestore:"displayName" json:"display_name"`
	Role        UserRole  `firestore:"role" json:"role"`        // empty until an admin assigns one
	PlantID     PlantID   `firestore:"plantId" json:"plant_id"` // empty for cross-plant roles
	IsActive    bool      `firestore:"isActive" json:"is_active"`
	Theme       string    `firestore:"theme,omitempty" json:"theme,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt" json:"created_at"`
	UpdatedAt   time.Time `firestore:"updatedAt" json:"updated_at"`
	LastLogin   time.Time `firestore:"lastLogin" json:"last_login"`
}

// Identity is what the identity provider knows about an account.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Session is the resolved authorization state of one client.
// A session with AccountActive=false or an empty Role is never authorized.
type Session struct {
	IsAuthenticated bool     `json:"is_authenticated"`
	AccountActive   bool     `json:"account_active"`
	Role            UserRole `json:"role,omitempty"`
	PlantID         PlantID  `json:"plant_id,omitempty"`

	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	TokenID     string `json:"-"`
}

// SessionFromProfile builds an authenticated session from a stored profile.
func SessionFromProfile(p *UserProfile) Session {
	return Session{
		IsAuthenticated: true,
		AccountActive:   p.IsActive,
		Role:            p.Role,
		PlantID:         p.PlantID,
		UID:             p.UID,
		Email:           p.Email,
		DisplayName:     p.DisplayName,
	}
}

// EntryStatus defines the synchronization status of a report entry.
type EntryStatus string

const (
	StatusPending EntryStatus = "pending"
	StatusSynced  EntryStatus = "synced"
	StatusError   EntryStatus = "error"
)

// ReportEntry is one submitted daily report. Data keys are field ids.
type ReportEntry struct {
	ID        string                 `firestore:"id" json:"id"`
	UserID    string                 `firestore:"userId" json:"user_id"`
	PlantID   PlantID                `firestore:"plantId" json:"plant_id"`
	Data      map[string]interface{} `firestore:"data" json:"data"`
	Status    EntryStatus            `firestore:"status" json:"status"`
	CreatedAt time.Time              `firestore:"createdAt" json:"created_at"`
	UpdatedAt time.Time              `firestore:"updatedAt" json:"updated_at"`
}

// AuditAction is the verb recorded in an audit log entry.
type AuditAction string

const (
	ActionCreate      AuditAction = "create"
	ActionUpdate      AuditAction = "update"
	ActionDelete      AuditAction = "delete"
	ActionLogin       AuditAction = "login"
	ActionLogout      AuditAction = "logout"
	ActionRegister    AuditAction = "register"
	ActionApproveUser AuditAction = "approve_user"
	ActionUpdateUser  AuditAction = "update_user"
	ActionExport      AuditAction = "export"
)

// Resource types referenced by audit entries.
const (
	ResourceDataEntry = "data_entry"
	ResourceUser      = "user"
	ResourceAuth      = "auth"
)

// Location is the geolocation attached to an audit entry.
type Location struct {
	City      string  `firestore:"city" json:"city"`
	Region    string  `firestore:"region" json:"region"`
	Country   string  `firestore:"country" json:"country"`
	Latitude  float64 `firestore:"latitude" json:"latitude"`
	Longitude float64 `firestore:"longitude" json:"longitude"`
}

// AuditLogEntry is write-once and append-only.
type AuditLogEntry struct {
	ID           string                 `firestore:"id" json:"id"`
	UserID       string                 `firestore:"userId" json:"user_id"`
	UserEmail    string                 `firestore:"userEmail" json:"user_email"`
	Action       AuditAction            `firestore:"action" json:"action"`
	ResourceType string                 `firestore:"resourceType" json:"resource_type"`
	ResourceID   string                 `firestore:"resourceId" json:"resource_id"`
	Timestamp    time.Time              `firestore:"timestamp" json:"timestamp"`
	Details      map[string]interface{} `firestore:"details" json:"details"`
	IP           string                 `firestore:"ip" json:"ip"`
	Location     *Location              `firestore:"location" json:"location"`
	UserAgent    string                 `firestore:"userAgent" json:"user_agent"`
}
