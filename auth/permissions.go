package auth

import "litoralcitrus/models"

// Permissions is the set of actions a role may perform.
type Permissions struct {
	Role             models.UserRole `json:"role"`
	CanCreateEntry   bool            `json:"can_create_entry"`
	CanEditAnyEntry  bool            `json:"can_edit_any_entry"`
	CanEditOwnEntry  bool            `json:"can_edit_own_entry"`
	CanDeleteEntry   bool            `json:"can_delete_entry"`
	CanManageUsers   bool            `json:"can_manage_users"`
	CanViewAuditLogs bool            `json:"can_view_audit_logs"`
	CanViewAllPlants bool            `json:"can_view_all_plants"`
}

var policy = map[models.UserRole]Permissions{
	models.RoleAdmin: {
		CanCreateEntry:   true,
		CanEditAnyEntry:  true,
		CanDeleteEntry:   true,
		CanManageUsers:   true,
		CanViewAuditLogs: true,
		CanViewAllPlants: true,
	},
	models.RoleOperationalManager: {
		CanCreateEntry:   true,
		CanEditAnyEntry:  true,
		CanDeleteEntry:   true,
		CanViewAuditLogs: true,
		CanViewAllPlants: true,
	},
	models.RolePlantManager: {
		CanCreateEntry:  true,
		CanEditAnyEntry: true,
		CanDeleteEntry:  true,
	},
	models.RoleDataEntry: {
		CanCreateEntry:  true,
		CanEditOwnEntry: true,
	},
	models.RoleQueryUser: {},
}

// PermissionsFor maps a role to its permissions. Unknown or empty roles get nothing.
func PermissionsFor(role models.UserRole) Permissions {
	p := policy[role]
	p.Role = role
	return p
}

// CanEditEntry reports whether the holder may edit an entry owned by ownerID.
func (p Permissions) CanEditEntry(ownerID, currentUserID string) bool {
	if p.CanEditAnyEntry {
		return true
	}
	return p.CanEditOwnEntry && ownerID != "" && ownerID == currentUserID
}

// HasRole reports whether the session holds exactly role.
func HasRole(s models.Session, role models.UserRole) bool {
	return s.Role != "" && s.Role == role
}

// HasAnyRole reports whether the session holds one of roles.
func HasAnyRole(s models.Session, roles ...models.UserRole) bool {
	for _, role := range roles {
		if HasRole(s, role) {
			return true
		}
	}
	return false
}

// SessionPermissions returns the permissions of an authorized session.
// Inactive or unauthenticated sessions get nothing regardless of role.
func SessionPermissions(s models.Session) Permissions {
	if !s.IsAuthenticated || !s.AccountActive {
		return Permissions{}
	}
	return PermissionsFor(s.Role)
}

// CanViewPlant reports whether the holder may read records of plantID.
// Roles without cross-plant visibility only see the plant they report to.
func (p Permissions) CanViewPlant(own, plantID models.PlantID) bool {
	if p.Role == "" {
		return false
	}
	return p.CanViewAllPlants || models.ReportingPlant(own) == plantID
}
