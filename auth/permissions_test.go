package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"litoralcitrus/models"
)

func TestPermissionsFor(t *testing.T) {
	tests := []struct {
		role      models.UserRole
		create    bool
		editAny   bool
		editOwn   bool
		delete    bool
		manage    bool
		viewAudit bool
		allPlants bool
	}{
		{models.RoleAdmin, true, true, false, true, true, true, true},
		{models.RoleOperationalManager, true, true, false, true, false, true, true},
		{models.RolePlantManager, true, true, false, true, false, false, false},
		{models.RoleDataEntry, true, false, true, false, false, false, false},
		{models.RoleQueryUser, false, false, false, false, false, false, false},
		{"", false, false, false, false, false, false, false},
		{"superuser", false, false, false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			p := PermissionsFor(tt.role)
			assert.Equal(t, tt.create, p.CanCreateEntry, "create")
			assert.Equal(t, tt.editAny, p.CanEditAnyEntry, "edit any")
			assert.Equal(t, tt.editOwn, p.CanEditOwnEntry, "edit own")
			assert.Equal(t, tt.delete, p.CanDeleteEntry, "delete")
			assert.Equal(t, tt.manage, p.CanManageUsers, "manage users")
			assert.Equal(t, tt.viewAudit, p.CanViewAuditLogs, "view audit")
			assert.Equal(t, tt.allPlants, p.CanViewAllPlants, "all plants")
		})
	}
}

func TestCanEditEntry(t *testing.T) {
	t.Run("data entry edits only own records", func(t *testing.T) {
		p := PermissionsFor(models.RoleDataEntry)
		assert.True(t, p.CanEditEntry("u1", "u1"))
		assert.False(t, p.CanEditEntry("u2", "u1"))
		assert.False(t, p.CanEditEntry("", ""))
	})

	t.Run("managers edit any record", func(t *testing.T) {
		for _, role := range []models.UserRole{models.RoleAdmin, models.RoleOperationalManager, models.RolePlantManager} {
			assert.True(t, PermissionsFor(role).CanEditEntry("someone", "me"), role)
		}
	})

	t.Run("query user and unknown role edit nothing", func(t *testing.T) {
		assert.False(t, PermissionsFor(models.RoleQueryUser).CanEditEntry("u1", "u1"))
		assert.False(t, PermissionsFor("").CanEditEntry("u1", "u1"))
	})
}

func TestSessionPermissions(t *testing.T) {
	active := models.Session{IsAuthenticated: true, AccountActive: true, Role: models.RoleAdmin}
	assert.True(t, SessionPermissions(active).CanManageUsers)

	inactive := active
	inactive.AccountActive = false
	assert.Equal(t, Permissions{}, SessionPermissions(inactive))

	anonymous := models.Session{Role: models.RoleAdmin}
	assert.Equal(t, Permissions{}, SessionPermissions(anonymous))
}

func TestHasAnyRole(t *testing.T) {
	s := models.Session{Role: models.RolePlantManager}
	assert.True(t, HasAnyRole(s, models.RoleAdmin, models.RolePlantManager))
	assert.False(t, HasAnyRole(s, models.RoleAdmin))
	assert.False(t, HasAnyRole(models.Session{}, ""))
}

func TestCanViewPlant(t *testing.T) {
	assert.True(t, PermissionsFor(models.RoleAdmin).CanViewPlant("", models.PlantFormosa))
	assert.True(t, PermissionsFor(models.RolePlantManager).CanViewPlant(models.PlantFormosa, models.PlantFormosa))
	assert.False(t, PermissionsFor(models.RolePlantManager).CanViewPlant(models.PlantFormosa, models.PlantTucuman))
	assert.False(t, PermissionsFor(models.RoleQueryUser).CanViewPlant("", ""))
	assert.True(t, PermissionsFor(models.RoleDataEntry).CanViewPlant("", models.PlantGeneral))
	assert.False(t, PermissionsFor(models.RoleDataEntry).CanViewPlant("", models.PlantConcordia))
	assert.False(t, PermissionsFor("").CanViewPlant(models.PlantFormosa, models.PlantFormosa))
}
