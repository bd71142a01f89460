package authz

import (
	"gorm.io/gorm"

	"fleet-records-backend/internal/model"
)

// denyAll is the fail-closed scope for unknown roles.
func denyAll(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

// MachineScope returns the row filter for machine list queries. It must be
// applied before pagination or any further filtering.
func MachineScope(u *model.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if IsElevated(u.Role) {
			return db
		}
		switch u.Role {
		case model.RoleClient:
			return db.Where("machines.client_id = ?", u.ID)
		case model.RoleServiceCompany:
			return db.Where("machines.service_company_id = ?", u.ID)
		}
		return denyAll(db)
	}
}

// MaintenanceScope filters maintenance rows through their parent machine.
func MaintenanceScope(u *model.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if IsElevated(u.Role) {
			return db
		}
		joined := db.Joins("JOIN machines ON machines.id = maintenances.machine_id")
		switch u.Role {
		case model.RoleClient:
			return joined.Where("machines.client_id = ?", u.ID)
		case model.RoleServiceCompany:
			return joined.Where("machines.service_company_id = ?", u.ID)
		}
		return denyAll(db)
	}
}

// ClaimScope filters claim rows through their parent machine.
func ClaimScope(u *model.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if IsElevated(u.Role) {
			return db
		}
		joined := db.Joins("JOIN machines ON machines.id = claims.machine_id")
		switch u.Role {
		case model.RoleClient:
			return joined.Where("machines.client_id = ?", u.ID)
		case model.RoleServiceCompany:
			return joined.Where("machines.service_company_id = ?", u.ID)
		}
		return denyAll(db)
	}
}
