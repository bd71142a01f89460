package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of business roles. It drives every authorization
// decision; there are no free-form permission groups.
type Role string

const (
	RoleClient         Role = "client"
	RoleServiceCompany Role = "service_company"
	RoleManager        Role = "manager"
	RoleSuperadmin     Role = "superadmin"
)

// Valid reports whether r is one of the known roles. Unknown roles are
// treated as having no capabilities at all.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleServiceCompany, RoleManager, RoleSuperadmin:
		return true
	}
	return false
}

// ParseRole returns the role for tag, or an error naming the bad value.
func ParseRole(tag string) (Role, error) {
	r := Role(tag)
	if !r.Valid() {
		return "", validationErrorf("role", "unknown role %q", tag)
	}
	return r, nil
}

// User is an account in the system. Description is the globally unique
// human-facing label used for lookups by search and bulk import.
type User struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
	Email        string `gorm:"size:254" json:"email"`
	Description  string `gorm:"uniqueIndex;size:255;not null" json:"description"`
	Role         Role   `gorm:"size:20;not null;default:client" json:"role"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BeforeSave rejects users without a recognized role or a description.
func (u *User) BeforeSave(_ *gorm.DB) error {
	if !u.Role.Valid() {
		return validationErrorf("role", "unknown role %q", string(u.Role))
	}
	if u.Description == "" {
		return validationErrorf("description", "description is required")
	}
	return nil
}
