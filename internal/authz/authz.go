// Package authz decides who may see and mutate which rows. Roles are a
// closed set with an explicit capability table; anything outside the table
// is denied, so a user with a missing or unknown role can do nothing.
package authz

import "fleet-records-backend/internal/model"

// Action is an operation a caller attempts against a resource.
type Action uint8

const (
	ActionView Action = 1 << iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

var actionNames = map[Action]string{
	ActionView:   "view",
	ActionCreate: "create",
	ActionUpdate: "update",
	ActionDelete: "delete",
}

// Resource is an entity type the capability table covers.
type Resource string

const (
	ResourceMachine     Resource = "machine"
	ResourceMaintenance Resource = "maintenance"
	ResourceClaim       Resource = "claim"
	ResourceDictionary  Resource = "dictionary"
	ResourceUser        Resource = "user"
)

const allActions = ActionView | ActionCreate | ActionUpdate | ActionDelete

// capabilities is the full role-to-permission matrix. Row-level scoping and
// the structural-field rule are layered on top by the functions below; this
// table answers only "may this role ever perform this action at all".
var capabilities = map[model.Role]map[Resource]Action{
	model.RoleClient: {
		ResourceMachine:     ActionView,
		ResourceMaintenance: ActionView | ActionCreate | ActionUpdate,
		ResourceClaim:       ActionView,
		ResourceDictionary:  ActionView,
	},
	model.RoleServiceCompany: {
		ResourceMachine:     ActionView | ActionUpdate,
		ResourceMaintenance: allActions,
		ResourceClaim:       allActions,
		ResourceDictionary:  ActionView,
	},
	model.RoleManager: {
		ResourceMachine:     allActions,
		ResourceMaintenance: allActions,
		ResourceClaim:       allActions,
		ResourceDictionary:  allActions,
		ResourceUser:        allActions,
	},
	model.RoleSuperadmin: {
		ResourceMachine:     allActions,
		ResourceMaintenance: allActions,
		ResourceClaim:       allActions,
		ResourceDictionary:  allActions,
		ResourceUser:        allActions,
	},
}

// Can reports whether role may perform action on resource. Unknown roles
// and resources deny.
func Can(role model.Role, resource Resource, action Action) bool {
	return capabilities[role][resource]&action != 0
}

// IsElevated reports whether role bypasses row scoping entirely.
func IsElevated(role model.Role) bool {
	return role == model.RoleManager || role == model.RoleSuperadmin
}

// Permissions lists every "resource.action" tag the role holds, for the
// current-user endpoint.
func Permissions(role model.Role) []string {
	var perms []string
	for _, resource := range []Resource{
		ResourceMachine, ResourceMaintenance, ResourceClaim, ResourceDictionary, ResourceUser,
	} {
		granted := capabilities[role][resource]
		for _, action := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete} {
			if granted&action != 0 {
				perms = append(perms, string(resource)+"."+actionNames[action])
			}
		}
	}
	return perms
}

// CanViewMachine is the object-level visibility check. Out-of-scope access
// must surface as "not found", never as "forbidden".
func CanViewMachine(u *model.User, m *model.Machine) bool {
	if IsElevated(u.Role) {
		return true
	}
	switch u.Role {
	case model.RoleClient:
		return m.ClientID == u.ID
	case model.RoleServiceCompany:
		return m.ServiceCompanyID == u.ID
	}
	return false
}

// CanMutateMachine decides machine updates. Structural fields (component
// models, client and service company assignment) are manager/superadmin
// territory; the assigned service company may edit logistics fields only.
func CanMutateMachine(u *model.User, m *model.Machine, structural bool) bool {
	if IsElevated(u.Role) {
		return true
	}
	if structural {
		return false
	}
	return u.Role == model.RoleServiceCompany &&
		Can(u.Role, ResourceMachine, ActionUpdate) &&
		m.ServiceCompanyID == u.ID
}

// CanMutateMaintenance decides creates/updates of maintenance rows against
// the parent machine.
func CanMutateMaintenance(u *model.User, machine *model.Machine, action Action) bool {
	if IsElevated(u.Role) {
		return true
	}
	if !Can(u.Role, ResourceMaintenance, action) {
		return false
	}
	switch u.Role {
	case model.RoleClient:
		return machine.ClientID == u.ID
	case model.RoleServiceCompany:
		return machine.ServiceCompanyID == u.ID
	}
	return false
}

// CanMutateClaim decides creates/updates/deletes of claim rows against the
// parent machine. Clients never mutate claims.
func CanMutateClaim(u *model.User, machine *model.Machine, action Action) bool {
	if IsElevated(u.Role) {
		return true
	}
	if !Can(u.Role, ResourceClaim, action) {
		return false
	}
	return u.Role == model.RoleServiceCompany && machine.ServiceCompanyID == u.ID
}
