package constants

import roles "carrykind-backend/internal/pkg/constants"

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:           {roles.Viewer, roles.Manager, roles.Admin, roles.Superadmin},
	PublishCause:       {roles.Admin, roles.Superadmin},
	ApproveSponsorship: {roles.Admin, roles.Superadmin},
	ManageClaims:       {roles.Manager, roles.Admin, roles.Superadmin},
	ManageAdmins:       {roles.Superadmin},
	AssignRole:         {roles.Admin, roles.Superadmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
