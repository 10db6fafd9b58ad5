package model

// Role represents a row in the `roles` table. Users are linked to
// roles through the `user_roles` join table and roles are linked to
// resources through `role_resource_mappings`.
//
// Fields:
//  ID          – numeric identifier of the role.
//  Name        – unique role name (e.g. ADMIN, USER).
//  Description – free-form description shown in admin screens.
type Role struct {
	ID          int64  // roles.role_id
	Name        string // roles.role_name
	Description string // roles.description
}

// UserRole models a row of the `user_roles` join table.
type UserRole struct {
	Username string // user_roles.user_name
	RoleID   int64  // user_roles.role_id
}

// RoleResourceMapping models a row of the `role_resource_mappings`
// join table granting a role access to a resource.
type RoleResourceMapping struct {
	RoleID     int64 // role_resource_mappings.role_id
	ResourceID int64 // role_resource_mappings.resource_id
}
