package models

// Permission names an action gated by role.
type Permission string

const (
	PermViewDashboard    Permission = "dashboard:view"
	PermViewProfile      Permission = "profile:view"
	PermWriteBlogs       Permission = "blogs:write"
	PermPublishBlogs     Permission = "blogs:publish"
	PermDeleteBlogs      Permission = "blogs:delete"
	PermManageCategories Permission = "categories:manage"
	PermManageTags       Permission = "tags:manage"
	PermManageUsers      Permission = "users:manage"
)

// permissions is the role table. Roles missing from an entry cannot
// perform that action.
var permissions = map[Permission][]Role{
	PermViewDashboard:    {RoleAdministrator, RoleEditor, RoleAuthor, RoleSubscriber},
	PermViewProfile:      {RoleAdministrator, RoleEditor, RoleAuthor, RoleSubscriber},
	PermWriteBlogs:       {RoleAdministrator, RoleEditor, RoleAuthor},
	PermPublishBlogs:     {RoleAdministrator, RoleEditor},
	PermDeleteBlogs:      {RoleAdministrator, RoleEditor},
	PermManageCategories: {RoleAdministrator, RoleEditor},
	PermManageTags:       {RoleAdministrator, RoleEditor},
	PermManageUsers:      {RoleAdministrator},
}

// Can reports whether the role is allowed the given permission.
func (r Role) Can(p Permission) bool {
	for _, allowed := range permissions[p] {
		if allowed == r {
			return true
		}
	}
	return false
}

// RolesWith returns the roles granted p.
func RolesWith(p Permission) []Role {
	return append([]Role(nil), permissions[p]...)
}
