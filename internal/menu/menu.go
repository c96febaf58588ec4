// Package menu builds the sidebar navigation for a signed-in user. Entries
// the user's role cannot open are left out entirely.
package menu

import "blogdash/internal/models"

// Section names. They double as the PageData.Section of each screen.
const (
	Dashboard  = "dashboard"
	Blogs      = "blogs"
	Categories = "categories"
	Tags       = "tags"
	Users      = "users"
	Profile    = "profile"
)

// Item is one sidebar link.
type Item struct {
	Section string
	Label   string
	Path    string
	Icon    string
	Active  bool
}

type entry struct {
	item Item
	perm models.Permission
}

var entries = []entry{
	{Item{Section: Dashboard, Label: "Dashboard", Path: "/admin", Icon: "home"}, models.PermViewDashboard},
	{Item{Section: Blogs, Label: "Blogs", Path: "/admin/blogs", Icon: "document"}, models.PermWriteBlogs},
	{Item{Section: Categories, Label: "Categories", Path: "/admin/categories", Icon: "folder"}, models.PermManageCategories},
	{Item{Section: Tags, Label: "Tags", Path: "/admin/tags", Icon: "tag"}, models.PermManageTags},
	{Item{Section: Users, Label: "Users", Path: "/admin/users", Icon: "users"}, models.PermManageUsers},
	{Item{Section: Profile, Label: "Profile", Path: "/admin/profile", Icon: "user"}, models.PermViewProfile},
}

// For returns the entries visible to role in sidebar order, with the one
// matching active flagged. Unknown roles see Dashboard and Profile.
func For(role models.Role, active string) []Item {
	if !role.Valid() {
		role = models.RoleSubscriber
	}
	var items []Item
	for _, e := range entries {
		if !role.Can(e.perm) {
			continue
		}
		item := e.item
		item.Active = item.Section == active
		items = append(items, item)
	}
	return items
}

// Allowed reports whether role may open section. Unknown sections are
// never allowed.
func Allowed(role models.Role, section string) bool {
	for _, e := range entries {
		if e.item.Section == section {
			return role.Can(e.perm)
		}
	}
	return false
}

// PathOf returns the link path of section, or "" if it is unknown.
func PathOf(section string) string {
	for _, e := range entries {
		if e.item.Section == section {
			return e.item.Path
		}
	}
	return ""
}
