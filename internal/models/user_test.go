package models

import "testing"

// TestUserIsAdmin verifies that IsAdmin returns true only for the administrator role.
func TestUserIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{name: "administrator role", role: RoleAdministrator, want: true},
		{name: "editor role", role: RoleEditor, want: false},
		{name: "author role", role: RoleAuthor, want: false},
		{name: "subscriber role", role: RoleSubscriber, want: false},
		{name: "empty role", role: Role(""), want: false},
		{name: "lowercase administrator", role: Role("administrator"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Role: tt.role}
			if got := u.IsAdmin(); got != tt.want {
				t.Errorf("User{Role: %q}.IsAdmin() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"ADMINISTRATOR", RoleAdministrator, true},
		{" editor ", RoleEditor, true},
		{"Author", RoleAuthor, true},
		{"subscriber", RoleSubscriber, true},
		{"admin", Role("ADMIN"), false},
		{"", Role(""), false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRoleLabel(t *testing.T) {
	if RoleEditor.Label() != "Editor" {
		t.Errorf("Label = %q, want Editor", RoleEditor.Label())
	}
	if Role("ROOT").Label() != "Unknown" {
		t.Errorf("unknown role label = %q, want Unknown", Role("ROOT").Label())
	}
}
