package model

import "testing"

func TestUserID(t *testing.T) {
	t.Run("UserID type operations", func(t *testing.T) {
		var uid UserID = "test-user-123"

		if string(uid) != "test-user-123" {
			t.Errorf("Expected string conversion 'test-user-123', got %s", string(uid))
		}

		var uid2 UserID = "test-user-123"
		var uid3 UserID = "different-user"

		if uid != uid2 {
			t.Error("Expected equal UserIDs to be equal")
		}

		if uid == uid3 {
			t.Error("Expected different UserIDs to be different")
		}
	})
}

func TestRoleForEmail(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		domain string
		want   Role
	}{
		{"admin domain", "me@yabood.com", "yabood.com", RoleAdmin},
		{"domain with at sign", "me@yabood.com", "@yabood.com", RoleAdmin},
		{"case insensitive", "Me@Yabood.COM", "yabood.com", RoleAdmin},
		{"other domain", "me@example.com", "yabood.com", RoleUser},
		{"subdomain lookalike", "me@notyabood.com", "yabood.com", RoleUser},
		{"empty email", "", "yabood.com", RoleUser},
		{"no admin domain", "me@yabood.com", "", RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleForEmail(tt.email, tt.domain); got != tt.want {
				t.Errorf("RoleForEmail(%q, %q) = %s, want %s", tt.email, tt.domain, got, tt.want)
			}
		})
	}
}

func TestUserIsAdmin(t *testing.T) {
	if !(User{Role: RoleAdmin}).IsAdmin() {
		t.Error("Expected admin role to be admin")
	}
	if (User{Role: RoleUser}).IsAdmin() {
		t.Error("Expected user role not to be admin")
	}
	if (User{}).IsAdmin() {
		t.Error("Expected empty role not to be admin")
	}
}
