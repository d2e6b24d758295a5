package model

import "testing"

func TestValidRole(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{RoleAdministrator, true},
		{RoleOperator, true},
		{RoleMember, true},
		{"admin", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidRole(tt.role); got != tt.expected {
			t.Errorf("ValidRole(%q) = %v, want %v", tt.role, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestDefaultGrantsMemberIsReadOnly(t *testing.T) {
	for _, c := range DefaultGrants[RoleMember] {
		if c != CapViewItems && c != CapViewItem {
			t.Errorf("member should only view, got capability %q", c)
		}
	}
	if len(DefaultGrants[RoleAdministrator]) != len(AllCapabilities) {
		t.Error("administrator should hold every capability")
	}
}
