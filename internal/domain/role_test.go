package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Role
	}{
		{"ADMIN", RoleAdmin},
		{"admin", RoleAdmin},
		{" Driver ", RoleDriver},
		{"HOSTER", RoleHoster},
		{"provider", RoleProvider},
		{"Customer", RoleCustomer},
		{"MECHANIC", RoleMechanic},
		{"USER", RoleUser},
		{"", RoleUser},
		{"superuser", RoleUser},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeRole(tt.in), tt.in)
	}
}

func TestParseRole_Unknown(t *testing.T) {
	t.Parallel()

	_, ok := ParseRole("root")
	assert.False(t, ok)
	assert.False(t, Role("root").Valid())
	assert.True(t, RoleMechanic.Valid())
}
