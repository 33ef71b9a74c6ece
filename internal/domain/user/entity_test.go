package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapabilityModerate, true},
		{RoleAdmin, CapabilitySystemAlerts, true},
		{RoleModerator, CapabilityManageContent, true},
		{RoleModerator, CapabilityManageUsers, false},
		{RoleRegular, CapabilityLearn, true},
		{RoleRegular, CapabilityModerate, false},
		{Role("root"), CapabilityLearn, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Has(tt.cap))
		})
	}
}

func TestRolesWith(t *testing.T) {
	assert.Equal(t, []Role{RoleAdmin, RoleModerator}, RolesWith(CapabilityModerate))
	assert.Equal(t, []Role{RoleAdmin}, RolesWith(CapabilitySystemAlerts))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Moderator ")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, r)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNewUser(t *testing.T) {
	u, err := NewUser(NewUserParams{Email: "Ana@Example.com", FirstName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, RoleRegular, u.Role)
	assert.Equal(t, 0, u.XP)
	assert.Equal(t, 1, u.Level)
	assert.NotEmpty(t, u.ID)

	_, err = NewUser(NewUserParams{Email: "nope"})
	assert.True(t, shared.IsValidation(err))
}

func TestUser_Require(t *testing.T) {
	u := &User{Role: RoleRegular}
	err := u.Require(CapabilityManageContent)
	assert.True(t, shared.IsForbidden(err))
	assert.NoError(t, (&User{Role: RoleAdmin}).Require(CapabilityManageContent))

	var nobody *User
	assert.False(t, nobody.HasCapability(CapabilityLearn))
}
