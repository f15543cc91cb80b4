package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Manager ")
	require.True(t, ok)
	require.Equal(t, RoleManager, r)

	_, ok = ParseRole("system")
	require.False(t, ok, "system role must not be grantable")

	_, ok = ParseRole("")
	require.False(t, ok)
}

func TestRolePermissions(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermRead, true},
		{RoleViewer, PermWrite, false},
		{RoleMember, PermWrite, true},
		{RoleMember, PermDelete, false},
		{RoleManager, PermDelete, true},
		{RoleManager, PermAuditRead, false},
		{RoleAdmin, PermAuditRead, true},
		{Role("intruder"), PermRead, false},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, tc.role.Can(tc.perm), "%s/%s", tc.role, tc.perm)
	}
}

func TestContextValidate(t *testing.T) {
	require.ErrorIs(t, Context{}.Validate(), ErrMissing)
	require.ErrorIs(t, Context{OrganizationID: uuid.New(), Role: RoleAdmin}.Validate(), ErrMissing)
	require.ErrorIs(t, Context{OrganizationID: uuid.New(), ActorID: "u1", Role: "root"}.Validate(), ErrMissing)
	require.NoError(t, Context{OrganizationID: uuid.New(), ActorID: "u1", Role: RoleViewer}.Validate())
	require.NoError(t, System(uuid.New(), "").Validate())
}
