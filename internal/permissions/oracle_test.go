package permissions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

func TestStaticOracleAliases(t *testing.T) {
	ctx := context.Background()
	oracle := permissions.NewStaticOracle(permissions.DefaultGrants)

	for _, role := range []string{"dcm", "Deputy Counseling Manager", "ZI"} {
		ok, err := oracle.HasPermission(ctx, role, permissions.ResourceCases, permissions.ActionAssign)
		require.NoError(t, err)
		assert.True(t, ok, role)
	}

	ok, _ := oracle.HasPermission(ctx, "counselor", permissions.ResourceCases, permissions.ActionAssign)
	assert.False(t, ok)

	ok, _ = oracle.HasPermission(ctx, "nobody", permissions.ResourceCases, permissions.ActionRead)
	assert.False(t, ok)
}

func TestStaticOracleAdminAlwaysPasses(t *testing.T) {
	oracle := permissions.NewStaticOracle(nil)

	ok, err := oracle.HasPermission(context.Background(), "admin", "anything", "at_all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasAnyPermission(t *testing.T) {
	ctx := context.Background()
	oracle := permissions.NewStaticOracle(permissions.DefaultGrants)

	ok, err := oracle.HasAnyPermission(ctx, "finance", []permissions.Check{
		{Resource: permissions.ResourceCoverLetters, Action: permissions.ActionGenerate},
		{Resource: permissions.ResourceCases, Action: permissions.ActionRead},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = oracle.HasAnyPermission(ctx, "finance", nil)
	assert.False(t, ok)
}

func TestRolesWithPermission(t *testing.T) {
	oracle := permissions.NewStaticOracle(permissions.DefaultGrants)

	roles, err := oracle.RolesWithPermission(context.Background(), permissions.ResourceCounselingForms, permissions.ActionComplete)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin", "dcm", "Deputy Counseling Manager", "ZI", "counselor"}, roles)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	oracle := permissions.NewStaticOracle(permissions.DefaultGrants)

	assert.NoError(t, permissions.Require(ctx, oracle, "counselor", permissions.ResourceCounselingForms, permissions.ActionComplete))

	err := permissions.Require(ctx, oracle, "welfare_reviewer", permissions.ResourceCounselingForms, permissions.ActionComplete)
	var forbidden *workflows.ForbiddenError
	require.True(t, errors.As(err, &forbidden))
	assert.Equal(t, permissions.ActionComplete, forbidden.Action)
}

func TestSeedRowsCoversEverySpelling(t *testing.T) {
	rows := permissions.SeedRows(permissions.DefaultGrants)

	seen := map[string]bool{}
	for _, r := range rows {
		seen[r.Role] = true
	}
	for _, role := range []string{"dcm", "Deputy Counseling Manager", "ZI", "counselor", "welfare_reviewer", "Executive Management", "finance"} {
		assert.True(t, seen[role], role)
	}
	assert.False(t, seen["admin"])
}
