package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// RolePermission is one row of role_permissions.
type RolePermission struct {
	ID       uint   `json:"id" db:"id" gorm:"primaryKey"`
	Role     string `json:"role" db:"role" gorm:"size:100;not null;uniqueIndex:idx_role_permission"`
	Resource string `json:"resource" db:"resource" gorm:"size:100;not null;uniqueIndex:idx_role_permission"`
	Action   string `json:"action" db:"action" gorm:"size:100;not null;uniqueIndex:idx_role_permission"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

type sqlOracle struct {
	db *sqlx.DB
}

// NewSQLOracle answers permission questions from the role_permissions table.
// A role matches rows stored under any spelling of its capability.
func NewSQLOracle(db *sqlx.DB) Oracle {
	return &sqlOracle{db: db}
}

func spellingsFor(role string) []string {
	capability, ok := workflows.CapabilityOf(role)
	if !ok {
		return []string{role}
	}
	return workflows.RoleSpellings(capability)
}

func (o *sqlOracle) HasPermission(ctx context.Context, role, resource, action string) (bool, error) {
	if workflows.IsAdministrative(role) {
		return true, nil
	}
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM role_permissions
			WHERE role = ANY($1) AND resource = $2 AND action = $3
		)`
	if err := o.db.GetContext(ctx, &exists, query, pq.Array(spellingsFor(role)), resource, action); err != nil {
		return false, fmt.Errorf("failed to check permission %s:%s: %w", resource, action, err)
	}
	return exists, nil
}

func (o *sqlOracle) HasAnyPermission(ctx context.Context, role string, checks []Check) (bool, error) {
	if len(checks) == 0 {
		return false, nil
	}
	if workflows.IsAdministrative(role) {
		return true, nil
	}

	var clauses []string
	args := []interface{}{pq.Array(spellingsFor(role))}
	for _, c := range checks {
		clauses = append(clauses, fmt.Sprintf("(resource = $%d AND action = $%d)", len(args)+1, len(args)+2))
		args = append(args, c.Resource, c.Action)
	}
	query := "SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role = ANY($1) AND (" +
		strings.Join(clauses, " OR ") + "))"

	var exists bool
	if err := o.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check permissions: %w", err)
	}
	return exists, nil
}

func (o *sqlOracle) RolesWithPermission(ctx context.Context, resource, action string) ([]string, error) {
	var roles []string
	query := `
		SELECT DISTINCT role FROM role_permissions
		WHERE resource = $1 AND action = $2
		ORDER BY role`
	if err := o.db.SelectContext(ctx, &roles, query, resource, action); err != nil {
		return nil, fmt.Errorf("failed to list roles for %s:%s: %w", resource, action, err)
	}
	for _, admin := range workflows.RoleSpellings(workflows.CapabilityAdmin) {
		if !contains(roles, admin) {
			roles = append(roles, admin)
		}
	}
	return roles, nil
}

// SeedRows expands capability grants into one row per stored role spelling.
func SeedRows(grants map[workflows.Capability][]Check) []RolePermission {
	var rows []RolePermission
	for _, capability := range capabilityOrder {
		for _, spelling := range workflows.RoleSpellings(capability) {
			for _, c := range grants[capability] {
				rows = append(rows, RolePermission{Role: spelling, Resource: c.Resource, Action: c.Action})
			}
		}
	}
	return rows
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
