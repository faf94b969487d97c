package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/eduadmin/apiserver/types"
)

// RoleRepository reads the roles table.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) List(ctx context.Context) ([]types.Role, error) {
	const query = `SELECT id, name FROM roles ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []types.Role
	for rows.Next() {
		var role types.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleRegistry maps role names to ids. It is loaded once at startup and
// injected wherever a role id is needed. Lookups are case-insensitive.
type RoleRegistry struct {
	byName map[string]int
}

func NewRoleRegistry(roles []types.Role) *RoleRegistry {
	byName := make(map[string]int, len(roles))
	for _, role := range roles {
		byName[strings.ToLower(strings.TrimSpace(role.Name))] = role.ID
	}
	return &RoleRegistry{byName: byName}
}

// LoadRoleRegistry reads all roles and builds a registry.
func LoadRoleRegistry(ctx context.Context, repo *RoleRepository) (*RoleRegistry, error) {
	roles, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return NewRoleRegistry(roles), nil
}

func (r *RoleRegistry) ID(name string) (int, error) {
	id, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrRoleNotFound, name)
	}
	return id, nil
}
