package cli

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-backoffice/internal/auth"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// AdminRole is granted every back-office permission.
const AdminRole = "admin"

type userEnsurer interface {
	EnsureUser(ctx context.Context, email, password string) (*auth.User, error)
}

type roleManager interface {
	EnsureRole(ctx context.Context, name, description string, perms []string) (rbac.Role, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
}

// CreateAdmin creates or resets an account and grants it the admin role.
func CreateAdmin(ctx context.Context, users userEnsurer, roles roleManager, email, password string) (*auth.User, error) {
	user, err := users.EnsureUser(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	role, err := roles.EnsureRole(ctx, AdminRole, "Full back-office access", shared.BackOfficeScopes())
	if err != nil {
		return nil, fmt.Errorf("create admin: ensure role: %w", err)
	}
	if err := roles.AssignRole(ctx, user.ID, role.ID); err != nil {
		return nil, fmt.Errorf("create admin: assign role: %w", err)
	}
	return user, nil
}
