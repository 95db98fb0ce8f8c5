package auth

import (
	"fmt"
	"sync"
)

// Role represents a user role
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleAgent  Role = "agent"
	RoleGuest  Role = "guest"
)

// Permission represents a permission
type Permission string

const (
	// Metrics permissions
	PermissionReadMetrics     Permission = "metrics:read"
	PermissionGenerateMetrics Permission = "metrics:generate"

	// Property permissions
	PermissionReadProperty  Permission = "property:read"
	PermissionWriteProperty Permission = "property:write"

	// Lesson permissions
	PermissionReadLesson Permission = "lesson:read"

	// Community permissions
	PermissionReadPost  Permission = "post:read"
	PermissionWritePost Permission = "post:write"

	// System permissions
	PermissionManageSystem Permission = "system:manage"
)

// RBACManager manages role-based access control
type RBACManager struct {
	mu              sync.RWMutex
	rolePermissions map[Role][]Permission
}

// NewRBACManager creates a new RBAC manager
func NewRBACManager() *RBACManager {
	manager := &RBACManager{
		rolePermissions: make(map[Role][]Permission),
	}
	manager.initializeDefaultRoles()
	return manager
}

// initializeDefaultRoles initializes default role permissions
func (m *RBACManager) initializeDefaultRoles() {
	// Admin - Full access
	m.rolePermissions[RoleAdmin] = []Permission{
		PermissionReadMetrics,
		PermissionGenerateMetrics,
		PermissionReadProperty,
		PermissionWriteProperty,
		PermissionReadLesson,
		PermissionReadPost,
		PermissionWritePost,
		PermissionManageSystem,
	}

	// Member - Paying subscriber access
	m.rolePermissions[RoleMember] = []Permission{
		PermissionReadProperty,
		PermissionReadLesson,
		PermissionReadPost,
		PermissionWritePost,
	}

	// Agent - Agent-tier access
	m.rolePermissions[RoleAgent] = []Permission{
		PermissionReadProperty,
		PermissionWriteProperty,
		PermissionReadLesson,
		PermissionReadPost,
		PermissionWritePost,
	}

	// Guest - Read-only access
	m.rolePermissions[RoleGuest] = []Permission{
		PermissionReadPost,
	}
}

// HasPermission checks whether a role grants a permission
func (m *RBACManager) HasPermission(role Role, permission Permission) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	permissions, ok := m.rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckUserPermission checks whether any of the user's roles grants a permission
func (m *RBACManager) CheckUserPermission(roles []string, permission Permission) bool {
	for _, role := range roles {
		if m.HasPermission(Role(role), permission) {
			return true
		}
	}
	return false
}

// HasRole reports whether the role list contains the given role
func HasRole(roles []string, role Role) bool {
	for _, r := range roles {
		if Role(r) == role {
			return true
		}
	}
	return false
}

// AddRolePermission adds a permission to a role
func (m *RBACManager) AddRolePermission(role Role, permission Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	permissions := m.rolePermissions[role]
	for _, p := range permissions {
		if p == permission {
			return fmt.Errorf("role %s already has permission %s", role, permission)
		}
	}

	m.rolePermissions[role] = append(permissions, permission)
	return nil
}
