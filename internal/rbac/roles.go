package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleViewer may read controls and fields but not click.
	RoleViewer    = "viewer"
	RoleStaff     = "staff"
	RoleSuperuser = "superuser"
)

func IsSuperuser(role string) bool { return role == RoleSuperuser }

// Known reports whether role is one the panels understand.
func Known(role string) bool {
	switch role {
	case RoleViewer, RoleStaff, RoleSuperuser:
		return true
	default:
		return false
	}
}
