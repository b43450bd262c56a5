package models

// Principal is the authenticated caller the core engines consume. It is
// produced by the adapter layer (internal/httpapi/auth verifying a JWT) or,
// for internal callers such as the lifecycle workers, by SystemPrincipal.
type Principal struct {
	UserID string
	Role   Role
}

// SystemUserID identifies the special system principal used by background
// workers performing sweep operations with admin-equivalent rights.
const SystemUserID = "system"

// SystemPrincipal is the admin-equivalent principal internal callers use.
func SystemPrincipal() Principal {
	return Principal{UserID: SystemUserID, Role: RoleAdmin}
}

// IsAdmin reports whether the principal has admin-level rights.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsAnonymous reports whether no caller was authenticated.
func (p Principal) IsAnonymous() bool { return p.UserID == "" }
