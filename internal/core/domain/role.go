package domain

// Roles carried in the "role" claim of admin API tokens. Tokens are issued
// by an external identity provider.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// CanAccessNamespace reports whether a caller with role and namespace claim
// may act on target. Admins reach every namespace; clients only their own.
func CanAccessNamespace(role, claimNamespace, target string) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleClient:
		return claimNamespace != "" && claimNamespace == target
	default:
		return false
	}
}
