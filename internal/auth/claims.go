package auth

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDentist      Role = "dentist"
	RoleAssistant    Role = "assistant"
	RoleReceptionist Role = "receptionist"
)

type Permission string

const (
	PermPatientsRead      Permission = "patients:read"
	PermPatientsWrite     Permission = "patients:write"
	PermOdontogramWrite   Permission = "odontogram:write"
	PermAppointmentsRead  Permission = "appointments:read"
	PermAppointmentsWrite Permission = "appointments:write"
	PermBillingRead       Permission = "billing:read"
	PermBillingWrite      Permission = "billing:write"
	PermBillingCollect    Permission = "billing:collect"
	PermInventoryRead     Permission = "inventory:read"
	PermInventoryWrite    Permission = "inventory:write"
	PermUsersManage       Permission = "users:manage"
)

// rolePermissions is the static capability table. Admin gets everything;
// other roles get the subset their job needs.
var rolePermissions = map[Role][]Permission{
	RoleDentist: {
		PermPatientsRead, PermPatientsWrite, PermOdontogramWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
		PermBillingRead, PermInventoryRead, PermInventoryWrite,
	},
	RoleAssistant: {
		PermPatientsRead,
		PermAppointmentsRead,
		PermInventoryRead, PermInventoryWrite,
	},
	RoleReceptionist: {
		PermPatientsRead, PermPatientsWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
		PermBillingRead, PermBillingWrite, PermBillingCollect,
	},
}

// Claims is the explicit capability set a request carries. Services and
// handlers receive it as an argument; there is no ambient security context.
type Claims struct {
	UserID uuid.UUID
	Role   Role
}

func (c Claims) HasPermission(p Permission) bool {
	if c.Role == RoleAdmin {
		return true
	}
	for _, granted := range rolePermissions[c.Role] {
		if granted == p {
			return true
		}
	}
	return false
}

func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleDentist, RoleAssistant, RoleReceptionist:
		return true
	}
	return false
}

type contextKey string

const claimsKey contextKey = "auth_claims"

// WithClaims returns a context carrying the request's claims.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext retrieves the request's claims; ok is false on
// unauthenticated requests.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}
