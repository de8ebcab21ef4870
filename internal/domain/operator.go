package domain

import "time"

// Role represents the role of an internal user.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Operator is an internal user of the back-office panel. Operators are
// bound to exactly one jurisdiction; admins to none (unrestricted).
type Operator struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	JurisdictionID *int       `json:"jurisdiction_id,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Scope is the jurisdiction capability of an actor: either unrestricted
// or bound to a single jurisdiction. Authorization checks reduce to one
// comparison instead of branching on role.
type Scope struct {
	jurisdictionID int
	unrestricted   bool
}

// UnrestrictedScope grants access to every jurisdiction.
func UnrestrictedScope() Scope {
	return Scope{unrestricted: true}
}

// JurisdictionScope grants access to a single jurisdiction.
func JurisdictionScope(id int) Scope {
	return Scope{jurisdictionID: id}
}

// Allows reports whether the scope covers the given jurisdiction.
func (s Scope) Allows(jurisdictionID int) bool {
	return s.unrestricted || s.jurisdictionID == jurisdictionID
}

// Unrestricted reports whether the scope covers every jurisdiction.
func (s Scope) Unrestricted() bool {
	return s.unrestricted
}

// Jurisdiction returns the bound jurisdiction id; ok is false for an
// unrestricted scope.
func (s Scope) Jurisdiction() (id int, ok bool) {
	if s.unrestricted {
		return 0, false
	}
	return s.jurisdictionID, true
}

// Scope derives the capability of the operator from its role binding.
// A non-admin without a jurisdiction gets a scope that allows nothing;
// jurisdiction ids start at 1.
func (o *Operator) Scope() Scope {
	if o.Role == RoleAdmin {
		return UnrestrictedScope()
	}
	if o.JurisdictionID == nil {
		return Scope{}
	}
	return JurisdictionScope(*o.JurisdictionID)
}
