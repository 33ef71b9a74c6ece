// Package user contains the learner identity as seen by the progression core:
// role, cumulative XP and the level derived from it. Credentials and sessions
// belong to the external identity provider.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLE & CAPABILITIES
// ══════════════════════════════════════════════════════════════════════════════

// Role is the closed set of platform roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleRegular   Role = "regular"
)

// IsValid checks the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleRegular:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts free-form input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.ErrInvalidRole
	}
	return r, nil
}

// Capability is a permission granted by a role.
type Capability string

const (
	CapabilityLearn         Capability = "learn"
	CapabilityModerate      Capability = "moderate"
	CapabilityManageUsers   Capability = "manage_users"
	CapabilityManageContent Capability = "manage_content"
	CapabilitySystemAlerts  Capability = "receive_system_alerts"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin:     {CapabilityLearn, CapabilityModerate, CapabilityManageUsers, CapabilityManageContent, CapabilitySystemAlerts},
	RoleModerator: {CapabilityLearn, CapabilityModerate, CapabilityManageContent},
	RoleRegular:   {CapabilityLearn},
}

// Has reports whether the role grants the capability.
func (r Role) Has(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// RolesWith returns every role that grants the capability, in a stable order.
func RolesWith(c Capability) []Role {
	var roles []Role
	for _, r := range []Role{RoleAdmin, RoleModerator, RoleRegular} {
		if r.Has(c) {
			roles = append(roles, r)
		}
	}
	return roles
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User is the aggregate root for progression. XP and Level are only mutated by
// the XP ledger, which keeps Level equal to the level derived from XP.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	XP        int       `json:"xp"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserParams holds the input for NewUser.
type NewUserParams struct {
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

// NewUser creates a user at zero XP and level 1.
func NewUser(p NewUserParams) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("user", "Create", shared.ErrValidation, "a valid email is required")
	}
	if p.Role == "" {
		p.Role = RoleRegular
	}
	if !p.Role.IsValid() {
		return nil, shared.ErrInvalidRole
	}

	now := time.Now().UTC()
	return &User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Role:      p.Role,
		XP:        0,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasCapability reports whether the user's role grants c.
func (u *User) HasCapability(c Capability) bool {
	return u != nil && u.Role.Has(c)
}

// Require returns ErrMissingCapability unless the user holds c.
func (u *User) Require(c Capability) error {
	if !u.HasCapability(c) {
		return shared.WrapError("user", "Authorize", shared.ErrForbidden, "missing capability "+string(c), shared.ErrMissingCapability)
	}
	return nil
}

// FullName returns "First Last", falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
