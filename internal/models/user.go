package models

import "time"

// Plan represents a user's billing tier.
type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

// Valid reports whether the plan is a known tier.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

// Role represents a user's access level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account holder.
type User struct {
	ID               string
	GitHubID         string
	Handle           string
	Name             string
	Email            string
	AvatarURL        string
	Bio              string
	Location         string
	Website          string
	Plan             Plan
	Role             Role
	StripeCustomerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
