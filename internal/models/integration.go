package models

import "time"

// Provider identifies an external source-control provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
)

// Integration holds a user's credential for an external provider.
type Integration struct {
	ID          string
	UserID      string
	Provider    Provider
	AccessToken string
	Scopes      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
