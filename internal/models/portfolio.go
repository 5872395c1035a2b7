package models

// SocialLinks holds a portfolio's social profile URLs.
type SocialLinks struct {
	GitHub   string `json:"github,omitempty"`
	X        string `json:"x,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Portfolio represents a user's published project collection and its
// display settings. Each user owns at most one portfolio.
type Portfolio struct {
	ID           string
	UserID       string
	ThemeID      string
	AccentColor  string
	IsPublic     bool
	CustomDomain string
	ShowStats    bool
	Social       SocialLinks
}
