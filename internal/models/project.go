package models

import "time"

// ProjectType classifies what kind of software a repository contains.
type ProjectType string

const (
	ProjectTypeWebApp     ProjectType = "web-app"
	ProjectTypeMobileApp  ProjectType = "mobile-app"
	ProjectTypeCLITool    ProjectType = "cli-tool"
	ProjectTypeLibrary    ProjectType = "library"
	ProjectTypeAPI        ProjectType = "api"
	ProjectTypeDesktopApp ProjectType = "desktop-app"
	ProjectTypeGame       ProjectType = "game"
	ProjectTypeOther      ProjectType = "other"
)

// Image is one showcase image attached to a project.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// TechStack holds the detected or AI-guessed technology stack.
type TechStack struct {
	Framework      string `json:"framework,omitempty"`
	Runtime        string `json:"runtime,omitempty"`
	PackageManager string `json:"packageManager,omitempty"`
	Database       string `json:"database,omitempty"`
}

// Project mirrors one remote repository plus user/AI enrichment.
//
// Mirrored fields (Name, Description, Homepage, Stars, Forks, Languages,
// Topics, LastProviderUpdate) are overwritten on every sync. Enrichment
// fields (Summary, DetailedDescription, Features, Images, Stack) and the
// user-controlled Selected/Order are never touched by the sync path.
type Project struct {
	ID          string
	PortfolioID string
	RepoID      string // provider numeric id, informational only
	Name        string
	Description string
	Homepage    string
	RepoURL     string // reconciliation identity, unique per portfolio

	Stars              int
	Forks              int
	Languages          map[string]int // language name -> bytes
	Topics             []string
	LastProviderUpdate time.Time

	Summary             string
	DetailedDescription string
	Features            []string
	Images              []Image
	Stack               TechStack

	Selected bool
	Order    int

	Analyzed       bool
	LastAnalyzedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrimaryLanguage returns the language with the largest byte count, or ""
// when none are recorded.
func (p *Project) PrimaryLanguage() string {
	best := ""
	bestBytes := -1
	for lang, bytes := range p.Languages {
		if bytes > bestBytes || (bytes == bestBytes && lang < best) {
			best = lang
			bestBytes = bytes
		}
	}
	return best
}
