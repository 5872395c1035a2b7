package store

import (
	"context"

	"github.com/portpilot/portpilot/internal/models"
)

// Store defines the persistence interface for portpilot.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByGitHubID(ctx context.Context, githubID string) (*models.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	// Portfolios
	CreatePortfolio(ctx context.Context, p *models.Portfolio) error
	GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error)
	GetPortfolioByUser(ctx context.Context, userID string) (*models.Portfolio, error)
	GetPortfolioByHandle(ctx context.Context, handle string) (*models.Portfolio, error)
	UpdatePortfolio(ctx context.Context, p *models.Portfolio) error

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, portfolioID string) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) error
	UpdateProjectOrder(ctx context.Context, projectID string, order int) error

	// Integrations
	CreateIntegration(ctx context.Context, i *models.Integration) error
	GetIntegration(ctx context.Context, userID string, provider models.Provider) (*models.Integration, error)
	UpdateIntegration(ctx context.Context, i *models.Integration) error

	// Sync jobs
	CreateSyncJob(ctx context.Context, job *models.SyncJob) error
	UpdateSyncJob(ctx context.Context, job *models.SyncJob) error
	ListSyncJobs(ctx context.Context, userID string, limit int) ([]*models.SyncJob, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
