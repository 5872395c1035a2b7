package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/portpilot/portpilot/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// nullIfEmpty maps "" to NULL so UNIQUE columns tolerate absent values.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// toJSON marshals v for a TEXT column, falling back to the given literal.
func toJSON(v any, fallback string) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(b)
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Users ---

const userCols = `id, github_id, handle, name, email, avatar_url, bio, location, website, plan, role, stripe_customer_id, created_at, updated_at`

func (s *SQLiteStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = newULID()
	}
	if u.Plan == "" {
		u.Plan = models.PlanFree
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, nullIfEmpty(u.GitHubID), u.Handle, u.Name, u.Email, u.AvatarURL, u.Bio,
		u.Location, u.Website, string(u.Plan), string(u.Role),
		u.StripeCustomerID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row, label string) (*models.User, error) {
	u := &models.User{}
	var githubID sql.NullString
	var plan, role string
	err := row.Scan(&u.ID, &githubID, &u.Handle, &u.Name, &u.Email,
		&u.AvatarURL, &u.Bio, &u.Location, &u.Website, &plan, &role,
		&u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", label)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.GitHubID = githubID.String
	u.Plan = models.Plan(plan)
	u.Role = models.Role(role)
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	return s.scanUser(row, id)
}

func (s *SQLiteStore) GetUserByGitHubID(ctx context.Context, githubID string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE github_id = ?`, githubID)
	return s.scanUser(row, githubID)
}

func (s *SQLiteStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE handle = ?`, handle)
	return s.scanUser(row, handle)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		var githubID sql.NullString
		var plan, role string
		if err := rows.Scan(&u.ID, &githubID, &u.Handle, &u.Name, &u.Email,
			&u.AvatarURL, &u.Bio, &u.Location, &u.Website, &plan, &role,
			&u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.GitHubID = githubID.String
		u.Plan = models.Plan(plan)
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET github_id=?, handle=?, name=?, email=?, avatar_url=?, bio=?, location=?, website=?, plan=?, role=?, stripe_customer_id=?, updated_at=?
		WHERE id=?`,
		nullIfEmpty(u.GitHubID), u.Handle, u.Name, u.Email, u.AvatarURL, u.Bio, u.Location,
		u.Website, string(u.Plan), string(u.Role), u.StripeCustomerID,
		u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %s", u.ID)
	}
	return nil
}

// --- Portfolios ---

const portfolioCols = `id, user_id, theme_id, accent_color, is_public, custom_domain, show_stats, social`

func (s *SQLiteStore) CreatePortfolio(ctx context.Context, p *models.Portfolio) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	if p.ThemeID == "" {
		p.ThemeID = "sleek"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portfolios (`+portfolioCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.ThemeID, p.AccentColor, boolToInt(p.IsPublic),
		p.CustomDomain, boolToInt(p.ShowStats), toJSON(p.Social, "{}"),
	)
	if err != nil {
		return fmt.Errorf("create portfolio: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanPortfolio(row *sql.Row, label string) (*models.Portfolio, error) {
	p := &models.Portfolio{}
	var social string
	err := row.Scan(&p.ID, &p.UserID, &p.ThemeID, &p.AccentColor, &p.IsPublic,
		&p.CustomDomain, &p.ShowStats, &social)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("portfolio not found: %s", label)
	}
	if err != nil {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	_ = json.Unmarshal([]byte(social), &p.Social)
	return p, nil
}

func (s *SQLiteStore) GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+portfolioCols+` FROM portfolios WHERE id = ?`, id)
	return s.scanPortfolio(row, id)
}

func (s *SQLiteStore) GetPortfolioByUser(ctx context.Context, userID string) (*models.Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+portfolioCols+` FROM portfolios WHERE user_id = ?`, userID)
	return s.scanPortfolio(row, userID)
}

func (s *SQLiteStore) GetPortfolioByHandle(ctx context.Context, handle string) (*models.Portfolio, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, p.theme_id, p.accent_color, p.is_public, p.custom_domain, p.show_stats, p.social
		FROM portfolios p JOIN users u ON u.id = p.user_id
		WHERE u.handle = ?`, handle)
	return s.scanPortfolio(row, handle)
}

func (s *SQLiteStore) UpdatePortfolio(ctx context.Context, p *models.Portfolio) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE portfolios SET theme_id=?, accent_color=?, is_public=?, custom_domain=?, show_stats=?, social=?
		WHERE id=?`,
		p.ThemeID, p.AccentColor, boolToInt(p.IsPublic), p.CustomDomain,
		boolToInt(p.ShowStats), toJSON(p.Social, "{}"), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update portfolio: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("portfolio not found: %s", p.ID)
	}
	return nil
}

// --- Projects ---

const projectCols = `id, portfolio_id, repo_id, name, description, homepage, repo_url, stars, forks, languages, topics, last_provider_update, summary, detailed_description, features, images, stack, selected, display_order, analyzed, last_analyzed_at, created_at, updated_at`

func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	var lastUpdate any
	if !p.LastProviderUpdate.IsZero() {
		lastUpdate = p.LastProviderUpdate
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PortfolioID, p.RepoID, p.Name, p.Description, p.Homepage,
		p.RepoURL, p.Stars, p.Forks,
		toJSON(p.Languages, "{}"), toJSON(p.Topics, "[]"), lastUpdate,
		p.Summary, p.DetailedDescription,
		toJSON(p.Features, "[]"), toJSON(p.Images, "[]"), toJSON(p.Stack, "{}"),
		boolToInt(p.Selected), p.Order, boolToInt(p.Analyzed), p.LastAnalyzedAt,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// projectScanner abstracts sql.Row/sql.Rows for shared scan logic.
type projectScanner interface {
	Scan(dest ...any) error
}

func scanProject(sc projectScanner) (*models.Project, error) {
	p := &models.Project{}
	var languages, topics, features, images, stack string
	var lastUpdate, lastAnalyzed sql.NullTime

	err := sc.Scan(&p.ID, &p.PortfolioID, &p.RepoID, &p.Name, &p.Description,
		&p.Homepage, &p.RepoURL, &p.Stars, &p.Forks,
		&languages, &topics, &lastUpdate,
		&p.Summary, &p.DetailedDescription,
		&features, &images, &stack,
		&p.Selected, &p.Order, &p.Analyzed, &lastAnalyzed,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(languages), &p.Languages)
	_ = json.Unmarshal([]byte(topics), &p.Topics)
	_ = json.Unmarshal([]byte(features), &p.Features)
	_ = json.Unmarshal([]byte(images), &p.Images)
	_ = json.Unmarshal([]byte(stack), &p.Stack)
	if lastUpdate.Valid {
		p.LastProviderUpdate = lastUpdate.Time
	}
	if lastAnalyzed.Valid {
		p.LastAnalyzedAt = &lastAnalyzed.Time
	}
	return p, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context, portfolioID string) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectCols+` FROM projects WHERE portfolio_id = ?
		ORDER BY display_order, name`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now().UTC()

	var lastUpdate any
	if !p.LastProviderUpdate.IsZero() {
		lastUpdate = p.LastProviderUpdate
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET repo_id=?, name=?, description=?, homepage=?, repo_url=?, stars=?, forks=?, languages=?, topics=?, last_provider_update=?, summary=?, detailed_description=?, features=?, images=?, stack=?, selected=?, display_order=?, analyzed=?, last_analyzed_at=?, updated_at=?
		WHERE id=?`,
		p.RepoID, p.Name, p.Description, p.Homepage, p.RepoURL,
		p.Stars, p.Forks,
		toJSON(p.Languages, "{}"), toJSON(p.Topics, "[]"), lastUpdate,
		p.Summary, p.DetailedDescription,
		toJSON(p.Features, "[]"), toJSON(p.Images, "[]"), toJSON(p.Stack, "{}"),
		boolToInt(p.Selected), p.Order, boolToInt(p.Analyzed), p.LastAnalyzedAt,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project not found: %s", p.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) UpdateProjectOrder(ctx context.Context, projectID string, order int) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE projects SET display_order = ?, updated_at = ? WHERE id = ?",
		order, time.Now().UTC(), projectID)
	if err != nil {
		return fmt.Errorf("update project order: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}

// --- Integrations ---

const integrationCols = `id, user_id, provider, access_token, scopes, created_at, updated_at`

func (s *SQLiteStore) CreateIntegration(ctx context.Context, i *models.Integration) error {
	if i.ID == "" {
		i.ID = newULID()
	}
	now := time.Now().UTC()
	i.CreatedAt = now
	i.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO integrations (`+integrationCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.UserID, string(i.Provider), i.AccessToken, i.Scopes,
		i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create integration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetIntegration(ctx context.Context, userID string, provider models.Provider) (*models.Integration, error) {
	i := &models.Integration{}
	var prov string
	err := s.db.QueryRowContext(ctx,
		`SELECT `+integrationCols+` FROM integrations WHERE user_id = ? AND provider = ?`,
		userID, string(provider),
	).Scan(&i.ID, &i.UserID, &prov, &i.AccessToken, &i.Scopes, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("integration not found: %s/%s", userID, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	i.Provider = models.Provider(prov)
	return i, nil
}

func (s *SQLiteStore) UpdateIntegration(ctx context.Context, i *models.Integration) error {
	i.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE integrations SET access_token=?, scopes=?, updated_at=? WHERE id=?`,
		i.AccessToken, i.Scopes, i.UpdatedAt, i.ID,
	)
	if err != nil {
		return fmt.Errorf("update integration: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("integration not found: %s", i.ID)
	}
	return nil
}

// --- Sync jobs ---

const syncJobCols = `id, user_id, status, created_count, updated_count, removed_count, total_count, error, created_at, updated_at`

func (s *SQLiteStore) CreateSyncJob(ctx context.Context, job *models.SyncJob) error {
	if job.ID == "" {
		job.ID = newULID()
	}
	if job.Status == "" {
		job.Status = models.SyncStatusQueued
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_jobs (`+syncJobCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, string(job.Status),
		job.Created, job.Updated, job.Removed, job.Total, job.Error,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create sync job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateSyncJob(ctx context.Context, job *models.SyncJob) error {
	job.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE sync_jobs SET status=?, created_count=?, updated_count=?, removed_count=?, total_count=?, error=?, updated_at=?
		WHERE id=?`,
		string(job.Status), job.Created, job.Updated, job.Removed, job.Total,
		job.Error, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update sync job: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("sync job not found: %s", job.ID)
	}
	return nil
}

func (s *SQLiteStore) ListSyncJobs(ctx context.Context, userID string, limit int) ([]*models.SyncJob, error) {
	query := `SELECT ` + syncJobCols + ` FROM sync_jobs WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*models.SyncJob
	for rows.Next() {
		job := &models.SyncJob{}
		var status string
		if err := rows.Scan(&job.ID, &job.UserID, &status,
			&job.Created, &job.Updated, &job.Removed, &job.Total, &job.Error,
			&job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sync job: %w", err)
		}
		job.Status = models.SyncStatus(status)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
