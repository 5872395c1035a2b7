package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portpilot/portpilot/internal/github"
	"github.com/portpilot/portpilot/internal/models"
	"github.com/portpilot/portpilot/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newPortfolio(t *testing.T, s store.Store) *models.Portfolio {
	t.Helper()
	ctx := context.Background()
	u := &models.User{GitHubID: "1", Handle: "octocat"}
	require.NoError(t, s.CreateUser(ctx, u))
	p := &models.Portfolio{UserID: u.ID, IsPublic: true, ShowStats: true}
	require.NoError(t, s.CreatePortfolio(ctx, p))
	return p
}

func repoFixture(name string, stars int, pushed time.Time) github.Repo {
	return github.Repo{
		ID:          "100",
		Name:        name,
		Description: "description of " + name,
		URL:         "https://github.com/octocat/" + name,
		Stars:       stars,
		Forks:       1,
		Languages:   map[string]int{"Go": 1000},
		Topics:      []string{"demo"},
		PushedAt:    pushed,
	}
}

func TestReconcile_CreatesNewProjects(t *testing.T) {
	s := newTestStore(t)
	portfolio := newPortfolio(t, s)
	syncer := NewSyncer(s)
	ctx := context.Background()

	pushed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	fetched := []github.Repo{
		repoFixture("alpha", 5, pushed),
		repoFixture("bravo", 3, pushed),
	}

	result, err := syncer.Reconcile(ctx, portfolio.ID, fetched)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, 2, result.TotalFetched)

	projects, err := s.ListProjects(ctx, portfolio.ID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	for _, p := range projects {
		assert.True(t, p.Selected, "new projects are selected by default")
		assert.False(t, p.Analyzed)
		assert.NotEmpty(t, p.Summary, "summary seeded from description")
	}
}

func TestReconcile_SeedsSummaryFromLanguageWhenNoDescription(t *testing.T) {
	s := newTestStore(t)
	portfolio := newPortfolio(t, s)
	syncer := NewSyncer(s)

	repo := github.Repo{
		Name:      "bare",
		URL:       "https://github.com/octocat/bare",
		Languages: map[string]int{"Rust": 500},
	}
	_, err := syncer.Reconcile(context.Background(), portfolio.ID, []github.Repo{repo})
	require.NoError(t, err)

	projects, err := s.ListProjects(context.Background(), portfolio.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "A Rust project", projects[0].Summary)
}

func TestReconcile_UpdateRemoveCreateScenario(t *testing.T) {
	s := newTestStore(t)
	portfolio := newPortfolio(t, s)
	syncer := NewSyncer(s)
	ctx := context.Background()

	pushed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	a := repoFixture("alpha", 10, pushed)
	b := repoFixture("bravo", 1, pushed)
	_, err := syncer.Reconcile(ctx, portfolio.ID, []github.Repo{a, b})
	require.NoError(t, err)

	// Second fetch: alpha gained stars, bravo vanished, charlie is new.
	a2 := a
	a2.Stars = 20
	c := repoFixture("charlie", 0, pushed)

	result, err := syncer.Reconcile(ctx, portfolio.ID, []github.Repo{a2, c})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 2, result.TotalFetched)

	projects, err := s.ListProjects(ctx, portfolio.ID)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	byName := map[string]*models.Project{}
	for _, p := range projects {
		byName[p.Name] = p
	}
	require.Contains(t, byName, "alpha")
	require.Contains(t, byName, "charlie")
	assert.Equal(t, 20, byName["alpha"].Stars)
	assert.NotContains(t, byName, "bravo")
}

func TestReconcile_Idempotent(t *testing.T) {
	s := newTestStore(t)
	portfolio := newPortfolio(t, s)
	syncer := NewSyncer(s)
	ctx := context.Background()

	pushed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	fetched := []github.Repo{repoFixture("alpha", 5, pushed)}

	_, err := syncer.Reconcile(ctx, portfolio.ID, fetched)
	require.NoError(t, err)

	result, err := syncer.Reconcile(ctx, portfolio.ID, fetched)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, 1, result.TotalFetched)
}

func TestReconcile_PreservesEnrichmentAndSelection(t *testing.T) {
	s := newTestStore(t)
	portfolio := newPortfolio(t, s)
	syncer := NewSyncer(s)
	ctx := context.Background()

	pushed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := repoFixture("alpha", 5, pushed)
	_, err := syncer.Reconcile(ctx, portfolio.ID, []github.Repo{repo})
	require.NoError(t, err)

	projects, err := s.ListProjects(ctx, portfolio.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	// User edits and deselects the project.
	p := projects[0]
	p.Summary = "My curated summary"
	p.DetailedDescription = "Long form text"
	p.Features = []string{"feature one"}
	p.Images = []models.Image{{URL: "https://img.example/a.png", Alt: "a"}}
	p.Stack = models.TechStack{Framework: "gin"}
	p.Selected = false
	p.Order = 4
	require.NoError(t, s.UpdateProject(ctx, p))

	// Upstream pushes new content and metadata.
	repo.Stars = 50
	repo.Description = "new description"
	repo.PushedAt = pushed.Add(48 * time.Hour)

	result, err := syncer.Reconcile(ctx, portfolio.ID, []github.Repo{repo})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Stars)
	assert.Equal(t, "new description", got.Description)
	assert.True(t, got.LastProviderUpdate.Equal(repo.PushedAt))

	assert.Equal(t, "My curated summary", got.Summary)
	assert.Equal(t, "Long form text", got.DetailedDescription)
	assert.Equal(t, []string{"feature one"}, got.Features)
	assert.Len(t, got.Images, 1)
	assert.Equal(t, "gin", got.Stack.Framework)
	assert.False(t, got.Selected, "sync must not re-select deselected projects")
	assert.Equal(t, 4, got.Order)
}

func TestReconcile_EmptyFetchRemovesAll(t *testing.T) {
	s := newTestStore(t)
	portfolio := newPortfolio(t, s)
	syncer := NewSyncer(s)
	ctx := context.Background()

	pushed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err := syncer.Reconcile(ctx, portfolio.ID, []github.Repo{
		repoFixture("alpha", 1, pushed),
	})
	require.NoError(t, err)

	// A successful-but-empty fetch legitimately clears the portfolio; the
	// caller is responsible for never passing a failed fetch down here.
	result, err := syncer.Reconcile(ctx, portfolio.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 0, result.TotalFetched)

	projects, err := s.ListProjects(ctx, portfolio.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

// failingStore wraps a real store and fails creates for one repo URL.
type failingStore struct {
	store.Store
	failURL string
}

func (f *failingStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.RepoURL == f.failURL {
		return fmt.Errorf("simulated create failure")
	}
	return f.Store.CreateProject(ctx, p)
}

func TestReconcile_PerRepoFailureDoesNotAbortPass(t *testing.T) {
	s := newTestStore(t)
	portfolio := newPortfolio(t, s)
	ctx := context.Background()

	pushed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	bad := repoFixture("bad", 1, pushed)
	good := repoFixture("good", 1, pushed)

	syncer := NewSyncer(&failingStore{Store: s, failURL: bad.URL})
	result, err := syncer.Reconcile(ctx, portfolio.ID, []github.Repo{bad, good})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created, "only the healthy repo counts")
	assert.Equal(t, 2, result.TotalFetched)

	projects, err := s.ListProjects(ctx, portfolio.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "good", projects[0].Name)
}

func TestNeedsReanalysis(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	p := &models.Project{LastProviderUpdate: base}
	assert.False(t, NeedsReanalysis(p), "never analyzed means nothing is stale")

	analyzedAt := base.Add(time.Hour)
	p.Analyzed = true
	p.LastAnalyzedAt = &analyzedAt
	assert.False(t, NeedsReanalysis(p), "analysis newer than last push")

	p.LastProviderUpdate = analyzedAt.Add(time.Hour)
	assert.True(t, NeedsReanalysis(p), "push after analysis goes stale")

	p.LastAnalyzedAt = nil
	assert.False(t, NeedsReanalysis(p))
}
