// Package reconcile syncs the stored project set of a portfolio against
// the current repository list fetched from the provider.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/portpilot/portpilot/internal/github"
	"github.com/portpilot/portpilot/internal/models"
	"github.com/portpilot/portpilot/internal/store"
)

// Result holds the counts of one reconciliation pass.
type Result struct {
	Created      int `json:"syncedCount"`
	Updated      int `json:"updatedCount"`
	Removed      int `json:"removedCount"`
	TotalFetched int `json:"totalRepos"`
}

// Syncer reconciles fetched repository snapshots into the project store.
// Reconcile calls for the same portfolio are serialized; different
// portfolios proceed concurrently.
type Syncer struct {
	store store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncer creates a Syncer backed by the given store.
func NewSyncer(s store.Store) *Syncer {
	return &Syncer{
		store: s,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Syncer) portfolioLock(portfolioID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[portfolioID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[portfolioID] = l
	}
	return l
}

// Reconcile diffs the fetched repository list against the stored projects
// of a portfolio, keyed by repository URL.
//
// Stored projects whose URL is absent from the fetched set are removed
// first, then fetched repos are created or updated. Mirrored metadata is
// overwritten on update; enrichment fields, Selected, and Order are never
// touched. A failure on one repository is logged and skipped without
// aborting the pass.
func (s *Syncer) Reconcile(ctx context.Context, portfolioID string, fetched []github.Repo) (*Result, error) {
	lock := s.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	result := &Result{TotalFetched: len(fetched)}

	existing, err := s.store.ListProjects(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	fetchedURLs := make(map[string]bool, len(fetched))
	for _, r := range fetched {
		fetchedURLs[r.URL] = true
	}

	// Removal pass: drop projects whose repository is gone upstream.
	for _, p := range existing {
		if fetchedURLs[p.RepoURL] {
			continue
		}
		if err := s.store.DeleteProject(ctx, p.ID); err != nil {
			slog.Warn("failed to remove vanished project",
				"project", p.Name, "error", err)
			continue
		}
		result.Removed++
	}

	// Reload after removals so the create/update pass sees current state.
	existing, err = s.store.ListProjects(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("reload projects: %w", err)
	}
	byURL := make(map[string]*models.Project, len(existing))
	for _, p := range existing {
		byURL[p.RepoURL] = p
	}

	for _, repo := range fetched {
		p, ok := byURL[repo.URL]
		if !ok {
			if err := s.createProject(ctx, portfolioID, repo); err != nil {
				slog.Warn("failed to create project from repo",
					"repo", repo.Name, "error", err)
				continue
			}
			result.Created++
			continue
		}

		changed := applyRepo(p, repo)
		if !changed {
			continue
		}
		if err := s.store.UpdateProject(ctx, p); err != nil {
			slog.Warn("failed to update project from repo",
				"repo", repo.Name, "error", err)
			continue
		}
		result.Updated++
	}

	return result, nil
}

// createProject seeds a new project from a fetched repo. Enrichment
// fields start empty except the summary, which is seeded so new projects
// render with some text before any analysis runs.
func (s *Syncer) createProject(ctx context.Context, portfolioID string, repo github.Repo) error {
	summary := repo.Description
	if summary == "" {
		lang := primaryLanguage(repo.Languages)
		if lang == "" {
			lang = "code"
		}
		summary = fmt.Sprintf("A %s project", lang)
	}

	p := &models.Project{
		PortfolioID:        portfolioID,
		RepoID:             repo.ID,
		Name:               repo.Name,
		Description:        repo.Description,
		Homepage:           repo.Homepage,
		RepoURL:            repo.URL,
		Stars:              repo.Stars,
		Forks:              repo.Forks,
		Languages:          repo.Languages,
		Topics:             repo.Topics,
		LastProviderUpdate: repo.PushedAt,
		Summary:            summary,
		Selected:           true,
	}
	return s.store.CreateProject(ctx, p)
}

// applyRepo overwrites the mirrored fields of p from repo when the
// provider reports newer content or changed metadata. Returns whether
// anything changed. Enrichment fields are deliberately left alone.
func applyRepo(p *models.Project, repo github.Repo) bool {
	contentChanged := repo.PushedAt.After(p.LastProviderUpdate)
	metadataChanged := p.Stars != repo.Stars ||
		p.Forks != repo.Forks ||
		p.Description != repo.Description
	if !contentChanged && !metadataChanged {
		return false
	}

	p.RepoID = repo.ID
	p.Name = repo.Name
	p.Description = repo.Description
	p.Homepage = repo.Homepage
	p.Stars = repo.Stars
	p.Forks = repo.Forks
	if len(repo.Languages) > 0 {
		p.Languages = repo.Languages
	}
	p.Topics = repo.Topics
	p.LastProviderUpdate = repo.PushedAt
	return true
}

func primaryLanguage(languages map[string]int) string {
	best := ""
	bestBytes := -1
	for lang, bytes := range languages {
		if bytes > bestBytes || (bytes == bestBytes && lang < best) {
			best = lang
			bestBytes = bytes
		}
	}
	return best
}

// NeedsReanalysis reports whether the repository changed after the last
// enrichment run. Projects that were never analyzed have nothing to go
// stale, so they report false. The flag is derived at read time and
// never persisted.
func NeedsReanalysis(p *models.Project) bool {
	if !p.Analyzed || p.LastAnalyzedAt == nil {
		return false
	}
	return p.LastProviderUpdate.After(*p.LastAnalyzedAt)
}
