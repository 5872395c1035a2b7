// Package api provides the REST API for the dashboard and public
// portfolio pages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/portpilot/portpilot/internal/analyze"
	"github.com/portpilot/portpilot/internal/auth"
	"github.com/portpilot/portpilot/internal/github"
	"github.com/portpilot/portpilot/internal/models"
	"github.com/portpilot/portpilot/internal/reconcile"
	"github.com/portpilot/portpilot/internal/store"
	"github.com/portpilot/portpilot/internal/themes"
)

const reauthMessage = "GitHub integration missing or expired. Please re-authenticate with GitHub."

// Server provides the REST API handlers.
type Server struct {
	store    store.Store
	fetcher  github.Fetcher
	syncer   *reconcile.Syncer
	analyzer *analyze.Analyzer
	auth     *auth.Manager
	devMode  bool
}

// NewServer creates a new API server. devMode enables the password-less
// dev-login endpoint and must stay off in production.
func NewServer(s store.Store, fetcher github.Fetcher, analyzer *analyze.Analyzer, authMgr *auth.Manager, devMode bool) *Server {
	return &Server{
		store:    s,
		fetcher:  fetcher,
		syncer:   reconcile.NewSyncer(s),
		analyzer: analyzer,
		auth:     authMgr,
		devMode:  devMode,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/dev-login", s.devLogin)
	mux.HandleFunc("GET /api/p/{handle}", s.publicPortfolio)

	mux.HandleFunc("GET /api/user/me", s.authed(s.me))
	mux.HandleFunc("GET /api/dashboard", s.authed(s.dashboard))

	mux.HandleFunc("POST /api/sync", s.authed(s.sync))
	mux.HandleFunc("GET /api/sync/jobs", s.authed(s.listSyncJobs))

	mux.HandleFunc("POST /api/projects/{id}/analyze", s.authed(s.analyzeProject))
	mux.HandleFunc("PUT /api/projects/{id}", s.authed(s.updateProject))
	mux.HandleFunc("POST /api/projects/{id}/images", s.authed(s.addProjectImage))
	mux.HandleFunc("DELETE /api/projects/{id}/images/{index}", s.authed(s.deleteProjectImage))

	mux.HandleFunc("GET /api/portfolio", s.authed(s.getPortfolio))
	mux.HandleFunc("POST /api/portfolio/projects/selection", s.authed(s.updateSelection))
	mux.HandleFunc("POST /api/portfolio/order", s.authed(s.updateOrder))
	mux.HandleFunc("POST /api/portfolio/theme", s.authed(s.updateTheme))
	mux.HandleFunc("POST /api/portfolio/settings", s.authed(s.updateSettings))
	mux.HandleFunc("POST /api/portfolio/custom-domain", s.authed(s.updateCustomDomain))

	mux.HandleFunc("GET /api/themes", s.listThemes)

	mux.HandleFunc("GET /api/admin/users", s.admin(s.adminListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}", s.admin(s.adminUpdateUser))

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// patchString applies a string value from a JSON patch map to the target if the key is present and non-empty.
func patchString(patch map[string]any, key string, target *string) {
	if v, ok := patch[key]; ok {
		if str, ok := v.(string); ok && str != "" {
			*target = str
		}
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, sess *auth.Session)

// authed wraps a handler with bearer-token verification.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.auth.FromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r, sess)
	}
}

// admin additionally requires the admin role.
func (s *Server) admin(h authedHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
		if sess.Role != models.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		h(w, r, sess)
	})
}

// callerPortfolio loads the calling user's portfolio.
func (s *Server) callerPortfolio(ctx context.Context, sess *auth.Session) (*models.Portfolio, error) {
	return s.store.GetPortfolioByUser(ctx, sess.UserID)
}

// ownedProject loads a project and verifies the caller owns it. The
// returned status is only meaningful when err is non-nil.
func (s *Server) ownedProject(ctx context.Context, sess *auth.Session, id string) (*models.Project, int, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, http.StatusNotFound, err
		}
		return nil, http.StatusInternalServerError, err
	}
	pf, err := s.callerPortfolio(ctx, sess)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if p.PortfolioID != pf.ID {
		return nil, http.StatusNotFound, fmt.Errorf("project not found: %s", id)
	}
	return p, 0, nil
}

// --- Auth ---

func (s *Server) devLogin(w http.ResponseWriter, r *http.Request) {
	if !s.devMode {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req struct {
		Handle      string `json:"handle"`
		Plan        string `json:"plan"`
		Role        string `json:"role"`
		GitHubToken string `json:"githubToken"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	if req.Handle == "" {
		req.Handle = "dev"
	}

	ctx := r.Context()
	user, err := s.store.GetUserByHandle(ctx, req.Handle)
	if err != nil {
		user = &models.User{
			Handle: req.Handle,
			Name:   "Dev User",
			Email:  req.Handle + "@localhost",
			Plan:   models.PlanFree,
			Role:   models.RoleUser,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if p := models.Plan(req.Plan); p.Valid() {
		user.Plan = p
	}
	if role := models.Role(req.Role); role.Valid() {
		user.Role = role
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := s.store.GetPortfolioByUser(ctx, user.ID); err != nil {
		pf := &models.Portfolio{
			UserID:    user.ID,
			ThemeID:   themes.DefaultID,
			ShowStats: true,
		}
		if err := s.store.CreatePortfolio(ctx, pf); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if req.GitHubToken != "" {
		integ, err := s.store.GetIntegration(ctx, user.ID, models.ProviderGitHub)
		if err != nil {
			integ = &models.Integration{
				UserID:      user.ID,
				Provider:    models.ProviderGitHub,
				AccessToken: req.GitHubToken,
			}
			if err := s.store.CreateIntegration(ctx, integ); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		} else {
			integ.AccessToken = req.GitHubToken
			if err := s.store.UpdateIntegration(ctx, integ); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// --- User / Dashboard ---

func (s *Server) me(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	user, err := s.store.GetUser(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type dashboardProject struct {
	*models.Project
	NeedsReanalysis bool `json:"needsReanalysis"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	pf, err := s.callerPortfolio(ctx, sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	projects, err := s.store.ListProjects(ctx, pf.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]dashboardProject, 0, len(projects))
	for _, p := range projects {
		entries = append(entries, dashboardProject{
			Project:         p,
			NeedsReanalysis: reconcile.NeedsReanalysis(p),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"portfolio": pf,
		"projects":  entries,
	})
}

// --- Sync ---

func (s *Server) sync(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	integ, err := s.store.GetIntegration(ctx, sess.UserID, models.ProviderGitHub)
	if err != nil {
		writeError(w, http.StatusBadRequest, reauthMessage)
		return
	}
	pf, err := s.callerPortfolio(ctx, sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job := &models.SyncJob{UserID: sess.UserID, Status: models.SyncStatusRunning}
	if err := s.store.CreateSyncJob(ctx, job); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	repos, err := s.fetcher.ListRepositories(ctx, integ.AccessToken)
	if err != nil {
		job.Status = models.SyncStatusError
		job.Error = err.Error()
		_ = s.store.UpdateSyncJob(ctx, job)

		if errors.Is(err, github.ErrBadCredentials) {
			writeError(w, http.StatusBadRequest, reauthMessage)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("fetch repositories: %v", err))
		return
	}

	result, err := s.syncer.Reconcile(ctx, pf.ID, repos)
	if err != nil {
		job.Status = models.SyncStatusError
		job.Error = err.Error()
		_ = s.store.UpdateSyncJob(ctx, job)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job.Status = models.SyncStatusSuccess
	job.Created = result.Created
	job.Updated = result.Updated
	job.Removed = result.Removed
	job.Total = result.TotalFetched
	_ = s.store.UpdateSyncJob(ctx, job)

	writeJSON(w, http.StatusOK, map[string]any{
		"totalRepos":   result.TotalFetched,
		"syncedCount":  result.Created,
		"updatedCount": result.Updated,
		"removedCount": result.Removed,
		"message":      fmt.Sprintf("Synced %d repositories", result.TotalFetched),
	})
}

func (s *Server) listSyncJobs(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	jobs, err := s.store.ListSyncJobs(r.Context(), sess.UserID, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []*models.SyncJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// --- Projects ---

func (s *Server) analyzeProject(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	p, status, err := s.ownedProject(ctx, sess, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	integ, err := s.store.GetIntegration(ctx, sess.UserID, models.ProviderGitHub)
	if err != nil {
		writeError(w, http.StatusBadRequest, reauthMessage)
		return
	}

	// ErrNotConfigured and bad repo URLs are both caller-visible setup
	// problems; transient LLM failures never reach here (fallback).
	analysis, err := s.analyzer.Analyze(ctx, integ.AccessToken, p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analyze.Apply(p, analysis, time.Now().UTC())
	if err := s.store.UpdateProject(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"project":  p,
		"analysis": analysis,
	})
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	p, status, err := s.ownedProject(ctx, sess, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Selectively merge only keys present in the patch with non-empty values.
	// Empty strings are treated as "not provided" to avoid wiping existing data.
	patchString(patch, "name", &p.Name)
	patchString(patch, "description", &p.Description)
	patchString(patch, "summary", &p.Summary)
	patchString(patch, "detailedDescription", &p.DetailedDescription)
	if v, ok := patch["features"]; ok {
		if list, ok := v.([]any); ok {
			features := make([]string, 0, len(list))
			for _, f := range list {
				if str, ok := f.(string); ok && str != "" {
					features = append(features, str)
				}
			}
			p.Features = features
		}
	}

	if err := s.store.UpdateProject(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) addProjectImage(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	p, status, err := s.ownedProject(ctx, sess, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	var img models.Image
	if err := json.NewDecoder(r.Body).Decode(&img); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if img.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	p.Images = append(p.Images, img)
	if err := s.store.UpdateProject(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProjectImage(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	p, status, err := s.ownedProject(ctx, sess, r.PathValue("id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || idx < 0 || idx >= len(p.Images) {
		writeError(w, http.StatusBadRequest, "invalid image index")
		return
	}

	p.Images = append(p.Images[:idx], p.Images[idx+1:]...)
	if err := s.store.UpdateProject(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Portfolio ---

func (s *Server) getPortfolio(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	pf, err := s.callerPortfolio(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

func (s *Server) updateSelection(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	var req struct {
		ProjectID string `json:"projectId"`
		Selected  bool   `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}

	p, status, err := s.ownedProject(ctx, sess, req.ProjectID)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	p.Selected = req.Selected
	if err := s.store.UpdateProject(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	var req struct {
		Projects []struct {
			ProjectID string `json:"projectId"`
			Order     int    `json:"order"`
		} `json:"projects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Projects) == 0 {
		writeError(w, http.StatusBadRequest, "projects is required")
		return
	}

	for _, item := range req.Projects {
		if _, status, err := s.ownedProject(ctx, sess, item.ProjectID); err != nil {
			writeError(w, status, err.Error())
			return
		}
		if err := s.store.UpdateProjectOrder(ctx, item.ProjectID, item.Order); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(req.Projects)})
}

func (s *Server) updateTheme(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	var req struct {
		ThemeID     string `json:"themeId"`
		AccentColor string `json:"accentColor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	pf, err := s.callerPortfolio(ctx, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.ThemeID != "" {
		theme, ok := themes.Get(req.ThemeID)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown theme: %s", req.ThemeID))
			return
		}
		user, err := s.store.GetUser(ctx, sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !themes.Allowed(theme, user.Plan) {
			writeError(w, http.StatusForbidden, fmt.Sprintf("theme %s requires a Pro plan", theme.ID))
			return
		}
		pf.ThemeID = theme.ID
	}
	if req.AccentColor != "" {
		pf.AccentColor = req.AccentColor
	}

	if err := s.store.UpdatePortfolio(ctx, pf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	var req struct {
		IsPublic  *bool               `json:"isPublic"`
		ShowStats *bool               `json:"showStats"`
		Social    *models.SocialLinks `json:"social"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	pf, err := s.callerPortfolio(ctx, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.IsPublic != nil {
		pf.IsPublic = *req.IsPublic
	}
	if req.ShowStats != nil {
		pf.ShowStats = *req.ShowStats
	}
	if req.Social != nil {
		pf.Social = *req.Social
	}

	if err := s.store.UpdatePortfolio(ctx, pf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

func (s *Server) updateCustomDomain(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user.Plan != models.PlanPro {
		writeError(w, http.StatusForbidden, "custom domains require a Pro plan")
		return
	}

	pf, err := s.callerPortfolio(ctx, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	pf.CustomDomain = req.Domain
	if err := s.store.UpdatePortfolio(ctx, pf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

// --- Themes ---

func (s *Server) listThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themes.All)
}

// --- Public portfolio ---

// publicUser is the subset of account fields exposed on public pages.
type publicUser struct {
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Website   string `json:"website"`
}

func (s *Server) publicPortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle := r.PathValue("handle")

	user, err := s.store.GetUserByHandle(ctx, handle)
	if err != nil {
		writeError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	pf, err := s.store.GetPortfolioByUser(ctx, user.ID)
	if err != nil || !pf.IsPublic {
		writeError(w, http.StatusNotFound, "portfolio not found")
		return
	}

	all, err := s.store.ListProjects(ctx, pf.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	projects := make([]*models.Project, 0, len(all))
	for _, p := range all {
		if p.Selected {
			projects = append(projects, p)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": publicUser{
			Handle:    user.Handle,
			Name:      user.Name,
			AvatarURL: user.AvatarURL,
			Bio:       user.Bio,
			Location:  user.Location,
			Website:   user.Website,
		},
		"portfolio": map[string]any{
			"themeId":     themes.Resolve(pf.ThemeID, user.Plan),
			"accentColor": pf.AccentColor,
			"showStats":   pf.ShowStats,
			"social":      pf.Social,
		},
		"projects": projects,
	})
}

// --- Admin ---

func (s *Server) adminListUsers(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) adminUpdateUser(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()

	user, err := s.store.GetUser(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req struct {
		Plan string `json:"plan"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Plan != "" {
		p := models.Plan(req.Plan)
		if !p.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid plan: %s", req.Plan))
			return
		}
		user.Plan = p
	}
	if req.Role != "" {
		role := models.Role(req.Role)
		if !role.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid role: %s", req.Role))
			return
		}
		user.Role = role
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}
