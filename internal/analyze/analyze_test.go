package analyze

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portpilot/portpilot/internal/github"
	"github.com/portpilot/portpilot/internal/models"
)

// fakeFetcher serves canned repository content.
type fakeFetcher struct {
	readme string
	files  []string
	err    error
}

func (f *fakeFetcher) ListRepositories(ctx context.Context, token string) ([]github.Repo, error) {
	return nil, nil
}

func (f *fakeFetcher) Readme(ctx context.Context, token, owner, repo string) (string, error) {
	return f.readme, f.err
}

func (f *fakeFetcher) FileTree(ctx context.Context, token, owner, repo string) ([]string, error) {
	return f.files, f.err
}

// fakeCompleter returns a fixed response or error.
type fakeCompleter struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return f.text, f.err
}

func testProject() *models.Project {
	return &models.Project{
		Name:        "widget",
		Description: "A widget service",
		RepoURL:     "https://github.com/octocat/widget",
		Stars:       12,
		Forks:       3,
		Languages:   map[string]int{"Go": 9000, "Shell": 100},
		Topics:      []string{"cli"},
	}
}

func TestAnalyze_NotConfiguredFailsFast(t *testing.T) {
	a := New("", "claude-haiku-4-5-20251001", nil)
	_, err := a.Analyze(context.Background(), "tok", testProject())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalyze_InvalidRepoURL(t *testing.T) {
	a := &Analyzer{
		llm:        &fakeCompleter{},
		fetcher:    &fakeFetcher{},
		configured: true,
	}
	p := testProject()
	p.RepoURL = "not-a-url"
	_, err := a.Analyze(context.Background(), "tok", p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid repository URL")
}

func TestAnalyze_ParsesLLMResponse(t *testing.T) {
	response := `{
		"summary": "widget is a fast CLI widget service.",
		"detailedDescription": "A long description.",
		"features": ["Streaming sync", "Pluggable storage"],
		"techStack": {"framework": "cobra", "runtime": "Go"},
		"projectType": "cli-tool",
		"suggestedImages": [{"type": "terminal", "prompt": "terminal output"}],
		"keyInsights": ["Small binary"]
	}`
	a := &Analyzer{
		llm:        &fakeCompleter{text: response},
		fetcher:    &fakeFetcher{readme: "# widget"},
		configured: true,
	}

	analysis, err := a.Analyze(context.Background(), "tok", testProject())
	require.NoError(t, err)
	assert.False(t, analysis.Fallback)
	assert.Equal(t, "widget is a fast CLI widget service.", analysis.Summary)
	assert.Equal(t, models.ProjectTypeCLITool, analysis.ProjectType)
	assert.Equal(t, "cobra", analysis.TechStack.Framework)
	assert.Len(t, analysis.Features, 2)
}

func TestAnalyze_StripsMarkdownFencing(t *testing.T) {
	response := "```json\n{\"summary\": \"fenced summary\", \"features\": [\"x\"]}\n```"
	a := &Analyzer{
		llm:        &fakeCompleter{text: response},
		fetcher:    &fakeFetcher{},
		configured: true,
	}

	analysis, err := a.Analyze(context.Background(), "tok", testProject())
	require.NoError(t, err)
	assert.Equal(t, "fenced summary", analysis.Summary)
}

func TestAnalyze_FallbackOnLLMFailure(t *testing.T) {
	a := &Analyzer{
		llm:        &fakeCompleter{err: errors.New("timeout")},
		fetcher:    &fakeFetcher{},
		configured: true,
	}

	analysis, err := a.Analyze(context.Background(), "tok", testProject())
	require.NoError(t, err, "LLM failure must not fail the call")
	assert.True(t, analysis.Fallback)
	assert.NotEmpty(t, analysis.Summary)
	assert.NotEmpty(t, analysis.DetailedDescription)
	require.NotEmpty(t, analysis.Features)
	assert.Contains(t, analysis.Summary, "widget")
	assert.Contains(t, analysis.DetailedDescription, "Go", "fallback uses the primary language")
}

func TestAnalyze_FallbackOnGarbageResponse(t *testing.T) {
	a := &Analyzer{
		llm:        &fakeCompleter{text: "sorry, I cannot help with that"},
		fetcher:    &fakeFetcher{},
		configured: true,
	}

	analysis, err := a.Analyze(context.Background(), "tok", testProject())
	require.NoError(t, err)
	assert.True(t, analysis.Fallback)
}

func TestApply_SetsEnrichmentNeverImages(t *testing.T) {
	p := testProject()
	p.Images = []models.Image{{URL: "https://img.example/keep.png", Alt: "keep"}}

	now := time.Now().UTC()
	Apply(p, &Analysis{
		Summary:             "s",
		DetailedDescription: "d",
		Features:            []string{"f"},
		TechStack:           models.TechStack{Runtime: "Go"},
	}, now)

	assert.Equal(t, "s", p.Summary)
	assert.Equal(t, "d", p.DetailedDescription)
	assert.Equal(t, []string{"f"}, p.Features)
	assert.Equal(t, "Go", p.Stack.Runtime)
	assert.True(t, p.Analyzed)
	require.NotNil(t, p.LastAnalyzedAt)
	assert.True(t, p.LastAnalyzedAt.Equal(now))
	assert.Len(t, p.Images, 1, "analysis must never touch images")
}

func TestBuildPrompt_IncludesRepoContext(t *testing.T) {
	p := testProject()
	system, user := buildPrompt(p, "# widget readme", []string{"main.go", "cmd/root.go"})

	assert.Contains(t, system, "JSON")
	assert.Contains(t, user, "widget")
	assert.Contains(t, user, "Go, Shell")
	assert.Contains(t, user, "cmd/root.go")
	assert.Contains(t, user, "# widget readme")
}

func TestFallbackAnalysis_Deterministic(t *testing.T) {
	p := testProject()
	a1 := fallbackAnalysis(p)
	a2 := fallbackAnalysis(p)
	assert.Equal(t, a1, a2)
}
