// Package analyze generates enrichment content for a project by sending
// repository context to an LLM, with a deterministic local fallback.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/portpilot/portpilot/internal/github"
	"github.com/portpilot/portpilot/internal/models"
)

// ErrNotConfigured indicates no analysis API key is configured. This is a
// setup error, not a transient failure, so no fallback is attempted.
var ErrNotConfigured = errors.New("analysis not configured: missing Anthropic API key")

// ImagePrompt suggests one illustrative image for a project.
type ImagePrompt struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

// Analysis holds generated enrichment content for one project.
type Analysis struct {
	Summary             string             `json:"summary"`
	DetailedDescription string             `json:"detailedDescription"`
	Features            []string           `json:"features"`
	TechStack           models.TechStack   `json:"techStack"`
	ProjectType         models.ProjectType `json:"projectType"`
	SuggestedImages     []ImagePrompt      `json:"suggestedImages"`
	KeyInsights         []string           `json:"keyInsights"`
	Fallback            bool               `json:"fallback,omitempty"`
}

// completer abstracts the LLM call so failures can be simulated in tests.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type anthropicCompleter struct {
	api   *anthropic.Client
	model anthropic.Model
}

func (c *anthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

// Analyzer produces enrichment content for projects.
type Analyzer struct {
	llm        completer
	fetcher    github.Fetcher
	configured bool
}

// New creates an Analyzer. An empty apiKey yields an unconfigured
// analyzer whose Analyze calls fail fast with ErrNotConfigured.
func New(apiKey, model string, fetcher github.Fetcher) *Analyzer {
	a := &Analyzer{fetcher: fetcher, configured: apiKey != ""}
	if a.configured {
		client := anthropic.NewClient(option.WithAPIKey(apiKey))
		a.llm = &anthropicCompleter{api: &client, model: anthropic.Model(model)}
	}
	return a
}

// Analyze gathers repository content and asks the LLM for enrichment.
// Any gather or LLM failure degrades to a deterministic local result, so
// a configured analyzer always returns a usable Analysis.
func (a *Analyzer) Analyze(ctx context.Context, token string, p *models.Project) (*Analysis, error) {
	if !a.configured {
		return nil, ErrNotConfigured
	}

	owner, repo, err := github.ExtractOwnerRepo(p.RepoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URL: %w", err)
	}

	// Best-effort content gathering; the prompt degrades gracefully.
	readme, err := a.fetcher.Readme(ctx, token, owner, repo)
	if err != nil {
		slog.Warn("readme fetch failed", "repo", repo, "error", err)
	}
	files, err := a.fetcher.FileTree(ctx, token, owner, repo)
	if err != nil {
		slog.Warn("file tree fetch failed", "repo", repo, "error", err)
	}

	system, user := buildPrompt(p, readme, files)
	text, err := a.llm.Complete(ctx, system, user)
	if err != nil {
		slog.Warn("LLM analysis failed, using fallback", "repo", repo, "error", err)
		return fallbackAnalysis(p), nil
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		slog.Warn("unparseable LLM analysis, using fallback", "repo", repo, "error", err)
		return fallbackAnalysis(p), nil
	}
	return analysis, nil
}

// parseAnalysis decodes the LLM response, stripping markdown fencing.
func parseAnalysis(text string) (*Analysis, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w", err)
	}
	if analysis.Summary == "" {
		return nil, fmt.Errorf("LLM response missing summary")
	}
	return &analysis, nil
}

// Apply writes an analysis result onto a project. Images are managed by
// explicit upload/delete only and are never touched here.
func Apply(p *models.Project, a *Analysis, now time.Time) {
	p.Summary = a.Summary
	p.DetailedDescription = a.DetailedDescription
	p.Features = a.Features
	p.Stack = a.TechStack
	p.Analyzed = true
	p.LastAnalyzedAt = &now
}
