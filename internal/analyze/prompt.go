package analyze

import (
	"fmt"
	"sort"
	"strings"

	"github.com/portpilot/portpilot/internal/models"
)

const maxReadmeChars = 2000

// buildPrompt constructs the system and user prompts for repository analysis.
func buildPrompt(p *models.Project, readme string, files []string) (system string, user string) {
	system = `You are an expert software analyst creating compelling portfolio content. Analyze the given GitHub repository and return ONLY a JSON object with these fields:
- "summary": a professional 3-4 sentence description highlighting the project's value proposition and key capabilities
- "detailedDescription": a comprehensive 4-6 paragraph description covering overview, technical implementation, key features, architecture decisions, and impact
- "features": array of 4-6 specific technical features extracted from the code structure and README (e.g. "Real-time data synchronization", "RESTful API integration")
- "techStack": object with optional "framework", "runtime", "packageManager", "database" strings
- "projectType": one of "web-app", "mobile-app", "cli-tool", "library", "api", "desktop-app", "game", "other"
- "suggestedImages": array of 2-3 objects {"type": one of "dashboard"/"mobile"/"terminal"/"landing"/"interface"/"screenshot", "prompt": a detailed image-generation prompt for a realistic application screenshot}
- "keyInsights": array of 2-3 technical highlights about architecture, performance, or innovation

Rules:
- Be specific: ground every claim in the provided metadata, file list, or README
- Make the content suitable for a professional portfolio page
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&sb, "Stars: %d, Forks: %d\n", p.Stars, p.Forks)
	if len(p.Languages) > 0 {
		langs := make([]string, 0, len(p.Languages))
		for lang := range p.Languages {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		fmt.Fprintf(&sb, "Languages: %s\n", strings.Join(langs, ", "))
	}
	if len(p.Topics) > 0 {
		fmt.Fprintf(&sb, "Topics: %s\n", strings.Join(p.Topics, ", "))
	}
	if len(files) > 0 {
		fmt.Fprintf(&sb, "\nFile structure:\n%s\n", strings.Join(files, "\n"))
	}
	if readme != "" {
		if len(readme) > maxReadmeChars {
			readme = readme[:maxReadmeChars]
		}
		fmt.Fprintf(&sb, "\nREADME (excerpt):\n%s\n", readme)
	}
	user = sb.String()
	return
}

// fallbackAnalysis synthesizes enrichment from already-known mirrored
// metadata. It is deterministic so repeated failures produce stable text.
func fallbackAnalysis(p *models.Project) *Analysis {
	lang := p.PrimaryLanguage()
	if lang == "" {
		lang = "modern technologies"
	}
	what := p.Description
	if what == "" {
		what = "software project"
	}

	features := []string{
		"Well-structured and maintainable codebase",
		"Modern development practices and patterns",
		fmt.Sprintf("Built with %s", lang),
	}
	if p.Description != "" {
		features = append(features, "Comprehensive project documentation")
	}

	return &Analysis{
		Summary: fmt.Sprintf(
			"%s is a %s that demonstrates modern development practices. This project showcases technical expertise and attention to detail in software development.",
			p.Name, what),
		DetailedDescription: fmt.Sprintf(
			"%s represents a well-architected %s built with modern development practices and industry standards.\n\nThe project demonstrates strong technical implementation using %s and follows established patterns for maintainable code.\n\nWith %d stars and %d forks on GitHub, this project shows community engagement and demonstrates the developer's ability to create valuable, reusable software.",
			p.Name, what, lang, p.Stars, p.Forks),
		Features: features,
		TechStack: models.TechStack{
			Framework: lang,
		},
		ProjectType: models.ProjectTypeOther,
		SuggestedImages: []ImagePrompt{
			{
				Type:   "interface",
				Prompt: fmt.Sprintf("A professional, clean interface for %s showing its main view with modern UI elements and clear typography", p.Name),
			},
		},
		KeyInsights: []string{
			fmt.Sprintf("Showcases expertise in %s and modern development practices", lang),
		},
		Fallback: true,
	}
}
