package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/portpilot/portpilot/internal/output"
	"github.com/portpilot/portpilot/internal/reconcile"
)

var projectsHandle string

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List a user's portfolio projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectsHandle == "" {
			return fmt.Errorf("--handle is required")
		}

		s, err := getStore()
		if err != nil {
			return err
		}
		ctx := context.Background()

		user, err := s.GetUserByHandle(ctx, projectsHandle)
		if err != nil {
			return err
		}
		portfolio, err := s.GetPortfolioByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		projects, err := s.ListProjects(ctx, portfolio.ID)
		if err != nil {
			return err
		}

		if len(projects) == 0 {
			ui.Info("No projects for %s, run 'portpilot sync --handle %s'", user.Handle, user.Handle)
			return nil
		}

		table := ui.Table([]string{"NAME", "LANGUAGE", "STARS", "SELECTED", "ANALYZED", "STALE"})
		for _, p := range projects {
			selected := ""
			if p.Selected {
				selected = output.Green("yes")
			}
			analyzed := ""
			if p.Analyzed {
				analyzed = output.Green("yes")
			}
			stale := ""
			if reconcile.NeedsReanalysis(p) {
				stale = output.Yellow("yes")
			}
			_ = table.Append([]string{
				p.Name,
				p.PrimaryLanguage(),
				strconv.Itoa(p.Stars),
				selected,
				analyzed,
				stale,
			})
		}
		_ = table.Render()
		return nil
	},
}

func init() {
	projectsCmd.Flags().StringVar(&projectsHandle, "handle", "", "User handle")
	rootCmd.AddCommand(projectsCmd)
}
