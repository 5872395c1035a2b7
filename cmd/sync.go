package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/portpilot/portpilot/internal/github"
	"github.com/portpilot/portpilot/internal/models"
	"github.com/portpilot/portpilot/internal/output"
	"github.com/portpilot/portpilot/internal/reconcile"
)

var syncHandle string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync a user's GitHub repositories into their portfolio",
	Long: `Fetch the user's repositories from GitHub and reconcile them into
their stored portfolio projects. Uses the user's stored integration
token, falling back to github.token from config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncHandle == "" {
			return fmt.Errorf("--handle is required")
		}

		s, err := getStore()
		if err != nil {
			return err
		}
		ctx := context.Background()

		user, err := s.GetUserByHandle(ctx, syncHandle)
		if err != nil {
			return err
		}
		portfolio, err := s.GetPortfolioByUser(ctx, user.ID)
		if err != nil {
			return err
		}

		token := viper.GetString("github.token")
		if integ, err := s.GetIntegration(ctx, user.ID, models.ProviderGitHub); err == nil {
			token = integ.AccessToken
		}
		if token == "" {
			return fmt.Errorf("no GitHub token: user %s has no integration and github.token is unset", syncHandle)
		}

		ui.Info("Fetching repositories for %s...", output.Cyan(user.Handle))
		repos, err := github.NewClient().ListRepositories(ctx, token)
		if err != nil {
			if errors.Is(err, github.ErrBadCredentials) {
				return fmt.Errorf("GitHub rejected the token for %s, re-authentication required", syncHandle)
			}
			return err
		}

		result, err := reconcile.NewSyncer(s).Reconcile(ctx, portfolio.ID, repos)
		if err != nil {
			return err
		}

		ui.Success("Synced %d repositories: %d new, %d updated, %d removed",
			result.TotalFetched, result.Created, result.Updated, result.Removed)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncHandle, "handle", "", "User handle to sync")
	rootCmd.AddCommand(syncCmd)
}
