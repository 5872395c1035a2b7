package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/portpilot/portpilot/internal/output"
)

var jobsHandle string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show recent sync jobs for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jobsHandle == "" {
			return fmt.Errorf("--handle is required")
		}

		s, err := getStore()
		if err != nil {
			return err
		}
		ctx := context.Background()

		user, err := s.GetUserByHandle(ctx, jobsHandle)
		if err != nil {
			return err
		}
		jobs, err := s.ListSyncJobs(ctx, user.ID, 20)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			ui.Info("No sync jobs for %s", user.Handle)
			return nil
		}

		table := ui.Table([]string{"WHEN", "STATUS", "TOTAL", "NEW", "UPDATED", "REMOVED", "ERROR"})
		for _, j := range jobs {
			_ = table.Append([]string{
				j.CreatedAt.Format("2006-01-02 15:04"),
				output.StatusColor(string(j.Status)),
				fmt.Sprintf("%d", j.Total),
				fmt.Sprintf("%d", j.Created),
				fmt.Sprintf("%d", j.Updated),
				fmt.Sprintf("%d", j.Removed),
				j.Error,
			})
		}
		_ = table.Render()
		return nil
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsHandle, "handle", "", "User handle")
	rootCmd.AddCommand(jobsCmd)
}
