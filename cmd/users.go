package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/portpilot/portpilot/internal/models"
	"github.com/portpilot/portpilot/internal/output"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage PortPilot accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return usersListRun()
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return usersListRun()
	},
}

var usersSetPlanCmd = &cobra.Command{
	Use:   "set-plan <handle> <FREE|PRO>",
	Short: "Change an account's billing plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return usersSetPlanRun(args[0], args[1])
	},
}

var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role <handle> <user|admin>",
	Short: "Change an account's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return usersSetRoleRun(args[0], args[1])
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersSetPlanCmd)
	usersCmd.AddCommand(usersSetRoleCmd)
	rootCmd.AddCommand(usersCmd)
}

func usersListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	users, err := s.ListUsers(context.Background())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ui.Info("No accounts yet")
		return nil
	}

	table := ui.Table([]string{"HANDLE", "NAME", "EMAIL", "PLAN", "ROLE"})
	for _, u := range users {
		_ = table.Append([]string{
			u.Handle,
			u.Name,
			u.Email,
			output.PlanColor(string(u.Plan)),
			string(u.Role),
		})
	}
	_ = table.Render()
	return nil
}

func usersSetPlanRun(handle, plan string) error {
	p := models.Plan(plan)
	if !p.Valid() {
		return fmt.Errorf("invalid plan %q (want FREE or PRO)", plan)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	user, err := s.GetUserByHandle(ctx, handle)
	if err != nil {
		return err
	}
	user.Plan = p
	if err := s.UpdateUser(ctx, user); err != nil {
		return err
	}

	ui.Success("%s is now on the %s plan", user.Handle, plan)
	return nil
}

func usersSetRoleRun(handle, role string) error {
	r := models.Role(role)
	if !r.Valid() {
		return fmt.Errorf("invalid role %q (want user or admin)", role)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	user, err := s.GetUserByHandle(ctx, handle)
	if err != nil {
		return err
	}
	user.Role = r
	if err := s.UpdateUser(ctx, user); err != nil {
		return err
	}

	ui.Success("%s is now %s", user.Handle, role)
	return nil
}
