package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/portpilot/portpilot/internal/analyze"
	"github.com/portpilot/portpilot/internal/api"
	"github.com/portpilot/portpilot/internal/auth"
	"github.com/portpilot/portpilot/internal/github"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PortPilot API server",
	Long: `Start the HTTP API server for the dashboard and public portfolios.
By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := viper.GetString("auth.secret")
		if secret == "" {
			return fmt.Errorf("auth.secret is not set (PORTPILOT_AUTH_SECRET)")
		}

		s, err := getStore()
		if err != nil {
			return err
		}

		fetcher := github.NewClient()
		analyzer := analyze.New(
			viper.GetString("anthropic.api_key"),
			viper.GetString("anthropic.model"),
			fetcher,
		)
		devMode := viper.GetBool("dev_mode")
		if devMode {
			slog.Warn("dev mode enabled, dev-login endpoint is open")
		}

		srv := api.NewServer(s, fetcher, analyzer, auth.NewManager(secret), devMode)

		addr := fmt.Sprintf(":%d", viper.GetInt("port"))
		ui.Info("PortPilot API listening on http://localhost%s", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
