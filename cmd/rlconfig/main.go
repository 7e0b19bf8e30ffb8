package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runelite/api.runelite.net/internal/client"
	"github.com/runelite/api.runelite.net/internal/ui"
)

var (
	httpURL    string
	session    string
	jsonOutput bool
	noColor    bool

	configClient client.ConfigClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("RLCONFIG_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultSession() string {
	if s := os.Getenv("RLCONFIG_SESSION"); s != "" {
		return s
	}
	return activeRemoteSession()
}

// skipClient is installed as PersistentPreRunE on commands that do not talk
// to the server.
func skipClient(*cobra.Command, []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "rlconfig <command>",
	Short:         "Client and server for the profile configuration service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetColor(!noColor && ui.ShouldUseColor())
		configClient = client.NewHTTPClient(httpURL, session)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if configClient != nil {
			configClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "url", defaultHTTPURL(), "server base URL")
	rootCmd.PersistentFlags().StringVar(&session, "session", defaultSession(), "session token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colour output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "config", Title: "Configuration:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(unsetCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderFailure("Error:"), err)
		os.Exit(1)
	}
}
