package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runelite/api.runelite.net/internal/model"
)

// profileFlag holds the value of a --profile flag. An empty value selects
// the v2 aggregate view.
type profileFlag struct {
	raw string
}

func (f *profileFlag) String() string { return f.raw }
func (f *profileFlag) Type() string   { return "id" }

func (f *profileFlag) Set(s string) error {
	if _, err := parseProfileArg(s); err != nil {
		return err
	}
	f.raw = s
	return nil
}

// id returns the selected profile, or false for the v2 view.
func (f *profileFlag) id() (model.ProfileID, bool) {
	if f.raw == "" {
		return 0, false
	}
	id, _ := parseProfileArg(f.raw)
	return id, true
}

// parseProfileArg accepts a numeric id or the reserved names "default"
// and "rsprofile".
func parseProfileArg(s string) (model.ProfileID, error) {
	switch strings.ToLower(s) {
	case "default":
		return model.ProfileDefault, nil
	case "rsprofile":
		return model.ProfileRsProfile, nil
	}
	return model.ParseProfileID(s)
}

var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Short:   "List profiles",
	GroupID: "config",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := configClient.ListProfiles(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), profiles)
		}
		printProfiles(cmd.OutOrStdout(), profiles)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:     "rename <profile> <name>",
	Short:   "Rename a profile",
	GroupID: "config",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseProfileArg(args[0])
		if err != nil {
			return err
		}
		if err := configClient.RenameProfile(context.Background(), id, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %s renamed to %q\n", id, args[1])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <profile>",
	Short:   "Delete a profile",
	GroupID: "config",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseProfileArg(args[0])
		if err != nil {
			return err
		}
		if err := configClient.DeleteProfile(context.Background(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %s deleted\n", id)
		return nil
	},
}
