package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runelite/api.runelite.net/internal/model"
)

// parseAssignments turns key=value arguments into ordered edits. The value
// may itself contain '='.
func parseAssignments(args []string) (model.Edits, error) {
	edits := make(model.Edits, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		edits = append(edits, model.Edit{Key: key, Value: value})
	}
	return edits, nil
}

var (
	getProfile   profileFlag
	setProfile   profileFlag
	unsetProfile profileFlag
	setName      string
)

var getCmd = &cobra.Command{
	Use:     "get [key-prefix]",
	Short:   "Show configuration (v2 view unless --profile is given)",
	GroupID: "config",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		var config model.Configuration
		if id, ok := getProfile.id(); ok {
			c, err := configClient.GetProfile(ctx, id)
			if err != nil {
				return err
			}
			config = *c
		} else {
			flat, err := configClient.GetV2(ctx)
			if err != nil {
				return err
			}
			config = model.Configuration{Config: flat}
		}
		if len(args) == 1 {
			config.Config = filterPrefix(config.Config, args[0])
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), config)
		}
		printConfiguration(cmd.OutOrStdout(), config)
		return nil
	},
}

// patch sends p to the selected profile or, without one, to the v2 view.
func patch(cmd *cobra.Command, sel *profileFlag, p *model.Patch) error {
	ctx := context.Background()
	id, ok := sel.id()
	if !ok {
		failures, err := configClient.PatchV2(ctx, p)
		if err != nil {
			return err
		}
		return reportPatch(cmd.OutOrStdout(), nil, failures)
	}
	res, err := configClient.PatchProfile(ctx, id, p)
	if err != nil {
		return err
	}
	return reportPatch(cmd.OutOrStdout(), res.Rev, res.Failures)
}

var setCmd = &cobra.Command{
	Use:     "set <key=value>...",
	Short:   "Set configuration keys",
	GroupID: "config",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edits, err := parseAssignments(args)
		if err != nil {
			return err
		}
		p := &model.Patch{Edit: edits}
		if cmd.Flags().Changed("name") {
			if _, ok := setProfile.id(); !ok {
				return fmt.Errorf("--name requires --profile")
			}
			p.ProfileName = &setName
		}
		return patch(cmd, &setProfile, p)
	},
}

var unsetCmd = &cobra.Command{
	Use:     "unset <key>...",
	Short:   "Remove configuration keys",
	GroupID: "config",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return patch(cmd, &unsetProfile, &model.Patch{Unset: args})
	},
}

func init() {
	getCmd.Flags().Var(&getProfile, "profile", "profile id, or default/rsprofile")
	setCmd.Flags().Var(&setProfile, "profile", "profile id, or default/rsprofile")
	setCmd.Flags().StringVar(&setName, "name", "", "also rename the profile")
	unsetCmd.Flags().Var(&unsetProfile, "profile", "profile id, or default/rsprofile")
}
