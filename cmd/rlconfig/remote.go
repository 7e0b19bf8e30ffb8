package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// RemotesConfig is the contents of remotes.toml: the known servers and the
// one used when --url is not given.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named server with the session used against it.
type Remote struct {
	URL         string `toml:"url"`
	Session     string `toml:"session,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "rlconfig")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

// loadRemotesConfig reads remotes.toml. A missing file is an empty config.
func loadRemotesConfig() (RemotesConfig, error) {
	cfg := RemotesConfig{Remotes: map[string]Remote{}}
	path, err := remoteConfigPath()
	if err != nil {
		return cfg, err
	}
	_, err = toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// names returns the remote names in sorted order.
func (c RemotesConfig) names() []string {
	out := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// lookup resolves name, or the active remote when name is empty.
func (c RemotesConfig) lookup(name string) (string, Remote, error) {
	if name == "" {
		name = c.Active
	}
	if name == "" {
		return "", Remote{}, errors.New("no active remote; specify a name or run 'rlconfig remote use <name>'")
	}
	r, ok := c.Remotes[name]
	if !ok {
		return "", Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return name, r, nil
}

// use marks name active. An empty name clears the active remote.
func (c *RemotesConfig) use(name string) error {
	if name != "" {
		if _, ok := c.Remotes[name]; !ok {
			return fmt.Errorf("remote %q not found", name)
		}
	}
	c.Active = name
	return nil
}

func (c *RemotesConfig) remove(name string) error {
	if _, ok := c.Remotes[name]; !ok {
		return fmt.Errorf("remote %q not found", name)
	}
	delete(c.Remotes, name)
	if c.Active == name {
		c.Active = ""
	}
	return nil
}

// updateRemotes loads remotes.toml, applies fn and saves the result.
func updateRemotes(fn func(*RemotesConfig) error) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return saveRemotesConfig(cfg)
}

var (
	remoteOnce   sync.Once
	activeRemote Remote
)

func loadActiveRemoteOnce() {
	remoteOnce.Do(func() {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return
		}
		if _, r, err := cfg.lookup(""); err == nil {
			activeRemote = r
		}
	})
}

func activeRemoteURL() string     { loadActiveRemoteOnce(); return activeRemote.URL }
func activeRemoteSession() string { loadActiveRemoteOnce(); return activeRemote.Session }
func activeRemoteNATSURL() string { loadActiveRemoteOnce(); return activeRemote.NATSURL }

// maskSession keeps the first eight characters of a session token.
func maskSession(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8] + strings.Repeat("*", len(s)-8)
}

// abbrevSession shortens a session token for table output.
func abbrevSession(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8] + "..."
}

func writeRemoteTable(out io.Writer, cfg RemotesConfig) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tURL\tSESSION\tDESCRIPTION")
	for _, name := range cfg.names() {
		r := cfg.Remotes[name]
		marker := "  "
		if name == cfg.Active {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, r.URL, abbrevSession(r.Session), r.Description)
	}
	return w.Flush()
}

func writeRemoteDetail(out io.Writer, name string, r Remote, active bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	suffix := ""
	if active {
		suffix = " (active)"
	}
	fmt.Fprintf(w, "name:\t%s%s\n", name, suffix)
	for _, field := range [][2]string{
		{"description", r.Description},
		{"url", r.URL},
		{"session", maskSession(r.Session)},
		{"nats_url", r.NATSURL},
	} {
		if field[1] != "" {
			fmt.Fprintf(w, "%s:\t%s\n", field[0], field[1])
		}
	}
	return w.Flush()
}

var remoteCmd = &cobra.Command{
	Use:               "remote",
	Short:             "Manage named server remotes",
	GroupID:           "system",
	PersistentPreRunE: skipClient,
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := Remote{URL: args[1]}
		r.Session, _ = cmd.Flags().GetString("session")
		r.NATSURL, _ = cmd.Flags().GetString("nats")
		r.Description, _ = cmd.Flags().GetString("description")

		err := updateRemotes(func(cfg *RemotesConfig) error {
			cfg.Remotes[args[0]] = r
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", args[0], r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.remove(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if len(cfg.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured")
			return nil
		}
		return writeRemoteTable(cmd.OutOrStdout(), cfg)
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active remote (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.use(name) }); err != nil {
			return err
		}
		if name == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "active remote cleared")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", name)
		}
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		var want string
		if len(args) == 1 {
			want = args[0]
		}
		name, r, err := cfg.lookup(want)
		if err != nil {
			return err
		}
		return writeRemoteDetail(cmd.OutOrStdout(), name, r, name == cfg.Active)
	},
}

func init() {
	remoteAddCmd.Flags().String("session", "", "session token sent with every request")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for change events")
	remoteAddCmd.Flags().String("description", "", "human-readable description of the remote")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd, remoteShowCmd)
}
