package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printProfiles(out io.Writer, profiles []model.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(out, ui.RenderMuted("no profiles"))
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tREV")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, ui.RenderProfileKind(p.ID.Kind()), p.Name, p.Rev)
	}
	w.Flush()
}

// filterPrefix keeps the keys starting with prefix.
func filterPrefix(config map[string]string, prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range config {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

func printConfiguration(out io.Writer, c model.Configuration) {
	keys := make([]string, 0, len(c.Config))
	for k := range c.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	width := ui.TerminalWidth(120) / 2
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", ui.RenderAccent(k), ui.Truncate(c.Config[k], width))
	}
	w.Flush()

	summary := fmt.Sprintf("%d keys", len(keys))
	if c.Rev != nil {
		summary += fmt.Sprintf(", rev %d", *c.Rev)
	}
	fmt.Fprintln(out, ui.RenderMuted(summary))
}

// reportPatch prints the outcome of a patch. Rejected entries are listed
// and turn the command into a failure.
func reportPatch(out io.Writer, rev *uint64, failures []string) error {
	if jsonOutput {
		if failures == nil {
			failures = []string{}
		}
		if err := printJSON(out, model.PatchResult{Rev: rev, Failures: failures}); err != nil {
			return err
		}
	} else {
		for _, f := range failures {
			fmt.Fprintf(out, "%s %s\n", ui.RenderFailure("rejected"), f)
		}
		if len(failures) == 0 {
			msg := "ok"
			if rev != nil {
				msg = fmt.Sprintf("ok (rev %d)", *rev)
			}
			fmt.Fprintln(out, ui.RenderSuccess(msg))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d entries rejected", len(failures))
	}
	return nil
}
