package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/runelite/api.runelite.net/internal/events"
	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/ui"
)

var watchUser int32

var watchCmd = &cobra.Command{
	Use:               "watch",
	Short:             "Stream configuration change events",
	GroupID:           "config",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("RLCONFIG_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL; pass --nats, set RLCONFIG_NATS_URL or configure one on the active remote")
		}
		ui.SetColor(!noColor && ui.ShouldUseColor())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return watchEvents(ctx, cmd.OutOrStdout(), natsURL)
	},
}

func watchEvents(ctx context.Context, out io.Writer, natsURL string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(out, msg, time.Now())
		}
	}
}

// eventUser returns the owner of a decoded event.
func eventUser(ev any) model.UserID {
	switch e := ev.(type) {
	case *events.ProfilePatched:
		return e.UserID
	case *events.ProfileRenamed:
		return e.UserID
	case *events.ProfileDeleted:
		return e.UserID
	case *events.ProfileMigrated:
		return e.UserID
	case *events.LegacyPatched:
		return e.UserID
	}
	return 0
}

func describeEvent(ev any) string {
	switch e := ev.(type) {
	case *events.ProfilePatched:
		s := fmt.Sprintf("profile %s patched: %s", e.ProfileID, strings.Join(e.Keys, ", "))
		if e.Rev != nil {
			s += fmt.Sprintf(" (rev %d)", *e.Rev)
		}
		return s
	case *events.ProfileRenamed:
		return fmt.Sprintf("profile %s renamed to %q", e.ProfileID, e.Name)
	case *events.ProfileDeleted:
		return fmt.Sprintf("profile %s deleted", e.ProfileID)
	case *events.ProfileMigrated:
		return fmt.Sprintf("migrated: %d default keys, %d rsprofile keys", e.DefaultKeys, e.RsProfileKeys)
	case *events.LegacyPatched:
		return fmt.Sprintf("legacy patched: %s", strings.Join(e.Keys, ", "))
	}
	return fmt.Sprintf("%v", ev)
}

func printEvent(out io.Writer, msg events.Message, at time.Time) {
	ev, err := msg.Decode()
	if err == nil && watchUser != 0 && int32(eventUser(ev)) != watchUser {
		return
	}
	switch {
	case jsonOutput:
		fmt.Fprintf(out, "{\"topic\":%q,\"event\":%s}\n", msg.Topic, msg.Data)
	case err != nil:
		fmt.Fprintf(out, "%s %s\n", ui.RenderWarning("undecodable"), err)
	default:
		fmt.Fprintf(out, "%s user %d %s\n", ui.RenderMuted(at.Format("15:04:05")), eventUser(ev), describeEvent(ev))
	}
}

func init() {
	watchCmd.Flags().String("nats", "", "NATS URL (defaults to RLCONFIG_NATS_URL or the active remote)")
	watchCmd.Flags().Int32Var(&watchUser, "user", 0, "only show events of this user")
}
