package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/runelite/api.runelite.net/internal/events"
	"github.com/runelite/api.runelite.net/internal/ui"
)

func message(t *testing.T, topic string, event any) events.Message {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	return events.Message{Topic: topic, Data: data}
}

func TestPrintEvent(t *testing.T) {
	ui.SetColor(false)
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	rev := uint64(4)

	tests := []struct {
		msg  events.Message
		want string
	}{
		{
			message(t, events.TopicProfilePatched, events.ProfilePatched{UserID: 42, ProfileID: 5, Rev: &rev, Keys: []string{"combat.style"}}),
			"12:30:00 user 42 profile 5 patched: combat.style (rev 4)\n",
		},
		{
			message(t, events.TopicProfileRenamed, events.ProfileRenamed{UserID: 42, ProfileID: 5, Name: "pvm"}),
			"12:30:00 user 42 profile 5 renamed to \"pvm\"\n",
		},
		{
			message(t, events.TopicProfileDeleted, events.ProfileDeleted{UserID: 7, ProfileID: 3}),
			"12:30:00 user 7 profile 3 deleted\n",
		},
		{
			message(t, events.TopicProfileMigrated, events.ProfileMigrated{UserID: 7, DefaultKeys: 3, RsProfileKeys: 1}),
			"12:30:00 user 7 migrated: 3 default keys, 1 rsprofile keys\n",
		},
		{
			message(t, events.TopicLegacyPatched, events.LegacyPatched{UserID: 7, Keys: []string{"a.b", "c.d"}}),
			"12:30:00 user 7 legacy patched: a.b, c.d\n",
		},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		printEvent(&buf, tt.msg, at)
		if buf.String() != tt.want {
			t.Errorf("%s: got %q, want %q", tt.msg.Topic, buf.String(), tt.want)
		}
	}
}

func TestPrintEventFiltersUser(t *testing.T) {
	ui.SetColor(false)
	watchUser = 42
	t.Cleanup(func() { watchUser = 0 })

	var buf bytes.Buffer
	printEvent(&buf, message(t, events.TopicProfileDeleted, events.ProfileDeleted{UserID: 7, ProfileID: 3}), time.Now())
	if buf.Len() != 0 {
		t.Errorf("event of another user printed: %q", buf.String())
	}
	printEvent(&buf, message(t, events.TopicProfileDeleted, events.ProfileDeleted{UserID: 42, ProfileID: 3}), time.Now())
	if !strings.Contains(buf.String(), "user 42") {
		t.Errorf("event not printed: %q", buf.String())
	}
}

func TestPrintEventUndecodable(t *testing.T) {
	ui.SetColor(false)
	var buf bytes.Buffer
	printEvent(&buf, events.Message{Topic: "rlconfig.unknown", Data: []byte(`{}`)}, time.Now())
	if !strings.HasPrefix(buf.String(), "undecodable") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintEventJSON(t *testing.T) {
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })

	var buf bytes.Buffer
	printEvent(&buf, message(t, events.TopicProfileDeleted, events.ProfileDeleted{UserID: 42, ProfileID: 3}), time.Now())
	var got struct {
		Topic string                `json:"topic"`
		Event events.ProfileDeleted `json:"event"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if got.Topic != events.TopicProfileDeleted || got.Event.UserID != 42 {
		t.Errorf("got %+v", got)
	}
}
