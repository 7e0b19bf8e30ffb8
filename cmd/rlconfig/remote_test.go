package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := RemotesConfig{
		Active: "prod",
		Remotes: map[string]Remote{
			"prod":  {URL: "https://api.runelite.net", Session: "0b0d6d4e-sess", NATSURL: "nats://prod:4222"},
			"local": {URL: "http://localhost:8080"},
		},
	}
	if err := saveRemotesConfig(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active != "prod" {
		t.Errorf("Active = %q, want %q", got.Active, "prod")
	}
	if got.Remotes["prod"] != in.Remotes["prod"] {
		t.Errorf("prod remote = %+v", got.Remotes["prod"])
	}
	if got.Remotes["local"].URL != "http://localhost:8080" {
		t.Errorf("local remote = %+v", got.Remotes["local"])
	}
}

func TestLoadRemotesConfig_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Active != "" || len(cfg.Remotes) != 0 || cfg.Remotes == nil {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadRemotesConfig_Malformed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := remoteConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("active = [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRemotesConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveRemotesConfig_Permissions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := saveRemotesConfig(RemotesConfig{Remotes: map[string]Remote{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := remoteConfigPath()
	check := func(p string, want os.FileMode) {
		t.Helper()
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s permissions = %04o, want %04o", p, got, want)
		}
	}
	check(path, 0o600)
	check(filepath.Dir(path), 0o700)
}

func TestRemoteLifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	for _, c := range remoteCmd.Commands() {
		c.SetOut(&buf)
	}
	mustRun := func(fn func() error) {
		t.Helper()
		if err := fn(); err != nil {
			t.Fatal(err)
		}
	}

	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"local", "http://localhost:8080"}) })
	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"staging", "https://staging.example"}) })
	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"local", "http://localhost:8080"}) }) // upsert
	mustRun(func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"local"}) })

	cfg, _ := loadRemotesConfig()
	if cfg.Active != "local" || len(cfg.Remotes) != 2 {
		t.Fatalf("config = %+v", cfg)
	}

	buf.Reset()
	mustRun(func() error { return remoteListCmd.RunE(remoteListCmd, nil) })
	out := buf.String()
	if !strings.Contains(out, "* local") {
		t.Errorf("list missing active marker; got:\n%s", out)
	}
	if strings.Index(out, "local") > strings.Index(out, "staging") {
		t.Errorf("list not sorted by name; got:\n%s", out)
	}

	buf.Reset()
	mustRun(func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) })
	out = buf.String()
	if !strings.Contains(out, "localhost:8080") || !strings.Contains(out, "(active)") {
		t.Errorf("show missing expected content; got:\n%s", out)
	}

	mustRun(func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"local"}) })
	cfg, _ = loadRemotesConfig()
	if _, ok := cfg.Remotes["local"]; ok {
		t.Error("remote 'local' should be gone")
	}
	if cfg.Active != "" {
		t.Errorf("Active should be cleared, got %q", cfg.Active)
	}

	mustRun(func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"staging"}) })
	mustRun(func() error { return remoteUseCmd.RunE(remoteUseCmd, nil) })
	if cfg, _ = loadRemotesConfig(); cfg.Active != "" {
		t.Errorf("use without args should clear active, got %q", cfg.Active)
	}
}

func TestRemoteSessionMasking(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	const session = "5f0c2a3e-7b1d-4e8a-9c6f-2d4b8e1a0c3f"
	if err := remoteAddCmd.Flags().Set("session", session); err != nil {
		t.Fatalf("set session flag: %v", err)
	}
	t.Cleanup(func() { _ = remoteAddCmd.Flags().Set("session", "") })

	var buf bytes.Buffer
	remoteAddCmd.SetOut(&buf)
	remoteUseCmd.SetOut(&buf)
	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"prod", "https://api.runelite.net"}); err != nil {
		t.Fatal(err)
	}
	if err := remoteUseCmd.RunE(remoteUseCmd, []string{"prod"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	remoteListCmd.SetOut(&buf)
	if err := remoteListCmd.RunE(remoteListCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), session) {
		t.Error("full session must not appear in list output")
	}
	if !strings.Contains(buf.String(), "5f0c2a3e...") {
		t.Errorf("expected truncated session in list; got:\n%s", buf.String())
	}

	buf.Reset()
	remoteShowCmd.SetOut(&buf)
	if err := remoteShowCmd.RunE(remoteShowCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), session) {
		t.Error("full session must not appear in show output")
	}
	if !strings.Contains(buf.String(), maskSession(session)) {
		t.Errorf("expected masked session in show; got:\n%s", buf.String())
	}
}

func TestMaskSession(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"short", "short"},
		{"12345678", "12345678"},
		{"123456789abc", "12345678****"},
	}
	for _, tt := range tests {
		if got := maskSession(tt.in); got != tt.want {
			t.Errorf("maskSession(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRemoteErrorCases(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"use unknown", func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"ghost"}) }},
		{"remove unknown", func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"ghost"}) }},
		{"show no active", func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) }},
		{"show unknown", func() error { return remoteShowCmd.RunE(remoteShowCmd, []string{"ghost"}) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if err := tc.fn(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestRemotesConfigMethods(t *testing.T) {
	cfg := RemotesConfig{Remotes: map[string]Remote{
		"b": {URL: "http://b"},
		"a": {URL: "http://a"},
	}}
	if got := cfg.names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("names = %v", got)
	}

	if _, _, err := cfg.lookup(""); err == nil {
		t.Error("lookup without an active remote should fail")
	}
	if err := cfg.use("c"); err == nil {
		t.Error("use of unknown remote should fail")
	}
	if err := cfg.use("b"); err != nil {
		t.Fatal(err)
	}
	name, r, err := cfg.lookup("")
	if err != nil || name != "b" || r.URL != "http://b" {
		t.Errorf("lookup active = %q, %+v, %v", name, r, err)
	}

	if err := cfg.remove("b"); err != nil {
		t.Fatal(err)
	}
	if cfg.Active != "" {
		t.Errorf("removing the active remote should clear it, got %q", cfg.Active)
	}
	if err := cfg.remove("b"); err == nil {
		t.Error("second remove should fail")
	}
}
