package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/runelite/api.runelite.net/internal/auth"
	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/server"
	"github.com/runelite/api.runelite.net/internal/settings"
	"github.com/runelite/api.runelite.net/internal/store/memory"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	method      string
	path        string
	body        string
	contentType string
	auth        string

	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", "session-1")
}

func TestHTTPClient_RenameSendsRawBody(t *testing.T) {
	h := &testHandler{}
	c := newTestClient(t, h)

	if err := c.RenameProfile(context.Background(), 5, "pvm gear"); err != nil {
		t.Fatalf("RenameProfile: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/config/v3/5/name" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.body != "pvm gear" {
		t.Errorf("body = %q", h.body)
	}
	if h.contentType != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", h.contentType)
	}
	if h.auth != "Bearer session-1" {
		t.Errorf("auth = %q", h.auth)
	}
}

func TestHTTPClient_PatchProfileFailuresAreNotErrors(t *testing.T) {
	h := &testHandler{statusCode: http.StatusBadRequest, responseBody: `{"rev":4,"failures":["_x.y"]}`}
	c := newTestClient(t, h)

	p := &model.Patch{Edit: model.Edits{{Key: "_x.y", Value: "1"}}}
	res, err := c.PatchProfile(context.Background(), model.ProfileRsProfile, p)
	if err != nil {
		t.Fatalf("PatchProfile: %v", err)
	}
	if h.path != "/config/v3/-1" || h.method != http.MethodPatch {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.body != `{"edit":{"_x.y":"1"},"unset":null}` {
		t.Errorf("body = %s", h.body)
	}
	if res.Rev == nil || *res.Rev != 4 || !reflect.DeepEqual(res.Failures, []string{"_x.y"}) {
		t.Errorf("result = %+v", res)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"JSONError", http.StatusNotFound, `{"error":"profile not found"}`, "profile not found"},
		{"PlainError", http.StatusBadGateway, "upstream down\n", "upstream down"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, &testHandler{statusCode: tc.status, responseBody: tc.body})
			err := c.DeleteProfile(context.Background(), 3)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Message != tc.want {
				t.Errorf("APIError = %+v", apiErr)
			}
			if IsNotFound(err) != (tc.status == http.StatusNotFound) {
				t.Errorf("IsNotFound = %v", IsNotFound(err))
			}
		})
	}
}

func TestHTTPClient_PatchV2Success(t *testing.T) {
	c := newTestClient(t, &testHandler{})
	failures, err := c.PatchV2(context.Background(), &model.Patch{Unset: []string{"a.b"}})
	if err != nil {
		t.Fatalf("PatchV2: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("failures = %v", failures)
	}
}

// TestHTTPClient_AgainstServer exercises the client against the real
// handler and an in-memory store.
func TestHTTPClient_AgainstServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	table := auth.NewSessionTable()
	session := uuid.New()
	table.Add(session, 42)
	svc := settings.New(memory.New(), nil, logger)
	srv := httptest.NewServer(server.NewConfigServer(svc, table, logger, time.Second).NewHTTPHandler())
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, session.String())
	ctx := context.Background()

	status, err := c.Health(ctx)
	if err != nil || status != "ok" {
		t.Fatalf("Health = %q, %v", status, err)
	}

	res, err := c.PatchProfile(ctx, 5, &model.Patch{Edit: model.Edits{{Key: "combat.style", Value: "def"}}})
	if err != nil {
		t.Fatalf("PatchProfile: %v", err)
	}
	if res.Rev == nil || *res.Rev != 1 {
		t.Fatalf("rev = %v", res.Rev)
	}

	if err := c.RenameProfile(ctx, 5, "pvm"); err != nil {
		t.Fatalf("RenameProfile: %v", err)
	}
	profiles, err := c.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if !reflect.DeepEqual(profiles, []model.Profile{{ID: 5, Name: "pvm", Rev: 1}}) {
		t.Fatalf("profiles = %+v", profiles)
	}

	config, err := c.GetProfile(ctx, 5)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if config.Config["combat.style"] != "def" {
		t.Errorf("config = %v", config.Config)
	}

	if err := c.DeleteProfile(ctx, 5); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if err := c.DeleteProfile(ctx, 5); !IsNotFound(err) {
		t.Fatalf("second delete err = %v", err)
	}

	failures, err := c.PatchV2(ctx, &model.Patch{Edit: model.Edits{{Key: "movement.rsprofile.run", Value: "on"}, {Key: "nodot", Value: "x"}}})
	if err != nil {
		t.Fatalf("PatchV2: %v", err)
	}
	if !reflect.DeepEqual(failures, []string{"nodot"}) {
		t.Errorf("failures = %v", failures)
	}
	flat, err := c.GetV2(ctx)
	if err != nil {
		t.Fatalf("GetV2: %v", err)
	}
	if !reflect.DeepEqual(flat, map[string]string{"movement.rsprofile.run": "on"}) {
		t.Errorf("v2 = %v", flat)
	}

	bad := NewHTTPClient(srv.URL, uuid.NewString())
	if _, err := bad.ListProfiles(ctx); err == nil {
		t.Fatal("expected 401 for unknown session")
	}
}
