package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/runelite/api.runelite.net/internal/model"
)

// HTTPClient implements ConfigClient over the HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	session    string
	httpClient *http.Client
}

// Compile-time check that HTTPClient implements ConfigClient.
var _ ConfigClient = (*HTTPClient)(nil)

// NewHTTPClient creates a client targeting baseURL (e.g.
// "http://localhost:8080"). session is sent as a Bearer token on every
// request.
func NewHTTPClient(baseURL, session string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func profilePath(id model.ProfileID) string {
	return "/config/v3/" + id.String()
}

// --- v3 ---

func (c *HTTPClient) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/config/v3/list", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, id model.ProfileID) (*model.Configuration, error) {
	var config model.Configuration
	if err := c.doJSON(ctx, http.MethodGet, profilePath(id), nil, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// PatchProfile applies patch. Rejected keys are reported in the result's
// Failures rather than as an error.
func (c *HTTPClient) PatchProfile(ctx context.Context, id model.ProfileID, patch *model.Patch) (*model.PatchResult, error) {
	var result model.PatchResult
	if err := c.doJSON(ctx, http.MethodPatch, profilePath(id), patch, &result, http.StatusBadRequest); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) RenameProfile(ctx context.Context, id model.ProfileID, name string) error {
	_, err := c.do(ctx, http.MethodPost, profilePath(id)+"/name", "text/plain; charset=utf-8", strings.NewReader(name))
	return err
}

func (c *HTTPClient) DeleteProfile(ctx context.Context, id model.ProfileID) error {
	return c.doJSON(ctx, http.MethodDelete, profilePath(id), nil, nil)
}

// --- v2 ---

func (c *HTTPClient) GetV2(ctx context.Context) (map[string]string, error) {
	config := map[string]string{}
	if err := c.doJSON(ctx, http.MethodGet, "/config/v2", nil, &config); err != nil {
		return nil, err
	}
	return config, nil
}

// PatchV2 applies patch to the aggregate view and returns the rejected keys.
func (c *HTTPClient) PatchV2(ctx context.Context, patch *model.Patch) ([]string, error) {
	var failures []string
	if err := c.doJSON(ctx, http.MethodPatch, "/config/v2", patch, &failures, http.StatusBadRequest); err != nil {
		return nil, err
	}
	return failures, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- helpers ---

// do performs a request and returns the response body. Status codes of
// 400 and above become an *APIError unless listed in accept.
func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader, accept ...int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.session != "" {
		req.Header.Set("Authorization", "Bearer "+c.session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 && !accepted(resp.StatusCode, accept) {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

// doJSON sends body as JSON and decodes a non-empty response into result.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, result any, accept ...int) error {
	var (
		bodyReader  io.Reader
		contentType string
	)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	respBody, err := c.do(ctx, method, path, contentType, bodyReader, accept...)
	if err != nil {
		return err
	}
	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
