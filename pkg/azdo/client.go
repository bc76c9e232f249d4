package azdo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// APIVersion is the Azure DevOps REST API version requested by default.
// Individual calls may override it, e.g. for -preview endpoints.
const APIVersion = "7.1"

// contentTypeJSON and contentTypeJSONPatch are the two payload encodings the
// service accepts; work item create/update requires the json-patch variant.
const (
	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"
)

// APIError is a remote rejection: any response with status >= 400. Message
// carries the service's own diagnostic when one was parseable.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Client is an authenticated handle bound to one organization. It owns no
// long-lived state beyond the underlying HTTP client; construct a fresh one
// per tool invocation via Factory.Connect.
type Client struct {
	cfg           Config
	authorization string
	sessionID     string
	httpClient    *http.Client
}

// Factory lazily constructs connection handles. Credentials are re-resolved
// on every Connect call; see CredentialProvider.
type Factory struct {
	cfg  Config
	cred CredentialProvider
}

// NewFactory binds a configuration and credential provider into a connection
// factory shared (read-only) by all registrars.
func NewFactory(cfg Config, cred CredentialProvider) *Factory {
	return &Factory{cfg: cfg, cred: cred}
}

// Connect resolves credentials and returns a fresh client. A credential
// failure surfaces immediately; there is no retry at this layer.
func (f *Factory) Connect(ctx context.Context) (*Client, error) {
	authorization, err := f.cred.Authorization(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:           f.cfg,
		authorization: authorization,
		sessionID:     uuid.NewString(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Config returns the configuration the client was constructed with.
func (c *Client) Config() Config {
	return c.cfg
}

// userAgent identifies product, version and platform to the remote side.
func userAgent() string {
	return fmt.Sprintf("azdo-mcp/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// endpoint joins a base URL and path and applies query parameters, filling
// in the default api-version when the caller did not set one.
func endpoint(base, path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("api-version") == "" {
		query.Set("api-version", APIVersion)
	}
	return base + path + "?" + query.Encode()
}

// OrgURL builds a URL under the organization root, e.g. /_apis/projects.
func (c *Client) OrgURL(path string, query url.Values) string {
	return endpoint(c.cfg.BaseURL(), path, query)
}

// ProjectURL builds a URL under a project, e.g. /<project>/_apis/git/repositories.
func (c *Client) ProjectURL(project, path string, query url.Values) string {
	return endpoint(c.cfg.BaseURL()+"/"+url.PathEscape(project), path, query)
}

// TeamURL builds a URL under a team, e.g. /<project>/<team>/_apis/work/teamsettings.
func (c *Client) TeamURL(project, team, path string, query url.Values) string {
	return endpoint(c.cfg.BaseURL()+"/"+url.PathEscape(project)+"/"+url.PathEscape(team), path, query)
}

// SearchURL builds a URL on the search host for a project.
func (c *Client) SearchURL(project, path string, query url.Values) string {
	return endpoint(c.cfg.SearchBaseURL()+"/"+url.PathEscape(project), path, query)
}

// ReleaseURL builds a URL on the release management host for a project.
func (c *Client) ReleaseURL(project, path string, query url.Values) string {
	return endpoint(c.cfg.ReleaseBaseURL()+"/"+url.PathEscape(project), path, query)
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, rawURL string, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, contentTypeJSON, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, rawURL string, body, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, body, contentTypeJSON, out)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, rawURL string, body, out any) error {
	return c.do(ctx, http.MethodPut, rawURL, body, contentTypeJSON, out)
}

// Patch issues a PATCH with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, rawURL string, body, out any) error {
	return c.do(ctx, http.MethodPatch, rawURL, body, contentTypeJSON, out)
}

// PostPatchDocument issues a POST with a json-patch+json body (work item creation).
func (c *Client) PostPatchDocument(ctx context.Context, rawURL string, patches, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, patches, contentTypeJSONPatch, out)
}

// PatchDocument issues a PATCH with a json-patch+json body (work item update).
func (c *Client) PatchDocument(ctx context.Context, rawURL string, patches, out any) error {
	return c.do(ctx, http.MethodPatch, rawURL, patches, contentTypeJSONPatch, out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, contentType string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authorization)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("X-TFS-Session", c.sessionID)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: serviceMessage(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// serviceMessage extracts the service's "message" field from an error body,
// falling back to the raw body when it is not the usual JSON shape.
func serviceMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(body)
}

// connectionData is the subset of the connection data document needed for
// identity resolution.
type connectionData struct {
	AuthenticatedUser struct {
		ID          string `json:"id"`
		DisplayName string `json:"providerDisplayName"`
	} `json:"authenticatedUser"`
}

// AuthenticatedUserID resolves the caller's own identity GUID. Tools that
// filter by "created by me" or "I am reviewer" must call this before issuing
// their primary query, since the query criteria depend on the result.
func (c *Client) AuthenticatedUserID(ctx context.Context) (string, error) {
	var data connectionData
	if err := c.Get(ctx, c.OrgURL("/_apis/connectionData", nil), &data); err != nil {
		return "", fmt.Errorf("failed to resolve authenticated user: %w", err)
	}
	if data.AuthenticatedUser.ID == "" {
		return "", fmt.Errorf("connection data did not include an authenticated user")
	}
	return data.AuthenticatedUser.ID, nil
}
