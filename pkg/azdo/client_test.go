package azdo

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testFactory(t *testing.T, handler http.Handler) *Factory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{Organization: "testorg", Endpoint: srv.URL, PAT: "test-pat"}
	cred, err := NewCredentialProvider(cfg.PAT)
	if err != nil {
		t.Fatalf("NewCredentialProvider() error = %v", err)
	}
	return NewFactory(cfg, cred)
}

func TestClient_RequestHeaders(t *testing.T) {
	var gotReq *http.Request
	factory := testFactory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		w.Write([]byte(`{}`))
	}))

	client, err := factory.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	var out map[string]any
	if err := client.Get(context.Background(), client.OrgURL("/_apis/projects", nil), &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte(":test-pat"))
	if got := gotReq.Header.Get("Authorization"); got != wantAuth {
		t.Errorf("Authorization = %q, want %q", got, wantAuth)
	}
	if got := gotReq.Header.Get("User-Agent"); !strings.HasPrefix(got, "azdo-mcp/") {
		t.Errorf("User-Agent = %q, want azdo-mcp/<version> prefix", got)
	}
	if gotReq.Header.Get("X-TFS-Session") == "" {
		t.Error("X-TFS-Session header not set")
	}
	if got := gotReq.URL.Query().Get("api-version"); got != APIVersion {
		t.Errorf("api-version = %q, want %q", got, APIVersion)
	}
}

func TestClient_APIVersionOverride(t *testing.T) {
	var gotVersion string
	factory := testFactory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.URL.Query().Get("api-version")
		w.Write([]byte(`{}`))
	}))

	client, err := factory.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	query := url.Values{"api-version": {"7.1-preview.4"}}
	if err := client.Get(context.Background(), client.OrgURL("/_apis/wit/comments", query), nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotVersion != "7.1-preview.4" {
		t.Errorf("api-version = %q, want the caller's override", gotVersion)
	}
}

func TestClient_APIError(t *testing.T) {
	factory := testFactory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "TF401232: thread 99 does not exist"}`))
	}))

	client, err := factory.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	err = client.Get(context.Background(), client.OrgURL("/_apis/projects", nil), nil)
	if err == nil {
		t.Fatal("Expected error for 404 response, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "TF401232") {
		t.Errorf("Message = %q, want the service diagnostic", apiErr.Message)
	}
}

func TestClient_APIErrorRawBody(t *testing.T) {
	factory := testFactory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))

	client, err := factory.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	err = client.Get(context.Background(), client.OrgURL("/_apis/projects", nil), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("Message = %q, want raw body fallback", apiErr.Message)
	}
}

// countingCredential records how often credentials are resolved.
type countingCredential struct {
	calls int
}

func (c *countingCredential) Authorization(ctx context.Context) (string, error) {
	c.calls++
	return "Basic dGVzdA==", nil
}

func TestFactory_ResolvesCredentialsPerConnection(t *testing.T) {
	cred := &countingCredential{}
	factory := NewFactory(Config{Organization: "testorg"}, cred)

	for i := 0; i < 2; i++ {
		if _, err := factory.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	}
	if cred.calls != 2 {
		t.Errorf("credential resolutions = %d, want 2 (one per connection)", cred.calls)
	}
}

func TestFactory_CredentialFailurePropagates(t *testing.T) {
	factory := NewFactory(Config{Organization: "testorg"}, failingCredential{})
	if _, err := factory.Connect(context.Background()); err == nil {
		t.Error("Expected error when credential resolution fails, got nil")
	}
}

type failingCredential struct{}

func (failingCredential) Authorization(ctx context.Context) (string, error) {
	return "", errors.New("no ambient identity")
}

func TestClient_AuthenticatedUserID(t *testing.T) {
	factory := testFactory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/_apis/connectionData") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"authenticatedUser": {"id": "7f3a-user-guid", "providerDisplayName": "Test User"}}`))
	}))

	client, err := factory.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	id, err := client.AuthenticatedUserID(context.Background())
	if err != nil {
		t.Fatalf("AuthenticatedUserID() error = %v", err)
	}
	if id != "7f3a-user-guid" {
		t.Errorf("AuthenticatedUserID() = %q, want %q", id, "7f3a-user-guid")
	}
}

func TestClient_AuthenticatedUserID_Empty(t *testing.T) {
	factory := testFactory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"authenticatedUser": {}}`))
	}))

	client, err := factory.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if _, err := client.AuthenticatedUserID(context.Background()); err == nil {
		t.Error("Expected error for connection data without a user id, got nil")
	}
}
