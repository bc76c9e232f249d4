package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestSearchCode_RequestBodyAndProjection(t *testing.T) {
	var body map[string]any
	var path string
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"count": 1, "results": [{"fileName": "main.go", "path": "/cmd/main.go", "repository": {"name": "svc"}}]}`)
	}))

	out, err := searchCode(context.Background(), connect, searchArgs{Project: "P", SearchText: "TODO"})
	if err != nil {
		t.Fatalf("searchCode() error = %v", err)
	}

	if !strings.HasSuffix(path, "/_apis/search/codesearchresults") {
		t.Errorf("path = %q, want the code search endpoint", path)
	}
	if body["searchText"] != "TODO" {
		t.Errorf("searchText = %v, want TODO", body["searchText"])
	}
	if body["$top"] != float64(25) {
		t.Errorf("$top = %v, want the default of 25", body["$top"])
	}
	if !strings.Contains(out, "main.go") || !strings.Contains(out, "svc") {
		t.Errorf("output missing result fields: %s", out)
	}
}

func TestSearch_EmptyResults(t *testing.T) {
	tests := []struct {
		name string
		run  func(ctx context.Context, connect Connector, args searchArgs) (string, error)
		want string
	}{
		{"code", searchCode, "no code results"},
		{"wiki", searchWiki, "no wiki results"},
		{"workitem", searchWorkItems, "no work item results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"count": 0, "results": []}`)
			}))
			_, err := tt.run(context.Background(), connect, searchArgs{Project: "P", SearchText: "nothing"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestSearch_Validation(t *testing.T) {
	counter := &countingConnector{}
	if _, err := searchWiki(context.Background(), counter.connect, searchArgs{Project: "P"}); err == nil {
		t.Error("Expected error for missing searchText, got nil")
	}
	if _, err := searchWiki(context.Background(), counter.connect, searchArgs{SearchText: "x"}); err == nil {
		t.Error("Expected error for missing project, got nil")
	}
	if counter.calls != 0 {
		t.Errorf("connections attempted = %d, want 0", counter.calls)
	}
}
