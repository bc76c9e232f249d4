package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestGetWorkItem_DropsRevisionCounter(t *testing.T) {
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 12, "rev": 7, "fields": {"System.Title": "Crash on save", "System.State": "Active"}}`)
	}))

	out, err := getWorkItem(context.Background(), connect, getWorkItemArgs{Project: "P", ID: 12})
	if err != nil {
		t.Fatalf("getWorkItem() error = %v", err)
	}
	if strings.Contains(out, `"rev"`) {
		t.Errorf("output contains the internal revision counter: %s", out)
	}
	if !strings.Contains(out, "Crash on save") {
		t.Errorf("output missing fields: %s", out)
	}
}

func TestCreateWorkItem_PatchDocument(t *testing.T) {
	var contentType string
	var patches []patchOp

	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&patches); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"id": 100, "fields": {"System.Title": "New bug"}}`)
	}))

	args := createWorkItemArgs{Project: "P", Type: "Bug", Title: "New bug", Priority: 2}
	if _, err := createWorkItem(context.Background(), connect, args); err != nil {
		t.Fatalf("createWorkItem() error = %v", err)
	}

	if contentType != "application/json-patch+json" {
		t.Errorf("Content-Type = %q, want json-patch", contentType)
	}
	if len(patches) != 2 {
		t.Fatalf("patch ops = %d, want 2", len(patches))
	}
	if patches[0].Path != "/fields/System.Title" || patches[0].Value != "New bug" {
		t.Errorf("first op = %+v, want the title field", patches[0])
	}
	if patches[1].Path != "/fields/Microsoft.VSTS.Common.Priority" {
		t.Errorf("second op = %+v, want the priority field", patches[1])
	}
}

func TestUpdateWorkItem_RequiresAField(t *testing.T) {
	counter := &countingConnector{}
	_, err := updateWorkItem(context.Background(), counter.connect, updateWorkItemArgs{ID: 9})
	if err == nil {
		t.Fatal("Expected error for update with no fields, got nil")
	}
	if counter.calls != 0 {
		t.Errorf("connections attempted = %d, want 0", counter.calls)
	}
}

func TestGetWorkItemsBatch_PreservesOrder(t *testing.T) {
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []int `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		out := `{"count": %d, "value": [`
		parts := make([]string, len(body.IDs))
		for i, id := range body.IDs {
			parts[i] = fmt.Sprintf(`{"id": %d, "fields": {"System.Id": %d}}`, id, id)
		}
		fmt.Fprintf(w, out+strings.Join(parts, ",")+`]}`, len(body.IDs))
	}))

	args := getWorkItemsBatchArgs{Project: "P", IDs: []int{5, 3, 9}}
	out, err := getWorkItemsBatch(context.Background(), connect, args)
	if err != nil {
		t.Fatalf("getWorkItemsBatch() error = %v", err)
	}

	var items []workItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("output is not a JSON list: %v", err)
	}
	if len(items) != 3 || items[0].ID != 5 || items[1].ID != 3 || items[2].ID != 9 {
		t.Errorf("items = %v, want ids in requested order [5 3 9]", items)
	}
}

func TestMyWorkItems_QueryThenBatch(t *testing.T) {
	var calls []string
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/wiql"):
			calls = append(calls, "wiql")
			var body struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if !strings.Contains(body.Query, "@Me") {
				t.Errorf("query = %q, want @Me filter", body.Query)
			}
			fmt.Fprint(w, `{"workItems": [{"id": 4}, {"id": 8}]}`)
		case strings.Contains(r.URL.Path, "/workitemsbatch"):
			calls = append(calls, "batch")
			fmt.Fprint(w, `{"count": 2, "value": [{"id": 4, "fields": {}}, {"id": 8, "fields": {}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))

	out, err := myWorkItems(context.Background(), connect, myWorkItemsArgs{Project: "P"})
	if err != nil {
		t.Fatalf("myWorkItems() error = %v", err)
	}
	if len(calls) != 2 || calls[0] != "wiql" || calls[1] != "batch" {
		t.Errorf("call order = %v, want [wiql batch]", calls)
	}
	if !strings.Contains(out, `"id": 4`) {
		t.Errorf("output missing work items: %s", out)
	}
}

func TestMyWorkItems_Empty(t *testing.T) {
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"workItems": []}`)
	}))

	_, err := myWorkItems(context.Background(), connect, myWorkItemsArgs{Project: "P"})
	if err == nil || !strings.Contains(err.Error(), "no work items") {
		t.Errorf("error = %v, want a descriptive not-found message", err)
	}
}

func TestAddWorkItemComment_PreviewAPIVersion(t *testing.T) {
	var apiVersion string
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiVersion = r.URL.Query().Get("api-version")
		fmt.Fprint(w, `{"id": 1, "text": "done"}`)
	}))

	args := addWorkItemCommentArgs{Project: "P", ID: 12, Text: "done"}
	if _, err := addWorkItemComment(context.Background(), connect, args); err != nil {
		t.Fatalf("addWorkItemComment() error = %v", err)
	}
	if apiVersion != "7.1-preview.4" {
		t.Errorf("api-version = %q, want the preview version", apiVersion)
	}
}
