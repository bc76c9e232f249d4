package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/joshcarp/azdo-mcp/pkg/azdo"
)

func registerWorkItemTools(r *Registry) {
	register(r, "wit_get_work_item", "get work item",
		"Get a single work item by id. Optionally restrict the returned fields.",
		getWorkItem)
	register(r, "wit_get_work_items_batch", "get work items batch",
		"Get several work items by id in one call. Results come back in the requested order.",
		getWorkItemsBatch)
	register(r, "wit_create_work_item", "create work item",
		"Create a work item (Bug, Task, User Story, Feature, Epic) in a project.",
		createWorkItem)
	register(r, "wit_update_work_item", "update work item",
		"Update fields of an existing work item. At least one field must be given.",
		updateWorkItem)
	register(r, "wit_add_work_item_comment", "add work item comment",
		"Add a comment to a work item.",
		addWorkItemComment)
	register(r, "wit_my_work_items", "list my work items",
		"List work items assigned to the authenticated user in a project.",
		myWorkItems)
}

// workItem is the reduced projection returned by the work item tools. The
// service's internal revision counter is intentionally dropped to keep the
// output stable across unrelated edits.
type workItem struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
	URL    string         `json:"url,omitempty"`
}

type getWorkItemArgs struct {
	Project string   `json:"project"`
	ID      int      `json:"id"`
	Fields  []string `json:"fields,omitempty"`
}

func getWorkItem(ctx context.Context, connect Connector, args getWorkItemArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}
	if args.ID <= 0 {
		return "", fmt.Errorf("id is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if len(args.Fields) > 0 {
		query.Set("fields", strings.Join(args.Fields, ","))
	} else {
		query.Set("$expand", "relations")
	}

	var item workItem
	endpoint := client.ProjectURL(args.Project, "/_apis/wit/workitems/"+strconv.Itoa(args.ID), query)
	if err := client.Get(ctx, endpoint, &item); err != nil {
		return "", err
	}
	return asJSON(item)
}

type getWorkItemsBatchArgs struct {
	Project string   `json:"project"`
	IDs     []int    `json:"ids"`
	Fields  []string `json:"fields,omitempty"`
}

func getWorkItemsBatch(ctx context.Context, connect Connector, args getWorkItemsBatchArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}
	if len(args.IDs) == 0 {
		return "", fmt.Errorf("at least one id is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	items, err := fetchWorkItemsBatch(ctx, client, args.Project, args.IDs, args.Fields)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", fmt.Errorf("no work items found for the given ids")
	}
	return asJSON(items)
}

// fetchWorkItemsBatch fetches reduced work item projections for a fixed id
// list; the service preserves the requested order.
func fetchWorkItemsBatch(ctx context.Context, client *azdo.Client, project string, ids []int, fields []string) ([]workItem, error) {
	body := map[string]any{"ids": ids}
	if len(fields) > 0 {
		body["fields"] = fields
	} else {
		body["fields"] = []string{
			"System.Id", "System.Title", "System.WorkItemType",
			"System.State", "System.AssignedTo", "System.Tags",
		}
	}

	var result listResult[workItem]
	endpoint := client.ProjectURL(project, "/_apis/wit/workitemsbatch", nil)
	if err := client.Post(ctx, endpoint, body, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

type createWorkItemArgs struct {
	Project     string `json:"project"`
	Type        string `json:"type"` // Bug, Task, User Story, Feature, Epic
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssignedTo  string `json:"assignedTo,omitempty"`
	AreaPath    string `json:"areaPath,omitempty"`
	Iteration   string `json:"iterationPath,omitempty"`
	Priority    int    `json:"priority,omitempty"` // 1-4
	Tags        string `json:"tags,omitempty"`     // semicolon separated
}

// patchOp is one entry of a json-patch document.
type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func addField(patches []patchOp, field string, value any) []patchOp {
	return append(patches, patchOp{Op: "add", Path: "/fields/" + field, Value: value})
}

func createWorkItem(ctx context.Context, connect Connector, args createWorkItemArgs) (string, error) {
	if args.Project == "" || args.Type == "" || args.Title == "" {
		return "", fmt.Errorf("project, type, and title are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	patches := addField(nil, "System.Title", args.Title)
	if args.Description != "" {
		patches = addField(patches, "System.Description", args.Description)
	}
	if args.AssignedTo != "" {
		patches = addField(patches, "System.AssignedTo", args.AssignedTo)
	}
	if args.AreaPath != "" {
		patches = addField(patches, "System.AreaPath", args.AreaPath)
	}
	if args.Iteration != "" {
		patches = addField(patches, "System.IterationPath", args.Iteration)
	}
	if args.Priority > 0 {
		patches = addField(patches, "Microsoft.VSTS.Common.Priority", args.Priority)
	}
	if args.Tags != "" {
		patches = addField(patches, "System.Tags", args.Tags)
	}

	var item workItem
	endpoint := client.ProjectURL(args.Project, "/_apis/wit/workitems/$"+url.PathEscape(args.Type), nil)
	if err := client.PostPatchDocument(ctx, endpoint, patches, &item); err != nil {
		return "", err
	}
	return asJSON(item)
}

type updateWorkItemArgs struct {
	ID          int    `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	AssignedTo  string `json:"assignedTo,omitempty"`
	State       string `json:"state,omitempty"`
	Iteration   string `json:"iterationPath,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

func updateWorkItem(ctx context.Context, connect Connector, args updateWorkItemArgs) (string, error) {
	if args.ID <= 0 {
		return "", fmt.Errorf("id is required")
	}

	var patches []patchOp
	if args.Title != "" {
		patches = addField(patches, "System.Title", args.Title)
	}
	if args.Description != "" {
		patches = addField(patches, "System.Description", args.Description)
	}
	if args.AssignedTo != "" {
		patches = addField(patches, "System.AssignedTo", args.AssignedTo)
	}
	if args.State != "" {
		patches = addField(patches, "System.State", args.State)
	}
	if args.Iteration != "" {
		patches = addField(patches, "System.IterationPath", args.Iteration)
	}
	if args.Priority > 0 {
		patches = addField(patches, "Microsoft.VSTS.Common.Priority", args.Priority)
	}
	if args.Tags != "" {
		patches = addField(patches, "System.Tags", args.Tags)
	}
	if len(patches) == 0 {
		return "", fmt.Errorf("at least one field to update is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var item workItem
	endpoint := client.OrgURL("/_apis/wit/workitems/"+strconv.Itoa(args.ID), nil)
	if err := client.PatchDocument(ctx, endpoint, patches, &item); err != nil {
		return "", err
	}
	return asJSON(item)
}

type addWorkItemCommentArgs struct {
	Project string `json:"project"`
	ID      int    `json:"id"`
	Text    string `json:"text"`
}

type workItemComment struct {
	ID        int         `json:"id"`
	Text      string      `json:"text"`
	CreatedBy identityRef `json:"createdBy"`
}

func addWorkItemComment(ctx context.Context, connect Connector, args addWorkItemCommentArgs) (string, error) {
	if args.Project == "" || args.ID <= 0 || args.Text == "" {
		return "", fmt.Errorf("project, id, and text are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	// Comments are still a preview surface in 7.1.
	query := url.Values{}
	query.Set("api-version", "7.1-preview.4")

	var comment workItemComment
	endpoint := client.ProjectURL(args.Project, "/_apis/wit/workItems/"+strconv.Itoa(args.ID)+"/comments", query)
	if err := client.Post(ctx, endpoint, map[string]string{"text": args.Text}, &comment); err != nil {
		return "", err
	}
	return asJSON(comment)
}

type myWorkItemsArgs struct {
	Project string `json:"project"`
	Type    string `json:"type,omitempty"`  // Bug, Task, ...
	State   string `json:"state,omitempty"` // New, Active, ...
	Top     int    `json:"top,omitempty"`
}

func myWorkItems(ctx context.Context, connect Connector, args myWorkItemsArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	wiql := fmt.Sprintf("SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' AND [System.AssignedTo] = @Me", args.Project)
	if args.Type != "" {
		wiql += fmt.Sprintf(" AND [System.WorkItemType] = '%s'", args.Type)
	}
	if args.State != "" {
		wiql += fmt.Sprintf(" AND [System.State] = '%s'", args.State)
	}
	wiql += " ORDER BY [System.ChangedDate] DESC"

	top := args.Top
	if top <= 0 {
		top = 50
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(top))

	var wiqlResult struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	endpoint := client.ProjectURL(args.Project, "/_apis/wit/wiql", query)
	if err := client.Post(ctx, endpoint, map[string]string{"query": wiql}, &wiqlResult); err != nil {
		return "", err
	}
	if len(wiqlResult.WorkItems) == 0 {
		return "", fmt.Errorf("no work items assigned to you in project %q", args.Project)
	}

	ids := make([]int, 0, len(wiqlResult.WorkItems))
	for _, wi := range wiqlResult.WorkItems {
		ids = append(ids, wi.ID)
	}

	items, err := fetchWorkItemsBatch(ctx, client, args.Project, ids, nil)
	if err != nil {
		return "", err
	}
	return asJSON(items)
}
