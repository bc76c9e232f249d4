package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

func registerCoreTools(r *Registry) {
	register(r, "core_list_projects", "list projects",
		"List projects in the Azure DevOps organization. Supports filtering by project state and paging with top/skip.",
		listProjects)
	register(r, "core_list_project_teams", "list teams",
		"List the teams of a project.",
		listProjectTeams)
}

type listProjectsArgs struct {
	State string `json:"state,omitempty"` // wellFormed, createPending, deleted, all
	Top   int    `json:"top,omitempty"`
	Skip  int    `json:"skip,omitempty"`
}

type projectSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	State       string `json:"state"`
	Visibility  string `json:"visibility,omitempty"`
}

func listProjects(ctx context.Context, connect Connector, args listProjectsArgs) (string, error) {
	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.State != "" {
		query.Set("stateFilter", args.State)
	}
	if args.Top > 0 {
		query.Set("$top", strconv.Itoa(args.Top))
	}
	if args.Skip > 0 {
		query.Set("$skip", strconv.Itoa(args.Skip))
	}

	var result listResult[projectSummary]
	if err := client.Get(ctx, client.OrgURL("/_apis/projects", query), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no projects found in organization %q", client.Config().Organization)
	}
	return asJSON(result.Value)
}

type listProjectTeamsArgs struct {
	Project string `json:"project"`
	Top     int    `json:"top,omitempty"`
	Skip    int    `json:"skip,omitempty"`
}

type teamSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func listProjectTeams(ctx context.Context, connect Connector, args listProjectTeamsArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.Top > 0 {
		query.Set("$top", strconv.Itoa(args.Top))
	}
	if args.Skip > 0 {
		query.Set("$skip", strconv.Itoa(args.Skip))
	}

	var result listResult[teamSummary]
	endpoint := client.OrgURL("/_apis/projects/"+url.PathEscape(args.Project)+"/teams", query)
	if err := client.Get(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no teams found for project %q", args.Project)
	}
	return asJSON(result.Value)
}
