package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func registerBuildTools(r *Registry) {
	register(r, "build_get_definitions", "list build definitions",
		"List the build (pipeline) definitions of a project.",
		getBuildDefinitions)
	register(r, "build_get_builds", "list builds",
		"List builds of a project, optionally filtered by definition, branch, or status.",
		getBuilds)
	register(r, "build_get_build_by_id", "get build",
		"Get a build by id.",
		getBuildByID)
	register(r, "build_run_build", "run build",
		"Queue a new build for a definition, optionally on a specific source branch.",
		runBuild)
}

type getBuildDefinitionsArgs struct {
	Project string `json:"project"`
	Name    string `json:"name,omitempty"` // definition name filter, supports trailing *
	Top     int    `json:"top,omitempty"`
}

type buildDefinitionSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Type string `json:"type,omitempty"`
}

func getBuildDefinitions(ctx context.Context, connect Connector, args getBuildDefinitionsArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.Name != "" {
		query.Set("name", args.Name)
	}
	if args.Top > 0 {
		query.Set("$top", strconv.Itoa(args.Top))
	}

	var result listResult[buildDefinitionSummary]
	if err := client.Get(ctx, client.ProjectURL(args.Project, "/_apis/build/definitions", query), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no build definitions found in project %q", args.Project)
	}
	return asJSON(result.Value)
}

type getBuildsArgs struct {
	Project      string `json:"project"`
	DefinitionID int    `json:"definitionId,omitempty"`
	Branch       string `json:"branch,omitempty"`
	Status       string `json:"status,omitempty"` // inProgress, completed, cancelling, postponed, notStarted, all
	Top          int    `json:"top,omitempty"`
}

type buildSummary struct {
	ID           int         `json:"id"`
	BuildNumber  string      `json:"buildNumber"`
	Status       string      `json:"status"`
	Result       string      `json:"result,omitempty"`
	SourceBranch string      `json:"sourceBranch,omitempty"`
	RequestedFor identityRef `json:"requestedFor"`
	StartTime    string      `json:"startTime,omitempty"`
	FinishTime   string      `json:"finishTime,omitempty"`
	Definition   struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"definition"`
}

func getBuilds(ctx context.Context, connect Connector, args getBuildsArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.DefinitionID > 0 {
		query.Set("definitions", strconv.Itoa(args.DefinitionID))
	}
	if args.Branch != "" {
		query.Set("branchName", ensureRefPrefix(args.Branch))
	}
	if args.Status != "" {
		query.Set("statusFilter", args.Status)
	}
	top := args.Top
	if top <= 0 {
		top = 25
	}
	query.Set("$top", strconv.Itoa(top))

	var result listResult[buildSummary]
	if err := client.Get(ctx, client.ProjectURL(args.Project, "/_apis/build/builds", query), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no builds found in project %q", args.Project)
	}
	return asJSON(result.Value)
}

type getBuildByIDArgs struct {
	Project string `json:"project"`
	BuildID int    `json:"buildId"`
}

func getBuildByID(ctx context.Context, connect Connector, args getBuildByIDArgs) (string, error) {
	if args.Project == "" || args.BuildID <= 0 {
		return "", fmt.Errorf("project and buildId are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var build buildSummary
	endpoint := client.ProjectURL(args.Project, "/_apis/build/builds/"+strconv.Itoa(args.BuildID), nil)
	if err := client.Get(ctx, endpoint, &build); err != nil {
		return "", err
	}
	return asJSON(build)
}

type runBuildArgs struct {
	Project      string `json:"project"`
	DefinitionID int    `json:"definitionId"`
	Branch       string `json:"branch,omitempty"`
	Parameters   string `json:"parameters,omitempty"` // JSON object of build variables
}

func runBuild(ctx context.Context, connect Connector, args runBuildArgs) (string, error) {
	if args.Project == "" || args.DefinitionID <= 0 {
		return "", fmt.Errorf("project and definitionId are required")
	}
	if args.Parameters != "" && !strings.HasPrefix(strings.TrimSpace(args.Parameters), "{") {
		return "", fmt.Errorf("parameters must be a JSON object string")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"definition": map[string]int{"id": args.DefinitionID},
	}
	if args.Branch != "" {
		body["sourceBranch"] = ensureRefPrefix(args.Branch)
	}
	if args.Parameters != "" {
		body["parameters"] = args.Parameters
	}

	var build buildSummary
	if err := client.Post(ctx, client.ProjectURL(args.Project, "/_apis/build/builds", nil), body, &build); err != nil {
		return "", err
	}
	return asJSON(build)
}
