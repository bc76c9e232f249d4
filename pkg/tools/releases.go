package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

func registerReleaseTools(r *Registry) {
	register(r, "release_get_definitions", "list release definitions",
		"List the release definitions of a project.",
		getReleaseDefinitions)
	register(r, "release_get_releases", "list releases",
		"List releases of a project, optionally filtered by definition.",
		getReleases)
}

type getReleaseDefinitionsArgs struct {
	Project    string `json:"project"`
	SearchText string `json:"searchText,omitempty"`
	Top        int    `json:"top,omitempty"`
}

type releaseDefinitionSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

func getReleaseDefinitions(ctx context.Context, connect Connector, args getReleaseDefinitionsArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.SearchText != "" {
		query.Set("searchText", args.SearchText)
	}
	if args.Top > 0 {
		query.Set("$top", strconv.Itoa(args.Top))
	}

	var result listResult[releaseDefinitionSummary]
	if err := client.Get(ctx, client.ReleaseURL(args.Project, "/_apis/release/definitions", query), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no release definitions found in project %q", args.Project)
	}
	return asJSON(result.Value)
}

type getReleasesArgs struct {
	Project      string `json:"project"`
	DefinitionID int    `json:"definitionId,omitempty"`
	Top          int    `json:"top,omitempty"`
}

type releaseSummary struct {
	ID                int         `json:"id"`
	Name              string      `json:"name"`
	Status            string      `json:"status"`
	CreatedOn         string      `json:"createdOn,omitempty"`
	CreatedBy         identityRef `json:"createdBy"`
	ReleaseDefinition struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"releaseDefinition"`
}

func getReleases(ctx context.Context, connect Connector, args getReleasesArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.DefinitionID > 0 {
		query.Set("definitionId", strconv.Itoa(args.DefinitionID))
	}
	top := args.Top
	if top <= 0 {
		top = 25
	}
	query.Set("$top", strconv.Itoa(top))

	var result listResult[releaseSummary]
	if err := client.Get(ctx, client.ReleaseURL(args.Project, "/_apis/release/releases", query), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no releases found in project %q", args.Project)
	}
	return asJSON(result.Value)
}
