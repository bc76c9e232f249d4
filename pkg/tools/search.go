package tools

import (
	"context"
	"fmt"
)

func registerSearchTools(r *Registry) {
	register(r, "search_code", "search code",
		"Search code across the repositories of a project.",
		searchCode)
	register(r, "search_wiki", "search wiki",
		"Search wiki pages of a project.",
		searchWiki)
	register(r, "search_workitem", "search work items",
		"Full-text search over the work items of a project.",
		searchWorkItems)
}

type searchArgs struct {
	Project    string `json:"project"`
	SearchText string `json:"searchText"`
	Top        int    `json:"top,omitempty"`
	Skip       int    `json:"skip,omitempty"`
}

func (a searchArgs) validate() error {
	if a.Project == "" || a.SearchText == "" {
		return fmt.Errorf("project and searchText are required")
	}
	return nil
}

func (a searchArgs) requestBody() map[string]any {
	top := a.Top
	if top <= 0 {
		top = 25
	}
	return map[string]any{
		"searchText": a.SearchText,
		"$top":       top,
		"$skip":      a.Skip,
	}
}

// runSearch posts one search request to the almsearch host and enforces the
// empty-result policy shared by the three search tools.
func runSearch[T any](ctx context.Context, connect Connector, args searchArgs, path, kind string) (string, error) {
	if err := args.validate(); err != nil {
		return "", err
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var result struct {
		Count   int `json:"count"`
		Results []T `json:"results"`
	}
	endpoint := client.SearchURL(args.Project, path, nil)
	if err := client.Post(ctx, endpoint, args.requestBody(), &result); err != nil {
		return "", err
	}
	if result.Count == 0 || len(result.Results) == 0 {
		return "", fmt.Errorf("no %s results for %q in project %q", kind, args.SearchText, args.Project)
	}
	return asJSON(result.Results)
}

type codeSearchResult struct {
	FileName   string `json:"fileName"`
	Path       string `json:"path"`
	Repository struct {
		Name string `json:"name"`
	} `json:"repository"`
	Versions []struct {
		BranchName string `json:"branchName"`
	} `json:"versions,omitempty"`
}

func searchCode(ctx context.Context, connect Connector, args searchArgs) (string, error) {
	return runSearch[codeSearchResult](ctx, connect, args, "/_apis/search/codesearchresults", "code")
}

type wikiSearchResult struct {
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	Wiki     struct {
		Name string `json:"name"`
	} `json:"wiki"`
}

func searchWiki(ctx context.Context, connect Connector, args searchArgs) (string, error) {
	return runSearch[wikiSearchResult](ctx, connect, args, "/_apis/search/wikisearchresults", "wiki")
}

type workItemSearchResult struct {
	Fields map[string]any `json:"fields"`
}

func searchWorkItems(ctx context.Context, connect Connector, args searchArgs) (string, error) {
	return runSearch[workItemSearchResult](ctx, connect, args, "/_apis/search/workitemsearchresults", "work item")
}
