package tools

import (
	"context"
	"fmt"
	"net/url"
)

func registerWikiTools(r *Registry) {
	register(r, "wiki_list_wikis", "list wikis",
		"List the wikis of a project.",
		listWikis)
	register(r, "wiki_get_wiki_by_name", "get wiki",
		"Get a wiki by name or id.",
		getWiki)
	register(r, "wiki_get_page_content", "get wiki page",
		"Get the content of a wiki page by path.",
		getWikiPageContent)
}

type wikiSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	RemoteURL string `json:"remoteUrl,omitempty"`
}

type listWikisArgs struct {
	Project string `json:"project"`
}

func listWikis(ctx context.Context, connect Connector, args listWikisArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var result listResult[wikiSummary]
	if err := client.Get(ctx, client.ProjectURL(args.Project, "/_apis/wiki/wikis", nil), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no wikis found in project %q", args.Project)
	}
	return asJSON(result.Value)
}

type getWikiArgs struct {
	Project string `json:"project"`
	Wiki    string `json:"wiki"` // wiki name or id
}

func getWiki(ctx context.Context, connect Connector, args getWikiArgs) (string, error) {
	if args.Project == "" || args.Wiki == "" {
		return "", fmt.Errorf("project and wiki are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var wiki wikiSummary
	endpoint := client.ProjectURL(args.Project, "/_apis/wiki/wikis/"+url.PathEscape(args.Wiki), nil)
	if err := client.Get(ctx, endpoint, &wiki); err != nil {
		return "", err
	}
	return asJSON(wiki)
}

type getWikiPageContentArgs struct {
	Project string `json:"project"`
	Wiki    string `json:"wiki"`
	Path    string `json:"path"` // page path, e.g. /Home
}

func getWikiPageContent(ctx context.Context, connect Connector, args getWikiPageContentArgs) (string, error) {
	if args.Project == "" || args.Wiki == "" || args.Path == "" {
		return "", fmt.Errorf("project, wiki, and path are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("path", args.Path)
	query.Set("includeContent", "true")

	var page struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	endpoint := client.ProjectURL(args.Project, "/_apis/wiki/wikis/"+url.PathEscape(args.Wiki)+"/pages", query)
	if err := client.Get(ctx, endpoint, &page); err != nil {
		return "", err
	}
	if page.Content == "" {
		return "", fmt.Errorf("wiki page %q has no content", args.Path)
	}
	return page.Content, nil
}
