package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func registerRepoTools(r *Registry) {
	register(r, "repo_list_repos_by_project", "list repositories",
		"List the Git repositories of a project.",
		listRepos)
	register(r, "repo_list_branches_by_repo", "list branches",
		"List branch names of a repository, most recent first, up to a maximum count.",
		listBranches)
	register(r, "repo_list_pull_requests_by_repo", "list pull requests",
		"List pull requests in a repository. Supports status filtering and restricting to PRs created by, or under review of, the authenticated user.",
		listPullRequests)
	register(r, "repo_get_pull_request_by_id", "get pull request",
		"Get a pull request by id.",
		getPullRequest)
	register(r, "repo_create_pull_request", "create pull request",
		"Create a pull request from a source branch into a target branch.",
		createPullRequest)
	register(r, "repo_update_pull_request_status", "update pull request status",
		"Set the lifecycle status of a pull request (active, abandoned, completed).",
		updatePullRequestStatus)
	register(r, "repo_list_pull_request_threads", "list pull request threads",
		"List the comment threads of a pull request.",
		listPullRequestThreads)
	register(r, "repo_reply_to_comment", "reply to comment",
		"Add a reply to an existing pull request comment thread.",
		replyToComment)
	register(r, "repo_resolve_comment", "resolve comment thread",
		"Set the status of a pull request comment thread (fixed, wontFix, closed, ...).",
		resolveComment)
}

// pullRequestStatusID maps lifecycle state names to the wire integers the
// service expects. The integers are not self-describing; keep this table
// explicit and in sync with its inverse below.
var pullRequestStatusID = map[string]int{
	"notSet":    0,
	"completed": 1,
	"abandoned": 2,
	"active":    3,
	"all":       4,
}

// pullRequestStatusName is the inverse of pullRequestStatusID.
var pullRequestStatusName = func() map[int]string {
	names := make(map[int]string, len(pullRequestStatusID))
	for name, id := range pullRequestStatusID {
		names[id] = name
	}
	return names
}()

// commentThreadStatusID maps thread status names to wire integers.
var commentThreadStatusID = map[string]int{
	"unknown":  0,
	"active":   1,
	"fixed":    2,
	"wontFix":  3,
	"closed":   4,
	"byDesign": 5,
	"pending":  6,
}

type listReposArgs struct {
	Project string `json:"project"`
}

type repoSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch,omitempty"`
	IsDisabled    bool   `json:"isDisabled,omitempty"`
	WebURL        string `json:"webUrl,omitempty"`
}

func listRepos(ctx context.Context, connect Connector, args listReposArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var result listResult[repoSummary]
	endpoint := client.ProjectURL(args.Project, "/_apis/git/repositories", nil)
	if err := client.Get(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no repositories found in project %q", args.Project)
	}
	return asJSON(result.Value)
}

type listBranchesArgs struct {
	Project    string `json:"project"`
	Repository string `json:"repository"`
	Top        int    `json:"top,omitempty"` // maximum branch count, default 100
}

// filterBranches keeps refs under refs/heads/, strips the prefix, and then
// truncates to top. Truncation happens after filtering so the count reflects
// branches only, never tags or other refs. Input order is preserved.
func filterBranches(refNames []string, top int) []string {
	const prefix = "refs/heads/"
	branches := make([]string, 0, len(refNames))
	for _, name := range refNames {
		if strings.HasPrefix(name, prefix) {
			branches = append(branches, strings.TrimPrefix(name, prefix))
		}
	}
	if top > 0 && len(branches) > top {
		branches = branches[:top]
	}
	return branches
}

func listBranches(ctx context.Context, connect Connector, args listBranchesArgs) (string, error) {
	if args.Project == "" || args.Repository == "" {
		return "", fmt.Errorf("project and repository are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var result listResult[struct {
		Name string `json:"name"`
	}]
	path := "/_apis/git/repositories/" + url.PathEscape(args.Repository) + "/refs"
	if err := client.Get(ctx, client.ProjectURL(args.Project, path, nil), &result); err != nil {
		return "", err
	}

	names := make([]string, 0, len(result.Value))
	for _, ref := range result.Value {
		names = append(names, ref.Name)
	}

	top := args.Top
	if top <= 0 {
		top = 100
	}
	branches := filterBranches(names, top)
	if len(branches) == 0 {
		return "", fmt.Errorf("no branches found in repository %q", args.Repository)
	}
	return asJSON(branches)
}

type listPullRequestsArgs struct {
	Project      string `json:"project"`
	Repository   string `json:"repository"`
	Status       string `json:"status,omitempty"` // notSet, active, completed, abandoned, all
	CreatedByMe  bool   `json:"createdByMe,omitempty"`
	IAmReviewer  bool   `json:"iAmReviewer,omitempty"`
	TargetBranch string `json:"targetBranch,omitempty"`
	Top          int    `json:"top,omitempty"`
}

type pullRequestSummary struct {
	PullRequestID int         `json:"pullRequestId"`
	Title         string      `json:"title"`
	Status        string      `json:"status"`
	IsDraft       bool        `json:"isDraft,omitempty"`
	CreatedBy     identityRef `json:"createdBy"`
	SourceRefName string      `json:"sourceRefName"`
	TargetRefName string      `json:"targetRefName"`
	CreationDate  string      `json:"creationDate"`
}

func listPullRequests(ctx context.Context, connect Connector, args listPullRequestsArgs) (string, error) {
	if args.Project == "" || args.Repository == "" {
		return "", fmt.Errorf("project and repository are required")
	}
	if args.Status != "" {
		if _, ok := pullRequestStatusID[args.Status]; !ok {
			return "", fmt.Errorf("unknown status %q (expected one of notSet, active, completed, abandoned, all)", args.Status)
		}
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.Status != "" {
		query.Set("searchCriteria.status", strconv.Itoa(pullRequestStatusID[args.Status]))
	}
	if args.TargetBranch != "" {
		query.Set("searchCriteria.targetRefName", ensureRefPrefix(args.TargetBranch))
	}
	top := args.Top
	if top <= 0 {
		top = 25
	}
	query.Set("$top", strconv.Itoa(top))

	// The "mine" filters depend on the caller's identity GUID, so the
	// identity lookup has to complete before the primary query is built.
	if args.CreatedByMe || args.IAmReviewer {
		userID, err := client.AuthenticatedUserID(ctx)
		if err != nil {
			return "", err
		}
		if args.CreatedByMe {
			query.Set("searchCriteria.creatorId", userID)
		}
		if args.IAmReviewer {
			query.Set("searchCriteria.reviewerId", userID)
		}
	}

	var result listResult[pullRequestSummary]
	path := "/_apis/git/repositories/" + url.PathEscape(args.Repository) + "/pullrequests"
	if err := client.Get(ctx, client.ProjectURL(args.Project, path, query), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no pull requests found in repository %q", args.Repository)
	}
	return asJSON(result.Value)
}

type getPullRequestArgs struct {
	Project       string `json:"project"`
	Repository    string `json:"repository"`
	PullRequestID int    `json:"pullRequestId"`
}

type pullRequestDetail struct {
	pullRequestSummary
	Description string `json:"description,omitempty"`
	MergeStatus string `json:"mergeStatus,omitempty"`
	ClosedDate  string `json:"closedDate,omitempty"`
	Reviewers   []struct {
		DisplayName string `json:"displayName"`
		Vote        int    `json:"vote"`
	} `json:"reviewers,omitempty"`
}

func getPullRequest(ctx context.Context, connect Connector, args getPullRequestArgs) (string, error) {
	if args.Project == "" || args.Repository == "" || args.PullRequestID <= 0 {
		return "", fmt.Errorf("project, repository, and pullRequestId are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var pr pullRequestDetail
	path := "/_apis/git/repositories/" + url.PathEscape(args.Repository) + "/pullrequests/" + strconv.Itoa(args.PullRequestID)
	if err := client.Get(ctx, client.ProjectURL(args.Project, path, nil), &pr); err != nil {
		return "", err
	}
	return asJSON(pr)
}

type createPullRequestArgs struct {
	Project      string `json:"project"`
	Repository   string `json:"repository"`
	SourceBranch string `json:"sourceBranch"`
	TargetBranch string `json:"targetBranch"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	IsDraft      bool   `json:"isDraft,omitempty"`
}

// ensureRefPrefix accepts either "main" or "refs/heads/main".
func ensureRefPrefix(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}
	return "refs/heads/" + branch
}

func createPullRequest(ctx context.Context, connect Connector, args createPullRequestArgs) (string, error) {
	if args.Project == "" || args.Repository == "" || args.SourceBranch == "" || args.TargetBranch == "" || args.Title == "" {
		return "", fmt.Errorf("project, repository, sourceBranch, targetBranch, and title are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"sourceRefName": ensureRefPrefix(args.SourceBranch),
		"targetRefName": ensureRefPrefix(args.TargetBranch),
		"title":         args.Title,
		"isDraft":       args.IsDraft,
	}
	if args.Description != "" {
		body["description"] = args.Description
	}

	var pr pullRequestSummary
	path := "/_apis/git/repositories/" + url.PathEscape(args.Repository) + "/pullrequests"
	if err := client.Post(ctx, client.ProjectURL(args.Project, path, nil), body, &pr); err != nil {
		return "", err
	}
	return asJSON(pr)
}

type updatePullRequestStatusArgs struct {
	Project       string `json:"project"`
	Repository    string `json:"repository"`
	PullRequestID int    `json:"pullRequestId"`
	Status        string `json:"status"` // active, abandoned, completed
}

func updatePullRequestStatus(ctx context.Context, connect Connector, args updatePullRequestStatusArgs) (string, error) {
	if args.Project == "" || args.Repository == "" || args.PullRequestID <= 0 || args.Status == "" {
		return "", fmt.Errorf("project, repository, pullRequestId, and status are required")
	}
	statusID, ok := pullRequestStatusID[args.Status]
	if !ok {
		return "", fmt.Errorf("unknown status %q (expected one of notSet, active, completed, abandoned, all)", args.Status)
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var pr pullRequestSummary
	path := "/_apis/git/repositories/" + url.PathEscape(args.Repository) + "/pullrequests/" + strconv.Itoa(args.PullRequestID)
	if err := client.Patch(ctx, client.ProjectURL(args.Project, path, nil), map[string]int{"status": statusID}, &pr); err != nil {
		return "", err
	}
	return asJSON(pr)
}

type listThreadsArgs struct {
	Project       string `json:"project"`
	Repository    string `json:"repository"`
	PullRequestID int    `json:"pullRequestId"`
}

type commentThread struct {
	ID       int    `json:"id"`
	Status   string `json:"status,omitempty"`
	Comments []struct {
		ID      int         `json:"id"`
		Author  identityRef `json:"author"`
		Content string      `json:"content"`
	} `json:"comments,omitempty"`
}

func threadsPath(repository string, pullRequestID int) string {
	return "/_apis/git/repositories/" + url.PathEscape(repository) + "/pullRequests/" + strconv.Itoa(pullRequestID) + "/threads"
}

func listPullRequestThreads(ctx context.Context, connect Connector, args listThreadsArgs) (string, error) {
	if args.Project == "" || args.Repository == "" || args.PullRequestID <= 0 {
		return "", fmt.Errorf("project, repository, and pullRequestId are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var result listResult[commentThread]
	endpoint := client.ProjectURL(args.Project, threadsPath(args.Repository, args.PullRequestID), nil)
	if err := client.Get(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no comment threads found on pull request %d", args.PullRequestID)
	}
	return asJSON(result.Value)
}

type replyToCommentArgs struct {
	Project       string `json:"project"`
	Repository    string `json:"repository"`
	PullRequestID int    `json:"pullRequestId"`
	ThreadID      int    `json:"threadId"`
	Content       string `json:"content"`
}

func replyToComment(ctx context.Context, connect Connector, args replyToCommentArgs) (string, error) {
	if args.Project == "" || args.Repository == "" || args.PullRequestID <= 0 || args.ThreadID <= 0 || args.Content == "" {
		return "", fmt.Errorf("project, repository, pullRequestId, threadId, and content are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"content":     args.Content,
		"commentType": 1, // text
	}

	var comment struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
	}
	path := threadsPath(args.Repository, args.PullRequestID) + "/" + strconv.Itoa(args.ThreadID) + "/comments"
	if err := client.Post(ctx, client.ProjectURL(args.Project, path, nil), body, &comment); err != nil {
		return "", err
	}
	return asJSON(comment)
}

type resolveCommentArgs struct {
	Project       string `json:"project"`
	Repository    string `json:"repository"`
	PullRequestID int    `json:"pullRequestId"`
	ThreadID      int    `json:"threadId"`
	Status        string `json:"status,omitempty"` // default fixed
}

func resolveComment(ctx context.Context, connect Connector, args resolveCommentArgs) (string, error) {
	if args.Project == "" || args.Repository == "" || args.PullRequestID <= 0 || args.ThreadID <= 0 {
		return "", fmt.Errorf("project, repository, pullRequestId, and threadId are required")
	}
	status := args.Status
	if status == "" {
		status = "fixed"
	}
	statusID, ok := commentThreadStatusID[status]
	if !ok {
		return "", fmt.Errorf("unknown thread status %q", status)
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var thread commentThread
	path := threadsPath(args.Repository, args.PullRequestID) + "/" + strconv.Itoa(args.ThreadID)
	if err := client.Patch(ctx, client.ProjectURL(args.Project, path, nil), map[string]int{"status": statusID}, &thread); err != nil {
		return "", err
	}
	return asJSON(thread)
}
