package tools

import (
	"context"
	"fmt"
	"net/url"
)

func registerWorkTools(r *Registry) {
	register(r, "work_list_team_iterations", "list iterations",
		"List the sprint iterations assigned to a team, optionally filtered by timeframe (past, current, future).",
		listTeamIterations)
	register(r, "work_create_iterations", "create iterations",
		"Create one or more sprint iterations under the project's iteration tree, in the given order. Dates are ISO 8601.",
		createIterations)
	register(r, "work_assign_iterations", "assign iterations",
		"Assign one or more existing iterations to a team, in the given order.",
		assignIterations)
}

type listTeamIterationsArgs struct {
	Project   string `json:"project"`
	Team      string `json:"team"`
	Timeframe string `json:"timeframe,omitempty"` // past, current, future
}

type teamIteration struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	Attributes struct {
		StartDate  string `json:"startDate,omitempty"`
		FinishDate string `json:"finishDate,omitempty"`
		TimeFrame  string `json:"timeFrame,omitempty"`
	} `json:"attributes"`
}

func listTeamIterations(ctx context.Context, connect Connector, args listTeamIterationsArgs) (string, error) {
	if args.Project == "" || args.Team == "" {
		return "", fmt.Errorf("project and team are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.Timeframe != "" {
		query.Set("$timeframe", args.Timeframe)
	}

	var result listResult[teamIteration]
	endpoint := client.TeamURL(args.Project, args.Team, "/_apis/work/teamsettings/iterations", query)
	if err := client.Get(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no iterations found for team %q", args.Team)
	}
	return asJSON(result.Value)
}

type iterationSpec struct {
	IterationName string `json:"iterationName"`
	StartDate     string `json:"startDate,omitempty"`
	FinishDate    string `json:"finishDate,omitempty"`
}

type createIterationsArgs struct {
	Project    string          `json:"project"`
	Iterations []iterationSpec `json:"iterations"`
}

type classificationNode struct {
	ID         int    `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	Attributes struct {
		StartDate  string `json:"startDate,omitempty"`
		FinishDate string `json:"finishDate,omitempty"`
	} `json:"attributes"`
}

func createIterations(ctx context.Context, connect Connector, args createIterationsArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}
	if len(args.Iterations) == 0 {
		return "", fmt.Errorf("at least one iteration is required")
	}
	for _, it := range args.Iterations {
		if it.IterationName == "" {
			return "", fmt.Errorf("iterationName is required for every iteration")
		}
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	endpoint := client.ProjectURL(args.Project, "/_apis/wit/classificationnodes/iterations", nil)

	// Iterations are created one at a time in input order; a failure stops
	// the loop so the message names the iteration that was rejected.
	created := make([]classificationNode, 0, len(args.Iterations))
	for _, it := range args.Iterations {
		body := map[string]any{"name": it.IterationName}
		attributes := map[string]any{}
		if it.StartDate != "" {
			attributes["startDate"] = it.StartDate
		}
		if it.FinishDate != "" {
			attributes["finishDate"] = it.FinishDate
		}
		if len(attributes) > 0 {
			body["attributes"] = attributes
		}

		var node classificationNode
		if err := client.Post(ctx, endpoint, body, &node); err != nil {
			return "", fmt.Errorf("failed to create iteration %q: %w", it.IterationName, err)
		}
		created = append(created, node)
	}
	return asJSON(created)
}

type assignIterationsArgs struct {
	Project    string   `json:"project"`
	Team       string   `json:"team"`
	Identifier []string `json:"identifiers"` // iteration identifier GUIDs
}

func assignIterations(ctx context.Context, connect Connector, args assignIterationsArgs) (string, error) {
	if args.Project == "" || args.Team == "" {
		return "", fmt.Errorf("project and team are required")
	}
	if len(args.Identifier) == 0 {
		return "", fmt.Errorf("at least one iteration identifier is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	endpoint := client.TeamURL(args.Project, args.Team, "/_apis/work/teamsettings/iterations", nil)

	assigned := make([]teamIteration, 0, len(args.Identifier))
	for _, id := range args.Identifier {
		var iteration teamIteration
		if err := client.Post(ctx, endpoint, map[string]string{"id": id}, &iteration); err != nil {
			return "", fmt.Errorf("failed to assign iteration %q: %w", id, err)
		}
		assigned = append(assigned, iteration)
	}
	return asJSON(assigned)
}
