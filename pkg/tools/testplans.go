package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

func registerTestPlanTools(r *Registry) {
	register(r, "testplan_list_test_plans", "list test plans",
		"List the test plans of a project.",
		listTestPlans)
	register(r, "testplan_create_test_plan", "create test plan",
		"Create a test plan in a project, optionally scoped to an iteration.",
		createTestPlan)
	register(r, "testplan_list_test_cases", "list test cases",
		"List the test cases of a test suite.",
		listTestCases)
	register(r, "testplan_add_test_cases_to_suite", "add test cases to suite",
		"Add existing test case work items to a suite, one at a time in the given order.",
		addTestCasesToSuite)
}

type testPlanSummary struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AreaPath  string `json:"areaPath,omitempty"`
	Iteration string `json:"iteration,omitempty"`
	State     string `json:"state,omitempty"`
	RootSuite struct {
		ID string `json:"id"`
	} `json:"rootSuite"`
}

type listTestPlansArgs struct {
	Project    string `json:"project"`
	ActiveOnly bool   `json:"activeOnly,omitempty"`
}

func listTestPlans(ctx context.Context, connect Connector, args listTestPlansArgs) (string, error) {
	if args.Project == "" {
		return "", fmt.Errorf("project is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if args.ActiveOnly {
		query.Set("filterActivePlans", "true")
	}

	var result listResult[testPlanSummary]
	if err := client.Get(ctx, client.ProjectURL(args.Project, "/_apis/testplan/plans", query), &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no test plans found in project %q", args.Project)
	}
	return asJSON(result.Value)
}

type createTestPlanArgs struct {
	Project   string `json:"project"`
	Name      string `json:"name"`
	AreaPath  string `json:"areaPath,omitempty"`
	Iteration string `json:"iteration,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func createTestPlan(ctx context.Context, connect Connector, args createTestPlanArgs) (string, error) {
	if args.Project == "" || args.Name == "" {
		return "", fmt.Errorf("project and name are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{"name": args.Name}
	if args.AreaPath != "" {
		body["areaPath"] = args.AreaPath
	}
	if args.Iteration != "" {
		body["iteration"] = args.Iteration
	}
	if args.StartDate != "" {
		body["startDate"] = args.StartDate
	}
	if args.EndDate != "" {
		body["endDate"] = args.EndDate
	}

	var plan testPlanSummary
	if err := client.Post(ctx, client.ProjectURL(args.Project, "/_apis/testplan/plans", nil), body, &plan); err != nil {
		return "", err
	}
	return asJSON(plan)
}

type listTestCasesArgs struct {
	Project string `json:"project"`
	PlanID  int    `json:"planId"`
	SuiteID int    `json:"suiteId"`
}

type testCaseEntry struct {
	WorkItem struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"workItem"`
	Order int `json:"order,omitempty"`
}

func suitePath(planID, suiteID int) string {
	return "/_apis/testplan/Plans/" + strconv.Itoa(planID) + "/Suites/" + strconv.Itoa(suiteID)
}

func listTestCases(ctx context.Context, connect Connector, args listTestCasesArgs) (string, error) {
	if args.Project == "" || args.PlanID <= 0 || args.SuiteID <= 0 {
		return "", fmt.Errorf("project, planId, and suiteId are required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	var result listResult[testCaseEntry]
	endpoint := client.ProjectURL(args.Project, suitePath(args.PlanID, args.SuiteID)+"/TestCase", nil)
	if err := client.Get(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("no test cases found in suite %d of plan %d", args.SuiteID, args.PlanID)
	}
	return asJSON(result.Value)
}

type addTestCasesToSuiteArgs struct {
	Project     string `json:"project"`
	PlanID      int    `json:"planId"`
	SuiteID     int    `json:"suiteId"`
	WorkItemIDs []int  `json:"workItemIds"`
}

func addTestCasesToSuite(ctx context.Context, connect Connector, args addTestCasesToSuiteArgs) (string, error) {
	if args.Project == "" || args.PlanID <= 0 || args.SuiteID <= 0 {
		return "", fmt.Errorf("project, planId, and suiteId are required")
	}
	if len(args.WorkItemIDs) == 0 {
		return "", fmt.Errorf("at least one workItemId is required")
	}

	client, err := connect(ctx)
	if err != nil {
		return "", err
	}

	added := make([]testCaseEntry, 0, len(args.WorkItemIDs))
	for _, id := range args.WorkItemIDs {
		var result listResult[testCaseEntry]
		endpoint := client.ProjectURL(args.Project, suitePath(args.PlanID, args.SuiteID)+"/TestCase/"+strconv.Itoa(id), nil)
		if err := client.Post(ctx, endpoint, nil, &result); err != nil {
			return "", fmt.Errorf("failed to add test case %d: %w", id, err)
		}
		added = append(added, result.Value...)
	}
	return asJSON(added)
}
