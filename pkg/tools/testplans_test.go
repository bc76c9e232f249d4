package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAddTestCasesToSuite_SequentialOrder(t *testing.T) {
	var paths []string
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprint(w, `{"count": 1, "value": [{"workItem": {"id": 1, "name": "case"}}]}`)
	}))

	args := addTestCasesToSuiteArgs{Project: "P", PlanID: 3, SuiteID: 7, WorkItemIDs: []int{41, 42, 43}}
	if _, err := addTestCasesToSuite(context.Background(), connect, args); err != nil {
		t.Fatalf("addTestCasesToSuite() error = %v", err)
	}

	want := []string{
		"/P/_apis/testplan/Plans/3/Suites/7/TestCase/41",
		"/P/_apis/testplan/Plans/3/Suites/7/TestCase/42",
		"/P/_apis/testplan/Plans/3/Suites/7/TestCase/43",
	}
	if len(paths) != len(want) {
		t.Fatalf("requests = %d, want %d", len(paths), len(want))
	}
	for i, p := range paths {
		if !strings.HasSuffix(p, want[i]) {
			t.Errorf("request %d path = %q, want suffix %q", i, p, want[i])
		}
	}
}

func TestAddTestCasesToSuite_StopsOnFailure(t *testing.T) {
	var requests int
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 2 {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "test case does not exist"}`)
			return
		}
		fmt.Fprint(w, `{"count": 1, "value": [{"workItem": {"id": 1, "name": "case"}}]}`)
	}))

	args := addTestCasesToSuiteArgs{Project: "P", PlanID: 3, SuiteID: 7, WorkItemIDs: []int{41, 42, 43}}
	_, err := addTestCasesToSuite(context.Background(), connect, args)
	if err == nil || !strings.Contains(err.Error(), "test case 42") {
		t.Errorf("error = %v, want it to name test case 42", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want to stop after the failure", requests)
	}
}

func TestListTestPlans_ActiveFilter(t *testing.T) {
	var filter string
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter = r.URL.Query().Get("filterActivePlans")
		fmt.Fprint(w, `{"count": 1, "value": [{"id": 3, "name": "Release 1", "state": "active"}]}`)
	}))

	out, err := listTestPlans(context.Background(), connect, listTestPlansArgs{Project: "P", ActiveOnly: true})
	if err != nil {
		t.Fatalf("listTestPlans() error = %v", err)
	}
	if filter != "true" {
		t.Errorf("filterActivePlans = %q, want true", filter)
	}
	if !strings.Contains(out, "Release 1") {
		t.Errorf("output missing plan: %s", out)
	}
}

func TestListTestCases_Empty(t *testing.T) {
	connect := testConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 0, "value": []}`)
	}))

	args := listTestCasesArgs{Project: "P", PlanID: 3, SuiteID: 7}
	_, err := listTestCases(context.Background(), connect, args)
	if err == nil || !strings.Contains(err.Error(), "no test cases found") {
		t.Errorf("error = %v, want a not-found message", err)
	}
}
