package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/gradefetch/pkg/grading"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Token: "tok", RetryMax: 2, Timeout: 5 * time.Second})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_SendsGitHubHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(t, w, Assignment{ID: 1})
	}))
	_, err := c.GetAssignment(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", got.Get("Accept"))
	assert.Equal(t, "2022-11-28", got.Get("X-GitHub-Api-Version"))
	assert.Contains(t, got.Get("User-Agent"), "gradefetch/")
}

func TestClient_RetriesTransientFailures_When_ServerReturns503(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, Assignment{ID: 7, Title: "hw"})
	}))
	a, err := c.GetAssignment(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "hw", a.Title)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_ReturnsAPIError_When_NotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	_, err := c.GetAssignment(context.Background(), 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.NotFound())
	assert.Contains(t, apiErr.Body, "Not Found")
}

func TestListClassrooms_FollowsPages_Until_ShortPage(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		n := 100
		if page == 2 {
			n = 3
		}
		out := make([]Classroom, n)
		for i := range out {
			out[i] = Classroom{ID: int64(page*1000 + i)}
		}
		writeJSON(t, w, out)
	}))
	got, err := c.ListClassrooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 103)
}

func TestListAcceptedAssignments_UsesSmallPages(t *testing.T) {
	t.Parallel()

	var pages atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		assert.Equal(t, "/assignments/9/accepted_assignments", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		if r.URL.Query().Get("page") == "1" {
			writeJSON(t, w, []AcceptedAssignment{{ID: 1}, {ID: 2}})
			return
		}
		writeJSON(t, w, []AcceptedAssignment{})
	}))
	got, err := c.ListAcceptedAssignments(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.EqualValues(t, 1, pages.Load())
}

func TestGetFileContents_DecodesBase64(t *testing.T) {
	t.Parallel()

	doc := "jobs:\n  run-autograding-tests: {}\n"
	enc := base64.StdEncoding.EncodeToString([]byte(doc))
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/starter/contents/.github/workflows/classroom.yml", r.URL.Path)
		writeJSON(t, w, fileContent{Content: enc[:10] + "\n" + enc[10:], Encoding: "base64"})
	}))
	got, err := c.GetFileContents(context.Background(), "org", "starter", ".github/workflows/classroom.yml")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestListWorkflowRuns_EncodesFilter(t *testing.T) {
	t.Parallel()

	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "repository_dispatch", q.Get("event"))
		assert.Equal(t, "completed", q.Get("status"))
		assert.Equal(t, ">=2024-03-01T10:00:00Z", q.Get("created"))
		writeJSON(t, w, workflowRunsResponse{TotalCount: 1, WorkflowRuns: []WorkflowRun{{ID: 5}}})
	}))
	runs, err := c.ListWorkflowRuns(context.Background(), "org", "repo", RunFilter{Event: "repository_dispatch", Status: "completed", CreatedSince: since})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.EqualValues(t, 5, runs[0].ID)
}

func TestRunSource_TranslatesStepNamesToIDs(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/hw-ann/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, workflowRunsResponse{TotalCount: 2, WorkflowRuns: []WorkflowRun{
			{ID: 1, Status: "completed", Conclusion: "failure", CreatedAt: created},
			{ID: 2, Status: "in_progress", CreatedAt: created.Add(time.Hour)},
		}})
	})
	mux.HandleFunc("/repos/org/hw-ann/actions/runs/1/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, jobsResponse{Jobs: []Job{
			{Name: "setup", Steps: []JobStep{{Name: "Test 1", Conclusion: "failure"}}},
			{Name: "run-autograding-tests", Steps: []JobStep{
				{Name: "Set up job", Conclusion: "success"},
				{Name: "Test 1", Conclusion: "success"},
				{Name: "Test 2", Conclusion: "failure"},
			}},
		}})
	})
	c := newTestClient(t, mux)
	index := grading.NewStepIndex([]grading.TestDefinition{
		{Name: "Test 1", StepID: "t1", MaxScore: 1},
		{Name: "Test 2", StepID: "t2", MaxScore: 1},
	})
	src := NewRunSource(c, index, DefaultEvent)
	student := grading.StudentIdentity{Username: "ann", RepoFullName: "org/hw-ann"}

	runs, err := src.Runs(context.Background(), student, time.Time{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, grading.ConclusionFailure, runs[0].Status)
	assert.Equal(t, grading.ConclusionUnknown, runs[1].Status)

	steps, err := src.Steps(context.Background(), student, runs[0])
	require.NoError(t, err)
	assert.Equal(t, []grading.JobStep{
		{StepID: "t1", Conclusion: grading.ConclusionSuccess},
		{StepID: "t2", Conclusion: grading.ConclusionFailure},
	}, steps)
}

func TestRunSource_Fails_When_GradingJobMissing(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, jobsResponse{Jobs: []Job{{Name: "a"}, {Name: "b"}}})
	}))
	src := NewRunSource(c, grading.NewStepIndex(nil), DefaultEvent)
	_, err := src.Steps(context.Background(), grading.StudentIdentity{RepoFullName: "org/x"}, grading.WorkflowRun{ID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-autograding-tests")
}

func TestRoster_FallsBackToUnknownLogin(t *testing.T) {
	t.Parallel()

	roster := Roster([]AcceptedAssignment{
		{Students: []Student{{Login: "ann"}, {Login: "bob"}}, Repository: Repository{FullName: "org/hw-ann", HTMLURL: "https://github.com/org/hw-ann"}},
		{Repository: Repository{FullName: "org/hw-x"}},
	})
	require.Len(t, roster, 2)
	assert.Equal(t, "ann", roster[0].Username)
	assert.Equal(t, "https://github.com/org/hw-ann", roster[0].RepoURL)
	assert.Equal(t, UnknownLogin, roster[1].Username)
}

func TestFilterRoster_MatchesGlob(t *testing.T) {
	t.Parallel()

	roster := []grading.StudentIdentity{{Username: "team-a"}, {Username: "solo"}, {Username: "team-b"}}
	got, err := FilterRoster(roster, "team-*")
	require.NoError(t, err)
	assert.Equal(t, []grading.StudentIdentity{{Username: "team-a"}, {Username: "team-b"}}, got)

	all, err := FilterRoster(roster, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = FilterRoster(roster, "[")
	assert.Error(t, err)
}

func TestStarterRepo_ClassifiesMissingStarter(t *testing.T) {
	t.Parallel()

	_, _, err := StarterRepo(Assignment{Title: "hw"})
	assert.ErrorIs(t, err, grading.ErrNoStarterRepository)

	owner, name, err := StarterRepo(Assignment{StarterCodeURL: "https://github.com/org/starter"})
	require.NoError(t, err)
	assert.Equal(t, "org", owner)
	assert.Equal(t, "starter", name)
}

func TestSplitRepo(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"org/repo", "https://github.com/org/repo", "https://github.com/org/repo.git", "org/repo/"} {
		owner, name, err := SplitRepo(in)
		require.NoError(t, err, in)
		assert.Equal(t, "org", owner, in)
		assert.Equal(t, "repo", name, in)
	}
	_, _, err := SplitRepo("repo")
	assert.Error(t, err)
}

func TestClient_ListWorkflowRuns_WarnsAndKeepsNewest_When_HistoryExceedsPageCap(t *testing.T) {
	t.Parallel()

	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)
		pages.Add(1)
		runs := make([]WorkflowRun, runsPageSize)
		for i := range runs {
			runs[i] = WorkflowRun{ID: int64((page-1)*runsPageSize + i + 1), Status: "completed"}
		}
		writeJSON(t, w, map[string]any{"total_count": 1500, "workflow_runs": runs})
	}))
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	c := New(Options{BaseURL: srv.URL, Token: "tok", Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	runs, err := c.ListWorkflowRuns(context.Background(), "org", "busy", RunFilter{})
	require.NoError(t, err)

	assert.Len(t, runs, runsPageSize*runsMaxPages)
	assert.EqualValues(t, runsMaxPages, pages.Load())
	assert.Contains(t, logs.String(), "workflow run history truncated")
	assert.Contains(t, logs.String(), "repo=org/busy")
	assert.Contains(t, logs.String(), "total=1500")
}
