package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	runsPageSize = 100
	runsMaxPages = 10
)

// RunFilter narrows ListWorkflowRuns.
type RunFilter struct {
	Event        string    // e.g. "repository_dispatch"; empty for any
	Status       string    // e.g. "completed"; empty for any
	CreatedSince time.Time // zero for no lower bound
}

func (f RunFilter) query(page int) string {
	q := url.Values{}
	q.Set("per_page", fmt.Sprint(runsPageSize))
	q.Set("page", fmt.Sprint(page))
	if f.Event != "" {
		q.Set("event", f.Event)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if !f.CreatedSince.IsZero() {
		q.Set("created", ">="+f.CreatedSince.UTC().Format(time.RFC3339))
	}
	return q.Encode()
}

// GetFileContents returns the decoded text of path in owner/repo.
func (c *Client) GetFileContents(ctx context.Context, owner, repo, path string) (string, error) {
	var fc fileContent
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), &fc); err != nil {
		return "", err
	}
	if fc.Encoding != "base64" {
		return fc.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(fc.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("decode %s: content is not valid UTF-8", path)
	}
	return string(decoded), nil
}

// ListWorkflowRuns returns the runs of owner/repo matching filter. GitHub
// lists runs newest first, so when more than runsMaxPages pages match, the
// oldest runs are missing from the result and a warning is logged.
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo string, filter RunFilter) ([]WorkflowRun, error) {
	var (
		all   []WorkflowRun
		total int
	)
	for page := 1; page <= runsMaxPages; page++ {
		var resp workflowRunsResponse
		path := fmt.Sprintf("/repos/%s/%s/actions/runs?%s", owner, repo, filter.query(page))
		if err := c.get(ctx, path, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.WorkflowRuns...)
		total = resp.TotalCount
		if len(resp.WorkflowRuns) < runsPageSize || len(all) >= total {
			return all, nil
		}
	}
	if len(all) < total {
		c.logger.Warn("workflow run history truncated; oldest runs not fetched",
			"repo", owner+"/"+repo, "fetched", len(all), "total", total, "created_since", filter.CreatedSince)
	}
	return all, nil
}

// ListJobsForRun returns the jobs of a workflow run.
func (c *Client) ListJobsForRun(ctx context.Context, owner, repo string, runID int64) ([]Job, error) {
	var resp jobsResponse
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/actions/runs/%d/jobs?per_page=100", owner, repo, runID), &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// SplitRepo splits "owner/name" or a repository URL into owner and name.
func SplitRepo(ref string) (owner, name string, err error) {
	ref = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(ref), "/"), ".git")
	parts := strings.Split(ref, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("invalid repository %q", ref)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
