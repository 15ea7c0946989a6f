package github

import "time"

// Classroom is a GitHub Classroom classroom.
type Classroom struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
	URL      string `json:"url"`
}

// Assignment is a classroom assignment.
type Assignment struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Slug           string          `json:"slug"`
	Accepted       int             `json:"accepted"`
	Submitted      int             `json:"submitted"`
	Passing        int             `json:"passing"`
	Deadline       *time.Time      `json:"deadline"`
	StarterCodeURL string          `json:"starter_code_url"`
	Classroom      SimpleClassroom `json:"classroom"`
}

// SimpleClassroom is the classroom summary embedded in an assignment.
type SimpleClassroom struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AcceptedAssignment is one student's (or group's) accepted assignment.
type AcceptedAssignment struct {
	ID          int64          `json:"id"`
	Submitted   bool           `json:"submitted"`
	Passing     bool           `json:"passing"`
	CommitCount int            `json:"commit_count"`
	Grade       string         `json:"grade"`
	Students    []Student      `json:"students"`
	Repository  Repository     `json:"repository"`
	Assignment  AssignmentInfo `json:"assignment"`
}

// Student is a classroom member.
type Student struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Repository is a student repository.
type Repository struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// AssignmentInfo is the assignment summary embedded in an accepted assignment.
type AssignmentInfo struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type workflowRunsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// WorkflowRun is a GitHub Actions workflow run.
type WorkflowRun struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	HeadBranch   string     `json:"head_branch"`
	HeadSHA      string     `json:"head_sha"`
	Status       string     `json:"status"`
	Conclusion   string     `json:"conclusion"`
	Event        string     `json:"event"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	RunStartedAt *time.Time `json:"run_started_at"`
}

type jobsResponse struct {
	TotalCount int   `json:"total_count"`
	Jobs       []Job `json:"jobs"`
}

// Job is a job within a workflow run.
type Job struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Conclusion  string     `json:"conclusion"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Steps       []JobStep  `json:"steps"`
}

// JobStep is a step within a job. The API identifies steps by display name.
type JobStep struct {
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Conclusion  string     `json:"conclusion"`
	Number      int        `json:"number"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type fileContent struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}
