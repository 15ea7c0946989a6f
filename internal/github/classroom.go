package github

import (
	"context"
	"fmt"
)

const (
	classroomPageSize = 100
	classroomMaxPages = 10
	acceptedPageSize  = 30
	acceptedMaxPages  = 100
)

// ListClassrooms returns every classroom the token can administer.
func (c *Client) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	return paginate[Classroom](ctx, c, "/classrooms", classroomPageSize, classroomMaxPages)
}

// ListAssignments returns the assignments of a classroom.
func (c *Client) ListAssignments(ctx context.Context, classroomID int64) ([]Assignment, error) {
	return paginate[Assignment](ctx, c, fmt.Sprintf("/classrooms/%d/assignments", classroomID), classroomPageSize, classroomMaxPages)
}

// GetAssignment returns one assignment.
func (c *Client) GetAssignment(ctx context.Context, id int64) (Assignment, error) {
	var out Assignment
	err := c.get(ctx, fmt.Sprintf("/assignments/%d", id), &out)
	return out, err
}

// ListAcceptedAssignments returns every accepted assignment (one per
// student or group). Pages are small because the endpoint is slow.
func (c *Client) ListAcceptedAssignments(ctx context.Context, assignmentID int64) ([]AcceptedAssignment, error) {
	out, err := paginate[AcceptedAssignment](ctx, c, fmt.Sprintf("/assignments/%d/accepted_assignments", assignmentID), acceptedPageSize, acceptedMaxPages)
	if err != nil {
		return nil, fmt.Errorf("list accepted assignments for assignment %d: %w", assignmentID, err)
	}
	return out, nil
}

// paginate fetches ?page=N&per_page=size until an empty page or maxPages.
func paginate[T any](ctx context.Context, c *Client, path string, size, maxPages int) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		var batch []T
		if err := c.get(ctx, fmt.Sprintf("%s?page=%d&per_page=%d", path, page, size), &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < size {
			break
		}
	}
	return all, nil
}
