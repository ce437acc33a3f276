package lms

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/Balram04/assigno/internal/common/httpclient"
)

// AssignmentService wraps the /assignments endpoints.
type AssignmentService struct {
	api httpclient.HTTPClientInterface
}

func (s *AssignmentService) list(ctx context.Context, parts ...string) ([]Assignment, error) {
	p, err := pathOf(parts...)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return nil, err
	}
	return decodeList[Assignment](resp.Body, "assignments", assignmentFixups)
}

// List returns the assignments visible to the caller.
func (s *AssignmentService) List(ctx context.Context) ([]Assignment, error) {
	return s.list(ctx, "assignments")
}

// ForStudent returns the caller's assignments with their submission state.
func (s *AssignmentService) ForStudent(ctx context.Context) ([]Assignment, error) {
	return s.list(ctx, "assignments", "student")
}

// AdminAll returns every assignment with submission counts. Staff only.
func (s *AssignmentService) AdminAll(ctx context.Context) ([]Assignment, error) {
	return s.list(ctx, "assignments", "admin", "all")
}

func (s *AssignmentService) Get(ctx context.Context, id string) (Assignment, error) {
	p, err := pathOf("assignments", id)
	if err != nil {
		return Assignment{}, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return Assignment{}, err
	}
	return decodeOne[Assignment](resp.Body, "assignment", assignmentFixups)
}

// AdminGet returns an assignment with its submissions and counts. Staff only.
func (s *AssignmentService) AdminGet(ctx context.Context, id string) (AssignmentDetail, error) {
	p, err := pathOf("assignments", "admin", id)
	if err != nil {
		return AssignmentDetail{}, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return AssignmentDetail{}, err
	}

	var d AssignmentDetail
	if d.Assignment, err = decodeOne[Assignment](resp.Body, "assignment", assignmentFixups); err != nil {
		return AssignmentDetail{}, err
	}
	if d.Submissions, err = decodeList[Submission](resp.Body, "submissions", submissionFixups); err != nil {
		return AssignmentDetail{}, err
	}
	if gjson.GetBytes(resp.Body, "stats").IsObject() {
		if d.Stats, err = decodeOne[AssignmentStats](resp.Body, "stats", assignmentStatsFixups); err != nil {
			return AssignmentDetail{}, err
		}
	}
	return d, nil
}

func (s *AssignmentService) Create(ctx context.Context, in AssignmentInput) (Assignment, error) {
	if in.Title == "" {
		return Assignment{}, ErrInvalidArgument.Msg("assignment title is required")
	}
	return s.write(ctx, http.MethodPost, in, "assignments")
}

func (s *AssignmentService) Update(ctx context.Context, id string, in AssignmentInput) (Assignment, error) {
	return s.write(ctx, http.MethodPut, in, "assignments", id)
}

func (s *AssignmentService) write(ctx context.Context, method string, in AssignmentInput, parts ...string) (Assignment, error) {
	p, err := pathOf(parts...)
	if err != nil {
		return Assignment{}, err
	}
	body, err := encode(in)
	if err != nil {
		return Assignment{}, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: method, Path: p, Body: body})
	if err != nil {
		return Assignment{}, err
	}
	return decodeOne[Assignment](resp.Body, "assignment", assignmentFixups)
}

func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	p, err := pathOf("assignments", id)
	if err != nil {
		return err
	}
	return discard(s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodDelete, Path: p}))
}
