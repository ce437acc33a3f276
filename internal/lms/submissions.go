package lms

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Balram04/assigno/internal/common/httpclient"
)

// SubmissionService wraps the /submissions endpoints.
type SubmissionService struct {
	api httpclient.HTTPClientInterface
}

// Submit uploads files for an assignment as multipart/form-data.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	if req.AssignmentID == "" {
		return Submission{}, ErrInvalidArgument.Msg("assignment id is required")
	}
	mp := &httpclient.Multipart{}
	mp.AddField("assignmentId", req.AssignmentID)
	if req.GroupID != "" {
		mp.AddField("groupId", req.GroupID)
	}
	mp.AddField("submissionNotes", req.Notes)
	for _, f := range req.Files {
		if f.Content == nil {
			return Submission{}, ErrInvalidArgument.Msg("file " + f.Name + " has no content")
		}
		mp.AddFile("files", f.Name, f.Content)
	}

	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: "submissions/submit", Multipart: mp})
	if err != nil {
		return Submission{}, err
	}
	return decodeOne[Submission](resp.Body, "submission", submissionFixups)
}

func (s *SubmissionService) get(ctx context.Context, parts ...string) ([]byte, error) {
	p, err := pathOf(parts...)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Status returns a group's submission for an assignment.
func (s *SubmissionService) Status(ctx context.Context, assignmentID, groupID string) (Submission, error) {
	body, err := s.get(ctx, "submissions", "status", assignmentID, groupID)
	if err != nil {
		return Submission{}, err
	}
	return decodeOne[Submission](body, "submission", submissionFixups)
}

func (s *SubmissionService) GroupProgress(ctx context.Context, groupID string) (Progress, error) {
	body, err := s.get(ctx, "submissions", "progress", groupID)
	if err != nil {
		return Progress{}, err
	}
	return decodeOne[Progress](body, "progress", progressFixups)
}

func (s *SubmissionService) CourseProgress(ctx context.Context, courseID string) (Progress, error) {
	body, err := s.get(ctx, "submissions", "course-progress", courseID)
	if err != nil {
		return Progress{}, err
	}
	return decodeOne[Progress](body, "progress", progressFixups)
}

func (s *SubmissionService) Get(ctx context.Context, id string) (Submission, error) {
	body, err := s.get(ctx, "submissions", id)
	if err != nil {
		return Submission{}, err
	}
	return decodeOne[Submission](body, "submission", submissionFixups)
}

// Grade records a grade and feedback. Staff only.
func (s *SubmissionService) Grade(ctx context.Context, id string, in GradeInput) error {
	if in.Grade < 0 {
		return ErrInvalidArgument.Msg("grade must not be negative")
	}
	p, err := pathOf("submissions", "grade", id)
	if err != nil {
		return err
	}
	body, err := encode(in)
	if err != nil {
		return err
	}
	return discard(s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: p, Body: body}))
}

// Acknowledge confirms receipt of a submission with a note.
func (s *SubmissionService) Acknowledge(ctx context.Context, id, note string) error {
	p, err := pathOf("submissions", "acknowledge", id)
	if err != nil {
		return err
	}
	return discard(s.api.Do(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   p,
		Body:   object("acknowledgmentNote", note),
	}))
}

// UpdateProgress sets the completion percentage of a submission.
func (s *SubmissionService) UpdateProgress(ctx context.Context, id string, percentage int) error {
	if percentage < 0 || percentage > 100 {
		return ErrInvalidArgument.Msg("progress must be between 0 and 100")
	}
	p, err := pathOf("submissions", "progress", id)
	if err != nil {
		return err
	}
	return discard(s.api.Do(ctx, httpclient.RequestOptions{
		Method: http.MethodPatch,
		Path:   p,
		Body:   object("progressPercentage", percentage),
	}))
}

// Download streams the file at index of a submission. The caller closes the body.
func (s *SubmissionService) Download(ctx context.Context, id string, index int) (*httpclient.StreamResponse, error) {
	if index < 0 {
		return nil, ErrInvalidArgument.Msg("file index must not be negative")
	}
	p, err := pathOf("submissions", "download", id, strconv.Itoa(index))
	if err != nil {
		return nil, err
	}
	return s.api.Stream(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
}
