package lms

import (
	"context"
	"net/http"

	"github.com/Balram04/assigno/internal/common/httpclient"
)

// CourseService wraps the /courses endpoints.
type CourseService struct {
	api httpclient.HTTPClientInterface
}

func (s *CourseService) list(ctx context.Context, parts ...string) ([]Course, error) {
	p, err := pathOf(parts...)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return nil, err
	}
	return decodeList[Course](resp.Body, "courses", courseFixups)
}

// List returns every course visible to the caller.
func (s *CourseService) List(ctx context.Context) ([]Course, error) {
	return s.list(ctx, "courses")
}

// ForStudent returns the courses a student is enrolled in.
func (s *CourseService) ForStudent(ctx context.Context, studentID string) ([]Course, error) {
	return s.list(ctx, "courses", "student", studentID)
}

// ForProfessor returns the courses a professor teaches.
func (s *CourseService) ForProfessor(ctx context.Context, professorID string) ([]Course, error) {
	return s.list(ctx, "courses", "professor", professorID)
}

func (s *CourseService) Get(ctx context.Context, id string) (Course, error) {
	p, err := pathOf("courses", id)
	if err != nil {
		return Course{}, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return Course{}, err
	}
	return decodeOne[Course](resp.Body, "course", courseFixups)
}

func (s *CourseService) Create(ctx context.Context, in CourseInput) (Course, error) {
	if in.CourseName == "" || in.CourseCode == "" {
		return Course{}, ErrInvalidArgument.Msg("course name and code are required")
	}
	return s.write(ctx, http.MethodPost, in, "courses")
}

func (s *CourseService) Update(ctx context.Context, id string, in CourseInput) (Course, error) {
	return s.write(ctx, http.MethodPut, in, "courses", id)
}

func (s *CourseService) write(ctx context.Context, method string, in CourseInput, parts ...string) (Course, error) {
	p, err := pathOf(parts...)
	if err != nil {
		return Course{}, err
	}
	body, err := encode(in)
	if err != nil {
		return Course{}, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: method, Path: p, Body: body})
	if err != nil {
		return Course{}, err
	}
	return decodeOne[Course](resp.Body, "course", courseFixups)
}

func (s *CourseService) Delete(ctx context.Context, id string) error {
	p, err := pathOf("courses", id)
	if err != nil {
		return err
	}
	return discard(s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodDelete, Path: p}))
}

// Enroll adds a student to a course. An empty studentID enrolls the caller.
func (s *CourseService) Enroll(ctx context.Context, courseID, studentID string) error {
	return s.membership(ctx, "enroll", courseID, studentID)
}

// Unenroll removes a student from a course. An empty studentID unenrolls the caller.
func (s *CourseService) Unenroll(ctx context.Context, courseID, studentID string) error {
	return s.membership(ctx, "unenroll", courseID, studentID)
}

func (s *CourseService) membership(ctx context.Context, action, courseID, studentID string) error {
	p, err := pathOf("courses", courseID, action)
	if err != nil {
		return err
	}
	var body []byte
	if studentID != "" {
		body = object("studentId", studentID)
	}
	return discard(s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: p, Body: body}))
}

// Students lists the students enrolled in a course.
func (s *CourseService) Students(ctx context.Context, courseID string) ([]Person, error) {
	p, err := pathOf("courses", courseID, "students")
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return nil, err
	}
	return decodeList[Person](resp.Body, "students", personFixups)
}

// Assignments lists the assignments of a course.
func (s *CourseService) Assignments(ctx context.Context, courseID string) ([]Assignment, error) {
	p, err := pathOf("courses", courseID, "assignments")
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return nil, err
	}
	return decodeList[Assignment](resp.Body, "assignments", assignmentFixups)
}

func (s *CourseService) Analytics(ctx context.Context, courseID string) (CourseAnalytics, error) {
	p, err := pathOf("courses", courseID, "analytics")
	if err != nil {
		return CourseAnalytics{}, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p})
	if err != nil {
		return CourseAnalytics{}, err
	}
	return decodeOne[CourseAnalytics](resp.Body, "analytics", analyticsFixups)
}
