package lms

import (
	"io"
	"strconv"
	"strings"
	"time"
)

// Timestamp accepts the date formats the backend emits: RFC 3339, SQL datetime and plain dates.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.Format(time.RFC3339))), nil
}

// Person is a user as embedded in other records.
type Person struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	StudentID string `json:"studentId,omitempty"`
}

var personFixups = []fixup{
	alias("full_name", "fullName"),
	alias("name", "fullName"),
	alias("student_id", "studentId"),
	alias("user_id", "id"),
}

type Course struct {
	ID               string   `json:"id"`
	CourseName       string   `json:"courseName"`
	CourseCode       string   `json:"courseCode"`
	Description      string   `json:"description,omitempty"`
	Department       string   `json:"department,omitempty"`
	Semester         string   `json:"semester,omitempty"`
	Year             int      `json:"year,omitempty"`
	Credits          int      `json:"credits,omitempty"`
	MaxStudents      int      `json:"maxStudents,omitempty"`
	Color            string   `json:"color,omitempty"`
	Professor        *Person  `json:"professor,omitempty"`
	EnrolledStudents []Person `json:"enrolledStudents,omitempty"`
}

var courseFixups = []fixup{
	alias("name", "courseName"),
	alias("course_name", "courseName"),
	alias("course_code", "courseCode"),
	alias("max_students", "maxStudents"),
	ref("professor"),
	refs("enrolledStudents"),
}

// refs is ref applied to every entry of an array of identifiers or objects.
func refs(key string) fixup {
	return func(obj string) string {
		return each(key, personFixups)(idList(key)(obj))
	}
}

// CourseInput is the body of course create and update calls.
type CourseInput struct {
	CourseName  string `json:"courseName,omitempty"`
	CourseCode  string `json:"courseCode,omitempty"`
	Description string `json:"description,omitempty"`
	Department  string `json:"department,omitempty"`
	Semester    string `json:"semester,omitempty"`
	Year        int    `json:"year,omitempty"`
	Credits     int    `json:"credits,omitempty"`
	MaxStudents int    `json:"maxStudents,omitempty"`
	Color       string `json:"color,omitempty"`
}

// CourseAnalytics summarises activity in a course.
type CourseAnalytics struct {
	TotalStudents       int              `json:"totalStudents"`
	TotalAssignments    int              `json:"totalAssignments"`
	TotalSubmissions    int              `json:"totalSubmissions"`
	TotalGraded         int              `json:"totalGraded"`
	TotalGroups         int              `json:"totalGroups"`
	AverageGrade        float64          `json:"averageGrade"`
	SubmissionRate      float64          `json:"submissionRate"`
	GradingRate         float64          `json:"gradingRate"`
	AssignmentBreakdown []map[string]any `json:"assignmentBreakdown,omitempty"`
}

var analyticsFixups = []fixup{alias("total_students", "totalStudents")}

type Assignment struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Instructions   string      `json:"instructions,omitempty"`
	CourseID       string      `json:"courseId,omitempty"`
	CourseName     string      `json:"courseName,omitempty"`
	CourseCode     string      `json:"courseCode,omitempty"`
	CreatorName    string      `json:"creatorName,omitempty"`
	DueDate        Timestamp   `json:"dueDate"`
	MaxPoints      float64     `json:"maxPoints,omitempty"`
	OnedriveLink   string      `json:"onedriveLink,omitempty"`
	IsForAll       bool        `json:"isForAll,omitempty"`
	GroupID        string      `json:"groupId,omitempty"`
	SubmissionType string      `json:"submissionType,omitempty"`
	Status         string      `json:"status,omitempty"`
	Submitted      bool        `json:"submitted,omitempty"`
	Graded         bool        `json:"graded,omitempty"`
	IsOverdue      bool        `json:"isOverdue,omitempty"`
	Grade          *float64    `json:"grade,omitempty"`
	Feedback       string      `json:"feedback,omitempty"`
	SubmittedCount int         `json:"submittedCount,omitempty"`
	TotalStudents  int         `json:"totalStudents,omitempty"`
	Resources      []string    `json:"resources,omitempty"`
	UserSubmission *Submission `json:"userSubmission,omitempty"`
}

var assignmentFixups = []fixup{
	alias("due_date", "dueDate"),
	alias("course_id", "courseId"),
	alias("course_name", "courseName"),
	alias("course_code", "courseCode"),
	alias("creator_name", "creatorName"),
	alias("points", "maxPoints"),
	alias("onedrive_link", "onedriveLink"),
	alias("is_for_all", "isForAll"),
	alias("submitted_count", "submittedCount"),
	alias("total_students", "totalStudents"),
	idOf("course", "courseId"),
	nested("userSubmission", submissionFixups),
}

// AssignmentInput is the body of assignment create and update calls.
type AssignmentInput struct {
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	CourseID     string     `json:"courseId,omitempty"`
	DueDate      *Timestamp `json:"dueDate,omitempty"`
	MaxPoints    float64    `json:"maxPoints,omitempty"`
	OnedriveLink string     `json:"onedriveLink,omitempty"`
	IsForAll     *bool      `json:"isForAll,omitempty"`
	GroupID      string     `json:"groupId,omitempty"`
}

// AssignmentStats counts submissions for one assignment.
type AssignmentStats struct {
	TotalStudents  int `json:"totalStudents"`
	SubmittedCount int `json:"submittedCount"`
	GradedCount    int `json:"gradedCount"`
	PendingCount   int `json:"pendingCount"`
}

var assignmentStatsFixups = []fixup{
	alias("total_students", "totalStudents"),
	alias("submitted_count", "submittedCount"),
	alias("graded_count", "gradedCount"),
	alias("pending_count", "pendingCount"),
}

// AssignmentDetail is the staff view of an assignment.
type AssignmentDetail struct {
	Assignment  Assignment      `json:"assignment"`
	Stats       AssignmentStats `json:"stats"`
	Submissions []Submission    `json:"submissions"`
}

type SubmissionFile struct {
	Name         string `json:"name,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	Size         int64  `json:"size,omitempty"`
	MimeType     string `json:"mimetype,omitempty"`
}

type Submission struct {
	ID                 string           `json:"id"`
	AssignmentID       string           `json:"assignmentId,omitempty"`
	GroupID            string           `json:"groupId,omitempty"`
	Status             string           `json:"status,omitempty"`
	Grade              *float64         `json:"grade,omitempty"`
	Feedback           string           `json:"feedback,omitempty"`
	SubmissionNotes    string           `json:"submissionNotes,omitempty"`
	AcknowledgmentNote string           `json:"acknowledgmentNote,omitempty"`
	ProgressPercentage int              `json:"progressPercentage,omitempty"`
	SubmittedAt        Timestamp        `json:"submittedAt"`
	StudentID          string           `json:"studentId,omitempty"`
	StudentName        string           `json:"studentName,omitempty"`
	StudentEmail       string           `json:"studentEmail,omitempty"`
	StudentRoll        string           `json:"studentRoll,omitempty"`
	FileCount          int              `json:"fileCount,omitempty"`
	Files              []SubmissionFile `json:"files,omitempty"`
}

var submissionFixups = []fixup{
	alias("submission_id", "id"),
	alias("assignment_id", "assignmentId"),
	alias("group_id", "groupId"),
	alias("submitted_at", "submittedAt"),
	alias("student_id", "studentId"),
	alias("student_name", "studentName"),
	alias("student_email", "studentEmail"),
	alias("student_roll", "studentRoll"),
	alias("file_count", "fileCount"),
	alias("progress_percentage", "progressPercentage"),
	idOf("assignment", "assignmentId"),
	idOf("group", "groupId"),
}

// UploadFile is a file attached to Submit.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// SubmitRequest is the multipart body of a submission.
type SubmitRequest struct {
	AssignmentID string
	GroupID      string
	Notes        string
	Files        []UploadFile
}

// Progress is submission progress for a group or a course.
type Progress struct {
	Total                int     `json:"total"`
	Confirmed            int     `json:"confirmed"`
	Pending              int     `json:"pending"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

var progressFixups = []fixup{alias("completion_percentage", "completionPercentage")}

// GradeInput is the body of a grading call.
type GradeInput struct {
	Grade    float64 `json:"grade"`
	Feedback string  `json:"feedback,omitempty"`
}

type Group struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category,omitempty"`
	CourseID          string `json:"courseId,omitempty"`
	MaxMembers        int    `json:"maxMembers,omitempty"`
	MemberCount       int    `json:"memberCount"`
	CreatorName       string `json:"creatorName,omitempty"`
	IsMember          bool   `json:"isMember,omitempty"`
	IsFull            bool   `json:"isFull,omitempty"`
	HasPendingRequest bool   `json:"hasPendingRequest,omitempty"`
	UserRole          string `json:"userRole,omitempty"`
	UnreadCount       int    `json:"unreadCount,omitempty"`
}

var groupFixups = []fixup{
	alias("course_id", "courseId"),
	alias("max_members", "maxMembers"),
	alias("member_count", "memberCount"),
	alias("creator_name", "creatorName"),
	alias("is_member", "isMember"),
	alias("is_full", "isFull"),
	alias("has_pending_request", "hasPendingRequest"),
	alias("user_role", "userRole"),
	alias("unread_count", "unreadCount"),
}

// GroupInput is the body of group create and update calls.
type GroupInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CourseID    string `json:"courseId,omitempty"`
	MaxMembers  int    `json:"maxMembers,omitempty"`
	IsPublic    *bool  `json:"isPublic,omitempty"`
}

// GroupDetail is a group with its members.
type GroupDetail struct {
	Group   Group
	Members []Person
}

type JoinRequest struct {
	UserID      string    `json:"userId"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email,omitempty"`
	StudentID   string    `json:"studentId,omitempty"`
	Message     string    `json:"message,omitempty"`
	RequestedAt Timestamp `json:"requestedAt"`
}

var joinRequestFixups = []fixup{
	alias("user_id", "userId"),
	alias("full_name", "fullName"),
	alias("student_id", "studentId"),
	alias("requested_at", "requestedAt"),
}

type Message struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId,omitempty"`
	Sender    *Person   `json:"senderId,omitempty"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"createdAt"`
}

// SenderName is the display name of the author.
func (m Message) SenderName() string {
	if m.Sender == nil || m.Sender.FullName == "" {
		return "Unknown User"
	}
	return m.Sender.FullName
}

var messageFixups = []fixup{
	alias("sender_id", "senderId"),
	alias("created_at", "createdAt"),
	alias("group_id", "groupId"),
	ref("senderId"),
}

// GroupStats is the activity summary of a group.
type GroupStats map[string]any
