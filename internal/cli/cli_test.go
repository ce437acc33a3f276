package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Balram04/assigno/internal/common/httpclient"
	"github.com/Balram04/assigno/internal/config"
	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/testutil/fakeapi"
)

type harness struct {
	t       *testing.T
	srv     *fakeapi.Server
	dir     string
	cfgPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{config.EnvAPIURL, config.EnvStorage, config.EnvStoragePath, config.EnvLogLevel} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	h := &harness{t: t, srv: fakeapi.New(t), dir: t.TempDir()}
	h.cfgPath = filepath.Join(h.dir, config.DefaultConfigFile)

	cfg := config.Default()
	cfg.ServerURL = h.srv.URL()
	cfg.PollInterval = 20 * time.Millisecond
	require.NoError(t, cfg.Write(h.cfgPath))

	h.srv.Reply(http.MethodGet, "/auth/verify", http.StatusOK, fakeapi.M{"success": true})
	return h
}

// run executes the CLI with fresh flag values and returns everything it printed.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	resetFlags(rootCmd)
	jsonOutput = false
	configFile = h.cfgPath
	dotEnvFile = filepath.Join(h.dir, ".env")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "env-file" || f.Name == "json" {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (h *harness) login(role string) {
	h.t.Helper()
	h.srv.Reply(http.MethodPost, "/auth/login", http.StatusOK, fakeapi.M{
		"token": "tok-" + role,
		"user":  fakeapi.M{"_id": "u-" + role, "fullName": "Test " + role, "email": role + "@example.edu", "role": role},
	})
	out, err := h.run("login", "--email", role+"@example.edu", "--password", "s3cret1")
	require.NoError(h.t, err, out)
}

func TestLoginStatusLogout(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	h.login("student")
	rec, ok := h.srv.Last(http.MethodPost, "/auth/login")
	require.True(t, ok)
	assert.JSONEq(t, `{"email":"student@example.edu","password":"s3cret1"}`, string(rec.Body))
	assert.FileExists(t, filepath.Join(h.dir, config.DefaultSessionFile))

	out, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as: Test student")
	assert.Contains(t, out, "Role: Student")
	assert.Contains(t, out, "Home view: /student")
	verify, ok := h.srv.Last(http.MethodGet, "/auth/verify")
	require.True(t, ok)
	assert.Equal(t, "Bearer tok-student", verify.Header.Get("Authorization"))

	out, err = h.run("status", "--json")
	require.NoError(t, err)
	assert.Equal(t, "authenticated", gjson.Get(out, "value.state").String())
	assert.Equal(t, "u-student", gjson.Get(out, "value.userID").String())

	_, err = h.run("login", "--email", "x@example.edu", "--password", "s3cret1")
	assert.ErrorContains(t, err, "Already signed in")

	out, err = h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	assert.Zero(t, h.srv.Count(http.MethodPost, "/auth/logout"), "logout is local")

	out, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestLoginFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.srv.Reply(http.MethodPost, "/auth/login", http.StatusUnauthorized, fakeapi.M{"error": "Invalid credentials"})

	_, err := h.run("login", "--email", "a@example.edu", "--password", "wrong1")
	assert.EqualError(t, err, "Invalid credentials")
}

func TestRegisterValidatesLocally(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("register", "--name", "Asha Rao", "--email", "asha@example.edu",
		"--password", "letters", "--confirm-password", "letters", "--student-id", "S-1")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "password", fe.Field)
	assert.Equal(t, "Password must contain both letters and numbers", fe.Message)
	assert.Zero(t, h.srv.Count(http.MethodPost, "/auth/register"))

	h.srv.Reply(http.MethodPost, "/auth/register", http.StatusCreated, fakeapi.M{
		"token": "tok-new",
		"user":  fakeapi.M{"id": "u-new", "fullName": "Asha Rao", "email": "asha@example.edu", "role": "student", "studentId": "S-1"},
	})
	out, err := h.run("register", "--name", "Asha Rao", "--email", "asha@example.edu",
		"--password", "s3cret1", "--confirm-password", "s3cret1", "--student-id", "S-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Registration successful")

	rec, _ := h.srv.Last(http.MethodPost, "/auth/register")
	assert.False(t, gjson.GetBytes(rec.Body, "confirmPassword").Exists())
	assert.Equal(t, "S-1", gjson.GetBytes(rec.Body, "studentId").String())
}

func TestCommandsRequireSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("courses", "list")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Empty(t, h.srv.Requests())
}

func TestStaffCommandsAreGatedByRouter(t *testing.T) {
	h := newHarness(t)
	h.login("student")

	_, err := h.run("courses", "create", "--name", "Compilers", "--code", "CS401")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.run("grade", "s1", "--grade", "9")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.run("courses", "get", "c1", "--analytics")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Zero(t, h.srv.Count(http.MethodPost, "/courses"))
	assert.Zero(t, h.srv.Count(http.MethodPost, "/submissions/grade/s1"))
}

func TestStudentCourseListing(t *testing.T) {
	h := newHarness(t)
	h.srv.Reply(http.MethodGet, "/courses/student/{id}", http.StatusOK, fakeapi.M{"courses": []fakeapi.M{
		{"_id": "c1", "courseName": "Compilers", "courseCode": "CS401", "semester": "Spring", "year": 2025,
			"professor": fakeapi.M{"_id": "p1", "fullName": "Ada Lovelace"}},
	}})
	h.login("student")

	out, err := h.run("courses", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Courses:")
	assert.Contains(t, out, "CS401")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "Spring 2025")
	assert.Equal(t, 1, h.srv.Count(http.MethodGet, "/courses/student/u-student"))

	out, err = h.run("courses", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, "c1", gjson.Get(out, "value.0.id").String())
}

func TestCreateCoursesFromManifest(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle(http.MethodPost, "/courses", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fakeapi.JSON(w, http.StatusCreated, fakeapi.M{"course": fakeapi.M{
			"_id":        "new-" + gjson.GetBytes(body, "courseCode").String(),
			"courseName": gjson.GetBytes(body, "courseName").String(),
			"courseCode": gjson.GetBytes(body, "courseCode").String(),
		}})
	})
	h.login("professor")

	manifest := filepath.Join(h.dir, "courses.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("courseName: Compilers\ncourseCode: CS401\ncredits: 4\n---\ncourseName: Databases\ncourseCode: CS310\n"), 0o600))

	out, err := h.run("courses", "create", "-f", manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Created course CS401 (new-CS401)")
	assert.Contains(t, out, "Created course CS310 (new-CS310)")
	assert.Equal(t, 2, h.srv.Count(http.MethodPost, "/courses"))

	_, err = h.run("courses", "create", "--name", "No code")
	assert.ErrorContains(t, err, "course name and code are required")
}

func TestRejectedCredentialEndsStoredSession(t *testing.T) {
	h := newHarness(t)
	h.srv.Reply(http.MethodGet, "/groups/my-groups", http.StatusUnauthorized, fakeapi.M{"error": "Token expired"})
	h.login("student")

	_, err := h.run("groups", "list", "--mine")
	assert.True(t, httpclient.IsCredentialRejected(err))

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestOpenReportsRedirects(t *testing.T) {
	h := newHarness(t)
	h.login("student")

	out, err := h.run("open", "/admin/course/c9")
	require.NoError(t, err)
	assert.Contains(t, out, "Redirected: /admin/course/c9 -> /student")

	out, err = h.run("open", "/student/course/c9", "--json")
	require.NoError(t, err)
	assert.Equal(t, "allow", gjson.Get(out, "value.decision").String())
	assert.Equal(t, "student-course", gjson.Get(out, "value.view").String())
	assert.Equal(t, "courseId=c9", gjson.Get(out, "value.params.0").String())
}

func TestDownloadWritesFile(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle(http.MethodGet, "/submissions/download/{id}/{idx}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.Write([]byte("%PDF-1.7 body"))
	})
	h.login("professor")

	dest := filepath.Join(h.dir, "out.pdf")
	out, err := h.run("download", "s1", "0", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 body", string(data))
}

func TestConfigServerAndClear(t *testing.T) {
	h := newHarness(t)
	h.login("admin")

	out, err := h.run("config", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Session cleared")
	out, _ = h.run("status")
	assert.Contains(t, out, "Not signed in")

	out, err = h.run("config", "--server", "lms.example.edu/api")
	require.NoError(t, err)
	assert.Contains(t, out, "Server configured: https://lms.example.edu/api")

	cfg, err := config.Load(h.cfgPath, filepath.Join(h.dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "https://lms.example.edu/api", cfg.ServerURL)
	assert.Equal(t, 20*time.Millisecond, cfg.PollInterval, "other settings are kept")
}

func TestChatPrinterSkipsSeenMessages(t *testing.T) {
	var buf bytes.Buffer
	p := newChatPrinter(&buf)

	first := []lms.Message{
		{ID: "m1", Sender: &lms.Person{ID: "u1", FullName: "Asha"}, Content: "hello"},
		{ID: "m2", Content: "line one\nline two"},
	}
	assert.Equal(t, 2, p.Print(first))
	assert.Equal(t, 1, p.Print(append(first, lms.Message{ID: "m3", Content: "again"})))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "hello"))
	assert.Contains(t, out, "Asha: hello")
	assert.Contains(t, out, "Unknown User: line one\n")
	assert.Contains(t, out, "again")
}
