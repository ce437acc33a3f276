package app

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Balram04/assigno/internal/common/httpclient"
	"github.com/Balram04/assigno/internal/config"
	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/policy"
	"github.com/Balram04/assigno/internal/session"
	"github.com/Balram04/assigno/internal/storage"
	"github.com/Balram04/assigno/internal/testutil/fakeapi"
)

func loginReply(role string) fakeapi.M {
	return fakeapi.M{
		"token": "tok-" + role,
		"user":  fakeapi.M{"id": "u-" + role, "fullName": "Test " + role, "email": role + "@example.com", "role": role},
	}
}

func newApp(t *testing.T, kv storage.Store) (*App, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.New(t)
	cfg := config.Default()
	cfg.ServerURL = srv.URL()
	cfg.PollInterval = 20 * time.Millisecond
	if kv == nil {
		kv = storage.NewMemoryStore()
	}
	a, err := New(context.Background(), cfg, WithStore(kv))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, srv
}

func signIn(t *testing.T, a *App, srv *fakeapi.Server, role string) {
	t.Helper()
	srv.Reply(http.MethodPost, "/auth/login", http.StatusOK, loginReply(role))
	require.Equal(t, session.StateUnauthenticated, a.Start(context.Background()))
	res := a.Session.Login(context.Background(), role+"@example.com", "s3cret1")
	require.True(t, res.Success, res.Error)
}

func currentPath(a *App) string {
	if m := a.Router.Current(); m != nil {
		return m.Path
	}
	return ""
}

func TestConcurrentRejectionsRedirectOnce(t *testing.T) {
	a, srv := newApp(t, nil)
	release := make(chan struct{})
	srv.Handle(http.MethodGet, "/courses", func(w http.ResponseWriter, r *http.Request) {
		<-release
		fakeapi.JSON(w, http.StatusUnauthorized, fakeapi.M{"error": "Token expired"})
	})
	signIn(t, a, srv, "student")

	res, err := a.Router.Navigate(a.Home())
	require.NoError(t, err)
	require.Equal(t, policy.StudentHome, res.Path)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.LMS.Courses.List(res.Mount.RequestContext())
			assert.True(t, httpclient.IsCredentialRejected(err))
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, 1, a.Rejections())
	assert.Equal(t, session.StateUnauthenticated, a.Session.State())
	assert.Equal(t, policy.EntryView, currentPath(a))
	assert.False(t, res.Mount.Alive())
	_, ok, _ := a.Store.Get(session.KeyToken)
	assert.False(t, ok)
}

func TestStudentSentAwayFromStaffView(t *testing.T) {
	a, srv := newApp(t, nil)
	signIn(t, a, srv, "student")

	res, err := a.Router.Navigate("/admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"/admin"}, res.Redirects)
	assert.Equal(t, policy.StudentHome, res.Path)
	assert.Empty(t, srv.Requests()[1:], "access decisions make no network calls")
}

func TestProfessorLandsOnStaffHome(t *testing.T) {
	a, srv := newApp(t, nil)
	signIn(t, a, srv, "professor")
	assert.Equal(t, policy.StaffHome, a.Home())

	res, err := a.Router.Navigate("/student/course/c1")
	require.NoError(t, err)
	assert.Equal(t, policy.StaffHome, res.Path)
}

func TestRegisterConflictLeavesStateUnchanged(t *testing.T) {
	a, srv := newApp(t, nil)
	srv.Reply(http.MethodPost, "/auth/register", http.StatusConflict, fakeapi.M{"error": "Email already registered", "field": "email"})
	a.Start(context.Background())

	res := a.Session.Register(context.Background(), map[string]any{
		"fullName":  "Asha Rao",
		"email":     "asha@example.com",
		"password":  "s3cret1",
		"role":      "student",
		"studentId": "S-17",
	})
	assert.False(t, res.Success)
	assert.Equal(t, "email", res.Field)
	assert.Equal(t, session.StateUnauthenticated, a.Session.State())
	assert.Zero(t, a.Rejections())
}

func TestPendingNavigationResolvesAfterInitialize(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(session.KeyToken, "tok-admin"))
	require.NoError(t, kv.Set(session.KeyUser, `{"id":"u-admin","fullName":"Test admin","role":"admin"}`))

	a, srv := newApp(t, kv)
	verified := make(chan struct{})
	srv.Handle(http.MethodGet, "/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		<-verified
		fakeapi.JSON(w, http.StatusOK, fakeapi.M{"success": true})
	})

	res, err := a.Router.Navigate("/admin/course/c5")
	require.NoError(t, err)
	assert.Equal(t, policy.Loading, res.Decision.Outcome)

	done := make(chan session.State, 1)
	go func() { done <- a.Start(context.Background()) }()
	close(verified)
	assert.Equal(t, session.StateAuthenticated, <-done)

	require.Eventually(t, func() bool { return currentPath(a) == "/admin/course/c5" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "c5", a.Router.Current().Param("courseId"))
}

func TestPollingStopsOnUnmount(t *testing.T) {
	a, srv := newApp(t, nil)
	srv.Reply(http.MethodGet, "/groups/{id}/messages", http.StatusOK, fakeapi.M{"messages": []fakeapi.M{{"id": "m1", "content": "hi"}}})
	signIn(t, a, srv, "student")

	got := make(chan []lms.Message, 16)
	m, poller, err := a.OpenGroupChat("/student/course/c1", "g1", func(msgs []lms.Message) {
		select {
		case got <- msgs:
		default:
		}
	})
	require.NoError(t, err)
	assert.True(t, m.Alive())
	select {
	case msgs := <-got:
		assert.Equal(t, "m1", msgs[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no messages delivered")
	}

	_, err = a.Router.Navigate("/student")
	require.NoError(t, err)
	select {
	case <-poller.Done():
	case <-time.After(time.Second):
		t.Fatal("poller kept running after the view was left")
	}
	assert.False(t, m.Alive())

	_, _, err = a.OpenGroupChat("/admin", "g1", nil)
	assert.Error(t, err, "guarded views redirect instead of polling")
}

func TestLateResponseForUnmountedView(t *testing.T) {
	a, srv := newApp(t, nil)
	started := make(chan struct{})
	unblock := make(chan struct{})
	srv.Handle(http.MethodGet, "/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-unblock
		fakeapi.JSON(w, http.StatusOK, fakeapi.M{"course": fakeapi.M{"id": "c1", "courseName": "Compilers", "courseCode": "CS401"}})
	})
	signIn(t, a, srv, "student")

	res, err := a.Router.Navigate("/student/course/c1")
	require.NoError(t, err)
	m := res.Mount

	type outcome struct {
		course lms.Course
		err    error
	}
	out := make(chan outcome, 1)
	go func() {
		c, err := a.LMS.Courses.Get(m.RequestContext(), m.Param("courseId"))
		out <- outcome{c, err}
	}()
	<-started

	_, err = a.Router.Navigate("/student")
	require.NoError(t, err)
	close(unblock)

	o := <-out
	require.NoError(t, o.err, "leaving the view must not cancel a request already sent")
	assert.Equal(t, "Compilers", o.course.CourseName)
	assert.False(t, m.Alive(), "the result must be dropped by the view")
	assert.Equal(t, policy.StudentHome, currentPath(a))
}

func TestCloseIsIdempotent(t *testing.T) {
	a, _ := newApp(t, nil)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
