package lms

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Balram04/assigno/internal/eventbus"
	"github.com/Balram04/assigno/internal/testutil/fakeapi"
)

func TestGroupListing(t *testing.T) {
	srv, svc := newService(t)
	groups := fakeapi.M{"groups": []fakeapi.M{{"id": "g1", "name": "Compiler nerds", "member_count": 3, "is_member": true, "has_pending_request": false}}}
	srv.Reply(http.MethodGet, "/groups", http.StatusOK, groups)
	srv.Reply(http.MethodGet, "/groups/my-groups", http.StatusOK, groups)
	srv.Reply(http.MethodGet, "/groups/browse", http.StatusOK, groups)
	srv.Reply(http.MethodGet, "/groups/search", http.StatusOK, fakeapi.M{"groups": []fakeapi.M{}})

	ctx := context.Background()
	all, err := svc.Groups.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 3, all[0].MemberCount)
	assert.True(t, all[0].IsMember)

	_, err = svc.Groups.Mine(ctx)
	require.NoError(t, err)

	_, err = svc.Groups.Search(ctx, "  ", "all")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/groups/browse"), "an empty search browses")

	found, err := svc.Groups.Search(ctx, "compiler", "study")
	require.NoError(t, err)
	assert.Empty(t, found)
	rec, _ := srv.Last(http.MethodGet, "/groups/search")
	assert.Equal(t, "category=study&query=compiler", rec.RawQuery)
}

func TestGroupDetail(t *testing.T) {
	srv, svc := newService(t)
	srv.Reply(http.MethodGet, "/groups/{id}", http.StatusOK, fakeapi.M{
		"group":   fakeapi.M{"id": "g1", "name": "Compiler nerds", "creator_name": "Asha Rao"},
		"members": []fakeapi.M{{"id": "u1", "full_name": "Asha Rao", "role": "leader"}, {"id": "u2", "full_name": "Ravi"}},
	})
	srv.Reply(http.MethodGet, "/groups/{id}/stats", http.StatusOK, fakeapi.M{"stats": fakeapi.M{"totalMessages": 12}})

	d, err := svc.Groups.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", d.Group.CreatorName)
	require.Len(t, d.Members, 2)
	assert.Equal(t, "Ravi", d.Members[1].FullName)

	stats, err := svc.Groups.Stats(context.Background(), "g1")
	require.NoError(t, err)
	assert.EqualValues(t, 12, stats["totalMessages"])
}

func TestGroupMembership(t *testing.T) {
	srv, svc := newService(t)
	ok := fakeapi.M{"success": true}
	srv.Reply(http.MethodPost, "/groups", http.StatusCreated, fakeapi.M{"group": fakeapi.M{"_id": "g9", "name": "Study group"}})
	srv.Reply(http.MethodPut, "/groups/{id}", http.StatusOK, fakeapi.M{"group": fakeapi.M{"id": "g9", "name": "Renamed"}})
	srv.Reply(http.MethodDelete, "/groups/{id}", http.StatusOK, ok)
	srv.Reply(http.MethodPost, "/groups/{id}/join", http.StatusOK, ok)
	srv.Reply(http.MethodPost, "/groups/{id}/leave", http.StatusOK, ok)
	srv.Reply(http.MethodGet, "/groups/{id}/requests", http.StatusOK, fakeapi.M{"requests": []fakeapi.M{
		{"user_id": "u3", "full_name": "Kiran", "message": "let me in", "requested_at": "2025-02-01T08:00:00Z"},
	}})
	srv.Reply(http.MethodPost, "/groups/{id}/approve/{uid}", http.StatusOK, ok)
	srv.Reply(http.MethodPost, "/groups/{id}/reject/{uid}", http.StatusOK, ok)
	srv.Reply(http.MethodPost, "/groups/{id}/members", http.StatusOK, ok)
	srv.Reply(http.MethodDelete, "/groups/{id}/members/{uid}", http.StatusOK, ok)

	ctx := context.Background()
	_, err := svc.Groups.Create(ctx, GroupInput{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	g, err := svc.Groups.Create(ctx, GroupInput{Name: "Study group", MaxMembers: 5})
	require.NoError(t, err)
	assert.Equal(t, "g9", g.ID)

	g, err = svc.Groups.Update(ctx, "g9", GroupInput{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", g.Name)

	require.NoError(t, svc.Groups.Join(ctx, "g9", "I would like to join this group"))
	rec, _ := srv.Last(http.MethodPost, "/groups/g9/join")
	assert.JSONEq(t, `{"message":"I would like to join this group"}`, string(rec.Body))

	reqs, err := svc.Groups.Requests(ctx, "g9")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "u3", reqs[0].UserID)
	assert.Equal(t, "Kiran", reqs[0].FullName)

	require.NoError(t, svc.Groups.Approve(ctx, "g9", "u3"))
	require.NoError(t, svc.Groups.Reject(ctx, "g9", "u4"))
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/groups/g9/approve/u3"))
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/groups/g9/reject/u4"))

	assert.ErrorIs(t, svc.Groups.AddMember(ctx, "g9", ""), ErrInvalidArgument)
	require.NoError(t, svc.Groups.AddMember(ctx, "g9", "S-17"))
	rec, _ = srv.Last(http.MethodPost, "/groups/g9/members")
	assert.JSONEq(t, `{"emailOrStudentId":"S-17"}`, string(rec.Body))
	require.NoError(t, svc.Groups.RemoveMember(ctx, "g9", "u2"))

	require.NoError(t, svc.Groups.Leave(ctx, "g9"))
	require.NoError(t, svc.Groups.Delete(ctx, "g9"))
}

func TestGroupMessages(t *testing.T) {
	srv, svc := newService(t)
	srv.Reply(http.MethodGet, "/groups/{id}/messages", http.StatusOK, fakeapi.M{"messages": []fakeapi.M{
		{"id": "m1", "content": "hi", "createdAt": "2025-02-01T08:00:00Z", "senderId": fakeapi.M{"_id": "u1", "fullName": "Asha Rao"}},
		{"id": "m2", "content": "hello", "createdAt": "2025-02-01T08:01:00Z", "senderId": "u2"},
	}})
	srv.Reply(http.MethodPost, "/groups/{id}/messages", http.StatusCreated, fakeapi.M{"success": true})

	ctx := context.Background()
	msgs, err := svc.Groups.Messages(ctx, "g1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Asha Rao", msgs[0].SenderName())
	assert.Equal(t, "u1", msgs[0].Sender.ID)
	assert.Equal(t, "u2", msgs[1].Sender.ID)
	assert.Equal(t, "Unknown User", msgs[1].SenderName())
	rec, _ := srv.Last(http.MethodGet, "/groups/g1/messages")
	assert.Equal(t, "limit=50", rec.RawQuery)

	assert.ErrorIs(t, svc.Groups.SendMessage(ctx, "g1", "   "), ErrInvalidArgument)
	require.NoError(t, svc.Groups.SendMessage(ctx, "g1", "see you at 5"))
	rec, _ = srv.Last(http.MethodPost, "/groups/g1/messages")
	assert.JSONEq(t, `{"content":"see you at 5"}`, string(rec.Body))
}

func TestMessagePoller(t *testing.T) {
	srv, svc := newService(t)
	var calls int32
	srv.Handle(http.MethodGet, "/groups/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			fakeapi.JSON(w, http.StatusInternalServerError, fakeapi.M{"error": "db down"})
			return
		}
		fakeapi.JSON(w, http.StatusOK, fakeapi.M{"messages": []fakeapi.M{{"id": "m1", "content": "hi"}}})
	})

	bus := eventbus.New()
	events, unsub := bus.Subscribe(eventbus.GroupMessagesTopic("g1"), 16)
	defer unsub()

	var mu sync.Mutex
	var batches [][]Message
	p, err := svc.Groups.WatchMessages(context.Background(), "g1", PollOptions{
		Interval: 20 * time.Millisecond,
		Bus:      bus,
		OnMessages: func(msgs []Message) {
			mu.Lock()
			batches = append(batches, msgs)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	select {
	case e := <-events:
		msgs, ok := e.Data.([]Message)
		require.True(t, ok)
		assert.Equal(t, "m1", msgs[0].ID)
	case <-time.After(time.Second):
		t.Fatal("first poll was not immediate")
	}

	require.Eventually(t, func() bool {
		polls, failures := p.Stats()
		return polls >= 3 && failures == 1
	}, 2*time.Second, 10*time.Millisecond, "a failed poll does not stop polling")

	p.Stop()
	p.Stop()
	time.Sleep(10 * time.Millisecond)
	after := atomic.LoadInt32(&calls)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "no fetch after Stop")

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, batches)
}

func TestMessagePollerStopsWithContext(t *testing.T) {
	srv, svc := newService(t)
	srv.Reply(http.MethodGet, "/groups/{id}/messages", http.StatusOK, fakeapi.M{"messages": []fakeapi.M{}})

	ctx, cancel := context.WithCancel(context.Background())
	p, err := svc.Groups.WatchMessages(ctx, "g1", PollOptions{Interval: time.Hour})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Count(http.MethodGet, "/groups/g1/messages") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not exit on cancellation")
	}

	_, err = svc.Groups.WatchMessages(context.Background(), "", PollOptions{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
