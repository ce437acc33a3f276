package lms

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Balram04/assigno/internal/common/httpclient"
)

// DefaultMessageLimit is the number of messages fetched when no limit is given.
const DefaultMessageLimit = 50

// GroupService wraps the /groups endpoints.
type GroupService struct {
	api    httpclient.HTTPClientInterface
	logger zerolog.Logger
}

func (s *GroupService) do(ctx context.Context, method string, body []byte, parts ...string) (*httpclient.Response, error) {
	p, err := pathOf(parts...)
	if err != nil {
		return nil, err
	}
	return s.api.Do(ctx, httpclient.RequestOptions{Method: method, Path: p, Body: body})
}

func (s *GroupService) list(ctx context.Context, query map[string]string, parts ...string) ([]Group, error) {
	p, err := pathOf(parts...)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: p, QueryParams: query})
	if err != nil {
		return nil, err
	}
	return decodeList[Group](resp.Body, "groups", groupFixups)
}

// List returns all groups.
func (s *GroupService) List(ctx context.Context) ([]Group, error) {
	return s.list(ctx, nil, "groups")
}

// Mine returns the groups the caller belongs to.
func (s *GroupService) Mine(ctx context.Context) ([]Group, error) {
	return s.list(ctx, nil, "groups", "my-groups")
}

// Browse returns the public groups open for joining.
func (s *GroupService) Browse(ctx context.Context) ([]Group, error) {
	return s.list(ctx, nil, "groups", "browse")
}

// Search finds groups by text and category. With neither given, or category "all",
// it is the same as Browse.
func (s *GroupService) Search(ctx context.Context, query, category string) ([]Group, error) {
	query = strings.TrimSpace(query)
	if strings.EqualFold(category, "all") {
		category = ""
	}
	if query == "" && category == "" {
		return s.Browse(ctx)
	}
	params := map[string]string{}
	if query != "" {
		params["query"] = query
	}
	if category != "" {
		params["category"] = category
	}
	return s.list(ctx, params, "groups", "search")
}

// Get returns a group and its members.
func (s *GroupService) Get(ctx context.Context, id string) (GroupDetail, error) {
	resp, err := s.do(ctx, http.MethodGet, nil, "groups", id)
	if err != nil {
		return GroupDetail{}, err
	}
	g, err := decodeOne[Group](resp.Body, "group", groupFixups)
	if err != nil {
		return GroupDetail{}, err
	}
	members, err := decodeList[Person](resp.Body, "members", personFixups)
	if err != nil {
		return GroupDetail{}, err
	}
	return GroupDetail{Group: g, Members: members}, nil
}

func (s *GroupService) Create(ctx context.Context, in GroupInput) (Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Group{}, ErrInvalidArgument.Msg("group name is required")
	}
	return s.write(ctx, http.MethodPost, in, "groups")
}

func (s *GroupService) Update(ctx context.Context, id string, in GroupInput) (Group, error) {
	return s.write(ctx, http.MethodPut, in, "groups", id)
}

func (s *GroupService) write(ctx context.Context, method string, in GroupInput, parts ...string) (Group, error) {
	body, err := encode(in)
	if err != nil {
		return Group{}, err
	}
	resp, err := s.do(ctx, method, body, parts...)
	if err != nil {
		return Group{}, err
	}
	return decodeOne[Group](resp.Body, "group", groupFixups)
}

func (s *GroupService) Delete(ctx context.Context, id string) error {
	return discard(s.do(ctx, http.MethodDelete, nil, "groups", id))
}

// Join asks to join a group. The message is shown to the group's owner.
func (s *GroupService) Join(ctx context.Context, id, message string) error {
	var body []byte
	if message != "" {
		body = object("message", message)
	}
	return discard(s.do(ctx, http.MethodPost, body, "groups", id, "join"))
}

func (s *GroupService) Leave(ctx context.Context, id string) error {
	return discard(s.do(ctx, http.MethodPost, nil, "groups", id, "leave"))
}

// Requests lists the pending join requests of a group.
func (s *GroupService) Requests(ctx context.Context, id string) ([]JoinRequest, error) {
	resp, err := s.do(ctx, http.MethodGet, nil, "groups", id, "requests")
	if err != nil {
		return nil, err
	}
	return decodeList[JoinRequest](resp.Body, "requests", joinRequestFixups)
}

func (s *GroupService) Approve(ctx context.Context, groupID, userID string) error {
	return discard(s.do(ctx, http.MethodPost, nil, "groups", groupID, "approve", userID))
}

func (s *GroupService) Reject(ctx context.Context, groupID, userID string) error {
	return discard(s.do(ctx, http.MethodPost, nil, "groups", groupID, "reject", userID))
}

// AddMember adds a user identified by email address or student ID.
func (s *GroupService) AddMember(ctx context.Context, groupID, emailOrStudentID string) error {
	if strings.TrimSpace(emailOrStudentID) == "" {
		return ErrInvalidArgument.Msg("email or student id is required")
	}
	return discard(s.do(ctx, http.MethodPost, object("emailOrStudentId", emailOrStudentID), "groups", groupID, "members"))
}

func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	return discard(s.do(ctx, http.MethodDelete, nil, "groups", groupID, "members", userID))
}

// Messages returns the latest messages of a group, oldest first as sent by the backend.
// A non-positive limit selects DefaultMessageLimit.
func (s *GroupService) Messages(ctx context.Context, groupID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	p, err := pathOf("groups", groupID, "messages")
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{
		Method:      http.MethodGet,
		Path:        p,
		QueryParams: map[string]string{"limit": strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Message](resp.Body, "messages", messageFixups)
}

func (s *GroupService) SendMessage(ctx context.Context, groupID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrInvalidArgument.Msg("message is empty")
	}
	return discard(s.do(ctx, http.MethodPost, object("content", content), "groups", groupID, "messages"))
}

func (s *GroupService) Stats(ctx context.Context, groupID string) (GroupStats, error) {
	resp, err := s.do(ctx, http.MethodGet, nil, "groups", groupID, "stats")
	if err != nil {
		return nil, err
	}
	return decodeOne[GroupStats](resp.Body, "stats", nil)
}
