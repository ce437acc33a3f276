// Package lms provides typed access to the Assigno course, assignment, submission and
// group endpoints. All calls go through the API gateway client, so the session credential
// and rejected-credential handling apply uniformly.
package lms

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Balram04/assigno/internal/common/apperrors"
	"github.com/Balram04/assigno/internal/common/httpclient"
)

var (
	ErrLMS             = apperrors.New("lms error")
	ErrUnexpectedShape = ErrLMS.New("Invalid response from server").SetStatusCode(http.StatusBadGateway)
	ErrInvalidArgument = ErrLMS.New("invalid argument").SetStatusCode(http.StatusBadRequest)
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service groups the resource services over one gateway client.
type Service struct {
	Courses     *CourseService
	Assignments *AssignmentService
	Submissions *SubmissionService
	Groups      *GroupService
}

// NewService creates the resource services.
func NewService(api httpclient.HTTPClientInterface) *Service {
	return &Service{
		Courses:     &CourseService{api: api},
		Assignments: &AssignmentService{api: api},
		Submissions: &SubmissionService{api: api},
		Groups:      &GroupService{api: api, logger: log.With().Str("component", "groups").Logger()},
	}
}

// pathOf joins path segments, rejecting empty identifiers and ones that would change the path.
func pathOf(parts ...string) (string, error) {
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, "/?#") || p == "." || p == ".." {
			return "", ErrInvalidArgument.Msg("invalid identifier " + `"` + p + `"`)
		}
	}
	return strings.Join(parts, "/"), nil
}

// fixup rewrites one JSON object into the shape the Go types decode.
type fixup func(obj string) string

// withID sets id from _id when only _id is present.
func withID(obj string) string {
	if id := gjson.Get(obj, "id"); id.Exists() && id.String() != "" {
		return obj
	}
	oid := gjson.Get(obj, "_id")
	if !oid.Exists() {
		return obj
	}
	out, err := sjson.Set(obj, "id", oid.String())
	if err != nil {
		return obj
	}
	return out
}

// alias copies from into to unless to is already set.
func alias(from, to string) fixup {
	return func(obj string) string {
		if gjson.Get(obj, to).Exists() {
			return obj
		}
		v := gjson.Get(obj, from)
		if !v.Exists() {
			return obj
		}
		out, err := sjson.SetRaw(obj, to, v.Raw)
		if err != nil {
			return obj
		}
		return out
	}
}

// ref accepts either a bare identifier or an embedded object under key.
func ref(key string) fixup {
	return func(obj string) string {
		v := gjson.Get(obj, key)
		var (
			out string
			err error
		)
		switch {
		case v.Type == gjson.String:
			out, err = sjson.Set(obj, key, map[string]string{"id": v.String()})
		case v.IsObject():
			out, err = sjson.SetRaw(obj, key, normalize(v.Raw, personFixups))
		default:
			return obj
		}
		if err != nil {
			return obj
		}
		return out
	}
}

// each applies fixups to every object of the array under key.
func each(key string, fixups []fixup) fixup {
	return func(obj string) string {
		arr := gjson.Get(obj, key)
		if !arr.IsArray() {
			return obj
		}
		var b strings.Builder
		b.WriteByte('[')
		for i, el := range arr.Array() {
			if i > 0 {
				b.WriteByte(',')
			}
			if el.IsObject() {
				b.WriteString(normalize(el.Raw, fixups))
			} else {
				b.WriteString(el.Raw)
			}
		}
		b.WriteByte(']')
		out, err := sjson.SetRaw(obj, key, b.String())
		if err != nil {
			return obj
		}
		return out
	}
}

func normalize(obj string, fixups []fixup) string {
	obj = withID(obj)
	for _, f := range fixups {
		obj = f(obj)
	}
	return obj
}

// decodeList decodes the array under key. A missing or null array is an empty list.
func decodeList[T any](body []byte, key string, fixups []fixup) ([]T, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrUnexpectedShape.Msg("response is not JSON")
	}
	arr := gjson.GetBytes(body, key)
	if !arr.Exists() || arr.Type == gjson.Null {
		return []T{}, nil
	}
	if !arr.IsArray() {
		return nil, ErrUnexpectedShape.Msg(key + " is not a list")
	}
	elems := arr.Array()
	out := make([]T, 0, len(elems))
	for _, el := range elems {
		if !el.IsObject() {
			return nil, ErrUnexpectedShape.Msg(key + " contains a non-object entry")
		}
		var v T
		if err := json.UnmarshalFromString(normalize(el.Raw, fixups), &v); err != nil {
			return nil, ErrUnexpectedShape.MsgErr("malformed "+key+" entry", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeOne decodes the object under key, or the whole body when key is absent.
func decodeOne[T any](body []byte, key string, fixups []fixup) (T, error) {
	var v T
	if !gjson.ValidBytes(body) {
		return v, ErrUnexpectedShape.Msg("response is not JSON")
	}
	obj := gjson.ParseBytes(body)
	if key != "" {
		if inner := obj.Get(key); inner.Exists() {
			obj = inner
		}
	}
	if !obj.IsObject() {
		return v, ErrUnexpectedShape.Msg("expected an object")
	}
	if err := json.UnmarshalFromString(normalize(obj.Raw, fixups), &v); err != nil {
		return v, ErrUnexpectedShape.MsgErr("malformed response", err)
	}
	return v, nil
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, ErrInvalidArgument.MsgErr("cannot encode request body", err)
	}
	return b, nil
}

// object builds a small JSON body from alternating keys and values.
func object(kv ...any) []byte {
	body := []byte(`{}`)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		if next, err := sjson.SetBytes(body, k, kv[i+1]); err == nil {
			body = next
		}
	}
	return body
}

// discard is used by operations whose response carries nothing the caller needs.
func discard(_ *httpclient.Response, err error) error {
	return err
}

// idList turns bare identifiers in the array under key into {"id": ...} objects.
func idList(key string) fixup {
	return func(obj string) string {
		arr := gjson.Get(obj, key)
		if !arr.IsArray() {
			return obj
		}
		changed := false
		items := make([]any, 0, len(arr.Array()))
		for _, el := range arr.Array() {
			if el.Type == gjson.String {
				items = append(items, map[string]string{"id": el.String()})
				changed = true
				continue
			}
			items = append(items, jsoniter.RawMessage(el.Raw))
		}
		if !changed {
			return obj
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return obj
		}
		out, err := sjson.SetRaw(obj, key, string(raw))
		if err != nil {
			return obj
		}
		return out
	}
}

// idOf sets idKey from the reference under key, which may be an identifier or an object.
func idOf(key, idKey string) fixup {
	return func(obj string) string {
		if gjson.Get(obj, idKey).Exists() {
			return obj
		}
		v := gjson.Get(obj, key)
		var id string
		switch {
		case v.Type == gjson.String:
			id = v.String()
		case v.IsObject():
			id = gjson.Get(withID(v.Raw), "id").String()
		}
		if id == "" {
			return obj
		}
		out, err := sjson.Set(obj, idKey, id)
		if err != nil {
			return obj
		}
		return out
	}
}

// nested normalises the object under key.
func nested(key string, fixups []fixup) fixup {
	return func(obj string) string {
		v := gjson.Get(obj, key)
		if !v.IsObject() {
			return obj
		}
		out, err := sjson.SetRaw(obj, key, normalize(v.Raw, fixups))
		if err != nil {
			return obj
		}
		return out
	}
}
