// Package session owns the authenticated identity of the client: its lifecycle state,
// durable persistence, and the hooks the API gateway uses when a credential is rejected.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Balram04/assigno/internal/common/apperrors"
	"github.com/Balram04/assigno/internal/common/httpclient"
	"github.com/Balram04/assigno/internal/eventbus"
	"github.com/Balram04/assigno/internal/storage"
)

// Keys under which the session is persisted.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

const (
	DefaultVerifyTimeout = 10 * time.Second
	publishTimeout       = 50 * time.Millisecond
)

const (
	msgLoginFailed        = "Login failed. Please try again."
	msgRegisterFailed     = "Registration failed. Please try again."
	msgInvalidResponse    = "Invalid response from server"
	msgStillInitializing  = "Session is still loading. Please try again."
	msgAlreadySignedIn    = "Already signed in. Log out first."
	msgSessionNotSaved    = "Could not save session. Please try again."
	endpointVerify        = "auth/verify"
	endpointLogin         = "auth/login"
	endpointRegister      = "auth/register"
	persistedUserMaxBytes = 64 << 10
)

var (
	ErrSessionState   = apperrors.New("operation not allowed in current session state").SetStatusCode(http.StatusConflict)
	ErrMalformedAuth  = apperrors.New(msgInvalidResponse).SetStatusCode(http.StatusBadGateway)
	ErrPersistSession = apperrors.New(msgSessionNotSaved).SetStatusCode(http.StatusInternalServerError)
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is the single owner of session state. All methods are safe for concurrent use.
type Store struct {
	kv            storage.Store
	api           httpclient.HTTPClientInterface
	bus           *eventbus.EventBus
	verifyTimeout time.Duration
	logger        zerolog.Logger

	mu      sync.RWMutex
	state   State
	current *Session
	errMsg  string

	initOnce sync.Once
	ready    chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithEventBus publishes every state transition on eventbus.TopicSessionState.
func WithEventBus(bus *eventbus.EventBus) Option {
	return func(s *Store) { s.bus = bus }
}

// WithVerifyTimeout bounds the credential verification done by Initialize.
func WithVerifyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.verifyTimeout = d
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a store in the Initializing state. Call Initialize to settle it.
func NewStore(kv storage.Store, api httpclient.HTTPClientInterface, opts ...Option) *Store {
	s := &Store{
		kv:            kv,
		api:           api,
		verifyTimeout: DefaultVerifyTimeout,
		logger:        log.With().Str("component", "session").Logger(),
		state:         StateInitializing,
		ready:         make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize restores a persisted session and verifies it with the backend. Any verification
// failure discards the persisted session. Only the first call does work; later calls wait for
// it and return the settled state.
func (s *Store) Initialize(ctx context.Context) State {
	s.initOnce.Do(func() { s.initialize(ctx) })
	return s.State()
}

func (s *Store) initialize(ctx context.Context) {
	candidate, err := s.loadPersisted()
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable persisted session")
		s.discard()
	}
	if candidate == nil {
		s.settle(StateUnauthenticated)
		return
	}

	s.mu.Lock()
	if s.state == StateInitializing {
		s.current = candidate
	}
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	if s.verify(vctx) {
		s.settle(StateAuthenticated)
		return
	}
	s.discard()
	s.settle(StateUnauthenticated)
}

func (s *Store) verify(ctx context.Context) bool {
	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodGet, Path: endpointVerify})
	if err != nil {
		s.logger.Info().Err(err).Msg("persisted session failed verification")
		return false
	}
	if !gjson.GetBytes(resp.Body, "success").Bool() {
		s.logger.Info().Msg("persisted session rejected by verify endpoint")
		return false
	}
	return true
}

// settle ends initialization. It is a no-op once the store has left Initializing.
func (s *Store) settle(target State) {
	s.mu.Lock()
	if s.state != StateInitializing {
		s.mu.Unlock()
		return
	}
	if target == StateAuthenticated && s.current == nil {
		target = StateUnauthenticated
	}
	if target == StateUnauthenticated {
		s.current = nil
	}
	s.state = target
	s.mu.Unlock()

	close(s.ready)
	s.logger.Debug().Str("state", target.String()).Msg("session initialized")
	s.publish(StateInitializing, target)
}

// Ready is closed once initialization has settled.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) loadPersisted() (*Session, error) {
	token, hasToken, err := s.kv.Get(KeyToken)
	if err != nil {
		return nil, err
	}
	rawUser, hasUser, err := s.kv.Get(KeyUser)
	if err != nil {
		return nil, err
	}
	switch {
	case !hasToken && !hasUser:
		return nil, nil
	case !hasToken || !hasUser || token == "":
		return nil, ErrMalformedAuth.Msg("persisted session is incomplete")
	case len(rawUser) > persistedUserMaxBytes:
		return nil, ErrMalformedAuth.Msg("persisted user record is too large")
	}

	var u User
	if err := json.UnmarshalFromString(rawUser, &u); err != nil {
		return nil, ErrMalformedAuth.MsgErr("persisted user record is not valid JSON", err)
	}
	if !u.complete() {
		return nil, ErrMalformedAuth.Msg("persisted user record is incomplete")
	}
	return &Session{User: u, Token: token, ExpiresAt: credentialExpiry(token)}, nil
}

// discard removes the persisted session. Storage failures are logged, the in-memory state
// is cleared regardless.
func (s *Store) discard() {
	if err := s.kv.Delete(KeyToken, KeyUser); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear persisted session")
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	if res, ok := s.admit(); !ok {
		return res
	}
	body, _ := sjson.SetBytes([]byte(`{}`), "email", email)
	body, _ = sjson.SetBytes(body, "password", password)
	return s.authenticate(ctx, endpointLogin, body, msgLoginFailed)
}

// Register creates an account and signs in with it. The payload is forwarded as given,
// minus confirmPassword, after the local form checks pass.
func (s *Store) Register(ctx context.Context, payload map[string]any) Result {
	if res, ok := s.admit(); !ok {
		return res
	}
	clean, err := checkRegistration(payload)
	if err != nil {
		return s.fail(err.Error(), apperrors.FieldOf(err))
	}
	body, err := json.Marshal(clean)
	if err != nil {
		return s.fail(msgRegisterFailed, "")
	}
	return s.authenticate(ctx, endpointRegister, body, msgRegisterFailed)
}

// admit rejects auth calls outside the Unauthenticated state without touching the store.
func (s *Store) admit() (Result, bool) {
	switch st := s.State(); st {
	case StateUnauthenticated:
		return Result{}, true
	case StateInitializing:
		return Result{Error: msgStillInitializing}, false
	default:
		return Result{Error: msgAlreadySignedIn}, false
	}
}

func (s *Store) authenticate(ctx context.Context, endpoint string, body []byte, fallback string) Result {
	s.ClearError()

	resp, err := s.api.Do(ctx, httpclient.RequestOptions{Method: http.MethodPost, Path: endpoint, Body: body})
	if err != nil {
		s.logger.Info().Str("endpoint", endpoint).Int("status", httpclient.StatusCode(err)).Msg("authentication failed")
		return s.fail(httpclient.ErrorMessage(err, fallback), httpclient.ErrorField(err))
	}

	sess, err := parseAuthResponse(resp.Body)
	if err != nil {
		s.logger.Warn().Str("endpoint", endpoint).Err(err).Msg("malformed authentication response")
		return s.fail(msgInvalidResponse, "")
	}

	if err := s.establish(sess); err != nil {
		if apperrors.StatusCodeOf(err) == http.StatusConflict {
			return Result{Error: msgAlreadySignedIn}
		}
		s.logger.Error().Err(err).Msg("failed to persist session")
		return s.fail(msgSessionNotSaved, "")
	}

	s.logger.Info().Str("user_id", sess.User.ID).Str("role", string(sess.User.Role)).Msg("signed in")
	u := sess.User
	return Result{Success: true, User: &u}
}

func parseAuthResponse(body []byte) (Session, error) {
	if !gjson.ValidBytes(body) {
		return Session{}, ErrMalformedAuth.Msg("response is not JSON")
	}
	res := gjson.GetManyBytes(body, "token", "user")
	token, raw := res[0], res[1]
	if token.Type != gjson.String || token.String() == "" || !raw.IsObject() {
		return Session{}, ErrMalformedAuth.Msg("response lacks user or token")
	}
	u := User{
		ID:        firstString(raw, "id", "_id"),
		FullName:  raw.Get("fullName").String(),
		Email:     raw.Get("email").String(),
		Role:      Role(raw.Get("role").String()),
		StudentID: raw.Get("studentId").String(),
	}
	if !u.complete() {
		return Session{}, ErrMalformedAuth.Msg("user record is incomplete")
	}
	return Session{User: u, Token: token.String(), ExpiresAt: credentialExpiry(token.String())}, nil
}

func firstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// establish persists sess and moves to Authenticated. Persistence is all or nothing.
func (s *Store) establish(sess Session) error {
	rawUser, err := json.MarshalToString(sess.User)
	if err != nil {
		return ErrPersistSession.Err(err)
	}

	s.mu.Lock()
	if s.state != StateUnauthenticated {
		s.mu.Unlock()
		return ErrSessionState
	}
	if err := s.kv.Set(KeyUser, rawUser); err != nil {
		s.mu.Unlock()
		return ErrPersistSession.Err(err)
	}
	if err := s.kv.Set(KeyToken, sess.Token); err != nil {
		_ = s.kv.Delete(KeyUser)
		s.mu.Unlock()
		return ErrPersistSession.Err(err)
	}
	s.current = &sess
	s.state = StateAuthenticated
	s.errMsg = ""
	s.mu.Unlock()

	s.publish(StateUnauthenticated, StateAuthenticated)
	return nil
}

func (s *Store) fail(msg, field string) Result {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	return Result{Error: msg, Field: field}
}

// Logout ends the session locally. No backend call is made.
func (s *Store) Logout() {
	if s.end() {
		s.logger.Info().Msg("signed out")
	}
}

// Invalidate ends the session after the backend rejected its credential. It returns true
// only for the call that actually moved the store from Authenticated to Unauthenticated.
// During initialization it drops the candidate session and returns false.
func (s *Store) Invalidate() bool {
	return s.end()
}

// end clears the persisted and in-memory session together under mu.
func (s *Store) end() bool {
	s.mu.Lock()
	if err := s.kv.Delete(KeyToken, KeyUser); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear persisted session")
	}
	s.current = nil
	if s.state != StateAuthenticated {
		s.mu.Unlock()
		return false
	}
	s.state = StateUnauthenticated
	s.mu.Unlock()

	s.publish(StateAuthenticated, StateUnauthenticated)
	return true
}

// ClearError resets the last authentication error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Token returns the bearer credential, or "" when there is none. While initializing it
// returns the persisted credential being verified.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Current returns the authenticated session.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated || s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Loading() bool {
	return s.State() == StateInitializing
}

// Error returns the last authentication error message.
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Snapshot returns state, user and error read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{State: s.state, Error: s.errMsg}
	if s.state == StateAuthenticated && s.current != nil {
		u := s.current.User
		snap.User = &u
		snap.ExpiresAt = s.current.ExpiresAt
	}
	return snap
}

func (s *Store) publish(from, to State) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.TopicSessionState, StateChange{From: from, To: to}, publishTimeout)
}
