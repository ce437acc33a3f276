// Package router resolves view paths, gates them through the access policy and owns the
// lifecycle of the mounted view.
package router

import (
	"context"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Balram04/assigno/internal/common/apperrors"
	"github.com/Balram04/assigno/internal/eventbus"
	"github.com/Balram04/assigno/internal/policy"
	"github.com/Balram04/assigno/internal/session"
)

// DefaultMaxRedirects bounds the redirects followed by one navigation.
const DefaultMaxRedirects = 4

var (
	ErrRouter        = apperrors.New("router error").SetStatusCode(http.StatusInternalServerError)
	ErrRedirectLoop  = ErrRouter.New("too many redirects").SetStatusCode(http.StatusLoopDetected)
	ErrDuplicateView = ErrRouter.New("view already registered")
)

// SnapshotSource supplies the session state the policy is evaluated against.
type SnapshotSource interface {
	Snapshot() session.Snapshot
}

// ViewFunc renders a mounted view. It runs on its own goroutine and should return once
// the mount's context is done.
type ViewFunc func(m *Mount)

// Mount is a view instance. Its context is cancelled when the view is left.
type Mount struct {
	Route  Route
	Path   string
	params map[string]string
	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled when the view is unmounted.
func (m *Mount) Context() context.Context {
	return m.ctx
}

// RequestContext carries the mount's values but is not cancelled when the view is left.
// One-shot requests run under it so they complete; callers check Alive before using the
// result. Polling uses Context instead.
func (m *Mount) RequestContext() context.Context {
	return context.WithoutCancel(m.ctx)
}

// Alive reports whether the view is still mounted. Work finishing after the view was left
// must check it and drop its result.
func (m *Mount) Alive() bool {
	return m.ctx.Err() == nil
}

// Param returns the named path parameter.
func (m *Mount) Param(name string) string {
	return m.params[name]
}

// Result describes the outcome of a navigation.
type Result struct {
	Decision  policy.Decision // Allow or Loading
	Path      string          // path mounted, or pending while loading
	Mount     *Mount          // nil unless Decision is Allow
	Redirects []string        // paths redirected away from, in order
}

// Redirected reports whether the navigation ended somewhere else than requested.
func (r Result) Redirected() bool {
	return len(r.Redirects) > 0
}

// Router owns the route table and the current mount.
type Router struct {
	mux          *chi.Mux
	routes       map[string]Route
	src          SnapshotSource
	base         context.Context
	maxRedirects int
	logger       zerolog.Logger

	mu      sync.Mutex
	views   map[string]ViewFunc
	current *Mount
	pending string
}

// Option configures a Router.
type Option func(*Router)

// WithRoutes replaces DefaultRoutes.
func WithRoutes(routes []Route) Option {
	return func(r *Router) { r.setRoutes(routes) }
}

// WithMaxRedirects overrides DefaultMaxRedirects.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// WithBaseContext sets the parent of every mount context.
func WithBaseContext(ctx context.Context) Option {
	return func(r *Router) { r.base = ctx }
}

// New creates a router evaluating access against src.
func New(src SnapshotSource, opts ...Option) *Router {
	r := &Router{
		src:          src,
		base:         context.Background(),
		maxRedirects: DefaultMaxRedirects,
		logger:       log.With().Str("component", "router").Logger(),
		views:        make(map[string]ViewFunc),
	}
	r.setRoutes(DefaultRoutes)
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Router) setRoutes(routes []Route) {
	r.mux = chi.NewRouter()
	r.routes = make(map[string]Route, len(routes))
	for _, rt := range routes {
		r.mux.MethodFunc(http.MethodGet, rt.Pattern, func(http.ResponseWriter, *http.Request) {})
		r.routes[rt.Pattern] = rt
	}
}

// SetView registers the renderer for the named view.
func (r *Router) SetView(name string, fn ViewFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[name]; ok {
		return ErrDuplicateView.Msg("view " + name + " already registered")
	}
	r.views[name] = fn
	return nil
}

// Match resolves p to a route and its parameters.
func (r *Router) Match(p string) (Route, map[string]string, bool) {
	p = normalize(p)
	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, p) {
		return Route{}, nil, false
	}
	rt, ok := r.routes[rctx.RoutePattern()]
	if !ok {
		return Route{}, nil, false
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return rt, params, true
}

func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Clean("/" + p)
}

// Navigate moves to p. While the session is initializing the current view is unmounted
// and p is kept pending until Refresh.
func (r *Router) Navigate(p string) (Result, error) {
	r.mu.Lock()
	res, started, err := r.resolve(normalize(p))
	r.mu.Unlock()
	r.start(started)
	return res, err
}

// Refresh re-evaluates the pending or mounted path against the current session.
func (r *Router) Refresh() (Result, error) {
	r.mu.Lock()
	target := r.pending
	if target == "" && r.current != nil {
		target = r.current.Path
	}
	if target == "" {
		r.mu.Unlock()
		return Result{}, nil
	}
	res, started, err := r.resolve(target)
	r.mu.Unlock()
	r.start(started)
	return res, err
}

// resolve runs with r.mu held. It returns the mount whose view must be started, if any.
func (r *Router) resolve(p string) (Result, *Mount, error) {
	var redirects []string
	for hops := 0; ; hops++ {
		if hops > r.maxRedirects {
			r.unmount()
			r.pending = ""
			r.logger.Error().Strs("redirects", redirects).Msg("redirect loop")
			return Result{Redirects: redirects}, nil, ErrRedirectLoop
		}

		rt, params, ok := r.Match(p)
		if !ok {
			redirects = append(redirects, p)
			p = policy.EntryView
			continue
		}

		d := policy.Decision{Outcome: policy.Allow}
		if !rt.Public() {
			d = policy.Evaluate(policy.SubjectOf(r.src.Snapshot()), rt.Requirement)
		}

		switch d.Outcome {
		case policy.Loading:
			r.unmount()
			r.pending = p
			return Result{Decision: d, Path: p, Redirects: redirects}, nil, nil
		case policy.Redirect:
			redirects = append(redirects, p)
			p = d.Target
			continue
		}

		r.pending = ""
		if r.current != nil && r.current.Path == p && r.current.Alive() {
			return Result{Decision: d, Path: p, Mount: r.current, Redirects: redirects}, nil, nil
		}
		r.unmount()
		ctx, cancel := context.WithCancel(r.base)
		m := &Mount{Route: rt, Path: p, params: params, ctx: ctx, cancel: cancel}
		r.current = m
		r.logger.Debug().Str("path", p).Str("view", rt.Name).Msg("view mounted")
		return Result{Decision: d, Path: p, Mount: m, Redirects: redirects}, m, nil
	}
}

func (r *Router) start(m *Mount) {
	if m == nil {
		return
	}
	r.mu.Lock()
	fn := r.views[m.Route.Name]
	r.mu.Unlock()
	if fn != nil {
		go fn(m)
	}
}

func (r *Router) unmount() {
	if r.current == nil {
		return
	}
	r.current.cancel()
	r.logger.Debug().Str("path", r.current.Path).Msg("view unmounted")
	r.current = nil
}

// Current returns the mounted view, or nil.
func (r *Router) Current() *Mount {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Pending returns the path waiting for the session to finish initializing.
func (r *Router) Pending() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Watch refreshes the router on every session state change until ctx is done. The
// subscription is in place when Watch returns; the returned channel is closed once the
// watcher has exited.
func (r *Router) Watch(ctx context.Context, bus *eventbus.EventBus) <-chan struct{} {
	events, unsubscribe := bus.Subscribe(eventbus.TopicSessionState, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				if _, err := r.Refresh(); err != nil {
					r.logger.Error().Err(err).Msg("refresh after session change failed")
				}
			}
		}
	}()
	return done
}

// Close unmounts the current view.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unmount()
	r.pending = ""
}
