// Package app assembles the client: configuration, session storage, the API gateway,
// the session store, the view router and the resource services.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Balram04/assigno/internal/common/httpclient"
	"github.com/Balram04/assigno/internal/config"
	"github.com/Balram04/assigno/internal/eventbus"
	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/policy"
	"github.com/Balram04/assigno/internal/router"
	"github.com/Balram04/assigno/internal/session"
	"github.com/Balram04/assigno/internal/storage"
)

// App is the wired client.
type App struct {
	Config  *config.Config
	Bus     *eventbus.EventBus
	Store   storage.Store
	Client  *httpclient.Client
	Session *session.Store
	Router  *router.Router
	LMS     *lms.Service

	logger     zerolog.Logger
	rejections atomic.Int32
	cancel     context.CancelFunc
	watchDone  <-chan struct{}
	closeOnce  sync.Once
}

// Option configures New.
type Option func(*options)

type options struct {
	store storage.Store
}

// WithStore uses kv instead of the store selected by the configuration.
func WithStore(kv storage.Store) Option {
	return func(o *options) { o.store = kv }
}

// New builds the object graph. The router starts following session changes immediately;
// call Start to initialize the session and Close to release everything.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	kv := o.store
	if kv == nil {
		var err error
		if kv, err = storage.New(cfg.StorageOptions()); err != nil {
			return nil, fmt.Errorf("failed to open session storage: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		Config: cfg,
		Bus:    eventbus.New(),
		Store:  kv,
		Client: httpclient.NewClient(cfg.ServerURL, cfg.ClientOptions()),
		logger: log.With().Str("component", "app").Logger(),
		cancel: cancel,
	}
	a.Session = session.NewStore(kv, a.Client,
		session.WithEventBus(a.Bus),
		session.WithVerifyTimeout(cfg.VerifyTimeout),
	)
	a.Router = router.New(a.Session, router.WithBaseContext(ctx))
	a.LMS = lms.NewService(a.Client)
	a.Client.Bind(a.Session, a.credentialRejected)

	a.watchDone = a.Router.Watch(ctx, a.Bus)
	return a, nil
}

// credentialRejected runs once per session ended by a 401.
func (a *App) credentialRejected() {
	a.rejections.Add(1)
	a.logger.Info().Msg("session ended by server, returning to login")
	if _, err := a.Router.Navigate(policy.EntryView); err != nil {
		a.logger.Error().Err(err).Msg("failed to navigate to login")
	}
}

// Rejections returns how many sessions were ended by a rejected credential.
func (a *App) Rejections() int {
	return int(a.rejections.Load())
}

// Start initializes the session and returns the settled state.
func (a *App) Start(ctx context.Context) session.State {
	return a.Session.Initialize(ctx)
}

// Home is the landing view for the current session, or the entry view without one.
func (a *App) Home() string {
	snap := a.Session.Snapshot()
	if !snap.Present() {
		return policy.EntryView
	}
	return policy.HomeFor(snap.Role())
}

// PollOptions returns message polling options using the configured interval.
func (a *App) PollOptions(onMessages func([]lms.Message)) lms.PollOptions {
	return lms.PollOptions{
		Interval:   a.Config.PollInterval,
		Bus:        a.Bus,
		OnMessages: onMessages,
	}
}

// OpenGroupChat mounts path and polls the messages of groupID for as long as the view
// stays mounted.
func (a *App) OpenGroupChat(path, groupID string, onMessages func([]lms.Message)) (*router.Mount, *lms.MessagePoller, error) {
	res, err := a.Router.Navigate(path)
	if err != nil {
		return nil, nil, err
	}
	if res.Mount == nil || res.Redirected() {
		return nil, nil, fmt.Errorf("cannot open %s: %s", path, describe(res))
	}
	p, err := a.LMS.Groups.WatchMessages(res.Mount.Context(), groupID, a.PollOptions(onMessages))
	if err != nil {
		return nil, nil, err
	}
	return res.Mount, p, nil
}

func describe(res router.Result) string {
	if res.Redirected() {
		return "redirected to " + res.Path
	}
	return res.Decision.String()
}

// Close stops the router, the event bus and the session storage.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.cancel()
		<-a.watchDone
		a.Router.Close()
		a.Bus.Shutdown()
		err = a.Store.Close()
	})
	return err
}
