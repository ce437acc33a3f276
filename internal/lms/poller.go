package lms

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Balram04/assigno/internal/eventbus"
)

// DefaultPollInterval is the message refresh interval of a group chat.
const DefaultPollInterval = 5 * time.Second

// PollOptions configures WatchMessages.
type PollOptions struct {
	Interval   time.Duration        // defaults to DefaultPollInterval
	Limit      int                  // defaults to DefaultMessageLimit
	Bus        *eventbus.EventBus   // receives every result on eventbus.GroupMessagesTopic
	OnMessages func(msgs []Message) // called with every result, on the poller goroutine
}

// MessagePoller refreshes the messages of one group until stopped.
type MessagePoller struct {
	groups  *GroupService
	groupID string
	opts    PollOptions
	logger  zerolog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	polls    int
	failures int
}

// WatchMessages fetches the messages of groupID immediately and then every interval, until
// ctx is cancelled or Stop is called. Failed polls are logged and polling continues.
func (s *GroupService) WatchMessages(ctx context.Context, groupID string, opts PollOptions) (*MessagePoller, error) {
	if _, err := pathOf(groupID); err != nil {
		return nil, err
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &MessagePoller{
		groups:  s,
		groupID: groupID,
		opts:    opts,
		logger:  s.logger.With().Str("group_id", groupID).Logger(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go p.run(ctx)
	return p, nil
}

func (p *MessagePoller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("message polling stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *MessagePoller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	msgs, err := p.groups.Messages(ctx, p.groupID, p.opts.Limit)
	if ctx.Err() != nil {
		// the view went away while the request was in flight
		return
	}

	p.mu.Lock()
	p.polls++
	if err != nil {
		p.failures++
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn().Err(err).Msg("message poll failed")
		return
	}
	if p.opts.Bus != nil {
		p.opts.Bus.Publish(eventbus.GroupMessagesTopic(p.groupID), msgs, 0)
	}
	if p.opts.OnMessages != nil {
		p.opts.OnMessages(msgs)
	}
}

// Stop ends polling and waits for the poller goroutine to exit. It is safe to call more
// than once.
func (p *MessagePoller) Stop() {
	p.stopOnce.Do(p.cancel)
	<-p.done
}

// Done is closed when the poller has exited.
func (p *MessagePoller) Done() <-chan struct{} {
	return p.done
}

// Stats returns the number of completed polls and how many of them failed.
func (p *MessagePoller) Stats() (polls, failures int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls, p.failures
}
