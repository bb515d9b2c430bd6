package events

import (
	"context"
	"errors"
	"sync"

	"shared-menu/internal/logger"
)

// queueSize bounds the backlog of a single subscription.
const queueSize = 64

// ErrClosed is returned when using a closed broker.
var ErrClosed = errors.New("broker closed")

// LocalBroker fans changes out to subscribers in the same process.
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[*localSub]struct{}
	closed bool
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[*localSub]struct{})}
}

type localSub struct {
	broker  *LocalBroker
	channel string
	table   string
	fn      Handler
	queue   chan Change
	done    chan struct{}
	once    sync.Once
}

func (b *LocalBroker) Subscribe(_ context.Context, channel, table string, fn Handler) (Subscription, error) {
	s := &localSub{
		broker:  b,
		channel: channel,
		table:   table,
		fn:      fn,
		queue:   make(chan Change, queueSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.subs[s] = struct{}{}
	go s.run()
	logger.Debug("subscribed %s to %s", channel, table)
	return s, nil
}

func (b *LocalBroker) Publish(_ context.Context, c Change) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for s := range b.subs {
		if s.table != c.Table {
			continue
		}
		select {
		case s.queue <- c:
		default:
			logger.Warn("dropping %s change for %s: subscriber queue full", c.Table, s.channel)
		}
	}
	return nil
}

// Close stops every subscription.
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[*localSub]struct{})
	b.closed = true
	b.mu.Unlock()

	for s := range subs {
		s.stop()
	}
	return nil
}

func (s *localSub) run() {
	for {
		select {
		case <-s.done:
			return
		case c := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(c)
		}
	}
}

func (s *localSub) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *localSub) Close() error {
	s.broker.mu.Lock()
	delete(s.broker.subs, s)
	s.broker.mu.Unlock()
	s.stop()
	return nil
}
