package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/lyrx/internal/services"
)

// queueSize bounds the event queue; producers block when the overlay falls behind.
const queueSize = 64

// Session owns the background goroutines of one overlay run and their single ordered event queue.
type Session struct {
	poller *Poller
	events chan Event

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSession wires a [Poller] for player and fetcher to a fresh queue.
func NewSession(player services.Player, fetcher TranscriptFetcher, opts PollerOpts) *Session {
	events := make(chan Event, queueSize)
	return &Session{
		poller: NewPoller(player, fetcher, events, opts),
		events: events,
		done:   make(chan struct{}),
	}
}

// Events returns the queue. It is closed once every background goroutine has returned.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Poller returns the session poller.
func (s *Session) Poller() *Poller {
	return s.poller
}

// Start launches the poller. Calling Start more than once has no effect.
func (s *Session) Start(ctx context.Context) {
	s.once.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go func() {
			defer close(s.done)
			defer close(s.events)
			s.poller.Run(ctx)
		}()
	})
}

// Stop cancels the session and blocks until the poller and every fetch goroutine have returned.
func (s *Session) Stop() {
	started := true
	s.once.Do(func() {
		started = false
		close(s.done)
		close(s.events)
	})
	if !started {
		return
	}
	s.cancel()
	<-s.done
}

// Done is closed when the session has fully stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
