package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/services"
	"github.com/desertthunder/lyrx/internal/shared"
)

const (
	defaultPollInterval    = 500 * time.Millisecond
	defaultSignalThreshold = 3

	// upper bound for a single player query
	pollTimeout = 5 * time.Second
)

// PollerOpts contains configuration for a [Poller].
type PollerOpts struct {
	Interval        time.Duration // default: 500ms
	SignalThreshold int           // consecutive failures before SignalLost (default: 3)
	Logger          *log.Logger
}

// Poller queries a [services.Player] on a fixed interval and reports changes on an event queue.
//
// For each successful poll it sends TrackChanged (only when the track id changed) followed by PositionTick.
// A track change starts a fetch for the new track on its own goroutine and cancels the previous one.
type Poller struct {
	player   services.Player
	fetcher  TranscriptFetcher
	events   chan<- Event
	interval time.Duration
	limit    int
	logger   *log.Logger
	now      func() time.Time

	seq      uint64
	started  bool
	lastID   string
	failures int
	lost     bool

	fetches     sync.WaitGroup
	cancelFetch context.CancelFunc
}

// NewPoller creates a Poller that sends to events. fetcher may be nil to poll without lyrics.
func NewPoller(player services.Player, fetcher TranscriptFetcher, events chan<- Event, opts PollerOpts) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.SignalThreshold <= 0 {
		opts.SignalThreshold = defaultSignalThreshold
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Poller{
		player:   player,
		fetcher:  fetcher,
		events:   events,
		interval: opts.Interval,
		limit:    opts.SignalThreshold,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Interval returns the poll interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Run polls until ctx is cancelled, then waits for in-flight fetches and returns ctx's error.
//
// Errors from the player never stop the loop; they are retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	defer p.stopFetches()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.Poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll performs a single poll.
func (p *Poller) Poll(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	pb, err := p.player.CurrentlyPlaying(callCtx)
	cancel()
	at := p.now()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.failures++
		p.logger.Warn("poll failed", "player", p.player.Name(), "failures", p.failures, "error", err)
		if p.failures >= p.limit && !p.lost {
			p.lost = true
			p.send(ctx, signalLostEvent(p.failures, err))
		}
		return
	}

	p.failures = 0
	if p.lost {
		p.lost = false
		p.logger.Info("poll recovered", "player", p.player.Name())
		if !p.send(ctx, signalRestoredEvent()) {
			return
		}
	}

	if pb == nil {
		pb = &models.Playback{}
	}
	p.seq++
	snapshot := *pb
	snapshot.Seq = p.seq

	if id := snapshot.TrackID(); id != p.lastID || !p.started {
		p.started = true
		p.lastID = id
		p.logger.Info("track changed", "track", id)
		if !p.send(ctx, trackChangedEvent(snapshot, at)) {
			return
		}
		p.startFetch(ctx, snapshot.Track)
	}

	if snapshot.Track != nil {
		p.send(ctx, positionTickEvent(snapshot, at))
	}
}

// startFetch cancels the previous fetch and starts one for track.
func (p *Poller) startFetch(ctx context.Context, track *models.Track) {
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	if track == nil || p.fetcher == nil {
		return
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancelFetch = cancel

	t := *track
	p.fetches.Add(1)
	go func() {
		defer p.fetches.Done()
		defer cancel()

		transcript, err := p.fetcher.Fetch(fetchCtx, t)
		if fetchCtx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Warn("lyrics fetch failed", "track", t.ID, "error", err)
		} else {
			p.logger.Info("lyrics ready", "track", t.ID, "lines", transcript.Len(), "synced", transcript.Synced)
		}
		p.send(fetchCtx, transcriptReadyEvent(t.ID, transcript, err))
	}()
}

func (p *Poller) stopFetches() {
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	p.fetches.Wait()
}

// send blocks until the event is queued or ctx is done.
func (p *Poller) send(ctx context.Context, ev Event) bool {
	select {
	case p.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
