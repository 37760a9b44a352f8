package browse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// EventKind labels session events.
type EventKind string

const (
	// EventRows carries newly arrived result rows.
	EventRows EventKind = "rows"
	// EventSegments carries context segments fetched for an episode.
	EventSegments EventKind = "segments"
	// EventPlayerReady announces a loaded player.
	EventPlayerReady EventKind = "player_ready"
	// EventHighlight announces a highlight move during playback.
	EventHighlight EventKind = "highlight"
	// EventDone fires once the search has stopped producing new rows.
	EventDone EventKind = "done"
)

// Event is one session notification. Fields are set per kind.
type Event struct {
	Kind     EventKind
	Rows     []Row
	Episode  string
	Segments []engine.Segment
	Segment  engine.Segment
	Player   *Player
}

// Row is one displayed result.
type Row struct {
	Result      engine.Result
	Placeholder Placeholder
}

// SessionConfig tunes a browsing session. Zero values get defaults.
type SessionConfig struct {
	// PollInterval paces progressive result polling.
	PollInterval time.Duration
	// Debounce is the segment batch window.
	Debounce time.Duration
	// ContextRadius is how many segments around each hit to prefetch.
	ContextRadius int
	// MaxResults caps the search, 0 for the server default.
	MaxResults int
}

func (c *SessionConfig) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ContextRadius <= 0 {
		c.ContextRadius = 1
	}
}

type hitKey struct {
	episodeIdx int
	offset     int
}

// Session drives one search from a client's perspective: it fetches
// pages, prefetches context segments, queues audio loads, and owns
// playback state. All state is mutated on a single event loop
// goroutine; public methods post commands to it.
type Session struct {
	client  *Client
	cache   *SegmentCache
	loader  *Loader
	control *Controller
	limiter *rate.Limiter
	cfg     SessionConfig

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan func()
	events chan Event

	query     string
	opts      engine.SearchOptions
	requestID string
	rows      []Row
	pag       engine.Pagination
	seen      map[hitKey]bool
	players   map[string]*Player
	done      bool
}

// NewSession creates a session over client. Call Start to begin a
// search, then drain Events.
func NewSession(client *Client, cfg SessionConfig) (*Session, error) {
	cfg.defaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		cmds:    make(chan func(), 64),
		events:  make(chan Event, 64),
		seen:    make(map[hitKey]bool),
		players: make(map[string]*Player),
	}

	s.cache = NewSegmentCache(client, cfg.Debounce, func(episode string, segs []engine.Segment) {
		s.post(func() {
			s.emit(Event{Kind: EventSegments, Episode: episode, Segments: segs})
		})
	})
	s.control = NewController(s.cache, func(episode string, seg engine.Segment) {
		s.post(func() {
			s.emit(Event{Kind: EventHighlight, Episode: episode, Segment: seg})
		})
	})

	loader, err := NewLoader(client, func(res LoadResult) {
		s.post(func() { s.playerLoaded(res) })
	})
	if err != nil {
		cancel()
		return nil, err
	}
	s.loader = loader
	return s, nil
}

// Events is the session's notification stream. It closes when the
// session is closed. Consumers must drain it.
func (s *Session) Events() <-chan Event { return s.events }

// Start begins a search and launches the event loop. The first page is
// requested progressively; while the server reports still_searching the
// session keeps re-polling for new rows.
func (s *Session) Start(query string, opts engine.SearchOptions) error {
	if query == "" {
		return fmt.Errorf("start session: empty query")
	}
	s.query = query
	s.opts = opts
	s.opts.Page = 1
	s.opts.Progressive = true
	if s.cfg.MaxResults > 0 && s.opts.MaxResults == 0 {
		s.opts.MaxResults = s.cfg.MaxResults
	}
	go s.run()
	return nil
}

// NextPage requests the next result page, if one exists.
func (s *Session) NextPage() {
	s.post(func() { s.fetchNextPage() })
}

// MarkVisible reports that the row for source scrolled into view, so
// its audio load is prioritized.
func (s *Session) MarkVisible(source string) {
	s.post(func() { s.loader.MarkVisible(source) })
}

// Play starts playback for source if its player is ready.
func (s *Session) Play(source string) {
	s.post(func() {
		if p, ok := s.players[source]; ok {
			s.control.Play(p)
		}
	})
}

// Pause pauses the active player.
func (s *Session) Pause() {
	s.post(func() { s.control.Pause() })
}

// Advance reports a playback position for source.
func (s *Session) Advance(source string, sec float64) {
	s.post(func() {
		if p, ok := s.players[source]; ok {
			s.control.Advance(p, sec)
		}
	})
}

// Expand widens the prefetched context window around a row's hit
// segment by radius segments in each direction.
func (s *Session) Expand(rowIdx, radius int) {
	s.post(func() {
		if rowIdx < 0 || rowIdx >= len(s.rows) {
			return
		}
		row := s.rows[rowIdx]
		s.wantContext(row.Result, radius)
	})
}

// Close stops the event loop and abandons pending loads.
func (s *Session) Close() {
	s.cancel()
	s.loader.Close()
}

// post runs fn on the event loop. Posts after Close are dropped.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.ctx.Done():
	}
}

func (s *Session) run() {
	defer close(s.events)

	start := time.Now()
	s.fetchPage(s.opts, true)
	s.client.LogTiming(s.ctx, "first_results", float64(time.Since(start).Milliseconds()), s.requestID)

	var pollCh <-chan time.Time
	if s.pag.StillSearching {
		pollCh = time.After(s.cfg.PollInterval)
	} else {
		s.finish()
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.cmds:
			fn()
		case <-pollCh:
			s.pollOnce()
			if s.pag.StillSearching {
				pollCh = time.After(s.cfg.PollInterval)
			} else {
				pollCh = nil
				s.finish()
			}
		}
	}
}

// pollOnce re-requests the first page while the scan is still running.
// New rows beyond what we have seen are appended.
func (s *Session) pollOnce() {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return
	}
	opts := s.opts
	opts.Page = 1
	opts.Progressive = true
	s.fetchPage(opts, false)
}

func (s *Session) fetchNextPage() {
	if s.pag.StillSearching {
		return
	}
	if s.pag.TotalPages > 0 && s.pag.Page >= s.pag.TotalPages {
		return
	}
	opts := s.opts
	opts.Page = s.pag.Page + 1
	opts.Progressive = false
	s.fetchPage(opts, false)
}

// fetchPage fetches one page and folds new rows into the session.
// Fetch errors are logged and swallowed; the session keeps whatever it
// already has.
func (s *Session) fetchPage(opts engine.SearchOptions, first bool) {
	page, err := s.client.Search(s.ctx, s.query, opts)
	if err != nil {
		slog.Warn("browse: page fetch failed",
			slog.String("query", s.query),
			slog.Int("page", opts.Page),
			slog.Any("error", err))
		return
	}

	if first || s.requestID == "" {
		s.requestID = page.Stats.RequestID
		if s.requestID == "" {
			s.requestID = uuid.NewString()[:8]
		}
	}
	s.pag = page.Pagination

	var fresh []Row
	for _, res := range page.Results {
		key := hitKey{episodeIdx: res.EpisodeIdx, offset: res.CharOffset}
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		row := Row{
			Result: res,
			Placeholder: Placeholder{
				Source:   res.Episode,
				Format:   "opus",
				StartSec: res.StartSec,
			},
		}
		fresh = append(fresh, row)
	}
	if len(fresh) == 0 {
		return
	}

	s.rows = append(s.rows, fresh...)
	for _, row := range fresh {
		s.loader.Enqueue(row.Placeholder)
		s.wantContext(row.Result, s.cfg.ContextRadius)
	}
	s.emit(Event{Kind: EventRows, Rows: fresh})
}

// wantContext prefetches the hit segment and its neighbors.
func (s *Session) wantContext(res engine.Result, radius int) {
	indices := make([]int, 0, 2*radius+1)
	for i := res.SegmentIndex - radius; i <= res.SegmentIndex+radius; i++ {
		if i >= 0 {
			indices = append(indices, i)
		}
	}
	s.cache.Want(res.Episode, indices...)
}

func (s *Session) playerLoaded(res LoadResult) {
	if res.Err != nil || res.Player == nil {
		return
	}
	s.players[res.Player.Source] = res.Player
	s.emit(Event{Kind: EventPlayerReady, Player: res.Player})
}

func (s *Session) finish() {
	if s.done {
		return
	}
	s.done = true
	s.emit(Event{Kind: EventDone})
}

// emit delivers an event, dropping it if the consumer has fallen far
// behind. A stalled consumer must not wedge the event loop.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		slog.Debug("browse: event dropped", slog.String("kind", string(ev.Kind)))
	}
}
