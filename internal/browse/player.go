package browse

import (
	"sync"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// Player is a loaded audio element: its source episode, playback URL,
// and current position.
type Player struct {
	Source   string
	URL      string
	StartSec float64

	mu      sync.Mutex
	pos     float64
	playing bool
}

// NewPlayer creates a player positioned at the placeholder's start.
func NewPlayer(ph Placeholder, url string) *Player {
	return &Player{Source: ph.Source, URL: url, StartSec: ph.StartSec, pos: ph.StartSec}
}

// Position returns the current playback position in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// Playing reports whether the player is currently playing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) setPlaying(on bool) {
	p.mu.Lock()
	p.playing = on
	p.mu.Unlock()
}

func (p *Player) setPos(sec float64) {
	p.mu.Lock()
	p.pos = sec
	p.mu.Unlock()
}

// HighlightFunc is called when the highlighted segment changes.
// A nil episode highlight (episode == "") clears the highlight.
type HighlightFunc func(episode string, seg engine.Segment)

// Controller enforces single playback and keeps the highlighted segment
// in sync with the active player's position. At most one player plays
// at a time; starting one pauses the previous.
type Controller struct {
	cache       *SegmentCache
	onHighlight HighlightFunc

	mu     sync.Mutex
	active *Player
	gen    uint64
	curEp  string
	curSeg int
	curSet bool
}

// NewController creates a controller resolving positions against cache.
func NewController(cache *SegmentCache, onHighlight HighlightFunc) *Controller {
	return &Controller{cache: cache, onHighlight: onHighlight, curSeg: -1}
}

// Play makes p the active player, pausing whatever played before.
func (c *Controller) Play(p *Player) {
	c.mu.Lock()
	if c.active != nil && c.active != p {
		c.active.setPlaying(false)
	}
	c.active = p
	c.gen++
	c.mu.Unlock()
	p.setPlaying(true)
}

// Pause stops the active player. The player stays active so playback
// can resume from the same position.
func (c *Controller) Pause() {
	c.mu.Lock()
	p := c.active
	c.gen++
	c.mu.Unlock()
	if p != nil {
		p.setPlaying(false)
	}
}

// Advance reports a position update from p. Updates from a player that
// is no longer active are ignored. When the position lands in a cached
// segment different from the current highlight, the highlight moves.
func (c *Controller) Advance(p *Player, sec float64) {
	c.mu.Lock()
	if c.active != p || !p.Playing() {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.mu.Unlock()

	p.setPos(sec)

	seg, ok := c.cache.SegmentAtTime(p.Source, sec)
	if !ok {
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.active != p {
		c.mu.Unlock()
		return
	}
	if c.curSet && c.curEp == p.Source && c.curSeg == seg.Index {
		c.mu.Unlock()
		return
	}
	c.curEp = p.Source
	c.curSeg = seg.Index
	c.curSet = true
	fn := c.onHighlight
	c.mu.Unlock()

	if fn != nil {
		fn(p.Source, seg)
	}
}

// Active returns the currently active player, or nil.
func (c *Controller) Active() *Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Highlighted returns the episode and segment index of the current
// highlight.
func (c *Controller) Highlighted() (string, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curEp, c.curSeg, c.curSet
}
