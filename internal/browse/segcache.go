package browse

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// defaultDebounce is how long the cache waits after the first Want
// before firing the batched fetch, so a burst of requests for nearby
// segments collapses into one request per episode.
const defaultDebounce = 25 * time.Millisecond

// SegmentCache accumulates segment requests, batches them per episode
// after a short debounce window, and keeps fetched segments forever.
// Cached segments are immutable; a (episode, index) pair is fetched at
// most once while its request is in flight.
type SegmentCache struct {
	client   *Client
	debounce time.Duration
	onLoad   func(episode string, segs []engine.Segment)

	mu       sync.Mutex
	segs     map[string]map[int]engine.Segment
	pending  map[string]map[int]struct{}
	inflight map[string]map[int]struct{}
	timer    *time.Timer

	sf singleflight.Group
}

// NewSegmentCache creates a cache fetching through client. debounce <= 0
// uses the default window. onLoad, if non-nil, is called with each batch
// of newly cached segments.
func NewSegmentCache(client *Client, debounce time.Duration, onLoad func(string, []engine.Segment)) *SegmentCache {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &SegmentCache{
		client:   client,
		debounce: debounce,
		onLoad:   onLoad,
		segs:     make(map[string]map[int]engine.Segment),
		pending:  make(map[string]map[int]struct{}),
		inflight: make(map[string]map[int]struct{}),
	}
}

// Get returns a cached segment.
func (sc *SegmentCache) Get(episode string, index int) (engine.Segment, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	seg, ok := sc.segs[episode][index]
	return seg, ok
}

// SegmentAtTime returns the cached segment of episode whose
// [start, end) interval contains sec.
func (sc *SegmentCache) SegmentAtTime(episode string, sec float64) (engine.Segment, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, seg := range sc.segs[episode] {
		if sec >= seg.StartSec && sec < seg.EndSec {
			return seg, true
		}
	}
	return engine.Segment{}, false
}

// Want registers segment indices for fetching. Indices already cached,
// pending, or in flight are ignored. The batch fires after the debounce
// window closes.
func (sc *SegmentCache) Want(episode string, indices ...int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	added := false
	for _, idx := range indices {
		if idx < 0 {
			continue
		}
		if _, ok := sc.segs[episode][idx]; ok {
			continue
		}
		if _, ok := sc.inflight[episode][idx]; ok {
			continue
		}
		if _, ok := sc.pending[episode][idx]; ok {
			continue
		}
		if sc.pending[episode] == nil {
			sc.pending[episode] = make(map[int]struct{})
		}
		sc.pending[episode][idx] = struct{}{}
		added = true
	}

	if added && sc.timer == nil {
		sc.timer = time.AfterFunc(sc.debounce, sc.Flush)
	}
}

// Flush fires the pending batch immediately.
func (sc *SegmentCache) Flush() {
	sc.mu.Lock()
	if sc.timer != nil {
		sc.timer.Stop()
		sc.timer = nil
	}
	batches := sc.pending
	sc.pending = make(map[string]map[int]struct{})
	for episode, set := range batches {
		if sc.inflight[episode] == nil {
			sc.inflight[episode] = make(map[int]struct{})
		}
		for idx := range set {
			sc.inflight[episode][idx] = struct{}{}
		}
	}
	sc.mu.Unlock()

	for episode, set := range batches {
		indices := make([]int, 0, len(set))
		for idx := range set {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		go sc.fetch(episode, indices)
	}
}

func (sc *SegmentCache) fetch(episode string, indices []int) {
	key := batchKey(episode, indices)
	segs, err, _ := sc.sf.Do(key, func() (any, error) {
		return sc.client.Segments(context.Background(), episode, indices)
	})

	sc.mu.Lock()
	for _, idx := range indices {
		delete(sc.inflight[episode], idx)
	}
	if err != nil {
		sc.mu.Unlock()
		slog.Warn("browse: segment fetch failed",
			slog.String("episode", episode),
			slog.Int("count", len(indices)),
			slog.Any("error", err))
		return
	}

	got := segs.([]engine.Segment)
	if sc.segs[episode] == nil {
		sc.segs[episode] = make(map[int]engine.Segment)
	}
	fresh := make([]engine.Segment, 0, len(got))
	for _, seg := range got {
		if _, ok := sc.segs[episode][seg.Index]; ok {
			continue
		}
		sc.segs[episode][seg.Index] = seg
		fresh = append(fresh, seg)
	}
	onLoad := sc.onLoad
	sc.mu.Unlock()

	if onLoad != nil && len(fresh) > 0 {
		onLoad(episode, fresh)
	}
}

func batchKey(episode string, indices []int) string {
	parts := make([]string, 0, len(indices)+1)
	parts = append(parts, episode)
	for _, idx := range indices {
		parts = append(parts, strconv.Itoa(idx))
	}
	return strings.Join(parts, "|")
}
