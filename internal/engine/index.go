package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// EpisodeIndex holds everything the search path needs for one episode:
// the space-joined transcript text, the segments, and the byte offset of
// each segment's text within the joined string.
type EpisodeIndex struct {
	ID       string
	Text     string
	Segments []Segment
	offsets  []int
}

// SegmentForOffset returns the segment containing the given byte offset
// into the joined episode text.
func (e *EpisodeIndex) SegmentForOffset(off int) (Segment, bool) {
	if len(e.Segments) == 0 || off < 0 || off >= len(e.Text)+1 {
		return Segment{}, false
	}
	// Greatest i with offsets[i] <= off.
	i := sort.Search(len(e.offsets), func(i int) bool { return e.offsets[i] > off }) - 1
	if i < 0 {
		return Segment{}, false
	}
	return e.Segments[i], true
}

// Index is an immutable snapshot of the transcript corpus.
type Index struct {
	Episodes []EpisodeIndex
	byID     map[string]int
}

// Episode returns the episode index entry for an id.
func (idx *Index) Episode(id string) (*EpisodeIndex, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return &idx.Episodes[i], true
}

// SegmentForHit maps (episode_idx, byte offset) onto the containing segment.
func (idx *Index) SegmentForHit(episodeIdx, off int) (Segment, bool) {
	IncrSegmentLookups()
	if episodeIdx < 0 || episodeIdx >= len(idx.Episodes) {
		return Segment{}, false
	}
	return idx.Episodes[episodeIdx].SegmentForOffset(off)
}

// SegmentAt returns a single segment of an episode by ordinal.
func (idx *Index) SegmentAt(episodeID string, segIdx int) (Segment, bool) {
	ep, ok := idx.Episode(episodeID)
	if !ok || segIdx < 0 || segIdx >= len(ep.Segments) {
		return Segment{}, false
	}
	return ep.Segments[segIdx], true
}

// Segments returns the segments of an episode for the requested ordinals.
// Unknown ordinals are silently absent from the result.
func (idx *Index) Segments(episodeID string, indices []int) []Segment {
	ep, ok := idx.Episode(episodeID)
	if !ok {
		return nil
	}
	segs := make([]Segment, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(ep.Segments) {
			segs = append(segs, ep.Segments[i])
		}
	}
	return segs
}

// IndexManager owns the current Index and supports zero-downtime rebuilds:
// a new snapshot is built off to the side and swapped in atomically.
type IndexManager struct {
	corpus *Corpus

	mu  sync.RWMutex
	idx *Index
}

// NewIndexManager creates a manager over the given corpus.
func NewIndexManager(c *Corpus) *IndexManager {
	return &IndexManager{corpus: c}
}

// Get returns the current index, building it synchronously on first use.
func (m *IndexManager) Get(ctx context.Context) (*Index, error) {
	m.mu.RLock()
	idx := m.idx
	m.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}
	return m.Rebuild(ctx)
}

// Rebuild builds a fresh snapshot and swaps it in.
// Callers wanting a background rebuild run this in a goroutine; readers
// keep the old snapshot until the swap.
func (m *IndexManager) Rebuild(ctx context.Context) (*Index, error) {
	start := time.Now()
	eps, err := m.corpus.Episodes()
	if err != nil {
		return nil, err
	}

	idx := &Index{byID: make(map[string]int, len(eps))}
	for _, ep := range eps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segs, err := ep.ReadSegments()
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", ep.ID, err)
		}
		idx.byID[ep.ID] = len(idx.Episodes)
		idx.Episodes = append(idx.Episodes, buildEpisodeIndex(ep.ID, segs))
	}

	m.mu.Lock()
	m.idx = idx
	m.mu.Unlock()

	IncrIndexRebuilds()
	slog.Info("index: rebuilt",
		slog.Int("episodes", len(idx.Episodes)),
		slog.Duration("took", time.Since(start)),
	)
	return idx, nil
}

// buildEpisodeIndex joins segment texts with single spaces and records
// each segment's starting byte offset in the joined string.
func buildEpisodeIndex(id string, segs []Segment) EpisodeIndex {
	var sb strings.Builder
	offsets := make([]int, 0, len(segs))
	for i, s := range segs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		offsets = append(offsets, sb.Len())
		sb.WriteString(s.Text)
	}
	return EpisodeIndex{ID: id, Text: sb.String(), Segments: segs, offsets: offsets}
}
