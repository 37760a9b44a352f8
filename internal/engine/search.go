package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

// ErrEmptyQuery is returned when a search is issued without a query.
var ErrEmptyQuery = errors.New("empty query")

// ErrBadQuery is returned when a regex query does not compile.
var ErrBadQuery = errors.New("invalid query")

// Hit is a raw match position: episode ordinal plus byte offset into the
// joined episode text.
type Hit struct {
	EpisodeIdx int `json:"episode_idx"`
	CharOffset int `json:"char_offset"`
}

// Result is a hit enriched with its containing segment.
type Result struct {
	EpisodeIdx   int     `json:"episode_idx"`
	Episode      string  `json:"episode"`
	SegmentIndex int     `json:"segment_index"`
	StartSec     float64 `json:"start_sec"`
	EndSec       float64 `json:"end_sec"`
	Text         string  `json:"text"`
	CharOffset   int     `json:"char_offset"`
}

// Pagination describes one page of a result set. StillSearching means the
// full set is not complete yet and the client should poll for more.
type Pagination struct {
	Page           int  `json:"page"`
	PerPage        int  `json:"per_page"`
	TotalResults   int  `json:"total_results"`
	TotalPages     int  `json:"total_pages"`
	StillSearching bool `json:"still_searching"`
}

// SearchOptions control matching mode and paging.
type SearchOptions struct {
	Regex       bool
	Substring   bool
	MaxResults  int
	Page        int
	Progressive bool
}

// SearchResponse is one page of results.
type SearchResponse struct {
	Results    []Result   `json:"results"`
	Pagination Pagination `json:"pagination"`
}

// SearchService runs one-pass searches over the current index snapshot,
// with completed result sets cached and concurrent identical searches
// coalesced.
type SearchService struct {
	indexes *IndexManager
	store   MatchStore // optional prefilter; nil = full scan

	sf singleflight.Group

	mu    sync.Mutex
	scans map[string]*progressiveScan // in-flight progressive scans by cache key
}

// NewSearchService creates a search service. store may be nil.
func NewSearchService(mgr *IndexManager, store MatchStore) *SearchService {
	return &SearchService{
		indexes: mgr,
		store:   store,
		scans:   make(map[string]*progressiveScan),
	}
}

// Indexes exposes the underlying index manager.
func (s *SearchService) Indexes() *IndexManager {
	return s.indexes
}

// matchPlan is a compiled query: either a literal needle (optionally
// boundary-checked) or a regular expression.
type matchPlan struct {
	mode     string // "word", "substring" or "regex"
	needle   string // literal; empty for regex mode
	rx       *regexp.Regexp
	boundary bool
}

func buildPlan(query string, opts SearchOptions) (matchPlan, error) {
	switch {
	case opts.Regex:
		rx, err := regexp.Compile(query)
		if err != nil {
			return matchPlan{}, fmt.Errorf("%w: %v", ErrBadQuery, err)
		}
		return matchPlan{mode: "regex", rx: rx}, nil
	case opts.Substring:
		return matchPlan{mode: "substring", needle: query}, nil
	default:
		// Single words get whole-word matching, anything else is a
		// plain substring.
		if isSingleWord(query) {
			return matchPlan{mode: "word", needle: query, boundary: true}, nil
		}
		return matchPlan{mode: "substring", needle: query}, nil
	}
}

// Search runs the query and returns the requested page.
// Progressive mode releases page 1 as soon as it is full; the full set
// keeps filling in the background and still_searching flags the client
// to poll.
func (s *SearchService) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	IncrSearchRequests()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	plan, err := buildPlan(query, opts)
	if err != nil {
		return nil, err
	}

	perPage := opts.MaxResults
	if perPage < 1 {
		perPage = cfg.PageSize
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	key := CacheKey("search", query, plan.mode)
	if full, ok := CacheLoadJSON[[]Result](ctx, key); ok {
		return pageOf(full, page, perPage, false), nil
	}

	if opts.Progressive && page == 1 {
		return s.progressiveFirstPage(ctx, key, plan, perPage)
	}

	full, err := s.fullResults(ctx, key, plan)
	if err != nil {
		return nil, err
	}
	return pageOf(full, page, perPage, false), nil
}

// All returns the complete, unpaged result set for a query. A positive
// opts.MaxResults caps the returned set.
func (s *SearchService) All(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	plan, err := buildPlan(query, opts)
	if err != nil {
		return nil, err
	}
	full, err := s.fullResults(ctx, CacheKey("search", query, plan.mode), plan)
	if err != nil {
		return nil, err
	}
	if opts.MaxResults > 0 && len(full) > opts.MaxResults {
		full = full[:opts.MaxResults]
	}
	return full, nil
}

// fullResults scans for all hits, coalescing concurrent identical
// searches and caching the completed set.
func (s *SearchService) fullResults(ctx context.Context, key string, plan matchPlan) ([]Result, error) {
	v, err, _ := s.sf.Do(key, func() (any, error) {
		// Detached from the first caller so a shared scan survives
		// one client going away.
		scanCtx := context.WithoutCancel(ctx)
		if full, ok := CacheLoadJSON[[]Result](scanCtx, key); ok {
			return full, nil
		}
		full, err := s.scan(scanCtx, plan, nil)
		if err != nil {
			return nil, err
		}
		CacheStoreJSON(scanCtx, key, full)
		return full, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Result), nil
}

// progressiveScan is the shared state of one background scan. Re-polls
// for the same key attach to it instead of starting their own scan.
type progressiveScan struct {
	firstPage chan struct{} // closed once perPage hits are collected
	done      chan struct{} // closed when the scan finishes
	perPage   int

	pageOnce sync.Once

	mu        sync.Mutex
	collected []Result
	err       error
}

func (ps *progressiveScan) snapshot() ([]Result, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]Result, len(ps.collected))
	copy(out, ps.collected)
	return out, ps.err
}

// progressiveFirstPage returns as soon as one page of hits is collected
// (or the scan finishes). The scan runs in the background, keyed like the
// result cache, so concurrent and repeated first-page requests share it.
func (s *SearchService) progressiveFirstPage(ctx context.Context, key string, plan matchPlan, perPage int) (*SearchResponse, error) {
	s.mu.Lock()
	ps, ok := s.scans[key]
	if !ok {
		ps = &progressiveScan{
			firstPage: make(chan struct{}),
			done:      make(chan struct{}),
			perPage:   perPage,
		}
		s.scans[key] = ps
		go s.runProgressiveScan(context.WithoutCancel(ctx), key, plan, ps)
	}
	s.mu.Unlock()

	select {
	case <-ps.firstPage:
	case <-ps.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	still := true
	select {
	case <-ps.done:
		still = false
	default:
	}

	snapshot, err := ps.snapshot()
	if err != nil {
		return nil, err
	}
	return pageOf(snapshot, 1, perPage, still), nil
}

// runProgressiveScan drives a detached scan to completion, caches the
// full set on success and unregisters the key so a later search starts
// fresh (or hits the cache).
func (s *SearchService) runProgressiveScan(ctx context.Context, key string, plan matchPlan, ps *progressiveScan) {
	defer func() {
		s.mu.Lock()
		delete(s.scans, key)
		s.mu.Unlock()
		close(ps.done)
	}()

	full, err := s.scan(ctx, plan, func(r Result) {
		ps.mu.Lock()
		ps.collected = append(ps.collected, r)
		n := len(ps.collected)
		ps.mu.Unlock()
		if n == ps.perPage {
			ps.pageOnce.Do(func() { close(ps.firstPage) })
		}
	})
	if err != nil {
		ps.mu.Lock()
		ps.err = err
		ps.mu.Unlock()
		slog.Warn("search: progressive scan failed", slog.Any("error", err))
		return
	}
	CacheStoreJSON(ctx, key, full)
}

// scan walks the index emitting hits in (episode_idx, char_offset) order.
// emit, when non-nil, is called for every result as it is found.
func (s *SearchService) scan(ctx context.Context, plan matchPlan, emit func(Result)) ([]Result, error) {
	idx, err := s.indexes.Get(ctx)
	if err != nil {
		return nil, err
	}

	episodes, err := s.candidateEpisodes(ctx, idx, plan)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, 64)
	for _, i := range episodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i < 0 || i >= len(idx.Episodes) {
			continue
		}
		ep := &idx.Episodes[i]
		for _, off := range plan.offsets(ep.Text) {
			seg, ok := ep.SegmentForOffset(off)
			if !ok {
				continue
			}
			r := Result{
				EpisodeIdx:   i,
				Episode:      ep.ID,
				SegmentIndex: seg.Index,
				StartSec:     seg.StartSec,
				EndSec:       seg.EndSec,
				Text:         seg.Text,
				CharOffset:   off,
			}
			results = append(results, r)
			if emit != nil {
				emit(r)
			}
		}
	}
	return results, nil
}

// candidateEpisodes narrows the scan via the match store when a literal
// needle exists; regex scans everything. Store failures degrade to a
// full scan.
func (s *SearchService) candidateEpisodes(ctx context.Context, idx *Index, plan matchPlan) ([]int, error) {
	if s.store != nil && plan.needle != "" {
		cands, err := s.store.Candidates(ctx, plan.needle)
		if err == nil {
			return cands, nil
		}
		slog.Warn("search: store prefilter failed, scanning all", slog.Any("error", err))
	}
	all := make([]int, len(idx.Episodes))
	for i := range all {
		all[i] = i
	}
	return all, nil
}

// Snippet returns a text window around a hit, clamped to the episode and
// trimmed to rune boundaries.
func (s *SearchService) Snippet(ctx context.Context, episodeIdx, offset, size int) (string, bool) {
	IncrSnippetRequests()
	idx, err := s.indexes.Get(ctx)
	if err != nil || episodeIdx < 0 || episodeIdx >= len(idx.Episodes) {
		return "", false
	}
	if size <= 0 {
		size = cfg.SnippetSize
	}
	text := idx.Episodes[episodeIdx].Text
	if offset < 0 || offset > len(text) {
		return "", false
	}
	lo := offset - 10
	if lo < 0 {
		lo = 0
	}
	hi := offset + size
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return text[lo:hi], true
}

func pageOf(full []Result, page, perPage int, still bool) *SearchResponse {
	total := len(full)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	lo := (page - 1) * perPage
	if lo > total {
		lo = total
	}
	hi := lo + perPage
	if hi > total {
		hi = total
	}
	return &SearchResponse{
		Results: full[lo:hi],
		Pagination: Pagination{
			Page:           page,
			PerPage:        perPage,
			TotalResults:   total,
			TotalPages:     totalPages,
			StillSearching: still,
		},
	}
}

// offsets returns every match position in text for this plan.
func (p matchPlan) offsets(text string) []int {
	if p.rx != nil {
		locs := p.rx.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			return nil
		}
		out := make([]int, 0, len(locs))
		for _, l := range locs {
			out = append(out, l[0])
		}
		return out
	}
	return literalOffsets(text, p.needle, p.boundary)
}

// literalOffsets finds non-overlapping occurrences of needle, optionally
// requiring word boundaries on both sides. Boundaries are checked on
// runes, not bytes, so non-ASCII scripts behave like ASCII ones.
func literalOffsets(text, needle string, boundary bool) []int {
	if needle == "" {
		return nil
	}
	var out []int
	for start := 0; start <= len(text)-len(needle); {
		i := strings.Index(text[start:], needle)
		if i < 0 {
			break
		}
		pos := start + i
		if !boundary || boundedAt(text, pos, len(needle)) {
			out = append(out, pos)
			start = pos + len(needle)
		} else {
			start = pos + 1
		}
	}
	return out
}

// boundedAt reports whether text[pos:pos+n] sits on word boundaries.
func boundedAt(text string, pos, n int) bool {
	if pos > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:pos]); isWordRune(r) {
			return false
		}
	}
	if pos+n < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[pos+n:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isSingleWord(q string) bool {
	if q == "" {
		return false
	}
	for _, r := range q {
		if !isWordRune(r) && r != '-' {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
