package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	SearchRequests       atomic.Int64
	SnippetRequests      atomic.Int64
	SegmentLookups       atomic.Int64
	SegmentBatchRequests atomic.Int64
	AudioRequests        atomic.Int64
	CSVExports           atomic.Int64
	ClipExports          atomic.Int64
	IndexRebuilds        atomic.Int64
	ClientTimingEvents   atomic.Int64
}

// IncrSearchRequests increments the search request counter.
func IncrSearchRequests() { metrics.SearchRequests.Add(1) }

// IncrSnippetRequests increments the snippet request counter.
func IncrSnippetRequests() { metrics.SnippetRequests.Add(1) }

// IncrSegmentLookups increments the single segment lookup counter.
func IncrSegmentLookups() { metrics.SegmentLookups.Add(1) }

// IncrSegmentBatchRequests increments the batch segment request counter.
func IncrSegmentBatchRequests() { metrics.SegmentBatchRequests.Add(1) }

// IncrAudioRequests increments the audio request counter.
func IncrAudioRequests() { metrics.AudioRequests.Add(1) }

// IncrCSVExports increments the CSV export counter.
func IncrCSVExports() { metrics.CSVExports.Add(1) }

// IncrClipExports increments the audio clip export counter.
func IncrClipExports() { metrics.ClipExports.Add(1) }

// IncrIndexRebuilds increments the index rebuild counter.
func IncrIndexRebuilds() { metrics.IndexRebuilds.Add(1) }

// IncrClientTimingEvents increments the client timing event counter.
func IncrClientTimingEvents() { metrics.ClientTimingEvents.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"search_requests":        metrics.SearchRequests.Load(),
		"snippet_requests":       metrics.SnippetRequests.Load(),
		"segment_lookups":        metrics.SegmentLookups.Load(),
		"segment_batch_requests": metrics.SegmentBatchRequests.Load(),
		"audio_requests":         metrics.AudioRequests.Load(),
		"csv_exports":            metrics.CSVExports.Load(),
		"clip_exports":           metrics.ClipExports.Load(),
		"index_rebuilds":         metrics.IndexRebuilds.Load(),
		"client_timing_events":   metrics.ClientTimingEvents.Load(),
		"cache_hits":             hits,
		"cache_misses":           misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"search_requests", "snippet_requests",
		"segment_lookups", "segment_batch_requests",
		"audio_requests",
		"csv_exports", "clip_exports",
		"index_rebuilds", "client_timing_events",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
