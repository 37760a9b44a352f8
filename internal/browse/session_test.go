package browse

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// fakeBackend mimics the web API for session tests: the first search
// response reports still_searching with two hits, later ones return the
// complete set of three.
type fakeBackend struct {
	searches atomic.Int32
}

func (fb *fakeBackend) handler() http.Handler {
	results := []engine.Result{
		{EpisodeIdx: 0, Episode: "show/ep1", SegmentIndex: 0, StartSec: 0, EndSec: 1, Text: "one", CharOffset: 0},
		{EpisodeIdx: 0, Episode: "show/ep1", SegmentIndex: 2, StartSec: 2, EndSec: 3, Text: "two", CharOffset: 9},
		{EpisodeIdx: 1, Episode: "show/ep2", SegmentIndex: 1, StartSec: 1, EndSec: 2, Text: "three", CharOffset: 4},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		n := fb.searches.Add(1)
		still := n == 1
		out := results
		if still {
			out = results[:2]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": out,
			"pagination": engine.Pagination{
				Page: 1, PerPage: 100,
				TotalResults: len(out), TotalPages: 1,
				StillSearching: still,
			},
			"stats": map[string]any{"request_id": "req00001", "still_searching": still},
		})
	})
	mux.HandleFunc("/api/segments", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Episode string `json:"episode"`
			Indices []int  `json:"indices"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		segs := make([]engine.Segment, 0, len(req.Indices))
		for _, i := range req.Indices {
			segs = append(segs, engine.Segment{Index: i, StartSec: float64(i), EndSec: float64(i + 1), Text: "seg"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"episode": req.Episode, "segments": segs})
	})
	mux.HandleFunc("/audio/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/log-timing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestSessionEndToEnd(t *testing.T) {
	fb := &fakeBackend{}
	ts := httptest.NewServer(fb.handler())
	defer ts.Close()

	s, err := NewSession(NewClient(ts.URL, nil), SessionConfig{
		PollInterval: 20 * time.Millisecond,
		Debounce:     5 * time.Millisecond,
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start("needle", engine.SearchOptions{}))

	var mu sync.Mutex
	rows := 0
	players := map[string]bool{}
	done := false
	highlights := make(chan engine.Segment, 8)

	deadline := time.After(3 * time.Second)
	for !doneAndLoaded(&mu, &done, &rows, players) {
		select {
		case ev := <-s.Events():
			mu.Lock()
			switch ev.Kind {
			case EventRows:
				rows += len(ev.Rows)
			case EventPlayerReady:
				players[ev.Player.Source] = true
			case EventHighlight:
				highlights <- ev.Segment
			case EventDone:
				done = true
			}
			mu.Unlock()
		case <-deadline:
			t.Fatalf("timed out: rows=%d players=%d done=%v", rows, len(players), done)
		}
	}

	// Three distinct hits: the repoll must not duplicate the first two.
	require.Equal(t, 3, rows)
	require.True(t, players["show/ep1"])
	require.True(t, players["show/ep2"])
	require.GreaterOrEqual(t, fb.searches.Load(), int32(2))

	// Playback drives the highlight through the event loop.
	s.Play("show/ep1")
	s.Advance("show/ep1", 0.5)

	collectHighlight := func() engine.Segment {
		for {
			select {
			case seg := <-highlights:
				return seg
			case ev := <-s.Events():
				if ev.Kind == EventHighlight {
					return ev.Segment
				}
			case <-time.After(time.Second):
				t.Fatal("no highlight delivered")
			}
		}
	}
	seg := collectHighlight()
	require.Equal(t, 0, seg.Index)
}

func doneAndLoaded(mu *sync.Mutex, done *bool, rows *int, players map[string]bool) bool {
	mu.Lock()
	defer mu.Unlock()
	return *done && *rows == 3 && len(players) == 2
}

func TestSessionRejectsEmptyQuery(t *testing.T) {
	s, err := NewSession(NewClient("http://localhost:0", nil), SessionConfig{})
	require.NoError(t, err)
	defer s.Close()
	require.Error(t, s.Start("", engine.SearchOptions{}))
}

func TestSessionSwallowsFetchErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s, err := NewSession(NewClient(ts.URL, nil), SessionConfig{PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start("needle", engine.SearchOptions{}))

	// The failed first fetch leaves no rows and the session reports done
	// rather than crashing or retrying forever.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			require.NotEqual(t, EventRows, ev.Kind)
			if ev.Kind == EventDone {
				return
			}
		case <-deadline:
			t.Fatal("session never settled")
		}
	}
}
