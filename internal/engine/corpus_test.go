package engine

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// writeTranscript writes a gzipped transcript under root/<id>/. wrapped
// selects the {"segments": [...]} layout over the bare list.
func writeTranscript(t *testing.T, root, id string, wrapped bool, segs []rawSegment) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(dir, transcriptFilename))
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	var payload any = segs
	if wrapped {
		payload = map[string]any{"segments": segs}
	}
	if err := json.NewEncoder(gz).Encode(payload); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReadSegments(t *testing.T) {
	segs := []rawSegment{
		{Start: 0, End: 2.5, Text: "hello there"},
		{Start: 2.5, End: 5, Text: "general remarks"},
	}

	t.Run("bare list", func(t *testing.T) {
		root := t.TempDir()
		writeTranscript(t, root, "show/ep1", false, segs)
		ep := Episode{ID: "show/ep1", JSONPath: filepath.Join(root, "show", "ep1", transcriptFilename)}
		got, err := ep.ReadSegments()
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d segments, want 2", len(got))
		}
		if got[0].Index != 0 || got[1].Index != 1 {
			t.Errorf("segment indices not ordinal: %d, %d", got[0].Index, got[1].Index)
		}
		if got[1].Text != "general remarks" || got[1].StartSec != 2.5 {
			t.Errorf("unexpected segment: %+v", got[1])
		}
	})

	t.Run("wrapped layout", func(t *testing.T) {
		root := t.TempDir()
		writeTranscript(t, root, "show/ep1", true, segs)
		ep := Episode{ID: "show/ep1", JSONPath: filepath.Join(root, "show", "ep1", transcriptFilename)}
		got, err := ep.ReadSegments()
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d segments, want 2", len(got))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		ep := Episode{ID: "x/y", JSONPath: filepath.Join(t.TempDir(), "nope.json.gz")}
		if _, err := ep.ReadSegments(); err == nil {
			t.Error("expected error for missing transcript")
		}
	})
}

func TestCorpusScan(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "beta/ep2", false, []rawSegment{{Text: "b"}})
	writeTranscript(t, root, "alpha/ep1", false, []rawSegment{{Text: "a"}})

	c := NewCorpus(root)
	eps, err := c.Episodes()
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 2 {
		t.Fatalf("got %d episodes, want 2", len(eps))
	}
	if eps[0].ID != "alpha/ep1" || eps[1].ID != "beta/ep2" {
		t.Errorf("episodes not sorted by id: %q, %q", eps[0].ID, eps[1].ID)
	}

	t.Run("cached between calls", func(t *testing.T) {
		again, err := c.Episodes()
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != 2 {
			t.Errorf("got %d episodes, want 2", len(again))
		}
	})
}

func TestCorpusMissingRoot(t *testing.T) {
	c := NewCorpus(filepath.Join(t.TempDir(), "missing"))
	if _, err := c.Episodes(); err == nil {
		t.Error("expected error for missing corpus root")
	}
}
