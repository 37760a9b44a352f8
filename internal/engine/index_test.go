package engine

import (
	"context"
	"testing"
)

func testIndex(t *testing.T, transcripts map[string][]rawSegment) *Index {
	t.Helper()
	root := t.TempDir()
	for id, segs := range transcripts {
		writeTranscript(t, root, id, false, segs)
	}
	idx, err := NewIndexManager(NewCorpus(root)).Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestSegmentForOffset(t *testing.T) {
	idx := testIndex(t, map[string][]rawSegment{
		"show/ep1": {
			{Start: 0, End: 1, Text: "first segment"},
			{Start: 1, End: 2, Text: "second segment"},
			{Start: 2, End: 3, Text: "third"},
		},
	})
	ep := &idx.Episodes[0]
	// Joined text: "first segment second segment third"

	tests := []struct {
		name    string
		offset  int
		wantIdx int
		ok      bool
	}{
		{"start of first", 0, 0, true},
		{"inside first", 5, 0, true},
		{"joining space belongs to first", 13, 0, true},
		{"start of second", 14, 1, true},
		{"start of third", 29, 2, true},
		{"end of text", len(ep.Text) - 1, 2, true},
		{"past end", len(ep.Text) + 1, 0, false},
		{"negative", -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := ep.SegmentForOffset(tt.offset)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && seg.Index != tt.wantIdx {
				t.Errorf("segment %d, want %d", seg.Index, tt.wantIdx)
			}
		})
	}
}

func TestSegmentForOffsetHebrew(t *testing.T) {
	// Multi-byte text must resolve by byte offset, not rune count.
	idx := testIndex(t, map[string][]rawSegment{
		"show/ep1": {
			{Start: 0, End: 1, Text: "שלום עולם"},
			{Start: 1, End: 2, Text: "מה נשמע"},
		},
	})
	ep := &idx.Episodes[0]

	seg, ok := ep.SegmentForOffset(0)
	if !ok || seg.Index != 0 {
		t.Fatalf("offset 0: got %+v ok=%v", seg, ok)
	}
	// "שלום עולם" is 17 bytes; the second segment starts after it plus
	// the joining space.
	seg, ok = ep.SegmentForOffset(18)
	if !ok || seg.Index != 1 {
		t.Fatalf("offset 18: got %+v ok=%v", seg, ok)
	}
}

func TestIndexLookups(t *testing.T) {
	idx := testIndex(t, map[string][]rawSegment{
		"show/ep1": {{Start: 0, End: 1, Text: "one"}, {Start: 1, End: 2, Text: "two"}},
		"show/ep2": {{Start: 0, End: 1, Text: "three"}},
	})

	t.Run("episode by id", func(t *testing.T) {
		ep, ok := idx.Episode("show/ep2")
		if !ok || ep.ID != "show/ep2" {
			t.Fatalf("got %v ok=%v", ep, ok)
		}
		if _, ok := idx.Episode("show/nope"); ok {
			t.Error("expected miss for unknown id")
		}
	})

	t.Run("segment at", func(t *testing.T) {
		seg, ok := idx.SegmentAt("show/ep1", 1)
		if !ok || seg.Text != "two" {
			t.Fatalf("got %+v ok=%v", seg, ok)
		}
		if _, ok := idx.SegmentAt("show/ep1", 5); ok {
			t.Error("expected miss for out-of-range ordinal")
		}
	})

	t.Run("segments batch skips unknown ordinals", func(t *testing.T) {
		segs := idx.Segments("show/ep1", []int{-1, 0, 1, 7})
		if len(segs) != 2 {
			t.Fatalf("got %d segments, want 2", len(segs))
		}
		if segs[0].Text != "one" || segs[1].Text != "two" {
			t.Errorf("unexpected segments: %+v", segs)
		}
	})

	t.Run("segments of unknown episode", func(t *testing.T) {
		if segs := idx.Segments("show/nope", []int{0}); segs != nil {
			t.Errorf("expected nil, got %+v", segs)
		}
	})
}

func TestIndexRebuildSwap(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "show/ep1", false, []rawSegment{{Text: "one"}})
	mgr := NewIndexManager(NewCorpus(root))

	ctx := context.Background()
	first, err := mgr.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Episodes) != 1 {
		t.Fatalf("got %d episodes, want 1", len(first.Episodes))
	}

	second, err := mgr.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("rebuild returned the old snapshot")
	}
	got, err := mgr.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != second {
		t.Error("Get did not return the swapped-in snapshot")
	}
}
