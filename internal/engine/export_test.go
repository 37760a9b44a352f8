package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
)

func TestWriteResultsCSV(t *testing.T) {
	results := []Result{
		{EpisodeIdx: 0, Episode: "show/ep1", SegmentIndex: 2, StartSec: 1.5, EndSec: 3.25, Text: "hello, \"world\""},
		{EpisodeIdx: 3, Episode: "other/ep9", SegmentIndex: 0, StartSec: 0, EndSec: 2, Text: "plain"},
	}

	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, results); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "\uFEFF") {
		t.Error("missing UTF-8 BOM")
	}

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\uFEFF"))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (header + 2)", len(rows))
	}
	if rows[0][0] != "Episode Index" || rows[0][1] != "Source" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "show" || rows[1][2] != "ep1" {
		t.Errorf("episode id not split: %v", rows[1])
	}
	if rows[1][3] != `hello, "world"` {
		t.Errorf("text not preserved through quoting: %q", rows[1][3])
	}
	if rows[1][4] != "1.50" || rows[1][5] != "3.25" {
		t.Errorf("times not formatted: %v", rows[1])
	}
}

func TestWriteResultsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\uFEFF"))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}

func TestSplitEpisodeID(t *testing.T) {
	tests := []struct {
		id      string
		source  string
		episode string
	}{
		{"show/ep1", "show", "ep1"},
		{"show/ep/extra", "show", "ep/extra"},
		{"bare", "bare", ""},
	}
	for _, tt := range tests {
		s, e := splitEpisodeID(tt.id)
		if s != tt.source || e != tt.episode {
			t.Errorf("splitEpisodeID(%q) = %q, %q", tt.id, s, e)
		}
	}
}

func TestExportClipRejectsBadRange(t *testing.T) {
	if _, err := ExportClip(context.Background(), "x.opus", 5, 5); err == nil {
		t.Error("expected error when end <= start")
	}
	if _, err := ExportClip(context.Background(), "x.opus", 5, 2); err == nil {
		t.Error("expected error when end before start")
	}
}
