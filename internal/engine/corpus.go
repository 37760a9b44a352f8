package engine

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const transcriptFilename = "full_transcript.json.gz"

// Episode is one recording in the corpus: a transcript file plus its id.
// The id is "<source>/<episode>", derived from the two directories above
// the transcript file.
type Episode struct {
	ID       string
	JSONPath string
}

// ReadSegments reads and parses the gzipped transcript JSON.
// Accepts either {"segments": [...]} or a bare segment list.
func (e Episode) ReadSegments() ([]Segment, error) {
	f, err := os.Open(e.JSONPath)
	if err != nil {
		return nil, fmt.Errorf("open transcript %s: %w", e.JSONPath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gunzip transcript %s: %w", e.JSONPath, err)
	}
	defer gz.Close()

	var raw []rawSegment
	dec := json.NewDecoder(gz)
	if err := dec.Decode(&raw); err != nil {
		// Retry as the wrapped layout.
		if _, serr := f.Seek(0, 0); serr != nil {
			return nil, fmt.Errorf("rewind transcript %s: %w", e.JSONPath, serr)
		}
		gz2, gerr := gzip.NewReader(f)
		if gerr != nil {
			return nil, fmt.Errorf("gunzip transcript %s: %w", e.JSONPath, gerr)
		}
		defer gz2.Close()
		var wrapped struct {
			Segments []rawSegment `json:"segments"`
		}
		if err2 := json.NewDecoder(gz2).Decode(&wrapped); err2 != nil {
			return nil, fmt.Errorf("parse transcript %s: %w", e.JSONPath, err)
		}
		raw = wrapped.Segments
	}

	segs := make([]Segment, 0, len(raw))
	for i, r := range raw {
		segs = append(segs, Segment{
			Index:    i,
			StartSec: r.Start,
			EndSec:   r.End,
			Text:     r.Text,
		})
	}
	return segs, nil
}

// Corpus scans a data directory for transcript files and caches the
// episode list, rescanning when the directory mtime advances.
type Corpus struct {
	root string

	mu       sync.Mutex
	episodes []Episode
	lastMod  time.Time
}

// NewCorpus creates a corpus rooted at dir. No scan happens until Episodes.
func NewCorpus(dir string) *Corpus {
	return &Corpus{root: dir}
}

// Episodes returns the cached episode list, rescanning if the root
// directory changed since the last scan.
func (c *Corpus) Episodes() ([]Episode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.root)
	if err != nil {
		return nil, fmt.Errorf("stat corpus root: %w", err)
	}
	if c.episodes != nil && !info.ModTime().After(c.lastMod) {
		return c.episodes, nil
	}

	eps, err := scanCorpus(c.root)
	if err != nil {
		return nil, err
	}
	c.episodes = eps
	c.lastMod = info.ModTime()
	return eps, nil
}

// scanCorpus walks root looking for full_transcript.json.gz files.
// Episode ids are "<source>/<episode>" from the enclosing directories.
func scanCorpus(root string) ([]Episode, error) {
	var eps []Episode
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != transcriptFilename {
			return nil
		}
		dir := filepath.Dir(path)
		id := filepath.Base(filepath.Dir(dir)) + "/" + filepath.Base(dir)
		eps = append(eps, Episode{ID: id, JSONPath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus %s: %w", root, err)
	}

	// Complain loudly about duplicate ids; they shadow each other in the index.
	seen := make(map[string]bool, len(eps))
	var dups []string
	for _, e := range eps {
		if seen[e.ID] {
			dups = append(dups, e.ID)
		}
		seen[e.ID] = true
	}
	if len(dups) > 0 {
		slog.Warn("corpus: duplicate episode ids", slog.String("ids", strings.Join(dups, ", ")))
	}

	sort.Slice(eps, func(i, j int) bool { return eps[i].ID < eps[j].ID })
	return eps, nil
}
