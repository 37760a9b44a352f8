package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// WriteResultsCSV writes results as CSV with a UTF-8 BOM so spreadsheet
// tools detect the encoding.
func WriteResultsCSV(w io.Writer, results []Result) error {
	IncrCSVExports()

	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Episode Index", "Source", "Episode", "Text", "Start Time", "End Time"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		source, episode := splitEpisodeID(r.Episode)
		rec := []string{
			strconv.Itoa(r.EpisodeIdx),
			source,
			episode,
			r.Text,
			strconv.FormatFloat(r.StartSec, 'f', 2, 64),
			strconv.FormatFloat(r.EndSec, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// splitEpisodeID splits "<source>/<episode>" into its parts.
func splitEpisodeID(id string) (source, episode string) {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// ExportClip cuts [startSec, endSec) out of the audio file and encodes
// it as mp3 via ffmpeg, returning the encoded bytes.
func ExportClip(ctx context.Context, audioPath string, startSec, endSec float64) ([]byte, error) {
	if endSec <= startSec {
		return nil, fmt.Errorf("end %.2f must be greater than start %.2f", endSec, startSec)
	}
	IncrClipExports()

	cmd := exec.CommandContext(ctx, cfg.FFmpegPath,
		"-y",
		"-i", audioPath,
		"-ss", strconv.FormatFloat(startSec, 'f', 2, 64),
		"-to", strconv.FormatFloat(endSec, 'f', 2, 64),
		"-acodec", "libmp3lame",
		"-ab", cfg.ClipBitrate,
		"-f", "mp3",
		"-",
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(errBuf.String()))
	}
	return out.Bytes(), nil
}
