package engine

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const audioSuffix = ".opus"

// ResolveAudioPath maps an episode id ("<source>/<episode>") onto its
// audio file under the configured audio directory. Falls back to the
// URL-decoded id, mirroring how browsers sometimes double-encode paths.
// Returns false when no file exists or the id escapes the audio root.
func ResolveAudioPath(id string) (string, bool) {
	if p, ok := audioPathFor(id); ok {
		return p, true
	}
	decoded, err := url.PathUnescape(id)
	if err != nil || decoded == id {
		return "", false
	}
	return audioPathFor(decoded)
}

func audioPathFor(id string) (string, bool) {
	if cfg.AudioDir == "" || id == "" {
		return "", false
	}
	p := filepath.Join(cfg.AudioDir, filepath.FromSlash(id)+audioSuffix)
	// Join cleans the path; anything that climbed out of the root is rejected.
	if !strings.HasPrefix(p, filepath.Clean(cfg.AudioDir)+string(filepath.Separator)) {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// AudioFragmentURL builds the playback URL for an episode with a media
// fragment selecting the start position.
func AudioFragmentURL(base, id string, startSec float64) string {
	return fmt.Sprintf("%s/audio/%s#t=%.2f", strings.TrimRight(base, "/"), id, startSec)
}
