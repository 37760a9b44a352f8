package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	DataDir  string // transcript corpus root: <source>/<episode>/full_transcript.json.gz
	AudioDir string // audio root: <source>/<episode>.opus

	DatabaseURL string // postgres match store; empty = sqlite
	SQLitePath  string // sqlite match store path

	PageSize    int // default max_results per search page
	SnippetSize int // default snippet window in bytes

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	FFmpegPath  string // ffmpeg binary for clip export
	ClipBitrate string // mp3 bitrate for exported clips

	HTTPClient *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (webapi, browse, podserver).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.SnippetSize <= 0 {
		c.SnippetSize = 60
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.ClipBitrate == "" {
		c.ClipBitrate = "64k"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg = c
	Cfg = &cfg
}
