package browse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Placeholder describes a deferred audio element: which episode to load,
// the container format, and where playback should start.
type Placeholder struct {
	Source   string
	Format   string
	StartSec float64
	Visible  bool
}

// FragmentItem is one result row parsed out of the server fragment.
type FragmentItem struct {
	EpisodeIdx   int
	CharOffset   int
	Episode      string
	SegmentIndex int
	Text         string
	Placeholder  Placeholder
}

// FragmentPage is the parsed form of the server-rendered results block.
type FragmentPage struct {
	RequestID      string
	Page           int
	TotalResults   int
	TotalPages     int
	StillSearching bool
	Items          []FragmentItem
}

// ParseFragment parses the .results fragment contract. Rows that are
// missing required attributes are skipped rather than failing the page.
func ParseFragment(r io.Reader) (*FragmentPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	root := findByClass(doc, "results")
	if root == nil {
		return nil, fmt.Errorf("parse fragment: no .results block")
	}

	page := &FragmentPage{
		RequestID:      attr(root, "data-request-id"),
		Page:           atoiOr(attr(root, "data-page"), 1),
		TotalResults:   atoiOr(attr(root, "data-total-results"), 0),
		TotalPages:     atoiOr(attr(root, "data-total-pages"), 0),
		StillSearching: attr(root, "data-still-searching") == "true",
	}

	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if !hasClass(n, "result-item") {
			continue
		}
		item, ok := parseItem(n)
		if ok {
			page.Items = append(page.Items, item)
		}
	}
	return page, nil
}

func parseItem(n *html.Node) (FragmentItem, bool) {
	item := FragmentItem{
		EpisodeIdx: atoiOr(attr(n, "data-episode-idx"), -1),
		CharOffset: atoiOr(attr(n, "data-offset"), -1),
	}
	if item.EpisodeIdx < 0 || item.CharOffset < 0 {
		return item, false
	}

	if text := findByClass(n, "segment-text"); text != nil {
		item.Episode = attr(text, "data-episode")
		item.SegmentIndex = atoiOr(attr(text, "data-segment"), 0)
		item.Text = textContent(text)
	}
	ph := findByClass(n, "audio-placeholder")
	if ph == nil || attr(ph, "data-source") == "" {
		return item, false
	}
	start, err := strconv.ParseFloat(attr(ph, "data-start"), 64)
	if err != nil {
		start = 0
	}
	item.Placeholder = Placeholder{
		Source:   attr(ph, "data-source"),
		Format:   attr(ph, "data-format"),
		StartSec: start,
	}
	return item, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findByClass(n *html.Node, class string) *html.Node {
	if hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
