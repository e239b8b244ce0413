// Package apollo reads the Apollo SSR state that the site embeds in its
// server-rendered pages.
//
// Two transports are understood: the older events array assigned inside a
// script mentioning ApolloSSRDataTransport, and the newer
// .push({rehydrate: {...}}) calls on the same transport object.
package apollo

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"

	"github.com/matheuskafuri/phnews/internal/textutil"
)

// Marker identifies scripts that carry SSR state.
const Marker = "ApolloSSRDataTransport"

var eventsPattern = regexp.MustCompile(`"events":(\[.+\])\}\)`)

var (
	ErrMarkerNotFound = errors.New("could not find Apollo SSR transport script")
	ErrEventsNotFound = errors.New("could not extract Apollo data from the page")
	ErrSanitize       = errors.New("failed to sanitize Apollo data")
	ErrParse          = errors.New("failed to parse Apollo data")

	// ErrSectionMissing means the state parsed but lacked the wanted query.
	ErrSectionMissing = errors.New("section not present in Apollo data")
)

// IsExtractionFailure reports whether err means the embedded state could not
// be read at all, as opposed to a missing section.
func IsExtractionFailure(err error) bool {
	return errors.Is(err, ErrMarkerNotFound) ||
		errors.Is(err, ErrEventsNotFound) ||
		errors.Is(err, ErrSanitize) ||
		errors.Is(err, ErrParse)
}

type Events []Event

// ScriptText concatenates the text of every script carrying the marker.
func ScriptText(doc *goquery.Document) string {
	var b strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if t := s.Text(); strings.Contains(t, Marker) {
			b.WriteString(t)
		}
	})
	return b.String()
}

// ExtractEvents locates, repairs and decodes the events array in doc.
func ExtractEvents(doc *goquery.Document) (Events, error) {
	script := ScriptText(doc)
	if script == "" {
		return nil, ErrMarkerNotFound
	}
	m := eventsPattern.FindStringSubmatch(script)
	if m == nil {
		return nil, ErrEventsNotFound
	}
	return ParseEvents(m[1])
}

// ParseEvents decodes a raw events array. Individual events that do not
// match the expected shape are dropped rather than failing the whole array.
func ParseEvents(raw string) (Events, error) {
	sanitized, ok := textutil.SanitizeJSON(raw)
	if !ok {
		return nil, ErrSanitize
	}

	items, err := decodeArray(sanitized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	events := make(Events, 0, len(items))
	for _, it := range items {
		var ev Event
		if err := json.Unmarshal(it, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeArray(s string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	err := json.Unmarshal([]byte(s), &items)
	if err == nil {
		return items, nil
	}

	var loose []any
	if err5 := json5.Unmarshal([]byte(s), &loose); err5 != nil {
		return nil, err
	}
	items = make([]json.RawMessage, 0, len(loose))
	for _, v := range loose {
		b, merr := json.Marshal(v)
		if merr != nil {
			continue
		}
		items = append(items, b)
	}
	return items, nil
}

func (es Events) find(has func(Data) bool) (Data, bool) {
	for _, e := range es {
		if e.Type == "data" && has(e.Result.Data) {
			return e.Result.Data, true
		}
	}
	return Data{}, false
}

func (es Events) Post() (*Post, bool) {
	d, ok := es.find(func(d Data) bool { return d.Post != nil })
	return d.Post, ok
}

func (es Events) Homefeed() (*Homefeed, bool) {
	d, ok := es.find(func(d Data) bool { return d.Homefeed != nil })
	return d.Homefeed, ok
}

func (es Events) Search() (*SearchResults, bool) {
	d, ok := es.find(func(d Data) bool { return d.Search != nil })
	return d.Search, ok
}

func (es Events) Topics() (*TopicConnection, bool) {
	d, ok := es.find(func(d Data) bool { return d.Topics != nil })
	return d.Topics, ok
}

// Sections returns the homefeed sections whose id is in ids. When ids
// includes "FEATURED-0", a section titled "Top Products" also matches.
func (h *Homefeed) Sections(ids ...string) []HomefeedSection {
	if h == nil {
		return nil
	}
	var out []HomefeedSection
	for _, e := range h.Edges {
		if sectionMatches(e.Node.ID, e.Node.Title, ids) {
			out = append(out, e.Node)
		}
	}
	return out
}

// AllSections returns every homefeed section in page order.
func (h *Homefeed) AllSections() []HomefeedSection {
	if h == nil {
		return nil
	}
	out := make([]HomefeedSection, 0, len(h.Edges))
	for _, e := range h.Edges {
		out = append(out, e.Node)
	}
	return out
}

func sectionMatches(id, title string, ids []string) bool {
	if id == "" {
		return false
	}
	for _, want := range ids {
		if id == want {
			return true
		}
		if want == "FEATURED-0" && strings.Contains(title, "Top Products") {
			return true
		}
	}
	return false
}

// UniquePosts flattens sections into their posts, keeping the first
// occurrence of each id or slug.
func UniquePosts(sections []HomefeedSection) []Post {
	seen := make(map[string]bool)
	var out []Post
	for _, s := range sections {
		for _, p := range s.Posts() {
			if p.Slug == "" || p.Name == "" || seen[p.Key()] {
				continue
			}
			seen[p.Key()] = true
			out = append(out, p)
		}
	}
	return out
}
