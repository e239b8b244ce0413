package apollo

import (
	"encoding/json"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"

	"github.com/matheuskafuri/phnews/internal/textutil"
)

// PushPayload is one object passed to the transport's push call.
type PushPayload struct {
	Rehydrate map[string]any `json:"rehydrate"`
}

// Values returns the query results carried by the payload: each rehydrate
// entry's data, or its result.data, in key order.
func (p PushPayload) Values() []any {
	var out []any
	for _, k := range slices.Sorted(maps.Keys(p.Rehydrate)) {
		m, ok := p.Rehydrate[k].(map[string]any)
		if !ok {
			continue
		}
		if d, ok := m["data"]; ok && d != nil {
			out = append(out, d)
			continue
		}
		if r, ok := m["result"].(map[string]any); ok && r["data"] != nil {
			out = append(out, r["data"])
		}
	}
	return out
}

var undefinedToken = regexp.MustCompile(`\bundefined\b`)

// ExtractPushPayloads decodes every push({...}) argument in marker scripts.
// Objects that cannot be decoded are skipped.
func ExtractPushPayloads(doc *goquery.Document) []PushPayload {
	var payloads []PushPayload
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		content := s.Text()
		if !strings.Contains(content, Marker) || !strings.Contains(content, ".push(") {
			return
		}
		from := 0
		for {
			idx := strings.Index(content[from:], ".push(")
			if idx < 0 {
				return
			}
			idx += from
			from = idx + len(".push(")

			obj, ok := objectAfter(content, from)
			if !ok {
				continue
			}
			if p, ok := decodePush(obj); ok {
				payloads = append(payloads, p)
			}
		}
	})
	return payloads
}

// objectAfter returns the balanced {...} literal starting at the first brace
// at or after start. Quotes of all three JS kinds are skipped.
func objectAfter(content string, start int) (string, bool) {
	open := strings.IndexByte(content[start:], '{')
	if open < 0 {
		return "", false
	}
	open += start

	depth := 0
	var quote byte
	escaped := false
	for i := open; i < len(content); i++ {
		c := content[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[open : i+1], true
			}
		}
	}
	return "", false
}

func decodePush(obj string) (PushPayload, bool) {
	var p PushPayload
	if s, ok := textutil.SanitizeJSON(obj); ok {
		if err := json.Unmarshal([]byte(s), &p); err == nil {
			return p, true
		}
	}

	var loose map[string]any
	if err := json5.Unmarshal([]byte(undefinedToken.ReplaceAllString(obj, "null")), &loose); err != nil {
		return PushPayload{}, false
	}
	if r, ok := loose["rehydrate"].(map[string]any); ok {
		p.Rehydrate = r
	}
	return p, true
}

// CollectPosts walks every payload and returns each object typed as a Post
// that has a string slug and name, de-duplicated by id, falling back to slug.
func CollectPosts(payloads []PushPayload) []Post {
	seen := make(map[string]bool)
	var out []Post

	var visit func(v any)
	visit = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				visit(item)
			}
		case map[string]any:
			if p, ok := postFromMap(t); ok && !seen[p.Key()] {
				seen[p.Key()] = true
				out = append(out, p)
			}
			for _, k := range slices.Sorted(maps.Keys(t)) {
				visit(t[k])
			}
		}
	}

	for _, payload := range payloads {
		for _, v := range payload.Values() {
			visit(v)
		}
	}
	return out
}

// CollectHomefeed returns the posts of homefeed sections in payloads whose id
// is in ids, using the same matching as Homefeed.Sections.
func CollectHomefeed(payloads []PushPayload, ids ...string) []Post {
	seen := make(map[string]bool)
	var out []Post

	for _, payload := range payloads {
		for _, v := range payload.Values() {
			data, _ := v.(map[string]any)
			homefeed, _ := data["homefeed"].(map[string]any)
			edges, _ := homefeed["edges"].([]any)
			for _, e := range edges {
				edge, _ := e.(map[string]any)
				node, _ := edge["node"].(map[string]any)
				id, _ := node["id"].(string)
				title, _ := node["title"].(string)
				if !sectionMatches(id, title, ids) {
					continue
				}
				items, _ := node["items"].([]any)
				for _, it := range items {
					m, _ := it.(map[string]any)
					if p, ok := postFromMap(m); ok && !seen[p.Key()] {
						seen[p.Key()] = true
						out = append(out, p)
					}
				}
			}
		}
	}
	return out
}

func postFromMap(m map[string]any) (Post, bool) {
	if m == nil || m["__typename"] != "Post" {
		return Post{}, false
	}
	slug, okSlug := m["slug"].(string)
	name, okName := m["name"].(string)
	if !okSlug || !okName || slug == "" || name == "" {
		return Post{}, false
	}

	b, err := json.Marshal(m)
	if err != nil {
		return Post{}, false
	}
	var p Post
	if err := json.Unmarshal(b, &p); err != nil {
		// Keep the identifying fields even if a nested field has an
		// unexpected shape.
		p = Post{Typename: "Post", Slug: slug, Name: name}
		p.ID, _ = m["id"].(string)
		p.Tagline, _ = m["tagline"].(string)
	}
	return p, true
}
