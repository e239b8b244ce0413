// Package opengraph reads Open Graph and canonical-link metadata from a page.
package opengraph

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Metadata holds what a page says about itself. Every field is optional.
type Metadata struct {
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Image        string `json:"image,omitempty"`
	URL          string `json:"url,omitempty"`
	CanonicalURL string `json:"canonicalUrl,omitempty"`
	SiteName     string `json:"siteName,omitempty"`
	Type         string `json:"type,omitempty"`
}

// maxExcerpt caps the readability description fallback, in runes.
const maxExcerpt = 300

// Extract reads og:* tags and the canonical link from doc. When og:image is
// missing, imageSelectors are tried in order; a selector starting with
// "meta" is read from its content attribute, anything else from src.
// Relative image URLs are resolved against pageURL.
func Extract(doc *goquery.Document, pageURL string, imageSelectors []string) Metadata {
	md := Metadata{
		Title:       property(doc, "og:title"),
		Description: property(doc, "og:description"),
		Image:       property(doc, "og:image"),
		URL:         property(doc, "og:url"),
		SiteName:    property(doc, "og:site_name"),
		Type:        property(doc, "og:type"),
	}

	md.CanonicalURL = attr(doc, `link[rel="canonical"]`, "href")
	if md.CanonicalURL == "" {
		md.CanonicalURL = md.URL
	}
	if md.CanonicalURL == "" {
		md.CanonicalURL = pageURL
	}

	if md.Image == "" {
		for _, sel := range imageSelectors {
			name := "src"
			if strings.HasPrefix(sel, "meta") {
				name = "content"
			}
			if v := attr(doc, sel, name); v != "" {
				md.Image = v
				break
			}
		}
	}
	md.Image = Resolve(pageURL, md.Image)
	return md
}

// FromHTML parses html and extracts its metadata, completed by
// WithReadable.
func FromHTML(html, pageURL string, imageSelectors []string) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Metadata{}, err
	}
	return Extract(doc, pageURL, imageSelectors).WithReadable(html, pageURL), nil
}

// WithReadable fills a missing title or description from the readable
// article text of html. Values already present are kept.
func (md Metadata) WithReadable(html, pageURL string) Metadata {
	if md.Title != "" && md.Description != "" {
		return md
	}
	title, text := Readable(html, pageURL)
	if md.Title == "" {
		md.Title = title
	}
	if md.Description == "" {
		md.Description = excerpt(text, maxExcerpt)
	}
	return md
}

// Readable runs a readability pass over html and returns the article title
// and plain text. Both are empty when nothing readable is found.
func Readable(html, pageURL string) (title, text string) {
	html = strings.TrimSpace(html)
	if html == "" {
		return "", ""
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", ""
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(article.Title), strings.TrimSpace(article.TextContent)
}

// Resolve makes ref absolute against base. Empty refs stay empty and
// unparseable input is returned unchanged.
func Resolve(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func property(doc *goquery.Document, name string) string {
	return attr(doc, `meta[property="`+name+`"]`, "content")
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	if i := strings.LastIndexByte(string(r), ' '); i > n/2 {
		return string(r)[:i] + "…"
	}
	return string(r) + "…"
}
