// Package feed turns the site's syndication feed into products. It is the
// last frontpage fallback when neither embedded state nor markup yields any
// posts.
package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/textutil"
)

// DefaultLimit is how many feed entries become products.
const DefaultLimit = 30

var postPath = regexp.MustCompile(`/posts/([^/?#]+)`)

type Parser struct {
	parser *gofeed.Parser
	now    func() time.Time
}

func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser(), now: time.Now}
}

// Parse reads an RSS or Atom document and maps its first limit entries to
// products. Entries without a title are skipped. A limit <= 0 means
// DefaultLimit.
func (p *Parser) Parse(body string, limit int) ([]model.Product, error) {
	f, err := p.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	now := p.now()
	products := make([]model.Product, 0, min(limit, len(f.Items)))
	for _, item := range f.Items {
		if len(products) == limit {
			break
		}
		title := textutil.CleanText(item.Title)
		if title == "" {
			continue
		}

		slug := slugFromLink(item.Link)
		if slug == "" {
			slug = textutil.Slugify(title)
		}

		created := now
		if item.PublishedParsed != nil {
			created = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			created = *item.UpdatedParsed
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		products = append(products, model.Product{
			ID:          slug,
			Slug:        slug,
			Name:        title,
			Description: truncate(textutil.CleanText(stripHTML(desc)), 300),
			URL:         item.Link,
			CreatedAt:   created,
			Topics:      []model.Topic{},
		})
	}
	return products, nil
}

func slugFromLink(link string) string {
	if m := postPath.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
