package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/matheuskafuri/phnews/internal/apollo"
	"github.com/matheuskafuri/phnews/internal/textutil"
)

// domPosts reads post cards straight from the markup. It recovers names,
// taglines, thumbnails and counts; anything richer needs embedded state.
func (s *Scraper) domPosts(doc *goquery.Document) []apollo.Post {
	sel := s.site.Selectors
	pat := s.site.Patterns

	seen := make(map[string]bool)
	var posts []apollo.Post
	doc.Find(sel.PostLinks).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := pat.PostPath.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		slug := m[1]
		seen[slug] = true

		name := textutil.CleanText(a.Text())
		if name == "" {
			name = slug
		}
		card := a.Closest(sel.PostCard)

		post := apollo.Post{
			Typename: "Post",
			ID:       slug,
			Slug:     slug,
			Name:     name,
			Tagline:  textutil.CleanText(card.Find(sel.PostTagline).First().Text()),
		}
		if src, ok := card.Find(sel.PostCardImg).First().Attr("src"); ok {
			if um := pat.ThumbnailUUID.FindStringSubmatch(src); um != nil {
				post.ThumbnailImageUUID = um[1]
			}
		}
		if n, ok := digits(card.Find(sel.PostVotes).First().Text()); ok {
			post.VotesCount = n
		}
		if n, ok := commentCount(card, pat.Comments); ok {
			post.CommentsCount = n
		}
		posts = append(posts, post)
	})
	return posts
}

// commentCount reads the first leaf element of card whose text looks like
// a comment count.
func commentCount(card *goquery.Selection, pattern *regexp.Regexp) (int, bool) {
	n, found := 0, false
	card.Find("*").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if el.Children().Length() > 0 {
			return true
		}
		if m := pattern.FindStringSubmatch(el.Text()); m != nil {
			n, found = digits(m[1])
		}
		return !found
	})
	return n, found
}

// digits parses the decimal digits in s, ignoring everything else.
func digits(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	return n, err == nil
}
