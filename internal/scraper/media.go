package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/matheuskafuri/phnews/internal/apollo"
	"github.com/matheuskafuri/phnews/internal/imgix"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/opengraph"
	"github.com/matheuskafuri/phnews/internal/textutil"
)

// maxImageFetches bounds concurrent SVG conversions for one product.
const maxImageFetches = 8

type imageList struct {
	base string
	seen map[string]bool
	urls []string
}

func newImageList(base string) *imageList {
	return &imageList{base: base, seen: make(map[string]bool)}
}

func (l *imageList) add(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	u := imgix.Normalize(opengraph.Resolve(l.base, raw), imgix.Gallery)
	if l.seen[u] {
		return
	}
	l.seen[u] = true
	l.urls = append(l.urls, u)
}

func (l *imageList) addImgs(sel *goquery.Selection) {
	sel.Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		l.add(src)
	})
}

// galleryImages collects the product's gallery. The gallery component is
// preferred, then elements hinting at a gallery or carousel, then legacy
// class names. Inline SVG sources are added as found. The embedded post's
// media is used only when the markup has no images at all.
func (s *Scraper) galleryImages(doc *goquery.Document, pageURL string, post *apollo.Post) []string {
	sel := s.site.Selectors
	list := newImageList(pageURL)

	if container := doc.Find(sel.Gallery); container.Length() > 0 {
		list.addImgs(container.Find("img"))
	} else if hinted := s.hintedGalleries(doc); hinted.Length() > 0 {
		list.addImgs(hinted.Find("img"))
	} else {
		list.addImgs(doc.Find(sel.GalleryLegacy))
	}

	doc.Find(sel.InlineSVG).Each(func(_ int, svg *goquery.Selection) {
		if src, _ := svg.Attr("src"); imgix.IsSVG(src) {
			list.add(src)
		}
	})

	if len(list.urls) == 0 && post != nil {
		for _, items := range [][]apollo.MediaItem{post.Media, post.Gallery} {
			for _, m := range items {
				if m.URL != "" {
					list.add(m.URL)
				} else if m.ImageUUID != "" {
					list.add(s.site.ImageURL(m.ImageUUID))
				}
			}
		}
	}
	return list.urls
}

// hintedGalleries returns elements whose class or id mentions one of the
// gallery hints, compared case-insensitively.
func (s *Scraper) hintedGalleries(doc *goquery.Document) *goquery.Selection {
	return doc.Find("[class], [id]").FilterFunction(func(_ int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		id, _ := el.Attr("id")
		names := strings.ToLower(class + " " + id)
		for _, hint := range s.site.Selectors.GalleryHints {
			if strings.Contains(names, hint) {
				return true
			}
		}
		return false
	})
}

func (s *Scraper) shoutouts(doc *goquery.Document) []model.Shoutout {
	var out []model.Shoutout
	doc.Find(s.site.Selectors.Shoutouts).Each(func(i int, el *goquery.Selection) {
		href, _ := el.Attr("href")
		name := strings.TrimSpace(el.Find("div").First().Text())
		if name == "" {
			name = el.Text()
		}
		name = textutil.CleanText(name)
		if name == "" || href == "" {
			return
		}
		thumb, _ := el.Find("img").Attr("src")
		out = append(out, model.Shoutout{
			ID:        fmt.Sprintf("shoutout-%d", i),
			Name:      name,
			URL:       s.site.Absolute(href),
			Thumbnail: thumb,
		})
	})
	return out
}

func (s *Scraper) ranks(doc *goquery.Document) (daily, weekly int) {
	text := doc.Find(s.site.Selectors.Rank).Text()
	return firstInt(s.site.Patterns.DailyRank.FindStringSubmatch(text)),
		firstInt(s.site.Patterns.WeeklyRank.FindStringSubmatch(text))
}

// productHub returns the link to the product's page of earlier launches and
// how many there were, when the page mentions them.
func (s *Scraper) productHub(doc *goquery.Document) (string, int) {
	link := doc.Find(s.site.Selectors.ProductHubLink).First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return "", 0
	}
	return s.site.Absolute(href), firstInt(s.site.Patterns.PreviousLaunches.FindStringSubmatch(link.Text()))
}

func firstInt(m []string) int {
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// inlineSVGs replaces SVG URLs with data URIs, fetching them concurrently.
// A URL that fails to convert is kept as is.
func (s *Scraper) inlineSVGs(ctx context.Context, urls []string) []string {
	if s.images == nil {
		return urls
	}
	out := make([]string, len(urls))
	copy(out, urls)

	var g errgroup.Group
	g.SetLimit(maxImageFetches)
	for i, u := range urls {
		if !imgix.IsSVG(u) || strings.HasPrefix(u, "data:") {
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("svg conversion panicked", logger.URL(u), logger.Any("panic", r))
				}
			}()
			uri, err := s.images.DataURI(ctx, u)
			if err != nil {
				s.log.Debug("svg conversion failed", logger.URL(u), logger.Err(err))
				return nil
			}
			out[i] = uri
			return nil
		})
	}
	_ = g.Wait()
	return out
}
