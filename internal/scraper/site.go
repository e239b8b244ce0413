package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultHost is the site the default adapter targets.
const DefaultHost = "https://www.producthunt.com/"

// DefaultCDN serves post media by image UUID.
const DefaultCDN = "https://ph-files.imgix.net/"

// Selectors are the CSS selectors the scraper relies on.
type Selectors struct {
	// DOM fallback for listing pages.
	PostLinks    string
	PostCard     string
	PostTagline  string
	PostVotes    string
	PostCardImg  string
	AboutSection string
	TeamSection  string
	HunterBadge  string

	Gallery        string
	GalleryLegacy  string
	GalleryHints   []string
	InlineSVG      string
	Shoutouts      string
	Rank           string
	ProductHubLink string
	Canonical      string

	// OGImage is tried in order when a page has no og:image.
	OGImage []string
}

// Patterns are the regular expressions the scraper relies on. Patterns
// applied to markup expect goquery's rendering: double-quoted attributes.
type Patterns struct {
	PostPath         *regexp.Regexp
	PostSlug         *regexp.Regexp
	ThumbnailUUID    *regexp.Regexp
	HuntedBy         *regexp.Regexp
	MadeBySection    *regexp.Regexp
	ProfileLink      *regexp.Regexp
	DailyRank        *regexp.Regexp
	WeeklyRank       *regexp.Regexp
	PreviousLaunches *regexp.Regexp
	Comments         *regexp.Regexp
}

// Site is the adapter between the scraper and one upstream layout. Every
// selector, pattern and URL shape lives here; a changed layout is a new
// Site, not a change to the scraper.
type Site struct {
	Host string
	CDN  string

	FrontpageSections []string
	TrendingSections  []string
	FeedLimit         int

	// HuntedByWindow is how close, in bytes of markup, "hunted by" must be
	// to a profile link for the proximity scan to accept it.
	HuntedByWindow int

	Selectors Selectors
	Patterns  Patterns
}

// ProductHunt returns the adapter for the current Product Hunt markup
// served from host. An empty host means DefaultHost.
func ProductHunt(host string) Site {
	if host == "" {
		host = DefaultHost
	}
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return Site{
		Host:              host,
		CDN:               DefaultCDN,
		FrontpageSections: []string{"FEATURED-0"},
		TrendingSections:  []string{"FEATURED-1", "POPULAR-0"},
		FeedLimit:         30,
		HuntedByWindow:    50,
		Selectors: Selectors{
			PostLinks:    `a[href^="/posts/"]`,
			PostCard:     "article, li, div",
			PostTagline:  `p, .text-gray-600, .text-dark-gray, [data-test="post-tagline"]`,
			PostVotes:    `[data-test="vote-button"], button:contains("▲"), [data-test="post-votes"]`,
			PostCardImg:  "img",
			AboutSection: `[data-test="about-section"], div.text-14.font-normal.text-dark-gray.text-gray-600, h2:contains("About this launch")`,
			TeamSection:  `.styles_metadataItem__YJEgI:contains("Meet the team"), [data-test="team-section"]`,
			HunterBadge:  `span:contains("Hunter"), [data-test="hunter-badge"]`,

			Gallery:        `[data-sentry-component="Gallery"]`,
			GalleryLegacy:  ".styles_imageContainer__Hm_9x img, .styles_image__wG8b_ img",
			GalleryHints:   []string{"gallery", "carousel"},
			InlineSVG:      "svg[src]",
			Shoutouts:      `.styles_builtWithContainer__hMCFG a, [data-test="built-with-item"]`,
			Rank:           `.styles_rankContainer__Oc9ce, [data-test="product-rank"]`,
			ProductHubLink: `a:contains("previous launch"), a[href*="/products/"]:contains("See")`,
			Canonical:      `link[rel="canonical"]`,

			OGImage: []string{
				`meta[name="twitter:image"]`,
				".styles_thumbnail__Xtg_i img",
				".styles_media__jA_aZ img",
				`img[alt*="product"]`,
				`img[alt*="Product"]`,
			},
		},
		Patterns: Patterns{
			PostPath:         regexp.MustCompile(`^/posts/([^/?#]+)`),
			PostSlug:         regexp.MustCompile(`posts/([^/?#]+)/?(?:[?#].*)?$`),
			ThumbnailUUID:    regexp.MustCompile(`ph-files\.imgix\.net/([^/?#]+)`),
			HuntedBy:         regexp.MustCompile(`(?i)(?:was\s+)?hunted\s+by\s+[^<]*?<a\s+[^>]*?href="([^"]+)"[^>]*?>([^<]+)</a>`),
			MadeBySection:    regexp.MustCompile(`(?is)Made\s+by\s+(.*?)(?:Featured\s+on|in\s+<a[^>]*?href="/topics/)`),
			ProfileLink:      regexp.MustCompile(`<a\s+[^>]*?href="([^"]+)"[^>]*?>([^<]+)</a>`),
			DailyRank:        regexp.MustCompile(`#(\d+) Today`),
			WeeklyRank:       regexp.MustCompile(`#(\d+) This Week`),
			PreviousLaunches: regexp.MustCompile(`(\d+)\s+previous`),
			Comments:         regexp.MustCompile(`(?i)(\d[\d,]*)\s*comments?`),
		},
	}
}

func (s Site) PostURL(slug string) string { return s.Host + "posts/" + slug }

func (s Site) TopicsURL() string { return s.Host + "topics" }

func (s Site) SearchURL(query string) string {
	return s.Host + "search?q=" + url.QueryEscape(query)
}

func (s Site) FeedURL() string { return s.Host + "feed" }

func (s Site) ProfileURL(username string) string { return s.Host + "@" + username }

// ImageURL is the CDN address of an uploaded image.
func (s Site) ImageURL(uuid string) string {
	if uuid == "" {
		return ""
	}
	return s.CDN + uuid
}

// PlaceholderThumbnail is the thumbnail used when a page offers no image.
func (s Site) PlaceholderThumbnail(slug string) string {
	return s.CDN + slug + "?auto=format&fit=crop&h=512&w=1024"
}

// Absolute resolves an href found on the site against Host.
func (s Site) Absolute(href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return s.Host + strings.TrimPrefix(href, "/")
}

// SlugFromURL returns the post slug of a post permalink, or "".
func (s Site) SlugFromURL(u string) string {
	if m := s.Patterns.PostSlug.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// UsernameFromURL returns the last path segment of a profile URL without
// its leading "@". Both /@name and /name forms are accepted.
func UsernameFromURL(u string) string {
	if u == "" {
		return ""
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	last := u[strings.LastIndex(u, "/")+1:]
	return strings.TrimPrefix(last, "@")
}
