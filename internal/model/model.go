// Package model defines the records produced by the scraper and consumed by
// the cache, the TUI and the JSON output.
package model

import (
	"time"

	"github.com/matheuskafuri/phnews/internal/textutil"
)

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage,omitempty"`
	ProfileURL   string `json:"profileUrl,omitempty"`
}

type Topic struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Description    string `json:"description,omitempty"`
	FollowersCount int    `json:"followersCount,omitempty"`
	PostsCount     int    `json:"postsCount,omitempty"`
}

// Shoutout is a tool the makers credit as part of their stack.
type Shoutout struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Product is a single launch. Listing pages fill the cheap fields; the
// detail enricher adds attribution, media and ranking.
type Product struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug,omitempty"`
	Name          string    `json:"name"`
	Tagline       string    `json:"tagline"`
	Description   string    `json:"description,omitempty"`
	URL           string    `json:"url"`
	Thumbnail     string    `json:"thumbnail"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
	GalleryImages []string  `json:"galleryImages,omitempty"`
	VotesCount    int       `json:"votesCount"`
	CommentsCount int       `json:"commentsCount"`
	CreatedAt     time.Time `json:"createdAt"`

	// Maker is the legacy single-maker field: the posting user.
	Maker  *User  `json:"maker,omitempty"`
	Makers []User `json:"makers,omitempty"`
	Hunter *User  `json:"hunter,omitempty"`

	Topics    []Topic    `json:"topics"`
	Shoutouts []Shoutout `json:"shoutouts,omitempty"`

	DailyRank        int    `json:"dailyRank,omitempty"`
	WeeklyRank       int    `json:"weeklyRank,omitempty"`
	ProductHubURL    string `json:"productHubUrl,omitempty"`
	PreviousLaunches int    `json:"previousLaunches,omitempty"`
}

// TopicNames returns the display names of p's topics in order.
func (p Product) TopicNames() []string {
	names := make([]string, 0, len(p.Topics))
	for _, t := range p.Topics {
		names = append(names, t.Name)
	}
	return names
}

// GenerateTopicSlug returns t.Slug when set, otherwise a slug derived from
// the topic name.
func GenerateTopicSlug(t Topic) string {
	if t.Slug != "" {
		return t.Slug
	}
	return textutil.Slugify(t.Name)
}
