package scraper

import (
	"time"

	"github.com/matheuskafuri/phnews/internal/apollo"
	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/textutil"
)

func (s *Scraper) toProducts(posts []apollo.Post) []model.Product {
	products := make([]model.Product, 0, len(posts))
	for _, p := range posts {
		products = append(products, s.toProduct(p))
	}
	return products
}

func (s *Scraper) toProduct(p apollo.Post) model.Product {
	product := model.Product{
		ID:            p.ID,
		Slug:          p.Slug,
		Name:          textutil.CleanText(p.Name),
		Tagline:       textutil.CleanText(p.Tagline),
		Description:   textutil.CleanText(p.Description),
		URL:           s.site.PostURL(p.Slug),
		Thumbnail:     s.site.ImageURL(p.ThumbnailImageUUID),
		VotesCount:    p.VotesCount,
		CommentsCount: p.CommentsCount,
		CreatedAt:     parseTime(p.CreatedAt, s.now),
		Topics:        topicsFrom(p.Topics),
	}
	if product.ID == "" {
		product.ID = p.Slug
	}
	if p.User != nil {
		u := s.user(*p.User)
		product.Maker = &u
	}
	return product
}

func (s *Scraper) user(ref apollo.UserRef) model.User {
	u := model.User{
		ID:           ref.ID,
		Name:         textutil.CleanText(ref.Name),
		Username:     ref.Username,
		ProfileImage: ref.ProfileImage,
	}
	if ref.Username != "" {
		u.ProfileURL = s.site.ProfileURL(ref.Username)
	}
	return u
}

func topicsFrom(c *apollo.TopicConnection) []model.Topic {
	nodes := c.Nodes()
	topics := make([]model.Topic, 0, len(nodes))
	for _, n := range nodes {
		t := model.Topic{
			ID:             n.ID,
			Name:           textutil.CleanText(n.Name),
			Slug:           n.Slug,
			Description:    textutil.CleanText(n.Description),
			FollowersCount: n.FollowersCount,
			PostsCount:     n.PostsCount,
		}
		t.Slug = model.GenerateTopicSlug(t)
		topics = append(topics, t)
	}
	return topics
}

func parseTime(v string, now func() time.Time) time.Time {
	if v != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return now()
}
