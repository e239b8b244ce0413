package scraper

import (
	"context"
	"slices"

	"github.com/matheuskafuri/phnews/internal/imgix"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/opengraph"
	"github.com/matheuskafuri/phnews/internal/textutil"
)

// EnhanceProductWithMetadata fetches the product's page and fills in what a
// listing cannot provide: canonical URL, images, hunter and makers,
// shoutouts, ranks and launch history. It never fails; on any error the
// product is returned unchanged.
func (s *Scraper) EnhanceProductWithMetadata(ctx context.Context, product model.Product) model.Product {
	if product.URL == "" {
		product.URL = s.site.PostURL(product.Slug)
	}
	pg, err := s.load(ctx, product.URL)
	if err != nil {
		s.log.Warn("enrichment fetch failed", logger.URL(product.URL), logger.Err(err))
		return product
	}
	return s.enhance(ctx, product, pg)
}

func (s *Scraper) enhance(ctx context.Context, product model.Product, pg *page) (out model.Product) {
	original := cloneProduct(product)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("enrichment panicked",
				logger.String("product", original.ID),
				logger.Any("panic", r),
			)
			out = original
		}
	}()

	md := opengraph.Extract(pg.doc, pg.url, s.site.Selectors.OGImage)
	if md.CanonicalURL != "" {
		product.URL = md.CanonicalURL
	}

	thumbnail := s.thumbnail(md, product)
	post := pg.Post()

	attr := s.attribute(pg.doc, post)
	gallery := s.galleryImages(pg.doc, pg.url, post)
	daily, weekly := s.ranks(pg.doc)
	hubURL, previous := s.productHub(pg.doc)

	if post != nil {
		if post.VotesCount > 0 {
			product.VotesCount = post.VotesCount
		}
		if post.CommentsCount > 0 {
			product.CommentsCount = post.CommentsCount
		}
	}

	images := s.inlineSVGs(ctx, append([]string{thumbnail}, gallery...))
	thumbnail, gallery = images[0], images[1:]

	if attr.hunter != nil {
		product.Hunter = attr.hunter
	}
	final := attr
	final.hunter = product.Hunter
	if len(final.makers) == 0 {
		final.makers, final.makersFrom = product.Makers, sourceNone
	}
	product.Makers = final.exclusiveMakers()
	if len(product.Makers) == 0 {
		product.Makers = nil
	} else if product.Maker == nil {
		first := product.Makers[0]
		product.Maker = &first
	}
	if len(gallery) > 0 {
		product.GalleryImages = gallery
	}
	if shoutouts := s.shoutouts(pg.doc); len(shoutouts) > 0 {
		product.Shoutouts = shoutouts
	}
	product.DailyRank, product.WeeklyRank = daily, weekly
	product.ProductHubURL, product.PreviousLaunches = hubURL, previous

	if md.Description != "" {
		product.Description = textutil.CleanText(md.Description)
	}
	product.Thumbnail = thumbnail
	product.FeaturedImage = md.Image

	s.log.Debug("product enriched",
		logger.String("product", product.ID),
		logger.String("hunter_source", attr.hunterFrom.String()),
		logger.String("makers_source", attr.makersFrom.String()),
		logger.Int("makers", len(product.Makers)),
		logger.Int("gallery", len(product.GalleryImages)),
	)
	return product
}

// thumbnail picks the product's thumbnail: the page image, then the stored
// thumbnail, then a placeholder derived from the slug.
func (s *Scraper) thumbnail(md opengraph.Metadata, product model.Product) string {
	thumb := md.Image
	if thumb == "" {
		thumb = product.Thumbnail
	}
	if thumb == "" {
		slug := s.site.SlugFromURL(product.URL)
		if slug == "" {
			slug = product.Slug
		}
		if slug == "" {
			return ""
		}
		thumb = s.site.PlaceholderThumbnail(slug)
	}
	return imgix.Normalize(thumb, imgix.Thumbnail)
}

func cloneProduct(p model.Product) model.Product {
	c := p
	c.GalleryImages = slices.Clone(p.GalleryImages)
	c.Makers = slices.Clone(p.Makers)
	c.Topics = slices.Clone(p.Topics)
	c.Shoutouts = slices.Clone(p.Shoutouts)
	if p.Maker != nil {
		m := *p.Maker
		c.Maker = &m
	}
	if p.Hunter != nil {
		h := *p.Hunter
		c.Hunter = &h
	}
	return c
}

