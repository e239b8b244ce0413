package model

import "time"

// ProductSummary is the flattened shape returned to programmatic callers.
type ProductSummary struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Author           string   `json:"author"`
	Link             string   `json:"link"`
	VotesCount       int      `json:"votesCount"`
	CommentsCount    int      `json:"commentsCount"`
	Topics           []string `json:"topics"`
	Hunter           string   `json:"hunter,omitempty"`
	HasGallery       bool     `json:"hasGallery"`
	PreviousLaunches int      `json:"previousLaunches,omitempty"`
	Makers           []string `json:"makers"`
	CreatedAt        string   `json:"createdAt"`
}

// Summarize flattens products for JSON output. Description falls back to the
// tagline, and author to the first maker, then the posting user.
func Summarize(products []Product) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		s := ProductSummary{
			Title:            p.Name,
			Description:      p.Description,
			Author:           "Unknown",
			Link:             p.URL,
			VotesCount:       p.VotesCount,
			CommentsCount:    p.CommentsCount,
			Topics:           p.TopicNames(),
			HasGallery:       len(p.GalleryImages) > 0,
			PreviousLaunches: p.PreviousLaunches,
			Makers:           make([]string, 0, len(p.Makers)),
		}
		if s.Description == "" {
			s.Description = p.Tagline
		}
		for _, m := range p.Makers {
			s.Makers = append(s.Makers, m.Name)
		}
		switch {
		case len(p.Makers) > 0:
			s.Author = p.Makers[0].Name
		case p.Maker != nil && p.Maker.Name != "":
			s.Author = p.Maker.Name
		}
		if p.Hunter != nil {
			s.Hunter = p.Hunter.Name
		}
		if !p.CreatedAt.IsZero() {
			s.CreatedAt = p.CreatedAt.Format(time.RFC3339)
		}
		out = append(out, s)
	}
	return out
}

// ProductList is the result envelope for listing operations: on failure
// Products is empty and Error carries the message.
type ProductList struct {
	Products []Product `json:"products"`
	Error    string    `json:"error,omitempty"`
}

func NewProductList(products []Product, err error) ProductList {
	if err != nil {
		return ProductList{Products: []Product{}, Error: err.Error()}
	}
	if products == nil {
		products = []Product{}
	}
	return ProductList{Products: products}
}
