package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTopicSlug(t *testing.T) {
	assert.Equal(t, "ai-and-ml-tools", GenerateTopicSlug(Topic{Name: "AI & ML Tools", Slug: ""}))
	assert.Equal(t, "artificial-intelligence", GenerateTopicSlug(Topic{Name: "AI", Slug: "artificial-intelligence"}))
	assert.Equal(t, GenerateTopicSlug(Topic{Name: "Dev Tools"}), GenerateTopicSlug(Topic{Name: "Dev Tools"}))
}

func TestSummarize(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	products := []Product{
		{
			Name:          "Alpha",
			Tagline:       "Do things",
			URL:           "https://www.producthunt.com/posts/alpha",
			VotesCount:    42,
			CommentsCount: 7,
			CreatedAt:     created,
			Topics:        []Topic{{Name: "AI"}, {Name: "Productivity"}},
			Hunter:        &User{Name: "Hana", Username: "hana"},
			Makers:        []User{{Name: "Mo", Username: "mo"}, {Name: "Lia", Username: "lia"}},
			GalleryImages: []string{"https://ph-files.imgix.net/a.png"},

			PreviousLaunches: 3,
		},
		{Name: "Beta", Description: "Beta desc", Maker: &User{Name: "Poster"}},
		{Name: "Gamma"},
	}

	got := Summarize(products)
	require.Len(t, got, 3)

	a := got[0]
	assert.Equal(t, "Alpha", a.Title)
	assert.Equal(t, "Do things", a.Description)
	assert.Equal(t, "Mo", a.Author)
	assert.Equal(t, []string{"AI", "Productivity"}, a.Topics)
	assert.Equal(t, "Hana", a.Hunter)
	assert.True(t, a.HasGallery)
	assert.Equal(t, 3, a.PreviousLaunches)
	assert.Equal(t, []string{"Mo", "Lia"}, a.Makers)
	assert.Equal(t, "2026-03-01T08:00:00Z", a.CreatedAt)

	assert.Equal(t, "Poster", got[1].Author)
	assert.Equal(t, "Beta desc", got[1].Description)
	assert.Equal(t, "Unknown", got[2].Author)
	assert.False(t, got[2].HasGallery)

	raw, err := json.Marshal(got[2])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"makers":[]`)
	assert.Contains(t, string(raw), `"topics":[]`)
}

func TestNewProductList(t *testing.T) {
	failed := NewProductList([]Product{{Name: "x"}}, errors.New("HTTP error! status: 503"))
	assert.Empty(t, failed.Products)
	assert.NotNil(t, failed.Products)
	assert.Equal(t, "HTTP error! status: 503", failed.Error)

	raw, err := json.Marshal(NewProductList(nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"products":[]}`, string(raw))
}
