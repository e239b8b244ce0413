package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/scraper"
)

func TestParseSince(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"2h30m", 2*time.Hour + 30*time.Minute, false},
		{"invalid", 0, true},
		{"", 0, true},
		{"d", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSince(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("parseSince(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSince(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSince(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPrintListingJSON(t *testing.T) {
	t.Cleanup(func() { flagJSON, flagFull = false, false })
	flagJSON = true

	products := []model.Product{{
		Name:       "Alpha",
		Tagline:    "Notes",
		URL:        "https://www.producthunt.com/posts/alpha",
		VotesCount: 12,
		Makers:     []model.User{{Name: "Mo"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, printListing(&buf, products, nil))
	assert.JSONEq(t, `[{
		"title": "Alpha",
		"description": "Notes",
		"author": "Mo",
		"link": "https://www.producthunt.com/posts/alpha",
		"votesCount": 12,
		"commentsCount": 0,
		"topics": [],
		"hasGallery": false,
		"makers": ["Mo"],
		"createdAt": ""
	}]`, buf.String())

	buf.Reset()
	scrapeErr := errors.New("HTTP error! status: 503")
	err := printListing(&buf, products, scrapeErr)
	assert.ErrorIs(t, err, scrapeErr)
	assert.JSONEq(t, `{"products":[],"error":"HTTP error! status: 503"}`, buf.String())
}

func TestPrintListingTable(t *testing.T) {
	var buf bytes.Buffer
	products := []model.Product{
		{Name: "Alpha", Tagline: "Notes", VotesCount: 12, Topics: []model.Topic{{Name: "AI"}}},
		{Name: "Beta", VotesCount: 3},
	}
	require.NoError(t, printListing(&buf, products, nil))
	out := buf.String()
	for _, want := range []string{"Alpha", "Notes", "AI", "Beta", "2 products"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "2 PRODUCTS")
}

func TestCommandContextHasDeadline(t *testing.T) {
	ctx, cancel := commandContext(productCmd)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(commandTimeout), deadline, 5*time.Second)
}

func TestFormatFrontpageDebug(t *testing.T) {
	got := formatFrontpageDebug(scraper.FrontpageDebug{
		TS:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Strategy: "dom",
		Counts:   map[string]int{"dom": 3, "apollo-events": 0},
		Errors:   map[string]string{"apollo-events": "could not find Apollo SSR transport script"},
	})
	assert.Contains(t, got, "via dom")
	assert.Less(t, strings.Index(got, "apollo-events"), strings.Index(got, "  dom"))
	assert.Contains(t, got, "error: could not find Apollo SSR transport script")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "2.0 KB", formatBytes(2048))
	assert.Equal(t, "3.5 MB", formatBytes(3*1<<20+1<<19))
	assert.Equal(t, "7d", formatDuration(7*24*time.Hour))
	assert.Equal(t, "12h", formatDuration(12*time.Hour))
}
