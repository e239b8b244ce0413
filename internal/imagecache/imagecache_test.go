package imagecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls       int
	body        []byte
	contentType string
	err         error
}

func (s *stubFetcher) FetchBytes(_ context.Context, _ string) ([]byte, string, error) {
	s.calls++
	return s.body, s.contentType, s.err
}

func TestDataURIEncodesAndCaches(t *testing.T) {
	f := &stubFetcher{body: []byte("<svg/>"), contentType: "image/svg+xml; charset=utf-8"}
	c := New(8, time.Hour, f)

	uri, err := c.DataURI(context.Background(), "https://ph-files.imgix.net/logo.svg")
	require.NoError(t, err)
	assert.Equal(t, "data:image/svg+xml;base64,PHN2Zy8+", uri)

	again, err := c.DataURI(context.Background(), "https://ph-files.imgix.net/logo.svg")
	require.NoError(t, err)
	assert.Equal(t, uri, again)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, c.Len())
}

func TestDataURIGuessesTypeFromURL(t *testing.T) {
	f := &stubFetcher{body: []byte("<svg/>"), contentType: "application/octet-stream"}
	uri, err := New(8, 0, f).DataURI(context.Background(), "https://x.test/a.SVG?v=1")
	require.NoError(t, err)
	assert.Contains(t, uri, "data:image/svg+xml;base64,")
}

func TestDataURIErrorsAreNotCached(t *testing.T) {
	f := &stubFetcher{err: errors.New("HTTP error! status: 404")}
	c := New(8, time.Hour, f)

	_, err := c.DataURI(context.Background(), "https://x.test/a.svg")
	require.Error(t, err)
	_, err = c.DataURI(context.Background(), "https://x.test/a.svg")
	require.Error(t, err)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, 0, c.Len())
}

func TestDataURIEmptyBody(t *testing.T) {
	_, err := New(8, time.Hour, &stubFetcher{}).DataURI(context.Background(), "https://x.test/a.svg")
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestCapacityBound(t *testing.T) {
	f := &stubFetcher{body: []byte("x"), contentType: "image/png"}
	c := New(2, time.Hour, f)
	for _, u := range []string{"a", "b", "c"} {
		_, err := c.DataURI(context.Background(), "https://x.test/"+u+".png")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
}
