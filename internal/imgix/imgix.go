// Package imgix rewrites image CDN URLs with sizing and format parameters.
package imgix

import (
	"net/url"
	"strconv"
	"strings"
)

type Fit string

const (
	FitClip  Fit = "clip"
	FitCrop  Fit = "crop"
	FitFill  Fit = "fill"
	FitMax   Fit = "max"
	FitScale Fit = "scale"
)

type Params struct {
	Fit    Fit
	Auto   []string
	Width  int
	Height int
}

// Gallery and Thumbnail are the presets used for product media.
var (
	Gallery   = Params{Fit: FitCrop, Auto: []string{"format", "compress"}, Width: 1200, Height: 800}
	Thumbnail = Params{Fit: FitCrop, Auto: []string{"format", "compress"}, Width: 1024, Height: 512}
)

// Process sets p on raw's query string, replacing existing values. Zero
// fields are left alone. URLs that do not parse are returned unchanged.
func Process(raw string, p Params) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	q := u.Query()
	if p.Fit != "" {
		q.Set("fit", string(p.Fit))
	}
	if len(p.Auto) > 0 {
		q.Set("auto", strings.Join(p.Auto, ","))
	}
	if p.Width > 0 {
		q.Set("w", strconv.Itoa(p.Width))
	}
	if p.Height > 0 {
		q.Set("h", strconv.Itoa(p.Height))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// IsSVG reports whether raw points at an SVG asset.
func IsSVG(raw string) bool {
	return strings.Contains(strings.ToLower(raw), ".svg")
}

// Normalize applies p to raster images on an imgix host and leaves anything
// else untouched.
func Normalize(raw string, p Params) string {
	if raw == "" || IsSVG(raw) || !strings.Contains(raw, "imgix.net") {
		return raw
	}
	return Process(raw, p)
}
