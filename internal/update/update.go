// Package update checks GitHub for a newer release.
package update

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const ReleasesURL = "https://api.github.com/repos/matheuskafuri/phnews/releases/latest"

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
}

type Checker struct {
	url    string
	client *resty.Client
}

// NewChecker returns a Checker querying url, or ReleasesURL when empty.
func NewChecker(url string) *Checker {
	if url == "" {
		url = ReleasesURL
	}
	return &Checker{
		url:    url,
		client: resty.New().SetHeader("Accept", "application/vnd.github+json"),
	}
}

// Check reports a newer release than currentVersion. Returns nil on any
// error (non-fatal).
func (c *Checker) Check(ctx context.Context, currentVersion string) *Result {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var release ghRelease
	resp, err := c.client.R().SetContext(ctx).SetResult(&release).Get(c.url)
	if err != nil || resp.IsError() {
		return nil
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")

	if latest == "" || latest == current {
		return nil
	}

	return &Result{LatestVersion: latest}
}

// Check runs a default Checker.
func Check(ctx context.Context, currentVersion string) *Result {
	return NewChecker("").Check(ctx, currentVersion)
}
