// Package update checks the release feed for newer cloudtree versions.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/cloudtree/cloudtree/internal/logging"
	"github.com/cloudtree/cloudtree/internal/version"
)

// DefaultFeedURL is the latest-release endpoint of the project feed.
const DefaultFeedURL = "https://api.github.com/repos/cloudtree/cloudtree/releases/latest"

// ReleasesPageURL is the human-readable release notes page.
const ReleasesPageURL = "https://github.com/cloudtree/cloudtree/releases"

// Release describes the newest published build.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries the release feed.
type Checker struct {
	feedURL string
	client  *retryablehttp.Client
	logger  *logging.Logger
}

// retryLogger routes retryablehttp's warnings into zerolog and keeps
// everything else quiet.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Interface("details", keysAndValues).Msg(msg)
}
func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Interface("details", keysAndValues).Msg(msg)
}
func (l *retryLogger) Info(string, ...interface{})  {}
func (l *retryLogger) Debug(string, ...interface{}) {}

// NewChecker creates a checker against the given feed URL; empty uses
// the default.
func NewChecker(feedURL string, logger *logging.Logger) *Checker {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = &retryLogger{logger: logger}

	return &Checker{feedURL: feedURL, client: client, logger: logger}
}

// Latest fetches the newest release from the feed.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building release request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying release feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("release feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading release feed: %w", err)
	}
	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("decoding release feed: %w", err)
	}
	if rel.TagName == "" {
		return nil, fmt.Errorf("release feed has no tag name")
	}
	return &rel, nil
}

// Check reports whether the feed has a build newer than the running one.
func (c *Checker) Check(ctx context.Context) (*Release, bool, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return nil, false, err
	}
	return rel, IsNewer(rel.TagName, version.Version), nil
}

// IsNewer compares two "vMAJOR.MINOR.PATCH" tags numerically. Tags it
// cannot parse are never reported as newer.
func IsNewer(candidate, current string) bool {
	ca, ok := parseTag(candidate)
	if !ok {
		return false
	}
	cu, ok := parseTag(current)
	if !ok {
		return false
	}
	for i := 0; i < 3; i++ {
		if ca[i] != cu[i] {
			return ca[i] > cu[i]
		}
	}
	return false
}

func parseTag(tag string) ([3]int, bool) {
	var out [3]int
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "v")
	parts := strings.SplitN(tag, ".", 3)
	if len(parts) != 3 {
		return out, false
	}
	for i, p := range parts {
		n := 0
		if p == "" {
			return out, false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return out, false
			}
			n = n*10 + int(r-'0')
		}
		out[i] = n
	}
	return out, true
}
