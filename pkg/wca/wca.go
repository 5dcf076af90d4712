// Package wca talks to the World Cube Association public listing API. All
// parsing happens here; the rest of the program only sees typed
// comp.Competition records.
package wca

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/tomasfh/compwatch/internal/utils"
	"github.com/tomasfh/compwatch/pkg/comp"
)

const (
	DefaultBaseURL = "https://www.worldcubeassociation.org/api/v0"

	// The listing endpoint pages at 25 elements.
	pageSize = 25
	maxPages = 40

	userAgent = "compwatch (+https://github.com/tomasfh/compwatch)"
)

// Client fetches competition snapshots and live registration counts for one
// country filter.
type Client struct {
	baseURL string
	country string
	http    *retryablehttp.Client
}

func NewClient(baseURL, country string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 3
	retryClient.HTTPClient.Timeout = timeout
	return &Client{
		baseURL: baseURL,
		country: country,
		http:    retryClient,
	}
}

// FetchSnapshot lists every upcoming competition for the configured country,
// start-date floor today, following pagination. Elements that fail to parse
// are skipped with a warning; transport or status failures fail the whole
// fetch, which the caller treats as "no data this cycle".
func (c *Client) FetchSnapshot(ctx context.Context) ([]comp.Competition, error) {
	today := time.Now().Format("2006-01-02")
	var comps []comp.Competition

	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s/competitions?country_iso2=%s&start=%s&page=%d",
			c.baseURL, url.QueryEscape(c.country), today, page)

		body, err := c.get(ctx, u)
		if err != nil {
			return nil, err
		}

		elements := gjson.ParseBytes(body).Array()
		for _, el := range elements {
			parsed, err := comp.Parse(el)
			if err != nil {
				utils.Log.Warn("Skipping malformed competition element: ", err)
				continue
			}
			comps = append(comps, parsed)
		}

		if len(elements) < pageSize {
			break
		}
	}

	return comps, nil
}

// FetchLiveCount returns the number of accepted registrations for a
// competition.
func (c *Client) FetchLiveCount(ctx context.Context, cm comp.Competition) (int, error) {
	u := fmt.Sprintf("%s/competitions/%s/registrations", c.baseURL, url.PathEscape(cm.ID))
	body, err := c.get(ctx, u)
	if err != nil {
		return 0, err
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return 0, fmt.Errorf("unexpected registrations payload for %s", cm.ID)
	}
	return len(parsed.Array()), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", u, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
