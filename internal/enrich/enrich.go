// Package enrich fetches a release's site detail page and extracts the
// metadata the second-pass rating filter needs: IMDb and Douban ids,
// rating values, production year, region, and a localized auxiliary title.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"torrel/internal/services"
)

// Detail is the extraction result. Missing page fragments leave their
// fields zero-valued; only a transport failure is an error.
type Detail struct {
	IMDbID       string
	IMDbRating   float64
	DoubanID     string
	DoubanRating float64
	Year         string
	Country      string
	ExtTitle     string
}

var (
	imdbLinkPattern    = regexp.MustCompile(`www\.imdb\.com/title/(tt\d+)`)
	doubanLinkPattern  = regexp.MustCompile(`douban\.com/subject/(\d+)`)
	imdbRatePattern    = regexp.MustCompile(`(?i)IMDb.*?([0-9.]+)\s*/\s*10`)
	doubanRatePattern  = regexp.MustCompile(`豆瓣.*?([0-9.]+)/10`)
	genericRatePattern = regexp.MustCompile(`(?i)Rating:.*?([0-9.]+)\s*/\s*10\s*from`)
	// Site pages separate labels with full-width spaces, which Go's \s
	// does not cover; \p{Zs} does.
	yearPattern       = regexp.MustCompile(`年[\s\p{Zs}]*代[\s\p{Zs}]+(\d{4})`)
	countryPattern    = regexp.MustCompile(`(?:产[\s\p{Zs}]*地|国家/地区|制[\s\p{Zs}]*片)[\s\p{Zs}]+(\p{L}+)`)
	extTitlePattern   = regexp.MustCompile(`片[\s\p{Zs}]*名[\s\p{Zs}]+([^<\r\n]+)`)
	transTitlePattern = regexp.MustCompile(`译[\s\p{Zs}]*名[\s\p{Zs}]+([^/\r\n<]+)`)
)

// maxDetailBody bounds how much of a detail page is read.
const maxDetailBody = 4 << 20

// Enricher fetches detail pages with the site cookie attached.
type Enricher struct {
	client    *http.Client
	userAgent string
}

// NewEnricher builds an Enricher with a bounded request timeout.
func NewEnricher(timeout time.Duration, userAgent string) *Enricher {
	return &Enricher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch retrieves the detail page and extracts its metadata. The failure of
// any one extraction leaves that field empty; a transport or HTTP failure
// returns an error so the caller can reject the entry.
func (e *Enricher) Fetch(ctx context.Context, detailURL, cookie string) (*Detail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, detailURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "request", detailURL, err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "enrich", "fetch", detailURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "enrich", "fetch",
			fmt.Sprintf("%s returned status %d", detailURL, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailBody))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "enrich", "read", detailURL, err)
	}

	return ParsePage(string(body)), nil
}

// ParsePage extracts metadata from a detail page document.
func ParsePage(doc string) *Detail {
	detail := &Detail{}

	if m := imdbLinkPattern.FindStringSubmatch(doc); m != nil {
		detail.IMDbID = m[1]
	}
	if m := doubanLinkPattern.FindStringSubmatch(doc); m != nil {
		detail.DoubanID = m[1]
	}

	if m := imdbRatePattern.FindStringSubmatch(doc); m != nil {
		detail.IMDbRating = tryFloat(m[1])
	}
	if m := doubanRatePattern.FindStringSubmatch(doc); m != nil {
		detail.DoubanRating = tryFloat(m[1])
	}
	// Pages without labeled scores often list two anonymous "Rating: x/10
	// from" lines, Douban first.
	if detail.IMDbRating < 1 && detail.DoubanRating < 1 {
		matches := genericRatePattern.FindAllStringSubmatch(doc, -1)
		switch {
		case len(matches) >= 2:
			detail.DoubanRating = tryFloat(matches[0][1])
			detail.IMDbRating = tryFloat(matches[1][1])
		case len(matches) == 1:
			detail.DoubanRating = tryFloat(matches[0][1])
			detail.IMDbRating = detail.DoubanRating
		}
	}

	if m := yearPattern.FindStringSubmatch(doc); m != nil {
		detail.Year = m[1]
	}
	if m := countryPattern.FindStringSubmatch(doc); m != nil {
		detail.Country = m[1]
	}
	if m := extTitlePattern.FindStringSubmatch(doc); m != nil {
		detail.ExtTitle = strings.TrimSpace(m[1])
	} else if m := transTitlePattern.FindStringSubmatch(doc); m != nil {
		// No original title listed; fall back to the translated one.
		detail.ExtTitle = strings.TrimSpace(m[1])
	}
	if idx := strings.Index(detail.ExtTitle, "/"); idx >= 0 {
		detail.ExtTitle = strings.TrimSpace(detail.ExtTitle[:idx])
	}

	return detail
}

func tryFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}
