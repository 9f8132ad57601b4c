package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/width"

	"torrel/internal/services"
	"torrel/internal/sizeutil"
)

var (
	imdbIDPattern   = regexp.MustCompile(`tt\d{6,10}`)
	doubanIDPattern = regexp.MustCompile(`subject/(\d+)`)
	ratingPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:/\s*10)?`)
	seedLeechPair   = regexp.MustCompile(`(\d+)\D+(\d+)`)
)

// Listing is one extracted listing row, the scraper-side counterpart of a
// parsed feed entry plus explicit swarm counts.
type Listing struct {
	Title        string
	Subtitle     string
	InfoLink     string
	DownloadLink string
	Size         int64
	Seeders      int
	Leechers     int
	IMDbID       string
	DoubanID     string
	Rating       float64
	Date         string
}

// Complete reports whether the listing carries the fields the catalog needs.
func (l Listing) Complete() bool {
	return l.Title != "" && l.InfoLink != ""
}

// Scraper fetches listing pages and extracts rows per site rules.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// NewScraper builds a Scraper with a bounded request timeout.
func NewScraper(timeout time.Duration, userAgent string) *Scraper {
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Scrape fetches the listing page and extracts one Listing per rule row, in
// document order. Missing selectors degrade to empty values.
func (s *Scraper) Scrape(ctx context.Context, listingURL, cookie string, rules *SiteRules) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scrape", "request", listingURL, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scrape", "fetch", listingURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "scrape", "fetch",
			fmt.Sprintf("%s returned status %d", listingURL, resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scrape", "parse", listingURL, err)
	}

	return ExtractListings(doc, listingURL, rules), nil
}

// ExtractListings applies site rules to a parsed document.
func ExtractListings(doc *goquery.Document, baseURL string, rules *SiteRules) []Listing {
	base, _ := url.Parse(baseURL)

	var listings []Listing
	doc.Find(rules.Row).Each(func(_ int, row *goquery.Selection) {
		listing := extractRow(row, base, rules)
		listings = append(listings, listing)
	})
	return listings
}

func extractRow(row *goquery.Selection, base *url.URL, rules *SiteRules) Listing {
	var listing Listing
	for name, field := range rules.Fields {
		value := extractField(row, field)
		switch name {
		case FieldTitle:
			listing.Title = value
		case FieldSubtitle:
			listing.Subtitle = value
		case FieldInfoLink:
			listing.InfoLink = resolveLink(base, value)
		case FieldDownloadLink:
			listing.DownloadLink = resolveLink(base, value)
		case FieldSize:
			if size, err := sizeutil.Parse(value); err == nil {
				listing.Size = size
			}
		case FieldSeedLeech:
			listing.Seeders, listing.Leechers = parseSeedLeech(value)
		case FieldIMDb:
			listing.IMDbID = imdbIDPattern.FindString(value)
		case FieldDouban:
			if m := doubanIDPattern.FindStringSubmatch(value); m != nil {
				listing.DoubanID = m[1]
			}
		case FieldRating:
			if m := ratingPattern.FindStringSubmatch(value); m != nil {
				listing.Rating, _ = strconv.ParseFloat(m[1], 64)
			}
		case FieldDate:
			listing.Date = value
		}
	}
	return listing
}

func extractField(row *goquery.Selection, field FieldRule) string {
	sel := row
	if field.Selector != "" {
		sel = row.Find(field.Selector).First()
	}
	var value string
	if field.Attr != "" {
		value, _ = sel.Attr(field.Attr)
	} else {
		value = sel.Text()
	}
	// Sites mix full-width and half-width characters; narrow before any
	// numeric post-processing.
	value = width.Narrow.String(strings.TrimSpace(value))

	switch field.Method {
	case "", MethodRaw:
		return value
	case MethodIMDbID:
		return imdbIDPattern.FindString(value)
	case MethodDoubanID:
		if m := doubanIDPattern.FindStringSubmatch(value); m != nil {
			return "subject/" + m[1]
		}
		return ""
	case MethodRating, MethodSeedLeech:
		return value
	default:
		return value
	}
}

func parseSeedLeech(value string) (int, int) {
	m := seedLeechPair.FindStringSubmatch(value)
	if m == nil {
		return 0, 0
	}
	seeders, _ := strconv.Atoi(m[1])
	leechers, _ := strconv.Atoi(m[2])
	return seeders, leechers
}

func resolveLink(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil || parsed.IsAbs() {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}
