package action

import (
	"context"
	"log/slog"

	"torrel/internal/history"
	"torrel/internal/logging"
	"torrel/internal/rules"
)

// Catalog records accepted entries in the long-lived catalog instead of
// dispatching them. It never contacts a download agent.
type Catalog struct {
	store *history.Store
	site  string
	log   *slog.Logger
}

// NewCatalog builds a catalog dispatcher for one source's site.
func NewCatalog(store *history.Store, site string, logger *slog.Logger) *Catalog {
	return &Catalog{
		store: store,
		site:  site,
		log:   logging.WithComponent(logger, "catalog"),
	}
}

// Dispatch upserts the entry keyed on (site, info link). Re-scraping the
// same listing refreshes the mutable fields rather than duplicating rows.
func (c *Catalog) Dispatch(ctx context.Context, item Item) (Outcome, error) {
	entry := item.Entry
	record := &history.CatalogItem{
		Site:         c.site,
		Title:        entry.Title,
		Subtitle:     entry.Subtitle,
		InfoLink:     entry.InfoLink,
		DownloadLink: entry.DownloadLink,
		Size:         entry.Size,
		Seeders:      item.Seeders,
		Leechers:     item.Leechers,
	}
	if item.Detail != nil {
		record.IMDbRating = item.Detail.IMDbRating
		record.DoubanRating = item.Detail.DoubanRating
	}
	if err := c.store.UpsertCatalog(ctx, record); err != nil {
		return Outcome{}, err
	}
	c.log.Info("cataloged entry",
		logging.String("site", c.site),
		logging.String("title", entry.Title))
	return Outcome{Status: history.StatusAccepted, Reason: rules.ReasonAccept}, nil
}
