// Package orchestrator runs the per-source acquisition passes: fetch,
// parse, dedup, filter, resolve, dispatch. Sources poll independently on
// their own intervals; one source never runs two passes at once.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"torrel/internal/action"
	"torrel/internal/config"
	"torrel/internal/enrich"
	"torrel/internal/feed"
	"torrel/internal/history"
	"torrel/internal/logging"
	"torrel/internal/optpick"
	"torrel/internal/rules"
	"torrel/internal/scrape"
	"torrel/internal/services"
	"torrel/internal/services/tmdb"
	"torrel/internal/titles"
)

// candidate is the unified shape feed entries and scraped listings reduce
// to before entering the pipeline.
type candidate struct {
	title        string
	subtitle     string
	category     string
	tags         string
	size         int64
	infoLink     string
	downloadLink string
	seeders      int
	leechers     int
	complete     bool
}

// Runner processes one configured source. A mutex serializes passes so a
// slow pass never overlaps the next scheduled one.
type Runner struct {
	cfg    *config.Config
	source config.Source
	store  *history.Store

	engine    *rules.Engine
	fetcher   *feed.Fetcher
	scraper   *scrape.Scraper
	siteRules *scrape.SiteRules
	enricher  *enrich.Enricher
	metadata  tmdb.Searcher
	picker    *optpick.Manager

	agents   map[string]action.Agent
	notifier Notifier
	log      *slog.Logger

	mu sync.Mutex
}

// RunnerOptions carries the shared collaborators a runner is built with.
// Metadata may be nil when no TMDB key is configured; Agents may be empty
// for catalog-only setups.
type RunnerOptions struct {
	Store    *history.Store
	Metadata tmdb.Searcher
	Agents   map[string]action.Agent
	Notifier Notifier
	Logger   *slog.Logger
}

// NewRunner builds a runner for one source. Rule files referenced by the
// source (optpick ruleset, site extraction rules) are loaded here so a
// missing file fails startup loudly instead of per entry.
func NewRunner(cfg *config.Config, source config.Source, opts RunnerOptions) (*Runner, error) {
	r := &Runner{
		cfg:      cfg,
		source:   source,
		store:    opts.Store,
		engine:   rules.NewEngine(source.Rules),
		fetcher:  feed.NewFetcher(cfg.FeedTimeout(), cfg.Fetch.UserAgent),
		scraper:  scrape.NewScraper(cfg.FeedTimeout(), cfg.Fetch.UserAgent),
		enricher: enrich.NewEnricher(cfg.DetailTimeout(), cfg.Fetch.UserAgent),
		metadata: opts.Metadata,
		agents:   opts.Agents,
		notifier: opts.Notifier,
		log: logging.WithComponent(opts.Logger, "orchestrator").With(
			logging.String(logging.FieldSource, source.Name)),
	}

	if source.OptPickPath != "" {
		picker, err := optpick.Load(cfg.RulePath(source.OptPickPath))
		if err != nil {
			return nil, err
		}
		r.picker = picker
	}
	if source.Kind == config.SourceListing {
		siteRules, err := scrape.LoadRules(cfg.RulePath(source.SiteRules))
		if err != nil {
			return nil, err
		}
		r.siteRules = siteRules
	}
	return r, nil
}

// Source returns the runner's source definition.
func (r *Runner) Source() config.Source { return r.source }

// Pass fetches the source once and processes every entry in listing order.
// Entry-local faults finalize that entry and processing continues; only an
// unreachable source aborts the pass. Cancellation is honored between
// entries, never mid-entry.
func (r *Runner) Pass(ctx context.Context) (*history.PassSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &history.PassSummary{Source: r.source.Name}

	candidates, err := r.fetch(ctx)
	if err != nil {
		return summary, err
	}
	summary.Fetched = len(candidates)
	r.log.Info("pass started", logging.Int("fetched", len(candidates)))

	dispatcher := r.newDispatcher()
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		r.processCandidate(ctx, dispatcher, cand, summary)
	}

	r.log.Info("pass completed",
		logging.Int("fetched", summary.Fetched),
		logging.Int("accepted", summary.Accepted),
		logging.Int("rejected", summary.Rejected),
		logging.Int("skipped", summary.Skipped),
		logging.Int("errors", summary.Errors))
	return summary, nil
}

func (r *Runner) fetch(ctx context.Context) ([]candidate, error) {
	switch r.source.Kind {
	case config.SourceListing:
		listings, err := r.scraper.Scrape(ctx, r.source.ListingURL, r.source.Cookie, r.siteRules)
		if err != nil {
			return nil, err
		}
		candidates := make([]candidate, 0, len(listings))
		for _, l := range listings {
			candidates = append(candidates, candidate{
				title:        l.Title,
				subtitle:     l.Subtitle,
				size:         l.Size,
				infoLink:     l.InfoLink,
				downloadLink: l.DownloadLink,
				seeders:      l.Seeders,
				leechers:     l.Leechers,
				complete:     l.Complete(),
			})
		}
		return candidates, nil
	default:
		entries, err := r.fetcher.Fetch(ctx, r.source.FeedURL)
		if err != nil {
			return nil, err
		}
		candidates := make([]candidate, 0, len(entries))
		for _, e := range entries {
			parsed := titles.Parse(e.Title)
			candidates = append(candidates, candidate{
				title:        parsed.Title,
				subtitle:     parsed.Subtitle,
				category:     firstNonEmpty(parsed.Category, e.Category()),
				tags:         strings.Join(parsed.Tags, "|"),
				size:         e.Size,
				infoLink:     e.InfoLink,
				downloadLink: e.DownloadLink,
				complete:     e.Complete() && parsed.Title != "",
			})
		}
		return candidates, nil
	}
}

func (r *Runner) newDispatcher() action.Dispatcher {
	if r.source.Action == config.ActionCatalog {
		return action.NewCatalog(r.store, r.source.Site, r.log)
	}
	return action.NewDownload(r.store, r.agents, r.source.Agent, action.DownloadConfig{
		SourceTag:       r.source.Tag,
		SkipWhenNoSpace: r.cfg.Download.SkipWhenNoSpace,
		DispatchDelay:   r.cfg.DispatchDelayDuration(),
	}, r.log)
}

// processCandidate drives one entry from raw candidate to terminal status.
// Every path either skips before inserting a record or finalizes the
// inserted record, so no entry is left pending when the loop moves on.
func (r *Runner) processCandidate(ctx context.Context, dispatcher action.Dispatcher, cand candidate, summary *history.PassSummary) {
	if !cand.complete {
		summary.Skipped++
		r.log.Debug("skipping incomplete entry", logging.String("title", cand.title))
		return
	}

	exists, err := r.store.Exists(ctx, cand.title, cand.subtitle)
	if err != nil {
		summary.Errors++
		r.log.Warn("history lookup failed", logging.String("title", cand.title), logging.Error(err))
		return
	}
	if exists {
		summary.Skipped++
		return
	}

	entry := &history.Entry{
		Source:       r.source.Name,
		Site:         r.source.Site,
		Title:        cand.title,
		Subtitle:     cand.subtitle,
		Category:     cand.category,
		Tags:         cand.tags,
		Size:         cand.size,
		InfoLink:     cand.infoLink,
		DownloadLink: cand.downloadLink,
	}
	inserted, err := r.store.InsertEntry(ctx, entry)
	if err != nil {
		summary.Errors++
		r.log.Warn("insert failed", logging.String("title", cand.title), logging.Error(err))
		return
	}
	if !inserted {
		// A concurrent pass won the race for this (title, subtitle).
		summary.Skipped++
		return
	}

	detail := r.lookupMetadata(ctx, entry)

	status, reason, matched := r.evaluate(ctx, entry, &detail)
	if status == history.StatusAccepted {
		status, reason = r.dispatch(ctx, dispatcher, action.Item{
			Entry:    entry,
			Rule:     matched,
			Detail:   &detail,
			Seeders:  cand.seeders,
			Leechers: cand.leechers,
		})
	}

	if err := r.store.Finalize(ctx, entry.ID, status, reason); err != nil {
		summary.Errors++
		r.log.Error("finalize failed", logging.Int64("entry", entry.ID), logging.Error(err))
		return
	}
	switch status {
	case history.StatusAccepted:
		summary.Accepted++
		if r.notifier != nil && r.source.Action == config.ActionDownload {
			if nerr := r.notifier.NotifyDownloadAdded(ctx, r.source.Name, entry.Title); nerr != nil {
				r.log.Debug("notify failed", logging.Error(nerr))
			}
		}
	case history.StatusError:
		summary.Errors++
	default:
		summary.Rejected++
	}
}

// evaluate runs the filter rules, the optional detail-page second pass,
// the already-downloaded check, and the optimal-pick resolution. It
// returns the terminal status the entry earned, or accepted to proceed to
// dispatch.
func (r *Runner) evaluate(ctx context.Context, entry *history.Entry, detail *history.Detail) (history.Status, string, *rules.Rule) {
	result := r.engine.Evaluate(rules.Input{
		Title:    entry.Title,
		Subtitle: entry.Subtitle,
		Size:     entry.Size,
		Tags:     entry.Tags,
		Category: entry.Category,
	})
	if !result.Accepted {
		if result.Reason == rules.ReasonRuleError {
			return history.StatusError, "rule error", nil
		}
		return history.StatusRejected, result.Reason, nil
	}

	if result.Matched != nil && result.Matched.RateMin != nil && r.source.GetDetail {
		if err := r.enrichDetail(ctx, entry, detail); err != nil {
			r.log.Warn("detail fetch failed",
				logging.String("title", entry.Title), logging.Error(err))
			return history.StatusError, "detail fetch failed", result.Matched
		}
		second := r.engine.CheckRatings(result.Matched, rules.Ratings{
			IMDb:   detail.IMDbRating,
			Douban: detail.DoubanRating,
		})
		if !second.Accepted {
			return history.StatusRejected, second.Reason, result.Matched
		}
	}

	downloaded, err := r.store.DownloadExistsForLink(ctx, entry.InfoLink)
	if err != nil {
		r.log.Warn("download lookup failed", logging.Error(err))
		return history.StatusError, "history lookup failed", result.Matched
	}
	if downloaded {
		return history.StatusDupe, "already downloaded", result.Matched
	}

	if r.picker != nil {
		decision, err := r.picker.ShouldDownload(ctx, r.store, entry.Title, entry.Subtitle)
		if err != nil {
			r.log.Warn("optimal pick failed", logging.Error(err))
			return history.StatusError, "optimal pick failed", result.Matched
		}
		if !decision.Download {
			return history.StatusOptPick, decision.Reason, result.Matched
		}
	}
	return history.StatusAccepted, result.Reason, result.Matched
}

func (r *Runner) dispatch(ctx context.Context, dispatcher action.Dispatcher, item action.Item) (history.Status, string) {
	outcome, err := dispatcher.Dispatch(ctx, item)
	if err != nil {
		r.log.Warn("dispatch failed",
			logging.String("title", item.Entry.Title), logging.Error(err))
		reason := "dispatch failed"
		if errors.Is(err, services.ErrUnavailable) {
			reason = "agent unavailable"
		}
		return history.StatusError, reason
	}
	return outcome.Status, outcome.Reason
}

// lookupMetadata is best-effort: a lookup fault leaves the detail fields
// empty and processing continues.
func (r *Runner) lookupMetadata(ctx context.Context, entry *history.Entry) history.Detail {
	detail := history.Detail{EntryID: entry.ID}
	if r.metadata == nil {
		return detail
	}
	release := titles.ParseRelease(entry.Title)
	query := release.MediaTitle
	if query == "" {
		query = entry.Title
	}
	resp, err := r.metadata.SearchMulti(ctx, query, 0)
	if err != nil || len(resp.Results) == 0 {
		if err != nil {
			r.log.Debug("metadata lookup failed",
				logging.String("title", entry.Title), logging.Error(err))
		}
		return detail
	}
	best := resp.Results[0]
	detail.ExtTitle = best.CanonicalTitle()
	detail.Year = best.Year()
	if err := r.store.SaveDetail(ctx, &detail); err != nil {
		r.log.Debug("save detail failed", logging.Error(err))
	}
	return detail
}

// enrichDetail fetches the entry's detail page and merges the extracted
// ratings into the metadata already gathered.
func (r *Runner) enrichDetail(ctx context.Context, entry *history.Entry, detail *history.Detail) error {
	page, err := r.enricher.Fetch(ctx, entry.InfoLink, r.source.Cookie)
	if err != nil {
		return err
	}
	detail.IMDbID = page.IMDbID
	detail.IMDbRating = page.IMDbRating
	detail.DoubanID = page.DoubanID
	detail.DoubanRating = page.DoubanRating
	if detail.Year == "" {
		detail.Year = page.Year
	}
	if detail.ExtTitle == "" {
		detail.ExtTitle = page.ExtTitle
	}
	detail.Country = page.Country
	return r.store.SaveDetail(ctx, detail)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
