package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"torrel/internal/history"
	"torrel/internal/logging"
	"torrel/internal/rules"
	"torrel/internal/services"
	"torrel/internal/services/qbit"
	"torrel/internal/sizeutil"
	"torrel/internal/titles"
)

// ReasonNoSpace is recorded when a dispatch is skipped for lack of disk.
const ReasonNoSpace = "insufficient space, skipped"

// Agent is the download-agent surface the dispatcher needs.
type Agent interface {
	Name() string
	AutoDelete() bool
	FreeMarginBytes() int64
	FreeSpace(ctx context.Context) (int64, error)
	Add(ctx context.Context, downloadLink string, opts qbit.AddOptions) error
}

// DownloadConfig carries the per-source dispatch settings.
type DownloadConfig struct {
	// SourceTag is applied to every add unless the matched rule overrides it.
	SourceTag string
	// SkipWhenNoSpace ignores entries that do not fit instead of adding
	// them paused.
	SkipWhenNoSpace bool
	// DispatchDelay is slept after every successful add.
	DispatchDelay time.Duration
}

// Download hands accepted entries to a download agent. One instance lives
// for one pass: free space is queried once per agent and decremented
// locally after each dispatch, so long passes work against a stale
// snapshot rather than hammering the agent.
type Download struct {
	store  *history.Store
	agents map[string]Agent
	agent  string
	cfg    DownloadConfig
	log    *slog.Logger

	free map[string]int64
}

// NewDownload builds a download dispatcher. agents maps agent names to
// clients so a rule's qbitname override can re-resolve the handle;
// defaultAgent is the source's configured agent and must be present in the
// map.
func NewDownload(store *history.Store, agents map[string]Agent, defaultAgent string, cfg DownloadConfig, logger *slog.Logger) *Download {
	return &Download{
		store:  store,
		agents: agents,
		agent:  defaultAgent,
		cfg:    cfg,
		log:    logging.WithComponent(logger, "download"),
		free:   make(map[string]int64),
	}
}

// Dispatch adds one accepted entry to its agent. When projected free space
// cannot hold the entry, the outcome is ignored (no agent call) unless the
// agent auto-deletes or forcing is configured, in which case the torrent
// is added paused.
func (d *Download) Dispatch(ctx context.Context, item Item) (Outcome, error) {
	entry := item.Entry

	agentName := d.agent
	if item.Rule != nil && item.Rule.AgentName != "" {
		agentName = item.Rule.AgentName
	}
	agent, ok := d.agents[agentName]
	if !ok {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "download", "dispatch",
			fmt.Sprintf("rule names unknown agent %q", agentName), nil)
	}

	free, err := d.freeSpace(ctx, agent)
	if err != nil {
		return Outcome{}, err
	}

	fits := free >= entry.Size+agent.FreeMarginBytes()
	paused := false
	if !fits {
		if !agent.AutoDelete() && d.cfg.SkipWhenNoSpace {
			d.log.Info("skipping entry, insufficient space",
				logging.String("title", entry.Title),
				logging.String("free", sizeutil.Format(free)),
				logging.String("size", sizeutil.Format(entry.Size)))
			return Outcome{Status: history.StatusIgnored, Reason: ReasonNoSpace}, nil
		}
		paused = true
	}

	tag := d.cfg.SourceTag
	if item.Rule != nil && item.Rule.Tag != "" {
		tag = item.Rule.Tag
	}

	if err := agent.Add(ctx, entry.DownloadLink, qbit.AddOptions{
		Category: entry.Category,
		Tags:     tag,
		Paused:   paused,
	}); err != nil {
		return Outcome{}, err
	}
	d.free[agent.Name()] -= entry.Size

	if err := d.store.SetDispatchInfo(ctx, entry.ID, agent.Name(), tag); err != nil {
		return Outcome{}, err
	}
	release := titles.ParseRelease(entry.Title)
	if err := d.store.RecordDownload(ctx, &history.Download{
		EntryID:      entry.ID,
		Agent:        agent.Name(),
		MediaTitle:   release.MediaTitle,
		Season:       release.Season,
		Resolution:   release.Resolution,
		ReleaseGroup: release.ReleaseGroup,
		MediaSource:  release.MediaSource,
		Size:         entry.Size,
		InfoLink:     entry.InfoLink,
		Paused:       paused,
	}); err != nil {
		return Outcome{}, err
	}

	d.log.Info("dispatched entry",
		logging.String("title", entry.Title),
		logging.String("agent", agent.Name()),
		logging.Bool("paused", paused))

	// The add already succeeded; cancellation only cuts the delay short.
	if d.cfg.DispatchDelay > 0 {
		select {
		case <-time.After(d.cfg.DispatchDelay):
		case <-ctx.Done():
		}
	}
	return Outcome{Status: history.StatusAccepted, Reason: rules.ReasonAccept}, nil
}

func (d *Download) freeSpace(ctx context.Context, agent Agent) (int64, error) {
	if free, ok := d.free[agent.Name()]; ok {
		return free, nil
	}
	free, err := agent.FreeSpace(ctx)
	if err != nil {
		return 0, err
	}
	d.free[agent.Name()] = free
	d.log.Debug("free space snapshot",
		logging.String("agent", agent.Name()),
		logging.String("free", sizeutil.Format(free)))
	return free, nil
}
