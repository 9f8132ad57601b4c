package optpick_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"torrel/internal/history"
	"torrel/internal/optpick"
	"torrel/internal/testsupport"
	"torrel/internal/titles"
)

func newManager(t *testing.T) *optpick.Manager {
	t.Helper()
	mgr, err := optpick.New(optpick.Ruleset{
		Rules: []optpick.Rule{
			{Name: "series", Pattern: `(?i)Show[. ]Name`, Excludes: []string{"DoVi"}},
		},
		GroupScores:      map[string]int{"GrpA": 10, "GrpB": 8},
		SourceScores:     map[string]int{"remux": 5, "webdl": 3},
		ResolutionScores: map[string]int{"1080p": 2, "2160p": 4},
		GroupList:        []string{"GrpA", "GrpB"},
	})
	if err != nil {
		t.Fatalf("optpick.New: %v", err)
	}
	return mgr
}

func TestHigherScoreFirstThenLowerIsRejected(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	mgr := newManager(t)
	ctx := context.Background()

	first, err := mgr.ShouldDownload(ctx, store, "Show.Name.S01.1080p.WEB-DL-GrpA", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if !first.Download || !first.Subject {
		t.Fatalf("expected first variant accepted, got %+v", first)
	}
	if err := store.RecordDownload(ctx, &history.Download{
		MediaTitle:   first.Release.MediaTitle,
		Season:       first.Release.Season,
		Resolution:   first.Release.Resolution,
		ReleaseGroup: first.Release.ReleaseGroup,
		MediaSource:  first.Release.MediaSource,
	}); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}

	second, err := mgr.ShouldDownload(ctx, store, "Show.Name.S01.1080p.WEB-DL-GrpB", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if second.Download {
		t.Fatalf("expected lower-scored variant rejected, got %+v", second)
	}
}

func TestLowerScoreFirstThenHigherReplaces(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	mgr := newManager(t)
	ctx := context.Background()

	first, err := mgr.ShouldDownload(ctx, store, "Show.Name.S01.1080p.WEB-DL-GrpB", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if !first.Download {
		t.Fatalf("expected first variant accepted, got %+v", first)
	}
	if err := store.RecordDownload(ctx, &history.Download{
		MediaTitle:   first.Release.MediaTitle,
		Season:       first.Release.Season,
		Resolution:   first.Release.Resolution,
		ReleaseGroup: first.Release.ReleaseGroup,
		MediaSource:  first.Release.MediaSource,
	}); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}

	second, err := mgr.ShouldDownload(ctx, store, "Show.Name.S01.1080p.WEB-DL-GrpA", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if !second.Download {
		t.Fatalf("expected higher-scored variant to replace, got %+v", second)
	}
}

func TestTieFavorsNewerArrival(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	mgr := newManager(t)
	ctx := context.Background()

	if err := store.RecordDownload(ctx, &history.Download{
		MediaTitle: "show name", Season: "S01", Resolution: "1080p",
		ReleaseGroup: "GrpA", MediaSource: "webdl",
	}); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}

	got, err := mgr.ShouldDownload(ctx, store, "Show.Name.S01.1080p.WEB-DL-GrpA", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if !got.Download {
		t.Fatalf("equal score must replace, got %+v", got)
	}
}

func TestUnmatchedEntryBypassesResolution(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	mgr := newManager(t)

	got, err := mgr.ShouldDownload(context.Background(), store, "Unrelated.Movie.2024.1080p-Whatever", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if !got.Download || got.Subject {
		t.Fatalf("expected bypass, got %+v", got)
	}
}

func TestExcludedAndUnlistedGroupsAreRejected(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	mgr := newManager(t)
	ctx := context.Background()

	excluded, err := mgr.ShouldDownload(ctx, store, "Show.Name.S01.2160p.DoVi.WEB-DL-GrpA", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if excluded.Download {
		t.Fatalf("expected exclusion, got %+v", excluded)
	}

	unlisted, err := mgr.ShouldDownload(ctx, store, "Show.Name.S01.1080p.WEB-DL-Nobody", "")
	if err != nil {
		t.Fatalf("ShouldDownload: %v", err)
	}
	if unlisted.Download {
		t.Fatalf("expected allow-list rejection, got %+v", unlisted)
	}
	if !strings.Contains(unlisted.Reason, "allow-list") {
		t.Fatalf("unexpected reason %q", unlisted.Reason)
	}
}

func TestScoreLookupsAreCaseInsensitive(t *testing.T) {
	mgr, err := optpick.New(optpick.Ruleset{
		GroupScores:      map[string]int{"grpa": 10},
		SourceScores:     map[string]int{"WEBDL": 3},
		ResolutionScores: map[string]int{"1080P": 2},
		GroupList:        []string{"grpa"},
	})
	if err != nil {
		t.Fatalf("optpick.New: %v", err)
	}
	got := mgr.Score(titles.ReleaseInfo{
		ReleaseGroup: "GrpA",
		MediaSource:  "webdl",
		Resolution:   "1080p",
	})
	if got != 15 {
		t.Fatalf("Score = %d, want 15", got)
	}
}

func TestLoadFailsLoudlyOnMissingOrMalformedFile(t *testing.T) {
	if _, err := optpick.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing ruleset")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := optpick.Load(bad); err == nil {
		t.Fatal("expected error for malformed ruleset")
	}

	good := filepath.Join(t.TempDir(), "good.json")
	doc, _ := json.Marshal(optpick.Ruleset{
		Rules:     []optpick.Rule{{Name: "r", Pattern: "x"}},
		GroupList: []string{"GrpA"},
	})
	if err := os.WriteFile(good, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := optpick.Load(good); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
