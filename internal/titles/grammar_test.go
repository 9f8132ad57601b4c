package titles_test

import (
	"reflect"
	"strings"
	"testing"

	"torrel/internal/titles"
)

func TestParseExtractsCategoryTitleSubtitleTags(t *testing.T) {
	got := titles.Parse("[Cat]Main Title[Subtitle|tag1|tag2]")
	want := titles.ParsedTitle{
		Category: "Cat",
		Title:    "Main Title",
		Subtitle: "Subtitle",
		Tags:     []string{"tag1", "tag2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse: got %+v want %+v", got, want)
	}
}

func TestParseRemovesSizeAnnotationFromSubtitle(t *testing.T) {
	got := titles.Parse("Title[Sub [1.5 GB] Info|x]")
	if got.Title != "Title" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if strings.Contains(got.Subtitle, "1.5") || strings.Contains(got.Subtitle, "GB") {
		t.Fatalf("size annotation leaked into subtitle: %q", got.Subtitle)
	}
	if !strings.Contains(got.Subtitle, "Sub") || !strings.Contains(got.Subtitle, "Info") {
		t.Fatalf("subtitle text lost: %q", got.Subtitle)
	}
	if !reflect.DeepEqual(got.Tags, []string{"x"}) {
		t.Fatalf("unexpected tags %v", got.Tags)
	}
}

func TestRefineSubtitleIsIdempotent(t *testing.T) {
	inputs := []string{
		"Subtitle|tag1|tag2",
		"Sub [1.5 GB] Info|x",
		"Desc[inner]",
		"Desc[deep] [a|b]",
		"剩余文本|额外 [a|b]",
		"[x|y] 尾随文本",
		"平平无奇的描述",
		"",
	}
	for _, in := range inputs {
		first, _ := titles.RefineSubtitle(in)
		second, _ := titles.RefineSubtitle(first)
		if first != second {
			t.Fatalf("RefineSubtitle(%q) not idempotent: %q then %q", in, first, second)
		}
	}
}

func TestRefineSubtitleSplitsResidualPipes(t *testing.T) {
	// Pipes left over after a trailing tag group still split off: the
	// first token is the subtitle and the remainder joins the tags.
	sub, tags := titles.RefineSubtitle("主标题|次要 [官种|禁转]")
	if sub != "主标题" {
		t.Fatalf("unexpected subtitle %q", sub)
	}
	if !reflect.DeepEqual(tags, []string{"次要", "官种", "禁转"}) {
		t.Fatalf("unexpected tags %v", tags)
	}
}

func TestParseNestedBracketGroups(t *testing.T) {
	got := titles.Parse("[电影]Some Movie 2024[官方字幕[内嵌中字] [官种|禁转]]")
	if got.Category != "电影" {
		t.Fatalf("unexpected category %q", got.Category)
	}
	if got.Title != "Some Movie 2024" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Subtitle != "内嵌中字" {
		t.Fatalf("expected innermost group as subtitle, got %q", got.Subtitle)
	}
	if !reflect.DeepEqual(got.Tags, []string{"官种", "禁转"}) {
		t.Fatalf("unexpected tags %v", got.Tags)
	}
}

func TestParseDegradesGracefully(t *testing.T) {
	if got := titles.Parse(""); !reflect.DeepEqual(got, titles.ParsedTitle{}) {
		t.Fatalf("empty input must yield empty result, got %+v", got)
	}
	got := titles.Parse("Plain Title Without Brackets")
	if got.Title != "Plain Title Without Brackets" || got.Subtitle != "" || got.Category != "" {
		t.Fatalf("unexpected result for plain title: %+v", got)
	}
	// Unterminated subtitle block keeps what it can.
	got = titles.Parse("Title[unclosed")
	if got.Title != "Title" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Subtitle != "unclosed" {
		t.Fatalf("unexpected subtitle %q", got.Subtitle)
	}
}
