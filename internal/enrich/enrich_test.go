package enrich_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"torrel/internal/enrich"
)

const detailPage = `<html><body>
<a href="https://www.imdb.com/title/tt1234567/">IMDb</a>
<a href="https://movie.douban.com/subject/35678904/">douban</a>
<div>IMDb评分: 7.4 / 10</div>
<div>豆瓣评分: 8.1/10</div>
<div>片　名　Great Movie / 另一个名字</div>
<div>年　代　2023</div>
<div>产　地　美国</div>
</body></html>`

func TestParsePageExtractsIdsRatingsAndTitles(t *testing.T) {
	got := enrich.ParsePage(detailPage)
	if got.IMDbID != "tt1234567" {
		t.Fatalf("unexpected imdb id %q", got.IMDbID)
	}
	if got.DoubanID != "35678904" {
		t.Fatalf("unexpected douban id %q", got.DoubanID)
	}
	if got.IMDbRating != 7.4 {
		t.Fatalf("unexpected imdb rating %v", got.IMDbRating)
	}
	if got.DoubanRating != 8.1 {
		t.Fatalf("unexpected douban rating %v", got.DoubanRating)
	}
	if got.ExtTitle != "Great Movie" {
		t.Fatalf("unexpected ext title %q", got.ExtTitle)
	}
	if got.Year != "2023" {
		t.Fatalf("unexpected year %q", got.Year)
	}
	if got.Country != "美国" {
		t.Fatalf("unexpected country %q", got.Country)
	}
}

func TestParsePageFallsBackToAnonymousRatings(t *testing.T) {
	doc := `Rating: 8.5/10 from 1,200 users
Rating: 7.9/10 from 44,000 users`
	got := enrich.ParsePage(doc)
	if got.DoubanRating != 8.5 {
		t.Fatalf("expected first anonymous rating as douban, got %v", got.DoubanRating)
	}
	if got.IMDbRating != 7.9 {
		t.Fatalf("expected second anonymous rating as imdb, got %v", got.IMDbRating)
	}

	single := enrich.ParsePage("Rating: 6.2/10 from 300 users")
	if single.DoubanRating != 6.2 || single.IMDbRating != 6.2 {
		t.Fatalf("single anonymous rating must fill both values, got %+v", single)
	}
}

func TestParsePageEmptyDocument(t *testing.T) {
	got := enrich.ParsePage("nothing useful here")
	if *got != (enrich.Detail{}) {
		t.Fatalf("expected zero detail, got %+v", got)
	}
}

func TestFetchSendsCookieAndHandlesFailure(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		_, _ = w.Write([]byte(detailPage))
	}))
	defer server.Close()

	enricher := enrich.NewEnricher(5*time.Second, "torrel-test")
	got, err := enricher.Fetch(context.Background(), server.URL, "uid=1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotCookie != "uid=1" {
		t.Fatalf("cookie not sent, got %q", gotCookie)
	}
	if got.IMDbID != "tt1234567" {
		t.Fatalf("unexpected imdb id %q", got.IMDbID)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	if _, err := enricher.Fetch(context.Background(), failing.URL, ""); err == nil {
		t.Fatal("expected error for non-200 detail page")
	}
}
