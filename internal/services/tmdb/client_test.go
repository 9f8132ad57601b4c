package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"torrel/internal/services/tmdb"
)

func TestSearchMultiBuildsRequestAndDecodes(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotYear string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.URL.Query().Get("api_key")
		gotYear = r.URL.Query().Get("year")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":42,"name":"Show Name","first_air_date":"2023-04-01","vote_average":7.8,"media_type":"tv"}],"total_results":1}`))
	}))
	defer server.Close()

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := client.SearchMulti(context.Background(), "Show Name", 2023)
	if err != nil {
		t.Fatalf("SearchMulti: %v", err)
	}
	if gotPath != "/search/multi" || gotQuery != "Show Name" || gotKey != "key" || gotYear != "2023" {
		t.Fatalf("unexpected request: path=%q query=%q key=%q year=%q", gotPath, gotQuery, gotKey, gotYear)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(resp.Results))
	}
	result := resp.Results[0]
	if result.CanonicalTitle() != "Show Name" {
		t.Fatalf("unexpected canonical title %q", result.CanonicalTitle())
	}
	if result.Year() != "2023" {
		t.Fatalf("unexpected year %q", result.Year())
	}
}

func TestSearchMovieSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := tmdb.New("bad", server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.SearchMovie(context.Background(), "Anything", 0); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNewValidatesInputs(t *testing.T) {
	if _, err := tmdb.New("", "https://example.org", ""); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := tmdb.New("key", "", ""); err == nil {
		t.Fatal("expected error for missing base url")
	}
	client, err := tmdb.New("key", "https://example.org", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.SearchTV(context.Background(), "   ", 0); err == nil {
		t.Fatal("expected error for empty query")
	}
}
