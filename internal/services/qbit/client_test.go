package qbit_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"torrel/internal/config"
	"torrel/internal/services"
	"torrel/internal/services/qbit"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, serverURL string) *qbit.Client {
	t.Helper()
	client, err := qbit.New(config.Agent{
		Name:     "qb-main",
		URL:      serverURL,
		Username: "admin",
		Password: "secret",
	}, 5*time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestClientLoginAndAdd(t *testing.T) {
	var loginForm, addForm map[string]string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		switch r.URL.Path {
		case "/api/v2/auth/login":
			loginForm = map[string]string{
				"username": r.PostFormValue("username"),
				"password": r.PostFormValue("password"),
			}
			// qBittorrent scopes the session cookie to the whole site;
			// without Path the jar would confine it to /api/v2/auth.
			http.SetCookie(w, &http.Cookie{Name: "SID", Value: "abc123", Path: "/"})
			w.Write([]byte("Ok."))
		case "/api/v2/torrents/add":
			if cookie, err := r.Cookie("SID"); err != nil || cookie.Value != "abc123" {
				t.Errorf("add request missing session cookie")
			}
			addForm = map[string]string{
				"urls":     r.PostFormValue("urls"),
				"category": r.PostFormValue("category"),
				"tags":     r.PostFormValue("tags"),
				"paused":   r.PostFormValue("paused"),
			}
			w.Write([]byte("Ok."))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	client := newClient(t, server.URL)
	err := client.Add(context.Background(), "https://example.org/dl/42.torrent", qbit.AddOptions{
		Category: "tv",
		Tags:     "torrel",
		Paused:   true,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if loginForm["username"] != "admin" || loginForm["password"] != "secret" {
		t.Errorf("login form = %v", loginForm)
	}
	if addForm["urls"] != "https://example.org/dl/42.torrent" {
		t.Errorf("urls = %q", addForm["urls"])
	}
	if addForm["category"] != "tv" || addForm["tags"] != "torrel" {
		t.Errorf("category/tags = %q/%q", addForm["category"], addForm["tags"])
	}
	if addForm["paused"] != "true" {
		t.Errorf("paused = %q", addForm["paused"])
	}
}

// One client instance is shared by every source dispatching to the agent,
// so concurrent adds must not trip on the session state.
func TestClientConcurrentAdds(t *testing.T) {
	var mu sync.Mutex
	adds := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "SID", Value: "abc123", Path: "/"})
			w.Write([]byte("Ok."))
		case "/api/v2/torrents/add":
			mu.Lock()
			adds++
			mu.Unlock()
			w.Write([]byte("Ok."))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	client := newClient(t, server.URL)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			link := fmt.Sprintf("https://example.org/dl/%d.torrent", n)
			if err := client.Add(context.Background(), link, qbit.AddOptions{}); err != nil {
				t.Errorf("Add: %v", err)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if adds != 4 {
		t.Errorf("adds = %d, want 4", adds)
	}
}

func TestClientLoginRejected(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Fails."))
	})

	client := newClient(t, server.URL)
	err := client.Login(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientConnectionRefused(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:1")
	err := client.Add(context.Background(), "https://example.org/dl/1.torrent", qbit.AddOptions{})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientFreeSpace(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			w.Write([]byte("Ok."))
		case "/api/v2/sync/maindata":
			w.Write([]byte(`{"server_state":{"free_space_on_disk":987654321}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	client := newClient(t, server.URL)
	free, err := client.FreeSpace(context.Background())
	if err != nil {
		t.Fatalf("FreeSpace: %v", err)
	}
	if free != 987654321 {
		t.Errorf("free = %d, want 987654321", free)
	}
}

func TestClientHashCommands(t *testing.T) {
	var calls []string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.URL.Path == "/api/v2/auth/login" {
			w.Write([]byte("Ok."))
			return
		}
		if hashes := r.PostFormValue("hashes"); hashes != "deadbeef" {
			t.Errorf("hashes = %q", hashes)
		}
		if r.URL.Path == "/api/v2/torrents/delete" {
			if r.PostFormValue("deleteFiles") != "true" {
				t.Errorf("deleteFiles = %q", r.PostFormValue("deleteFiles"))
			}
		}
		calls = append(calls, r.URL.Path)
		w.Write([]byte(""))
	})

	client := newClient(t, server.URL)
	ctx := context.Background()
	if err := client.Pause(ctx, "deadbeef"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := client.Recheck(ctx, "deadbeef"); err != nil {
		t.Fatalf("Recheck: %v", err)
	}
	if err := client.Delete(ctx, "deadbeef", true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := []string{"/api/v2/torrents/pause", "/api/v2/torrents/recheck", "/api/v2/torrents/delete"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, calls[i], want[i])
		}
	}
}
