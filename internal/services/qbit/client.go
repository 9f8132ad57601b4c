// Package qbit implements the qBittorrent WebUI v2 command surface the
// pipeline dispatches downloads through: add, pause, delete, recheck, and
// free-space queries. Connection and authentication failures all surface
// as services.ErrUnavailable so callers treat agent faults as one kind.
package qbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"torrel/internal/config"
	"torrel/internal/services"
)

// AddOptions carries the optional parameters for adding a torrent.
type AddOptions struct {
	Category string
	Tags     string
	Paused   bool
}

// Client talks to one qBittorrent WebUI endpoint. Login happens lazily on
// the first command and the session cookie is reused afterwards. A client
// is shared by every source dispatching to the agent, so the session flag
// is mutex-guarded; the cookie jar handles its own locking.
type Client struct {
	cfg        config.Agent
	httpClient *http.Client

	mu       sync.Mutex
	loggedIn bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The replacement must
// carry a cookie jar or the session cookie is lost.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a client for the given agent definition.
func New(cfg config.Agent, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "agent", cfg.Name, "url must be set", nil)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name returns the configured agent name.
func (c *Client) Name() string { return c.cfg.Name }

// AutoDelete reports whether the agent recycles finished torrents itself.
func (c *Client) AutoDelete() bool { return c.cfg.AutoDelete }

// FreeMarginBytes returns the configured disk headroom in bytes.
func (c *Client) FreeMarginBytes() int64 {
	return int64(c.cfg.FreeMarginGB * 1e9)
}

// Login authenticates against the WebUI and stores the session cookie.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	body, err := c.postForm(ctx, "/api/v2/auth/login", form)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(strings.TrimSpace(body), "Ok") {
		return services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name, "authentication rejected", nil)
	}
	c.setLoggedIn(true)
	return nil
}

// Add submits a torrent by its download link.
func (c *Client) Add(ctx context.Context, downloadLink string, opts AddOptions) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}
	form := url.Values{}
	form.Set("urls", downloadLink)
	if opts.Category != "" {
		form.Set("category", opts.Category)
	}
	if opts.Tags != "" {
		form.Set("tags", opts.Tags)
	}
	if opts.Paused {
		form.Set("paused", "true")
		form.Set("stopped", "true")
	}
	_, err := c.postForm(ctx, "/api/v2/torrents/add", form)
	return err
}

// Pause pauses the torrent with the given hash.
func (c *Client) Pause(ctx context.Context, hash string) error {
	return c.hashCommand(ctx, "/api/v2/torrents/pause", hash, nil)
}

// Delete removes the torrent, optionally purging its files.
func (c *Client) Delete(ctx context.Context, hash string, purgeFiles bool) error {
	extra := url.Values{}
	extra.Set("deleteFiles", fmt.Sprintf("%t", purgeFiles))
	return c.hashCommand(ctx, "/api/v2/torrents/delete", hash, extra)
}

// Recheck forces a hash recheck of the torrent.
func (c *Client) Recheck(ctx context.Context, hash string) error {
	return c.hashCommand(ctx, "/api/v2/torrents/recheck", hash, nil)
}

// FreeSpace returns the bytes free on the agent's download disk.
func (c *Client) FreeSpace(ctx context.Context) (int64, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return 0, err
	}
	body, err := c.get(ctx, "/api/v2/sync/maindata")
	if err != nil {
		return 0, err
	}
	var payload struct {
		ServerState struct {
			FreeSpaceOnDisk int64 `json:"free_space_on_disk"`
		} `json:"server_state"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return 0, services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name, "decode maindata", err)
	}
	return payload.ServerState.FreeSpaceOnDisk, nil
}

func (c *Client) ensureLogin(ctx context.Context) error {
	if c.isLoggedIn() {
		return nil
	}
	return c.Login(ctx)
}

func (c *Client) isLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

func (c *Client) setLoggedIn(value bool) {
	c.mu.Lock()
	c.loggedIn = value
	c.mu.Unlock()
}

func (c *Client) hashCommand(ctx context.Context, path, hash string, extra url.Values) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}
	form := url.Values{}
	form.Set("hashes", hash)
	for key, values := range extra {
		for _, value := range values {
			form.Add(key, value)
		}
	}
	_, err := c.postForm(ctx, path, form)
	return err
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, path)
}

func (c *Client) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+path, nil)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name, "build request", err)
	}
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name, path, err)
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		c.setLoggedIn(false)
		return "", services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name,
			fmt.Sprintf("%s returned status %d", path, resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrUnavailable, "agent", c.cfg.Name,
			fmt.Sprintf("%s returned status %d", path, resp.StatusCode), nil)
	}
	return string(body), nil
}
