// Package netease is a small client for the NetEase Cloud Music web API:
// song search, lyric fetch and cover download.
package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sv4u/mtag/tagger/lyrics"
)

const (
	DefaultBaseURL     = "https://music.163.com"
	DefaultSearchLimit = 10
	songPageURL        = "https://music.163.com/#/song?id="
)

// maxBodyBytes caps every response body, cover art included.
var maxBodyBytes int64 = 20 << 20

// Config holds catalog client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	SearchLimit int

	CacheMaxSize         int
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   float64 // seconds

	// BreakerFailures consecutive failures open the circuit for
	// BreakerReset. Zero values use 5 and 30s.
	BreakerFailures int
	BreakerReset    time.Duration
}

// Song is one search result.
type Song struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"` // comma joined
	Album  string `json:"album"`
	PicURL string `json:"pic_url"`
}

// Client wraps http.Client with the catalog's headers, response caching and
// proactive rate limiting.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	searchLimit int
	cache       *responseCache
	rateLimiter *RateLimiter
	breaker     *circuitBreaker
}

// NewClient creates a catalog client. Zero values fall back to defaults.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cache := newResponseCache(cfg.CacheMaxSize, cfg.CacheTTL)
	cache.startCleanup(cfg.CacheCleanupInterval)

	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		searchLimit: limit,
		cache:       cache,
		rateLimiter: NewRateLimiter(cfg.RateLimitEnabled, cfg.RateLimitRequests, cfg.RateLimitWindow),
		breaker:     newCircuitBreaker(cfg.BreakerFailures, cfg.BreakerReset),
	}
}

// SongURL returns the public page of a song, stored as the provenance URL.
func SongURL(id int64) string {
	return songPageURL + strconv.FormatInt(id, 10)
}

type searchResponse struct {
	Code   int `json:"code"`
	Result struct {
		SongCount int `json:"songCount"`
		Songs     []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name   string `json:"name"`
				PicURL string `json:"picUrl"`
			} `json:"album"`
		} `json:"songs"`
	} `json:"result"`
}

// Search looks up songs by keyword. It returns ErrNoResults when the catalog
// reports a non-200 code or no songs.
func (c *Client) Search(ctx context.Context, query string) ([]Song, error) {
	cacheKey := "search:" + query
	if cached, ok := c.cache.get(cacheKey); ok {
		if songs, ok := cached.([]Song); ok {
			return songs, nil
		}
	}

	form := url.Values{}
	form.Set("s", query)
	form.Set("offset", "0")
	form.Set("limit", strconv.Itoa(c.searchLimit))
	form.Set("type", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/search/pc", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &APIError{Message: "build search request", Original: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Message: "decode search response", Original: err}
	}
	if resp.Code != http.StatusOK || resp.Result.SongCount == 0 || len(resp.Result.Songs) == 0 {
		log.Printf("INFO: catalog_search_empty query=%q code=%d", query, resp.Code)
		return nil, ErrNoResults
	}

	songs := make([]Song, 0, len(resp.Result.Songs))
	for _, s := range resp.Result.Songs {
		names := make([]string, 0, len(s.Artists))
		for _, a := range s.Artists {
			names = append(names, a.Name)
		}
		songs = append(songs, Song{
			ID:     s.ID,
			Name:   s.Name,
			Artist: strings.Join(names, ","),
			Album:  s.Album.Name,
			PicURL: s.Album.PicURL,
		})
	}

	c.cache.set(cacheKey, songs)
	log.Printf("INFO: catalog_search query=%q results=%d", query, len(songs))
	return songs, nil
}

type lyricResponse struct {
	Code    int  `json:"code"`
	NoLyric bool `json:"nolyric"`
	Lrc     *struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	TLyric *struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Lyric fetches the raw LRC and translated LRC of a song.
func (c *Client) Lyric(ctx context.Context, id int64) (lyrics.Raw, error) {
	cacheKey := "lyric:" + strconv.FormatInt(id, 10)
	if cached, ok := c.cache.get(cacheKey); ok {
		if raw, ok := cached.(lyrics.Raw); ok {
			return raw, nil
		}
	}

	endpoint := fmt.Sprintf("%s/api/song/lyric?os=pc&id=%d&lv=-1&kv=-1&tv=-1", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return lyrics.Raw{}, &APIError{Message: "build lyric request", Original: err}
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return lyrics.Raw{}, err
	}

	var resp lyricResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return lyrics.Raw{}, &APIError{Message: "decode lyric response", Original: err}
	}

	if resp.Code != http.StatusOK && !resp.NoLyric {
		log.Printf("ERROR: catalog_lyric_failed id=%d code=%d", id, resp.Code)
		return lyrics.Raw{}, &APIError{Message: "lyric lookup for song " + strconv.FormatInt(id, 10), StatusCode: resp.Code}
	}

	var raw lyrics.Raw
	if resp.NoLyric {
		raw.NoLyric = true
	} else {
		if resp.Lrc != nil {
			raw.Primary = resp.Lrc.Lyric
		}
		if resp.TLyric != nil {
			raw.Translated = resp.TLyric.Lyric
		}
	}

	c.cache.set(cacheKey, raw)
	return raw, nil
}

// Image downloads cover art. Relative URLs resolve against the base URL.
func (c *Client) Image(ctx context.Context, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, &APIError{Message: "empty image url"}
	}
	if strings.HasPrefix(imageURL, "/") {
		imageURL = c.baseURL + imageURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &APIError{Message: "build image request", Original: err}
	}
	return c.do(ctx, req)
}

// CacheStats returns response cache statistics.
func (c *Client) CacheStats() CacheStats {
	return c.cache.stats()
}

// BreakerStatus returns the circuit breaker state.
func (c *Client) BreakerStatus() BreakerStatus {
	return c.breaker.status()
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.clear()
}

// Reset closes the circuit breaker and drops every cached response.
func (c *Client) Reset() {
	c.breaker.reset()
	c.cache.clear()
	log.Printf("INFO: catalog_reset")
}

// Close stops background cache cleanup.
func (c *Client) Close() {
	c.cache.stopCleanup()
}

// do rate limits, sends req with the browser headers the API expects and
// returns the body of a 2xx response. Transport errors and 5xx responses
// count against the circuit breaker.
func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if !c.breaker.allow() {
		return nil, &APIError{Message: "request " + req.URL.Path, Original: ErrCircuitOpen}
	}
	if err := c.rateLimiter.WaitIfNeeded(ctx); err != nil {
		c.breaker.release()
		return nil, &APIError{Message: "rate limiter", Original: err}
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.8,gl;q=0.6,zh-TW;q=0.4")
	req.Header.Set("Referer", "https://music.163.com/search/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/33.0.1750.152 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			c.breaker.release()
		} else {
			c.breaker.recordFailure()
		}
		log.Printf("ERROR: catalog_request_failed url=%s error=%v", req.URL.Redacted(), err)
		return nil, &APIError{Message: "request " + req.URL.Path, Original: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.breaker.recordFailure()
	} else {
		c.breaker.recordSuccess()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Message: "unexpected response for " + req.URL.Path, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &APIError{Message: "read body", StatusCode: resp.StatusCode, Original: err}
	}
	if int64(len(body)) > maxBodyBytes {
		log.Printf("ERROR: catalog_response_too_large url=%s limit=%d", req.URL.Redacted(), maxBodyBytes)
		return nil, &APIError{Message: fmt.Sprintf("response for %s exceeds %d bytes", req.URL.Path, maxBodyBytes), StatusCode: resp.StatusCode}
	}
	return body, nil
}
