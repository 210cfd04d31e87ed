// Package websearch finds pages for a query and reduces them to plain paragraph text.
// Failures are logged and produce empty results; callers treat them as "nothing found".
package websearch

import "time"

// Page is one result page with its extracted text.
type Page struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Config configures the search client and page fetcher.
type Config struct {
	APIKey      string
	BaseURL     string
	Engine      string
	NumResults  int
	Timeout     time.Duration
	PageTimeout time.Duration
	NewsBaseURL string
	UserAgent   string
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = "google"
	}
	if c.NumResults <= 0 {
		c.NumResults = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = 10 * time.Second
	}
	if c.NewsBaseURL == "" {
		c.NewsBaseURL = "https://news.google.com"
	}
	return c
}
