package websearch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lewisedginton/rota/pkg/logger"
)

// minParagraphLength is the rune count a paragraph must exceed to be kept.
const minParagraphLength = 40

var strippedElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Nav:    true,
	atom.Footer: true,
	atom.Header: true,
	atom.Aside:  true,
}

// Extractor fetches pages and keeps their paragraph text.
type Extractor struct {
	client  *resty.Client
	newsURL string
	log     logger.Logger
}

func NewExtractor(cfg Config, log logger.Logger) *Extractor {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.PageTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Extractor{
		client:  client,
		newsURL: strings.TrimRight(cfg.NewsBaseURL, "/"),
		log:     log,
	}
}

// ExtractText returns the page's paragraph text, or "" on any failure.
func (e *Extractor) ExtractText(ctx context.Context, url string) string {
	body, err := e.fetch(ctx, url, nil)
	if err != nil {
		e.log.Warn("Page fetch failed", logger.StringField("url", url), logger.ErrorField(err))
		return ""
	}
	text, err := ExtractParagraphs(bytes.NewReader(body))
	if err != nil {
		e.log.Warn("Page parse failed", logger.StringField("url", url), logger.ErrorField(err))
		return ""
	}
	e.log.Debug("Extracted page",
		logger.StringField("url", url),
		logger.IntField("characters", utf8.RuneCountInString(text)))
	return text
}

func (e *Extractor) fetch(ctx context.Context, url string, query map[string]string) ([]byte, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// ExtractParagraphs drops script, style, nav, footer, header and aside subtrees, then
// joins with newlines the text of every <p> longer than 40 characters.
func ExtractParagraphs(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			if text := nodeText(n); utf8.RuneCountInString(text) > minParagraphLength {
				paragraphs = append(paragraphs, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}

// nodeText concatenates the text below n, skipping stripped elements.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && strippedElements[n.DataAtom]:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
