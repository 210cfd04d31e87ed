package websearch

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lewisedginton/rota/pkg/logger"
)

const articlePrefix = "./articles/"

// NewsLinks returns up to n unique article URLs from the news search page for query.
func (e *Extractor) NewsLinks(ctx context.Context, query string, n int) []string {
	if n <= 0 {
		n = 5
	}
	body, err := e.fetch(ctx, e.newsURL+"/search", map[string]string{"q": query})
	if err != nil {
		e.log.Warn("News search failed", logger.StringField("query", query), logger.ErrorField(err))
		return nil
	}
	links, err := articleLinks(body, e.newsURL, n)
	if err != nil {
		e.log.Warn("News page parse failed", logger.StringField("query", query), logger.ErrorField(err))
		return nil
	}
	e.log.Debug("News search complete",
		logger.StringField("query", query),
		logger.IntField("links", len(links)))
	return links
}

func articleLinks(page []byte, base string, n int) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)
	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if node.Type == html.ElementNode && node.DataAtom == atom.A {
			for _, attr := range node.Attr {
				if attr.Key != "href" || !strings.HasPrefix(attr.Val, articlePrefix) {
					continue
				}
				url := base + attr.Val[1:]
				if !seen[url] {
					seen[url] = true
					links = append(links, url)
				}
				if len(links) >= n {
					return true
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return links, nil
}
