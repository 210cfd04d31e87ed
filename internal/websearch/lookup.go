package websearch

import (
	"context"

	"github.com/lewisedginton/rota/pkg/logger"
)

// Lookup combines a Searcher with an Extractor.
type Lookup struct {
	searcher  Searcher
	extractor *Extractor
	log       logger.Logger
}

func NewLookup(searcher Searcher, extractor *Extractor, log logger.Logger) *Lookup {
	if log == nil {
		log = logger.NewNop()
	}
	return &Lookup{searcher: searcher, extractor: extractor, log: log}
}

// New builds a Lookup over a SearchAPI client and an Extractor from one Config.
func New(cfg Config, log logger.Logger) *Lookup {
	return NewLookup(NewSearchAPI(cfg, log), NewExtractor(cfg, log), log)
}

// SearchAndExtract searches query and extracts each result in order, skipping pages
// that yield no text.
func (l *Lookup) SearchAndExtract(ctx context.Context, query string) []Page {
	urls := l.searcher.Search(ctx, query)
	pages := make([]Page, 0, len(urls))
	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		text := l.extractor.ExtractText(ctx, url)
		if text == "" {
			l.log.Debug("No content extracted", logger.StringField("url", url))
			continue
		}
		pages = append(pages, Page{URL: url, Text: text})
	}
	l.log.Info("Web lookup complete",
		logger.StringField("query", query),
		logger.IntField("urls", len(urls)),
		logger.IntField("pages", len(pages)))
	return pages
}

// Extractor exposes the page fetcher for news learning.
func (l *Lookup) Extractor() *Extractor {
	return l.extractor
}

// Searcher exposes the search client, for health checks.
func (l *Lookup) Searcher() Searcher {
	return l.searcher
}
