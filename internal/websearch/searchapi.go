package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/lewisedginton/rota/pkg/logger"
)

// Searcher returns result URLs for a query, best first. Errors yield no URLs.
type Searcher interface {
	Search(ctx context.Context, query string) []string
}

var errNoAPIKey = errors.New("search api key is not configured")

type searchResponse struct {
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

// SearchAPI queries a SerpAPI-compatible endpoint.
type SearchAPI struct {
	client *resty.Client
	cfg    Config
	log    logger.Logger
}

var _ Searcher = (*SearchAPI)(nil)

func NewSearchAPI(cfg Config, log logger.Logger) *SearchAPI {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &SearchAPI{client: client, cfg: cfg, log: log}
}

func (s *SearchAPI) Search(ctx context.Context, query string) []string {
	links, err := s.search(ctx, query)
	if err != nil {
		s.log.Warn("Search failed",
			logger.StringField("query", query),
			logger.ErrorField(err))
		return nil
	}
	s.log.Debug("Search complete",
		logger.StringField("query", query),
		logger.IntField("links", len(links)))
	return links
}

func (s *SearchAPI) search(ctx context.Context, query string) ([]string, error) {
	if s.cfg.APIKey == "" {
		return nil, errNoAPIKey
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":       query,
			"api_key": s.cfg.APIKey,
			"engine":  s.cfg.Engine,
			"num":     strconv.Itoa(s.cfg.NumResults),
		}).
		Get(s.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode())
	}

	var body searchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	links := make([]string, 0, s.cfg.NumResults)
	for _, r := range body.OrganicResults {
		if r.Link != "" {
			links = append(links, r.Link)
		}
		if len(links) >= s.cfg.NumResults {
			break
		}
	}
	return links, nil
}

// Ping checks the provider answers at all; any HTTP response counts as reachable.
func (s *SearchAPI) Ping(ctx context.Context) error {
	_, err := s.client.R().SetContext(ctx).Head(s.cfg.BaseURL)
	return err
}
