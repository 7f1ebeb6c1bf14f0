package marketplace

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samvad-hq/catalog-relay/internal/domain"
	"github.com/samvad-hq/catalog-relay/internal/logger"
	"github.com/samvad-hq/catalog-relay/pkg/httpclient"
	"github.com/samvad-hq/catalog-relay/pkg/itemjson"
	"github.com/samvad-hq/catalog-relay/pkg/remotes"
	"github.com/samvad-hq/catalog-relay/pkg/uri"
)

const (
	PathShopSearch = "/v1/search/shop.json"
	PageSize       = 15

	HeaderClientID     = "X-Naver-Client-Id"
	HeaderClientSecret = "X-Naver-Client-Secret"
)

var marketItemDecoder = itemjson.MustNewDecoder[domain.MarketItem]("market_item",
	itemjson.String("title"),
	itemjson.String("link"),
	itemjson.String("image"),
	itemjson.IntegerString("lprice"),
)

// Searcher queries the shopping search API.
type Searcher struct {
	client httpclient.Client
	remote remotes.Remote
	log    logger.Logger
}

// NewSearcher requires the remote to carry both API key headers.
func NewSearcher(client httpclient.Client, remote remotes.Remote, log logger.Logger) (*Searcher, error) {
	if client == nil {
		return nil, fmt.Errorf("http client must not be nil")
	}
	if _, err := uri.New(remote.BaseURL, PathShopSearch); err != nil {
		return nil, fmt.Errorf("marketplace remote: %w", err)
	}
	for _, h := range []string{HeaderClientID, HeaderClientSecret} {
		if strings.TrimSpace(remote.Headers[h]) == "" {
			return nil, fmt.Errorf("marketplace remote %q is missing header %s", remote.ID, h)
		}
	}
	return &Searcher{client: client, remote: remote, log: logger.Ensure(log)}, nil
}

// Search returns the first page of shop results for query.
func (s *Searcher) Search(ctx context.Context, query string) ([]domain.MarketItem, error) {
	target, err := uri.New(s.remote.BaseURL, PathShopSearch,
		uri.WithQuery("display", strconv.Itoa(PageSize)),
		uri.WithQuery("query", query),
	)
	if err != nil {
		return nil, fmt.Errorf("build shop search uri: %w", err)
	}

	if timeout := s.remote.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.log.InfoObj("marketplace search", "marketplace_call", map[string]any{"uri": target.String()})

	resp, err := s.client.Get(ctx, target.String(), s.remote.HeadersCopy())
	if err != nil {
		return nil, fmt.Errorf("shop search: %w", err)
	}

	s.log.InfoObj("marketplace search completed", "marketplace_result", map[string]any{
		"status_code": resp.StatusCode(),
	})

	if err := httpclient.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("shop search: %w", err)
	}

	items, err := marketItemDecoder.DecodeEnvelope(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("shop search: %w", err)
	}
	return items, nil
}
