package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/catalog-relay/internal/domain"
	"github.com/samvad-hq/catalog-relay/internal/logger"
	"github.com/samvad-hq/catalog-relay/pkg/httpclient"
	"github.com/samvad-hq/catalog-relay/pkg/itemjson"
	"github.com/samvad-hq/catalog-relay/pkg/remotes"
	"github.com/samvad-hq/catalog-relay/pkg/uri"
)

// Catalog server paths.
const (
	PathGetCallObj   = "/api/server/get-call-obj"
	PathGetCallList  = "/api/server/get-call-list"
	PathPostCall     = "/api/server/post-call/{query}"
	PathExchangeCall = "/api/server/exchange-call"

	queryParam = "query"
)

var itemDecoder = itemjson.MustNewDecoder[domain.Item]("item",
	itemjson.String("title"),
	itemjson.Integer("price"),
)

// Options configures a Dispatcher.
type Options struct {
	Remote         remotes.Remote
	Credential     domain.Credential
	ExchangeHeader string
	Log            logger.Logger
}

// Dispatcher turns each catalog intent into one outbound call plus decoding.
type Dispatcher struct {
	client         httpclient.Client
	remote         remotes.Remote
	credential     domain.Credential
	exchangeHeader string
	log            logger.Logger
}

// New builds a Dispatcher around a shared HTTP client.
func New(client httpclient.Client, opts Options) (*Dispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("http client must not be nil")
	}
	if strings.TrimSpace(opts.Remote.BaseURL) == "" {
		return nil, fmt.Errorf("catalog remote %q has no base_url", opts.Remote.ID)
	}
	header := strings.TrimSpace(opts.ExchangeHeader)
	if header == "" {
		return nil, fmt.Errorf("exchange header name is empty")
	}
	// Reject a malformed origin at construction.
	if _, err := uri.New(opts.Remote.BaseURL, PathGetCallList); err != nil {
		return nil, fmt.Errorf("catalog remote: %w", err)
	}

	return &Dispatcher{
		client:         client,
		remote:         opts.Remote,
		credential:     opts.Credential,
		exchangeHeader: header,
		log:            logger.Ensure(opts.Log),
	}, nil
}

// FetchOne GETs a single item selected by query.
func (d *Dispatcher) FetchOne(ctx context.Context, query string) (domain.Item, error) {
	target, err := uri.New(d.remote.BaseURL, PathGetCallObj, uri.WithQuery(queryParam, query))
	if err != nil {
		return domain.Item{}, fmt.Errorf("build get-call-obj uri: %w", err)
	}

	body, err := d.call(ctx, "get-call-obj", httpclient.Request{Method: http.MethodGet, URL: target.String()})
	if err != nil {
		return domain.Item{}, err
	}
	item, err := itemDecoder.DecodeObject(body)
	if err != nil {
		return domain.Item{}, fmt.Errorf("get-call-obj: %w", err)
	}
	return item, nil
}

// FetchList GETs the full item list.
func (d *Dispatcher) FetchList(ctx context.Context) ([]domain.Item, error) {
	target, err := uri.New(d.remote.BaseURL, PathGetCallList)
	if err != nil {
		return nil, fmt.Errorf("build get-call-list uri: %w", err)
	}

	body, err := d.call(ctx, "get-call-list", httpclient.Request{Method: http.MethodGet, URL: target.String()})
	if err != nil {
		return nil, err
	}
	items, err := itemDecoder.DecodeEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("get-call-list: %w", err)
	}
	return items, nil
}

// Submit POSTs the credential payload to the path addressed by query.
func (d *Dispatcher) Submit(ctx context.Context, query string) (domain.Item, error) {
	target, err := uri.New(d.remote.BaseURL, PathPostCall, uri.WithPathValue(query))
	if err != nil {
		return domain.Item{}, fmt.Errorf("build post-call uri: %w", err)
	}

	body, err := d.call(ctx, "post-call", httpclient.Request{
		Method: http.MethodPost,
		URL:    target.String(),
		Body:   d.credential,
	})
	if err != nil {
		return domain.Item{}, err
	}
	item, err := itemDecoder.DecodeObject(body)
	if err != nil {
		return domain.Item{}, fmt.Errorf("post-call: %w", err)
	}
	return item, nil
}

// Exchange POSTs the credential payload with token in the exchange header.
func (d *Dispatcher) Exchange(ctx context.Context, token string) ([]domain.Item, error) {
	target, err := uri.New(d.remote.BaseURL, PathExchangeCall)
	if err != nil {
		return nil, fmt.Errorf("build exchange-call uri: %w", err)
	}

	body, err := d.call(ctx, "exchange-call", httpclient.Request{
		Method:  http.MethodPost,
		URL:     target.String(),
		Headers: map[string]string{d.exchangeHeader: token},
		Body:    d.credential,
	})
	if err != nil {
		return nil, err
	}
	items, err := itemDecoder.DecodeEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("exchange-call: %w", err)
	}
	return items, nil
}

// call performs the request once, logs the uri and status, and returns the body of a 2xx response.
func (d *Dispatcher) call(ctx context.Context, op string, req httpclient.Request) ([]byte, error) {
	headers := d.remote.HeadersCopy()
	for k, v := range req.Headers {
		headers[k] = v
	}
	req.Headers = headers

	if timeout := d.remote.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	d.log.InfoObj("catalog call", "catalog_call", map[string]any{
		"op":     op,
		"method": req.Method,
		"uri":    req.URL,
	})

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	d.log.InfoObj("catalog call completed", "catalog_result", map[string]any{
		"op":          op,
		"status_code": resp.StatusCode(),
	})

	if err := httpclient.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Body(), nil
}
