package marketplace

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/samvad-hq/catalog-relay/internal/domain"
	"github.com/samvad-hq/catalog-relay/pkg/httpclient"
	"github.com/samvad-hq/catalog-relay/pkg/itemjson"
	"github.com/samvad-hq/catalog-relay/pkg/remotes"
)

const sampleShopResponse = `{
  "lastBuildDate": "Mon, 06 May 2024 10:00:00 +0900",
  "total": 2,
  "start": 1,
  "display": 15,
  "items": [
    {"title": "Apple <b>맥북</b> Air", "link": "https://shop.example/1", "image": "https://img.example/1.jpg", "lprice": "1390000", "hprice": "", "mallName": "A"},
    {"title": "<b>맥북</b> Pro 14", "link": "https://shop.example/2", "image": "https://img.example/2.jpg", "lprice": "2390000", "hprice": "", "mallName": "B"}
  ]
}`

type mockResponse struct {
	body       []byte
	statusCode int
}

func (r mockResponse) Body() []byte    { return r.body }
func (r mockResponse) StatusCode() int { return r.statusCode }

type mockHTTPClient struct {
	t         *testing.T
	expectURL string
	expect    map[string]string
	status    int
	body      string
	getCalls  int
}

func (m *mockHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	m.getCalls++
	if m.expectURL != "" && url != m.expectURL {
		m.t.Fatalf("expected url %q, got %q", m.expectURL, url)
	}
	for key, want := range m.expect {
		if got := headers[key]; got != want {
			m.t.Fatalf("expected header %s=%q, got %q", key, want, got)
		}
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return mockResponse{body: []byte(m.body), statusCode: status}, nil
}

func (m *mockHTTPClient) Do(context.Context, httpclient.Request) (httpclient.Response, error) {
	m.t.Fatalf("search must use GET")
	return nil, nil
}

func testRemote() remotes.Remote {
	return remotes.Remote{
		ID:      remotes.IDMarketplace,
		BaseURL: "https://openapi.naver.com",
		Headers: map[string]string{
			HeaderClientID:     "id",
			HeaderClientSecret: "secret",
		},
	}
}

func TestSearchBuildsRequestAndDecodes(t *testing.T) {
	client := &mockHTTPClient{
		t:         t,
		expectURL: "https://openapi.naver.com/v1/search/shop.json?display=15&query=%EB%A7%A5%EB%B6%81",
		expect: map[string]string{
			HeaderClientID:     "id",
			HeaderClientSecret: "secret",
		},
		body: sampleShopResponse,
	}

	s, err := NewSearcher(client, testRemote(), nil)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}

	items, err := s.Search(context.Background(), "맥북")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if client.getCalls != 1 {
		t.Fatalf("expected one call, got %d", client.getCalls)
	}
	want := domain.MarketItem{
		Title:    "Apple <b>맥북</b> Air",
		Link:     "https://shop.example/1",
		Image:    "https://img.example/1.jpg",
		LowPrice: 1390000,
	}
	if len(items) != 2 || items[0] != want {
		t.Fatalf("unexpected items %+v", items)
	}
	if got := items[1].PlainTitle(); got != "맥북 Pro 14" {
		t.Fatalf("PlainTitle = %q", got)
	}
}

func TestSearchRejectsNonNumericPrice(t *testing.T) {
	client := &mockHTTPClient{
		t:    t,
		body: `{"items":[{"title":"x","link":"l","image":"i","lprice":"1,000"}]}`,
	}
	s, err := NewSearcher(client, testRemote(), nil)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}

	if _, err := s.Search(context.Background(), "x"); !errors.Is(err, itemjson.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestSearchClassifiesErrorStatus(t *testing.T) {
	client := &mockHTTPClient{
		t:      t,
		status: http.StatusUnauthorized,
		body:   `{"errorMessage":"Authentication failed","errorCode":"024"}`,
	}
	s, err := NewSearcher(client, testRemote(), nil)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}

	_, err = s.Search(context.Background(), "x")
	var se *httpclient.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
}

func TestNewSearcherRequiresCredentials(t *testing.T) {
	remote := testRemote()
	delete(remote.Headers, HeaderClientSecret)

	if _, err := NewSearcher(&mockHTTPClient{t: t}, remote, nil); err == nil {
		t.Fatalf("expected error for missing client secret header")
	}
}
