package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/samvad-hq/catalog-relay/internal/config"
	"github.com/samvad-hq/catalog-relay/internal/domain"
)

func testConfig(t *testing.T, catalogURL string) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:          "catalog-relay",
		HTTPAddr:         "127.0.0.1:0",
		HTTPTimeout:      2 * time.Second,
		ShutdownTimeout:  2 * time.Second,
		RemotesFile:      filepath.Join(t.TempDir(), "absent-remotes.yaml"),
		CatalogBaseURL:   catalogURL,
		ExchangeHeader:   "X-Authorization",
		CredentialName:   "relay",
		CredentialSecret: "s3cret",
	}
}

func TestNewRelayRequiresConfig(t *testing.T) {
	if _, err := NewRelay(nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewRelayRejectsBadCatalogURL(t *testing.T) {
	if _, err := NewRelay(testConfig(t, "not a url"), nil); err == nil {
		t.Fatalf("expected error for relative catalog url")
	}
}

func TestNewRelayUsesRegistryBaseURL(t *testing.T) {
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/server/get-call-list" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Relay-Source"); got != "registry" {
			t.Errorf("X-Relay-Source = %q", got)
		}
		_, _ = io.WriteString(w, `{"items":[{"title":"Mac","price":1}]}`)
	}))
	defer catalog.Close()

	path := filepath.Join(t.TempDir(), "remotes.yaml")
	yaml := "remotes:\n  - id: catalog\n    base_url: " + catalog.URL + "\n    headers:\n      X-Relay-Source: registry\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write remotes file: %v", err)
	}

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.RemotesFile = path
	relay, err := NewRelay(cfg, nil)
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}

	rec := httptest.NewRecorder()
	relay.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/client/get-call-list", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var got []domain.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, []domain.Item{{Title: "Mac", Price: 1}}) {
		t.Fatalf("items = %+v", got)
	}
}

func TestRelayServesAndShutsDown(t *testing.T) {
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("query"); q != "Mac" {
			t.Errorf("query = %q", q)
		}
		_, _ = io.WriteString(w, `{"title":"Mac","price":3888000}`)
	}))
	defer catalog.Close()

	relay, err := NewRelay(testConfig(t, catalog.URL), nil)
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/client/get-call-obj?query=Mac")
	if err != nil {
		cancel()
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cancel()
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got domain.Item
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		cancel()
		t.Fatalf("decode: %v", err)
	}
	if got != (domain.Item{Title: "Mac", Price: 3888000}) {
		t.Fatalf("item = %+v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not shut down")
	}
}
