package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"

	"github.com/samvad-hq/catalog-relay/internal/api"
	"github.com/samvad-hq/catalog-relay/internal/config"
	"github.com/samvad-hq/catalog-relay/internal/dispatch"
	"github.com/samvad-hq/catalog-relay/internal/domain"
	"github.com/samvad-hq/catalog-relay/internal/logger"
	"github.com/samvad-hq/catalog-relay/pkg/httpclient"
	"github.com/samvad-hq/catalog-relay/pkg/remotes"
)

// Relay is the HTTP runtime. It owns the shared outbound client, the catalog
// dispatcher and the inbound server.
type Relay struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	server     *http.Server
	log        logger.Logger
}

// NewRelay builds a relay runtime from config. A missing remotes file is treated
// as an empty registry so the catalog falls back to catalog_base_url.
func NewRelay(cfg *config.Config, log logger.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	reg, err := loadRemotes(cfg.RemotesFile)
	if err != nil {
		return nil, fmt.Errorf("load remotes registry: %w", err)
	}
	all := reg.All()
	remoteIDs := make([]string, 0, len(all))
	for _, r := range all {
		remoteIDs = append(remoteIDs, r.ID)
	}
	log.InfoObj("remotes registry loaded", "remotes_meta", map[string]any{
		"file":  cfg.RemotesFile,
		"count": len(remoteIDs),
		"ids":   remoteIDs,
	})

	catalog, err := reg.Resolve(remotes.IDCatalog, cfg.CatalogBaseURL)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog remote: %w", err)
	}

	client := httpclient.NewRestyClient(cfg.HTTPTimeout)
	dispatcher, err := dispatch.New(client, dispatch.Options{
		Remote: catalog,
		Credential: domain.Credential{
			Name:   cfg.CredentialName,
			Secret: cfg.CredentialSecret,
		},
		ExchangeHeader: cfg.ExchangeHeader,
		Log:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}
	log.InfoObj("catalog remote resolved", "catalog_remote", map[string]any{
		"base_url":        catalog.BaseURL,
		"timeout_seconds": catalog.TimeoutSeconds,
		"exchange_header": cfg.ExchangeHeader,
	})

	return &Relay{
		cfg:        cfg,
		dispatcher: dispatcher,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: api.NewRouter(api.NewHandler(dispatcher, log)),
		},
		log: log,
	}, nil
}

// Handler returns the inbound router.
func (r *Relay) Handler() http.Handler {
	return r.server.Handler
}

// Run serves until the context is cancelled, then drains in-flight requests
// for at most the configured shutdown timeout.
func (r *Relay) Run(ctx context.Context) error {
	if r == nil || r.server == nil {
		return fmt.Errorf("relay is not initialized")
	}
	ln, err := net.Listen("tcp", r.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.server.Addr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (r *Relay) Serve(ctx context.Context, ln net.Listener) error {
	r.log.InfoObj("relay listening", "http_addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		r.log.InfoObj("relay shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.ShutdownTimeout)
	defer cancel()
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func loadRemotes(path string) (*remotes.Registry, error) {
	if path == "" {
		return remotes.NewRegistry()
	}
	reg, err := remotes.LoadRegistry(path)
	if errors.Is(err, fs.ErrNotExist) {
		return remotes.NewRegistry()
	}
	return reg, err
}
