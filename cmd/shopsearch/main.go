package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samvad-hq/catalog-relay/internal/config"
	"github.com/samvad-hq/catalog-relay/internal/logger"
	"github.com/samvad-hq/catalog-relay/internal/marketplace"
	"github.com/samvad-hq/catalog-relay/pkg/httpclient"
	"github.com/samvad-hq/catalog-relay/pkg/remotes"
)

type result struct {
	Title      string `json:"title"`
	PlainTitle string `json:"plain_title"`
	Link       string `json:"link"`
	Image      string `json:"image"`
	LowPrice   int64  `json:"lprice"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shopsearch failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	remotesFile := flag.String("remotes", "./configs/marketplace.yaml", "registry file holding the marketplace remote")
	query := flag.String("query", "", "search terms (defaults to the positional arguments)")
	flag.Parse()

	q := strings.TrimSpace(*query)
	if q == "" {
		q = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if q == "" {
		return errors.New("a search query is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sugar, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()
	log := logger.New(sugar)

	reg, err := remotes.LoadRegistry(*remotesFile)
	if err != nil {
		return fmt.Errorf("load remotes registry: %w", err)
	}
	remote, err := reg.Resolve(remotes.IDMarketplace, cfg.MarketplaceBaseURL)
	if err != nil {
		return fmt.Errorf("resolve marketplace remote: %w", err)
	}

	searcher, err := marketplace.NewSearcher(httpclient.NewRestyClient(cfg.HTTPTimeout), remote, log)
	if err != nil {
		return fmt.Errorf("init searcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	items, err := searcher.Search(ctx, q)
	if err != nil {
		return err
	}

	out := make([]result, 0, len(items))
	for _, it := range items {
		out = append(out, result{
			Title:      it.Title,
			PlainTitle: it.PlainTitle(),
			Link:       it.Link,
			Image:      it.Image,
			LowPrice:   it.LowPrice,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
