package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MiniCart/config"
	"MiniCart/internal/cart"
	"MiniCart/internal/catalog"
	"MiniCart/internal/order"
	"MiniCart/internal/storefront"
	"MiniCart/pkg/kit"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadEnv()

	service := "storefront"
	log := kit.NewLogger(service, kit.LogOptions{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Development: cfg.IsDevelopment(),
		File:        cfg.Logger.File,
	})
	defer func() { _ = log.Sync() }()

	store, err := openStore(cfg.Store)
	if err != nil {
		log.Fatal("open store", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}

	entries, err := loadCatalog(cfg.Catalog)
	if err != nil {
		_ = store.Close()
		log.Fatal("load catalog", zap.Error(err), zap.String("path", cfg.Catalog.Path))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctl := cart.New(store, order.NewStore(), log, reg)

	n, err := ctl.Seed(context.Background(), entries)
	if err != nil {
		_ = store.Close()
		log.Fatal("seed catalog", zap.Error(err))
	}
	log.Info("storefront ready", zap.Int("seeded", n), zap.String("driver", cfg.Store.Driver))

	s := &storefront.Server{
		Cart:    ctl,
		Catalog: &catalog.Server{Store: store, Log: log},
		Store:   store,
		Log:     log,
	}

	h, err := storefront.NewHandler(s, storefront.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		CartRateLimit:  cfg.Server.CartRateLimit,
		ImagesDir:      cfg.Catalog.ImagesDir,
	})
	if err != nil {
		_ = store.Close()
		log.Fatal("build handler", zap.Error(err))
	}

	runErr := kit.RunHTTPServer(context.Background(), ":"+cfg.Server.Port, h, log)

	if err := store.Close(); err != nil {
		log.Error("close store", zap.Error(err))
	}
	if runErr != nil {
		log.Fatal("http server stopped", zap.Error(runErr))
	}
}

func openStore(cfg config.StoreConfig) (catalog.Store, error) {
	switch cfg.Driver {
	case config.DriverBolt:
		return catalog.NewBoltStore(cfg.Path), nil
	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for driver %q", cfg.Driver)
		}
		pg, err := catalog.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case config.DriverMemory:
		return catalog.NewMemStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func loadCatalog(cfg config.CatalogConfig) ([]catalog.SeedEntry, error) {
	res := catalog.DefaultCatalog()
	if cfg.Path != "" {
		var err error
		if res, err = catalog.LoadCatalogFile(cfg.Path); err != nil {
			return nil, err
		}
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Entries, nil
}
