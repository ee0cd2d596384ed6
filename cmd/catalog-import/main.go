// Command catalog-import reconciles the shared catalog against a JSON source list.
//
// The source is an array of {"weapon", "skin_name", "rarity", "collection", "image_url"}.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/counter-orion/internal/cache"
	"github.com/and161185/counter-orion/internal/config"
	"github.com/and161185/counter-orion/internal/migrate"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/and161185/counter-orion/internal/repository/postgres"
	"github.com/and161185/counter-orion/internal/service"
)

type sourceItem struct {
	Weapon     string  `json:"weapon"`
	SkinName   string  `json:"skin_name"`
	Rarity     string  `json:"rarity"`
	Collection *string `json:"collection"`
	ImageURL   *string `json:"image_url"`
}

func readSource(r io.Reader) ([]model.ImportItem, error) {
	var src []sourceItem
	if err := json.NewDecoder(r).Decode(&src); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	out := make([]model.ImportItem, 0, len(src))
	for _, s := range src {
		out = append(out, model.ImportItem(s))
	}
	return out, nil
}

func main() {
	cfg, err := config.LoadImport(os.Args[1:])
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}

	var logger *zap.Logger
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Fatal("catalog import", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.ImportConfig, logger *zap.Logger, out io.Writer) error {
	f, err := os.Open(cfg.File)
	if err != nil {
		return err
	}
	items, err := readSource(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	var c cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			// The import itself does not depend on the cache; entries expire on their own.
			logger.Warn("redis unavailable, cache not invalidated", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			c = cache.NewRedis(rdb, "catalog", 0)
		}
	}

	imp := service.NewCatalogImporter(postgres.NewCatalogRepo(db), c, logger)
	res, err := imp.Import(ctx, items, service.ImportOptions{
		Game:     cfg.Game,
		Rarities: cfg.Rarities,
		Prune:    cfg.Prune,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "inserted=%d updated=%d unchanged=%d deleted=%d blocked=%d skipped=%d total_input=%d\n",
		res.Inserted, res.Updated, res.Unchanged, res.Deleted, res.Blocked, res.Skipped, res.TotalInput)
	return err
}
