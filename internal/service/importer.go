package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/counter-orion/internal/cache"
	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/and161185/counter-orion/internal/repository"
)

// DefaultGame is the catalog partition used when none is given.
const DefaultGame = "cs2"

// DefaultRarities is the allow-list applied by the import command by default.
var DefaultRarities = []string{"Covert", "Extraordinary"}

// ImportOptions controls a catalog reconciliation.
type ImportOptions struct {
	Game     string
	Rarities []string // empty accepts every rarity
	Prune    bool
}

// ImportResult is the reconciliation outcome plus input accounting.
type ImportResult struct {
	model.ImportStats
	TotalInput int
	Skipped    int
}

// CatalogImporter reconciles a source list against the stored catalog.
type CatalogImporter struct {
	repo  repository.CatalogRepository
	cache cache.Cache
	log   *zap.Logger
}

// NewCatalogImporter constructs CatalogImporter. A nil cache is allowed.
func NewCatalogImporter(repo repository.CatalogRepository, c cache.Cache, log *zap.Logger) *CatalogImporter {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogImporter{repo: repo, cache: c, log: log}
}

// PrepareImport trims rows, drops those with an empty weapon or name or a
// rarity outside the allow-list, and collapses duplicates keeping the last one
// at the position of the first.
func PrepareImport(items []model.ImportItem, rarities []string) (kept []model.ImportItem, skipped int) {
	allow := make(map[string]struct{}, len(rarities))
	for _, r := range rarities {
		if r = strings.TrimSpace(r); r != "" {
			allow[r] = struct{}{}
		}
	}

	index := make(map[[2]string]int, len(items))
	for _, it := range items {
		it = model.ImportItem{
			Weapon:     strings.TrimSpace(it.Weapon),
			SkinName:   strings.TrimSpace(it.SkinName),
			Rarity:     strings.TrimSpace(it.Rarity),
			Collection: optText(it.Collection),
			ImageURL:   optText(it.ImageURL),
		}
		if it.Weapon == "" || it.SkinName == "" || it.Rarity == "" {
			skipped++
			continue
		}
		if _, ok := allow[it.Rarity]; len(allow) > 0 && !ok {
			skipped++
			continue
		}
		k := [2]string{it.Weapon, it.SkinName}
		if i, dup := index[k]; dup {
			kept[i] = it
			skipped++
			continue
		}
		index[k] = len(kept)
		kept = append(kept, it)
	}
	return kept, skipped
}

// Import reconciles items for opts.Game and invalidates cached catalog reads.
func (s *CatalogImporter) Import(ctx context.Context, items []model.ImportItem, opts ImportOptions) (ImportResult, error) {
	game := strings.TrimSpace(opts.Game)
	if game == "" {
		game = DefaultGame
	}
	kept, skipped := PrepareImport(items, opts.Rarities)
	if len(kept) == 0 && opts.Prune {
		// An empty source would wipe every unreferenced row of the game.
		return ImportResult{}, fmt.Errorf("%w: refusing to prune with an empty source list", errs.ErrValidation)
	}

	stats, err := s.repo.Reconcile(ctx, game, kept, opts.Prune)
	if err != nil {
		return ImportResult{}, fmt.Errorf("reconcile %s: %w", game, err)
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("catalog cache invalidate", zap.Error(err))
	}
	s.log.Info("catalog imported",
		zap.String("game", game),
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("deleted", stats.Deleted),
		zap.Int("blocked", stats.Blocked),
	)
	return ImportResult{ImportStats: stats, TotalInput: len(items), Skipped: skipped}, nil
}
