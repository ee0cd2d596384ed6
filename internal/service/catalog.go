package service

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/and161185/counter-orion/internal/cache"
	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/and161185/counter-orion/internal/repository"
)

// Catalog paging bounds.
const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	MinSearchQueryLen  = 2

	// MaxPage keeps page*MaxPageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

// CatalogService defines read operations over the shared catalog.
type CatalogService interface {
	// List returns one page of matching items ordered by weapon, then skin name.
	List(ctx context.Context, f model.CatalogFilter, page, pageSize int) (model.CatalogPage, error)
	// Search returns up to limit items for autocomplete.
	Search(ctx context.Context, query string, limit int) ([]model.CatalogItem, error)
}

type CatalogServiceImpl struct {
	repo  repository.CatalogRepository
	cache cache.Cache
	log   *zap.Logger
}

// NewCatalogService constructs CatalogService. A nil cache disables caching.
func NewCatalogService(repo repository.CatalogRepository, c cache.Cache, log *zap.Logger) *CatalogServiceImpl {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogServiceImpl{repo: repo, cache: c, log: log}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// List clamps page to [1, MaxPage] and pageSize to [1, MaxPageSize].
func (s *CatalogServiceImpl) List(ctx context.Context, f model.CatalogFilter, page, pageSize int) (model.CatalogPage, error) {
	f = model.CatalogFilter{
		Weapon: strings.TrimSpace(f.Weapon),
		Rarity: strings.TrimSpace(f.Rarity),
		Query:  strings.TrimSpace(f.Query),
	}
	page = clamp(page, 1, MaxPage)
	pageSize = clamp(pageSize, 1, MaxPageSize)

	key := "list?" + url.Values{
		"w": {f.Weapon}, "r": {f.Rarity}, "q": {f.Query},
		"p": {strconv.Itoa(page)}, "s": {strconv.Itoa(pageSize)},
	}.Encode()
	var out model.CatalogPage
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	items, total, err := s.repo.List(ctx, f, pageSize, (page-1)*pageSize)
	if err != nil {
		return model.CatalogPage{}, err
	}
	out = model.CatalogPage{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasNext:  page*pageSize < total,
	}
	s.store(ctx, key, out)
	return out, nil
}

// Search requires at least MinSearchQueryLen characters after trimming.
func (s *CatalogServiceImpl) Search(ctx context.Context, query string, limit int) ([]model.CatalogItem, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchQueryLen {
		return nil, fmt.Errorf("%w: q must be at least %d characters", errs.ErrValidation, MinSearchQueryLen)
	}
	limit = clamp(limit, 1, MaxSearchLimit)

	key := "search?" + url.Values{"q": {query}, "l": {strconv.Itoa(limit)}}.Encode()
	var out []model.CatalogItem
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	out, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, out)
	return out, nil
}

// cached and store never fail the request: the database stays authoritative.
func (s *CatalogServiceImpl) cached(ctx context.Context, key string, dst any) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.Warn("catalog cache get", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (s *CatalogServiceImpl) store(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Warn("catalog cache set", zap.String("key", key), zap.Error(err))
	}
}
