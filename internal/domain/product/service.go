// internal/domain/product/service.go
package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"gorm.io/gorm"
)

const activeCatalogKey = "catalog:active"

// ErrNotFound is returned when no active product matches (id, type)
var ErrNotFound = errors.New("product not found")

// Service handles product business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	logger      *logrus.Logger
}

// NewService creates a new product service. redisClient may be nil, in which
// case the active catalog is always read from the database.
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		logger:      logger,
	}
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	ID             uint             `json:"id" binding:"required"`
	Type           producttype.Type `json:"type" binding:"required"`
	Name           string           `json:"name" binding:"required"`
	Description    string           `json:"description"`
	Image          string           `json:"image"`
	Price          decimal.Decimal  `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"originalPrice"`
	IsSubscription bool             `json:"isSubscription"`
	SortOrder      int              `json:"sortOrder"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	Image          *string          `json:"image"`
	Price          *decimal.Decimal `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"originalPrice"`
	IsSubscription *bool            `json:"isSubscription"`
	IsActive       *bool            `json:"isActive"`
	SortOrder      *int             `json:"sortOrder"`
}

// ListActive returns every active product, served from Redis when warm
func (s *Service) ListActive(ctx context.Context) ([]Product, error) {
	if products, ok := s.cachedCatalog(ctx); ok {
		return products, nil
	}

	var products []Product
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("type ASC, sort_order ASC, id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	s.storeCatalog(ctx, products)
	return products, nil
}

// Get returns the active product with the given identity
func (s *Service) Get(ctx context.Context, id uint, typ producttype.Type) (*Product, error) {
	var prod Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND type = ? AND is_active = ?", id, typ, true).
		First(&prod).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &prod, nil
}

// PriceIndex loads the authoritative prices for a set of identities in one query.
// Missing or inactive products are simply absent from the result.
func (s *Service) PriceIndex(ctx context.Context, keys []Key) (map[Key]Product, error) {
	index := make(map[Key]Product, len(keys))
	if len(keys) == 0 {
		return index, nil
	}

	ids := make([]uint, 0, len(keys))
	seen := make(map[uint]bool, len(keys))
	for _, k := range keys {
		if !seen[k.ID] {
			seen[k.ID] = true
			ids = append(ids, k.ID)
		}
	}

	var products []Product
	err := s.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	for _, p := range products {
		index[p.Key()] = p
	}
	return index, nil
}

// Create adds a product to the catalog
func (s *Service) Create(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("invalid product type %q", req.Type)
	}
	if !req.Price.IsPositive() {
		return nil, fmt.Errorf("price must be greater than 0")
	}

	prod := Product{
		ID:             req.ID,
		Type:           req.Type,
		Name:           req.Name,
		Description:    req.Description,
		Image:          req.Image,
		Price:          req.Price,
		OriginalPrice:  req.OriginalPrice,
		IsSubscription: req.IsSubscription || req.Type == producttype.Pack,
		IsActive:       true,
		SortOrder:      req.SortOrder,
	}

	if err := s.db.WithContext(ctx).Create(&prod).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.InvalidateCache(ctx)
	return &prod, nil
}

// Update modifies a product, including deactivating it
func (s *Service) Update(ctx context.Context, id uint, typ producttype.Type, req *ProductUpdateRequest) (*Product, error) {
	var prod Product
	err := s.db.WithContext(ctx).Where("id = ? AND type = ?", id, typ).First(&prod).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, fmt.Errorf("price must be greater than 0")
		}
		updates["price"] = *req.Price
	}
	if req.OriginalPrice != nil {
		updates["original_price"] = *req.OriginalPrice
	}
	if req.IsSubscription != nil {
		updates["is_subscription"] = *req.IsSubscription
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&prod).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		if err := s.db.WithContext(ctx).Where("id = ? AND type = ?", id, typ).First(&prod).Error; err != nil {
			return nil, fmt.Errorf("failed to reload product: %w", err)
		}
	}

	s.InvalidateCache(ctx)
	return &prod, nil
}

// InvalidateCache drops the cached active catalog
func (s *Service) InvalidateCache(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, activeCatalogKey).Err(); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate catalog cache")
	}
}

func (s *Service) cachedCatalog(ctx context.Context) ([]Product, bool) {
	if s.redisClient == nil {
		return nil, false
	}

	data, err := s.redisClient.Get(ctx, activeCatalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Warn("catalog cache read failed")
		}
		return nil, false
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		s.logger.WithError(err).Warn("catalog cache entry is corrupt")
		return nil, false
	}
	return products, true
}

func (s *Service) storeCatalog(ctx context.Context, products []Product) {
	if s.redisClient == nil {
		return
	}

	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, activeCatalogKey, data, s.config.Catalog.CacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("catalog cache write failed")
	}
}
