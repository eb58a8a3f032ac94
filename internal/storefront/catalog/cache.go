// internal/storefront/catalog/cache.go

// Package catalog caches the product list the storefront renders from
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"github.com/your-org/fruitbox/internal/storefront/apiclient"
	"github.com/your-org/fruitbox/internal/storefront/cartstore"
	"golang.org/x/sync/singleflight"
)

// Product is the storefront's view of a catalog entry
type Product struct {
	ID             int              `json:"id"`
	Type           producttype.Type `json:"type"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Image          string           `json:"image"`
	Price          decimal.Decimal  `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"originalPrice,omitempty"`
	IsSubscription bool             `json:"isSubscription"`
}

// Identity returns the cart identity of the product
func (p Product) Identity() cartstore.Identity {
	return cartstore.Identity{ProductID: p.ID, Type: p.Type}
}

// ToCartLine builds a cart line. Prices only survive as display snapshots.
func (p Product) ToCartLine(qty int) cartstore.CartLine {
	snap := cartstore.DisplaySnapshot{
		Name:           p.Name,
		Image:          p.Image,
		DisplayedPrice: cartstore.NewDisplayPrice(p.Price),
	}
	if p.OriginalPrice != nil {
		orig := cartstore.NewDisplayPrice(*p.OriginalPrice)
		snap.OriginalPrice = &orig
	}
	return cartstore.CartLine{
		ProductID:      p.ID,
		Type:           p.Type,
		Quantity:       qty,
		IsSubscription: p.IsSubscription,
		Snapshot:       snap,
	}
}

type listResponse struct {
	Products []Product `json:"products"`
}

// Cache memoizes the first successful product fetch
type Cache struct {
	client *apiclient.Client
	logger *logrus.Logger
	static []Product
	flight singleflight.Group

	mu       sync.Mutex
	products []Product
	index    map[cartstore.Identity]Product
	gen      uint64
}

const flightKey = "products"

var (
	errRejected     = errors.New("product fetch rejected")
	errEmptyCatalog = errors.New("backend returned an empty catalog")
)

// Option configures a Cache
type Option func(*Cache)

// WithStatic sets the bundled table served while the backend is unreachable
func WithStatic(products []Product) Option {
	return func(c *Cache) { c.static = products }
}

func NewCache(client *apiclient.Client, logger *logrus.Logger, opts ...Option) *Cache {
	c := &Cache{client: client, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll returns the catalog. Concurrent callers share one fetch, and the
// lock is never held across the request. On failure it returns the static
// table, or an empty list when there is none; callers treat empty as
// temporarily unavailable, not as "no products".
func (c *Cache) FetchAll(ctx context.Context) []Product {
	if products, ok := c.cached(); ok {
		return products
	}

	// the shared fetch outlives any one caller; the client timeout bounds it
	ch := c.flight.DoChan(flightKey, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		c.logger.WithError(ctx.Err()).Debug("gave up waiting for products")
	case res := <-ch:
		if res.Err == nil {
			return copyProducts(res.Val.([]Product))
		}
	}
	return copyProducts(c.static)
}

func (c *Cache) cached() ([]Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.products == nil {
		return nil, false
	}
	return copyProducts(c.products), true
}

func (c *Cache) fetch(ctx context.Context) ([]Product, error) {
	c.mu.Lock()
	if c.products != nil {
		products := c.products
		c.mu.Unlock()
		return products, nil
	}
	gen := c.gen
	c.mu.Unlock()

	var out listResponse
	resp, err := c.client.Get(ctx, "/api/products", &out)
	switch {
	case err != nil:
		c.logger.WithError(err).Warn("failed to fetch products")
		return nil, err
	case !resp.OK():
		c.logger.WithFields(logrus.Fields{
			"status":  resp.Status,
			"message": resp.Message,
		}).Warn("product fetch rejected")
		return nil, errRejected
	case len(out.Products) == 0:
		c.logger.Warn("backend returned an empty catalog")
		return nil, errEmptyCatalog
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// an Invalidate during the request means the response may be stale
	if c.gen == gen {
		c.products = out.Products
		c.index = buildIndex(out.Products)
	}
	return out.Products, nil
}

// Invalidate drops the memoized catalog. A fetch already in flight is not
// memoized when it lands.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.products = nil
	c.index = nil
	c.gen++
	c.mu.Unlock()
	c.flight.Forget(flightKey)
}

// Lookup finds a product in the memoized catalog, then in the static table
func (c *Cache) Lookup(id int, t producttype.Type) (Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cartstore.Identity{ProductID: id, Type: t}
	if p, ok := c.index[key]; ok {
		return p, true
	}
	for _, p := range c.static {
		if p.Identity() == key {
			return p, true
		}
	}
	return Product{}, false
}

func copyProducts(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

func buildIndex(products []Product) map[cartstore.Identity]Product {
	index := make(map[cartstore.Identity]Product, len(products))
	for _, p := range products {
		index[p.Identity()] = p
	}
	return index
}

// LoadStatic reads a bundled table in the same {"products": [...]} shape the API serves
func LoadStatic(path string) ([]Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var out listResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("invalid catalog file: %w", err)
	}
	return out.Products, nil
}
