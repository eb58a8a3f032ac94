// internal/storefront/cartstore/cart.go
package cartstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/storefront/events"
)

// Cart is the shopper's local cart. Every mutation is persisted and
// announced on the bus before the method returns.
type Cart struct {
	mu       sync.Mutex
	lines    []CartLine
	revision uint64

	storage Storage
	bus     *events.Bus
	logger  *logrus.Logger
}

// NewCart loads the cart from storage. Unreadable data yields an empty cart.
func NewCart(ctx context.Context, storage Storage, bus *events.Bus, logger *logrus.Logger) *Cart {
	c := &Cart{
		storage: storage,
		bus:     bus,
		logger:  logger,
	}
	c.lines = c.load(ctx)
	return c
}

func (c *Cart) load(ctx context.Context) []CartLine {
	raw, ok, err := c.storage.Get(ctx, KeyCart)
	if err != nil {
		c.logger.WithError(err).Warn("failed to read stored cart")
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.WithError(err).Warn("stored cart is corrupt, starting empty")
		return nil
	}

	lines := make([]CartLine, 0, len(entries))
	for _, entry := range entries {
		line, ok := decodeStoredLine(entry)
		if !ok {
			c.logger.WithField("entry", string(entry)).Debug("dropping unreadable cart line")
			continue
		}
		lines = mergeLine(lines, line)
	}
	return lines
}

func mergeLine(lines []CartLine, line CartLine) []CartLine {
	for i := range lines {
		if lines[i].Identity() == line.Identity() {
			lines[i].Quantity += line.Quantity
			return lines
		}
	}
	return append(lines, line)
}

// Add puts line in the cart, or increases the quantity of the existing line
// with the same identity
func (c *Cart) Add(ctx context.Context, line CartLine) error {
	if line.ProductID <= 0 {
		return ErrInvalidID
	}
	if !line.Type.Valid() {
		return ErrInvalidType
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = mergeLine(c.lines, line)
	c.commit(ctx)
	return nil
}

// SetQuantity sets the quantity of an existing line. n <= 0 removes it.
func (c *Cart) SetQuantity(ctx context.Context, id Identity, n int) error {
	if n <= 0 {
		c.Remove(ctx, id)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return ErrNotInCart
	}
	if c.lines[i].Quantity == n {
		return nil
	}
	c.lines[i].Quantity = n
	c.commit(ctx)
	return nil
}

// Remove drops the line with the given identity. Removing a missing line is a no-op.
func (c *Cart) Remove(ctx context.Context, id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.commit(ctx)
}

// Clear empties the cart
func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.commit(ctx)
}

// List returns a copy of the cart lines
func (c *Cart) List() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Snapshot returns a copy of the lines together with the revision they belong to
func (c *Cart) Snapshot() ([]CartLine, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out, c.revision
}

// TotalQuantity is the badge count
func (c *Cart) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

// Revision increases on every mutation
func (c *Cart) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

func (c *Cart) indexOf(id Identity) int {
	for i := range c.lines {
		if c.lines[i].Identity() == id {
			return i
		}
	}
	return -1
}

func (c *Cart) totalLocked() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// commit must be called with mu held
func (c *Cart) commit(ctx context.Context) {
	c.revision++

	lines := c.lines
	if lines == nil {
		lines = []CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err == nil {
		err = c.storage.Set(ctx, KeyCart, string(raw))
	}
	if err != nil {
		// the in-memory cart stays authoritative for this session
		c.logger.WithError(err).Warn("failed to persist cart")
	}

	c.bus.Publish(events.CartUpdated, CartChange{
		Revision:      c.revision,
		TotalQuantity: c.totalLocked(),
	})
}
