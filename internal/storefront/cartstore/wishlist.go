// internal/storefront/cartstore/wishlist.go
package cartstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/storefront/events"
)

// Wishlist is the shopper's saved items. Changes need a signed-in user.
type Wishlist struct {
	mu      sync.Mutex
	entries []WishlistEntry

	session *Session
	storage Storage
	bus     *events.Bus
	logger  *logrus.Logger
}

func NewWishlist(ctx context.Context, storage Storage, session *Session, bus *events.Bus, logger *logrus.Logger) *Wishlist {
	w := &Wishlist{
		session: session,
		storage: storage,
		bus:     bus,
		logger:  logger,
	}

	raw, ok, err := storage.Get(ctx, KeyWishlist)
	switch {
	case err != nil:
		logger.WithError(err).Warn("failed to read stored wishlist")
	case ok && raw != "":
		var entries []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			logger.WithError(err).Warn("stored wishlist is corrupt, starting empty")
			break
		}
		for _, entry := range entries {
			line, ok := decodeStoredLine(entry)
			if !ok {
				logger.WithField("entry", string(entry)).Debug("dropping unreadable wishlist entry")
				continue
			}
			if w.indexOf(line.Identity()) >= 0 {
				continue
			}
			w.entries = append(w.entries, WishlistEntry{
				ProductID: line.ProductID,
				Type:      line.Type,
				Snapshot:  line.Snapshot,
			})
		}
	}
	return w
}

// Toggle adds the entry if absent and removes it if present. It reports
// whether the entry is in the wishlist afterwards.
func (w *Wishlist) Toggle(ctx context.Context, entry WishlistEntry) (bool, error) {
	if w.session.UserID(ctx) == "" {
		return false, ErrLoginRequired
	}
	if entry.ProductID <= 0 {
		return false, ErrInvalidID
	}
	if !entry.Type.Valid() {
		return false, ErrInvalidType
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	added := true
	if i := w.indexOf(entry.Identity()); i >= 0 {
		w.entries = append(w.entries[:i], w.entries[i+1:]...)
		added = false
	} else {
		w.entries = append(w.entries, entry)
	}

	entries := w.entries
	if entries == nil {
		entries = []WishlistEntry{}
	}
	raw, err := json.Marshal(entries)
	if err == nil {
		err = w.storage.Set(ctx, KeyWishlist, string(raw))
	}
	if err != nil {
		w.logger.WithError(err).Warn("failed to persist wishlist")
	}

	w.bus.Publish(events.WishlistUpdated, len(w.entries))
	return added, nil
}

// List returns a copy of the wishlist
func (w *Wishlist) List() []WishlistEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]WishlistEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

func (w *Wishlist) Contains(id Identity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexOf(id) >= 0
}

func (w *Wishlist) indexOf(id Identity) int {
	for i := range w.entries {
		if w.entries[i].Identity() == id {
			return i
		}
	}
	return -1
}
