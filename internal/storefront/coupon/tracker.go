// internal/storefront/coupon/tracker.go
package coupon

import (
	"context"
	"sync"

	"github.com/your-org/fruitbox/internal/storefront/cartstore"
	"github.com/your-org/fruitbox/internal/storefront/events"
)

// CartSource is the part of the cart the tracker reads
type CartSource interface {
	Snapshot() ([]cartstore.CartLine, uint64)
	Revision() uint64
}

// Tracker holds the applied coupon shown at checkout. Any cart edit clears
// it, and a response that arrives after a newer request, or after the cart
// changed, is discarded.
type Tracker struct {
	eval *Evaluator
	cart CartSource

	mu         sync.Mutex
	seq        uint64
	applied    *Applied
	appliedRev uint64

	stop func()
	done chan struct{}
}

// NewTracker starts watching bus for cart changes. Call Close when done.
func NewTracker(eval *Evaluator, cart CartSource, bus *events.Bus) *Tracker {
	t := &Tracker{
		eval: eval,
		cart: cart,
		done: make(chan struct{}),
	}

	if bus == nil {
		close(t.done)
		t.stop = func() {}
		return t
	}

	ch, cancel := bus.Subscribe(events.CartUpdated)
	t.stop = cancel
	go func() {
		defer close(t.done)
		for ev := range ch {
			change, ok := ev.Detail.(cartstore.CartChange)
			if !ok {
				continue
			}
			t.mu.Lock()
			if t.applied != nil && change.Revision > t.appliedRev {
				t.applied = nil
			}
			t.mu.Unlock()
		}
	}()
	return t
}

// Apply validates code against the current cart and, if the answer is still
// current, replaces the applied coupon. A rejected code leaves the previous
// coupon in place.
func (t *Tracker) Apply(ctx context.Context, code string) (*Applied, error) {
	lines, rev := t.cart.Snapshot()

	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	applied, err := t.eval.Apply(ctx, code, lines)

	t.mu.Lock()
	defer t.mu.Unlock()

	if seq != t.seq || t.cart.Revision() != rev {
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, err
	}

	t.applied = applied
	t.appliedRev = rev
	return applied, nil
}

// Current returns the applied coupon, or nil when none applies to the cart as it is now
func (t *Tracker) Current() *Applied {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.applied != nil && t.cart.Revision() != t.appliedRev {
		t.applied = nil
	}
	return t.applied
}

// Code returns the applied code, or ""
func (t *Tracker) Code() string {
	if a := t.Current(); a != nil {
		return a.Code
	}
	return ""
}

// Clear drops the applied coupon and invalidates any request in flight
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.applied = nil
}

// Close stops watching the cart
func (t *Tracker) Close() {
	t.stop()
	<-t.done
}
