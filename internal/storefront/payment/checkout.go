// internal/storefront/payment/checkout.go
package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/storefront/cartstore"
	"github.com/your-org/fruitbox/internal/storefront/order"
)

// State is where a checkout attempt is
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingOrderCreation State = "awaiting_order_creation"
	StateWidgetOpen            State = "widget_open"
	StateVerifyingPayment      State = "verifying_payment"
	StateConfirmed             State = "confirmed"
	StateFailed                State = "failed"
	StateCancelled             State = "cancelled"
)

// ErrCheckoutInProgress is returned by Run while another attempt is running
var ErrCheckoutInProgress = errors.New("checkout already in progress")

// OrderComposer creates the backend order for a checkout
type OrderComposer interface {
	CreateOrder(ctx context.Context, raw []order.RawLine, customerID string, details order.CustomerDetails, couponCode string) (*order.PaymentIntent, error)
}

// CartReader is what Checkout reads from the cart
type CartReader interface {
	List() []cartstore.CartLine
}

// Request is one checkout attempt's input
type Request struct {
	CustomerID string
	Details    order.CustomerDetails
	CouponCode string
}

// Checkout drives one attempt at a time through
// Idle → AwaitingOrderCreation → WidgetOpen → VerifyingPayment → Confirmed,
// falling back to Idle through Failed or Cancelled.
type Checkout struct {
	composer OrderComposer
	bridge   *Bridge
	cart     CartReader
	logger   *logrus.Logger

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	observers []func(from, to State)
}

func NewCheckout(composer OrderComposer, bridge *Bridge, cart CartReader, logger *logrus.Logger) *Checkout {
	return &Checkout{
		composer: composer,
		bridge:   bridge,
		cart:     cart,
		logger:   logger,
		state:    StateIdle,
	}
}

// OnTransition registers fn to be called on every state change. fn runs
// with the checkout locked and must not call back into it.
func (c *Checkout) OnTransition(fn func(from, to State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Abort cancels the running attempt. A late order or payment response is
// then discarded and the cart is left as it was.
func (c *Checkout) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Run performs one checkout attempt. It returns the confirmation, or the
// error that sent the attempt back to Idle.
func (c *Checkout) Run(ctx context.Context, req Request) (*Confirmation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.state != StateIdle && c.state != StateConfirmed {
		c.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	c.cancel = cancel
	c.transitionLocked(StateAwaitingOrderCreation)
	c.mu.Unlock()

	intent, err := c.composer.CreateOrder(ctx, order.FromCart(c.cart.List()), req.CustomerID, req.Details, req.CouponCode)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	if !c.advance(ctx, StateWidgetOpen) {
		return nil, c.fail(ctx, ctx.Err())
	}

	conf, err := c.bridge.pay(ctx, intent, func() {
		c.advance(ctx, StateVerifyingPayment)
	})
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	c.mu.Lock()
	c.cancel = nil
	c.transitionLocked(StateConfirmed)
	c.mu.Unlock()

	c.logger.WithField("order_number", conf.OrderNumber).Info("checkout confirmed")
	return conf, nil
}

// advance moves to next unless the attempt was aborted
func (c *Checkout) advance(ctx context.Context, next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	c.transitionLocked(next)
	return true
}

func (c *Checkout) fail(ctx context.Context, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := StateFailed
	if errors.Is(err, ErrDismissed) || ctx.Err() != nil {
		end = StateCancelled
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}

	c.logger.WithError(err).WithField("state", c.state).Info("checkout attempt ended")
	c.cancel = nil
	c.transitionLocked(end)
	c.transitionLocked(StateIdle)
	return err
}

func (c *Checkout) transitionLocked(next State) {
	prev := c.state
	c.state = next
	for _, fn := range c.observers {
		fn(prev, next)
	}
}
