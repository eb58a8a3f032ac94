// cmd/storefront/commands.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"github.com/your-org/fruitbox/internal/storefront/cartstore"
	"github.com/your-org/fruitbox/internal/storefront/coupon"
	"github.com/your-org/fruitbox/internal/storefront/order"
	"github.com/your-org/fruitbox/internal/storefront/payment"
)

var errUsage = errors.New("invalid arguments")

var out io.Writer = os.Stdout

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "products":
		return a.products(ctx)
	case "add":
		return a.add(ctx, args)
	case "qty":
		return a.setQuantity(ctx, args)
	case "remove":
		id, err := parseIdentity(args)
		if err != nil {
			return err
		}
		a.cart.Remove(ctx, id)
		return a.showCart()
	case "cart":
		return a.showCart()
	case "clear":
		a.cart.Clear(ctx)
		return a.showCart()
	case "wishlist":
		return a.toggleWishlist(ctx, args)
	case "coupon":
		return a.applyCoupon(ctx, args)
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		return a.session.SetUser(ctx, args[0], "customer", args[1])
	case "staff-login":
		return a.staffLogin(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "checkout":
		return a.checkout(ctx, args)
	}
	return errUsage
}

func parseIdentity(args []string) (cartstore.Identity, error) {
	if len(args) < 2 {
		return cartstore.Identity{}, errUsage
	}
	t, err := producttype.Parse(args[0])
	if err != nil {
		return cartstore.Identity{}, err
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return cartstore.Identity{}, fmt.Errorf("invalid product id %q", args[1])
	}
	return cartstore.Identity{ProductID: id, Type: t}, nil
}

func (a *app) products(ctx context.Context) error {
	products := a.catalog.FetchAll(ctx)
	if len(products) == 0 {
		return errors.New("the catalog is temporarily unavailable, try again shortly")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tNAME\tPRICE")
	for _, p := range products {
		price := "₹" + p.Price.StringFixed(2)
		if p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price) {
			price += " (was ₹" + p.OriginalPrice.StringFixed(2) + ")"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Type, p.ID, p.Name, price)
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	id, err := parseIdentity(args)
	if err != nil {
		return err
	}
	qty := 1
	if len(args) > 2 {
		if qty, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("invalid quantity %q", args[2])
		}
	}

	a.catalog.FetchAll(ctx)
	p, ok := a.catalog.Lookup(id.ProductID, id.Type)
	if !ok {
		return fmt.Errorf("no %s with id %d in the catalog", id.Type, id.ProductID)
	}
	if err := a.cart.Add(ctx, p.ToCartLine(qty)); err != nil {
		return err
	}
	return a.showCart()
}

func (a *app) setQuantity(ctx context.Context, args []string) error {
	id, err := parseIdentity(args)
	if err != nil {
		return err
	}
	if len(args) != 3 {
		return errUsage
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[2])
	}
	if err := a.cart.SetQuantity(ctx, id, n); err != nil {
		return err
	}
	return a.showCart()
}

func (a *app) showCart() error {
	lines := a.cart.List()
	if len(lines) == 0 {
		fmt.Fprintln(out, "Your cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tNAME\tQTY\tSHOWN PRICE")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", l.Type, l.ProductID, l.Snapshot.Name, l.Quantity, l.Snapshot.DisplayedPrice)
	}
	fmt.Fprintf(tw, "\t\t\t%d items\t\n", a.cart.TotalQuantity())
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Prices are confirmed at checkout.")
	return nil
}

func (a *app) toggleWishlist(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, e := range a.wishlist.List() {
			fmt.Fprintf(out, "%s %d %s\n", e.Type, e.ProductID, e.Snapshot.Name)
		}
		return nil
	}

	id, err := parseIdentity(args)
	if err != nil {
		return err
	}
	entry := cartstore.WishlistEntry{ProductID: id.ProductID, Type: id.Type}
	a.catalog.FetchAll(ctx)
	if p, ok := a.catalog.Lookup(id.ProductID, id.Type); ok {
		entry.Snapshot = p.ToCartLine(1).Snapshot
	}

	added, err := a.wishlist.Toggle(ctx, entry)
	if errors.Is(err, cartstore.ErrLoginRequired) {
		return errors.New("please log in to use your wishlist")
	}
	if err != nil {
		return err
	}
	if added {
		fmt.Fprintln(out, "Added to wishlist")
	} else {
		fmt.Fprintln(out, "Removed from wishlist")
	}
	return nil
}

func (a *app) applyCoupon(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	tracker := a.newTracker()
	defer tracker.Close()

	applied, err := tracker.Apply(ctx, args[0])
	if err != nil {
		return couponMessage(err)
	}
	printApplied(applied)
	return nil
}

func couponMessage(err error) error {
	var cerr *coupon.Error
	if !errors.As(err, &cerr) {
		return err
	}
	if cerr.Reason != coupon.ReasonNotEligible || len(cerr.EligibleProducts) == 0 {
		return cerr
	}
	msg := cerr.Message + "\nValid for:"
	for _, p := range cerr.EligibleProducts {
		msg += fmt.Sprintf("\n  %s %d %s", p.Type, p.ID, p.Name)
	}
	return errors.New(msg)
}

func printApplied(applied *coupon.Applied) {
	fmt.Fprintf(out, "Coupon %s applied\n", applied.Code)
	fmt.Fprintf(out, "  subtotal: ₹%s\n", applied.OriginalTotal.StringFixed(2))
	fmt.Fprintf(out, "  discount: -₹%s\n", applied.DiscountAmount.StringFixed(2))
	fmt.Fprintf(out, "  total:    ₹%s\n", applied.FinalTotal.StringFixed(2))
}

func (a *app) staffLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	var res struct {
		Account struct {
			ID   uint   `json:"id"`
			Role string `json:"role"`
		} `json:"account"`
		AccessToken string `json:"accessToken"`
	}
	resp, err := a.client.Post(ctx, "/api/auth/staff/login", map[string]string{
		"email":    args[0],
		"password": args[1],
	}, &res)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return errors.New(resp.Message)
	}

	if err := a.session.SetUser(ctx, strconv.FormatUint(uint64(res.Account.ID), 10), res.Account.Role, res.AccessToken); err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s\n", res.Account.Role)
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	var details order.CustomerDetails
	fs.StringVar(&details.Name, "name", "", "full name")
	fs.StringVar(&details.Email, "email", "", "email")
	fs.StringVar(&details.Phone, "phone", "", "phone")
	fs.StringVar(&details.AddressLine1, "address", "", "address line 1")
	fs.StringVar(&details.AddressLine2, "address2", "", "address line 2")
	fs.StringVar(&details.City, "city", "", "city")
	fs.StringVar(&details.State, "state", "", "state")
	fs.StringVar(&details.Pincode, "pincode", "", "pincode")
	code := fs.String("coupon", "", "coupon code")
	testMode := fs.Bool("test-mode", false, "complete payment with the gateway test secret")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	customerID := a.session.UserID(ctx)
	if customerID == "" {
		return errors.New("please log in before checking out")
	}

	couponCode := ""
	if *code != "" {
		tracker := a.newTracker()
		applied, err := tracker.Apply(ctx, *code)
		if err != nil {
			tracker.Close()
			return couponMessage(err)
		}
		printApplied(applied)
		couponCode = tracker.Code()
		tracker.Close()
	}

	var widget payment.Widget = payment.NewTerminalWidget(os.Stdin, out)
	if *testMode {
		if a.cfg.IsProduction() {
			return errors.New("test mode is not available in production")
		}
		widget = payment.NewTestModeWidget(a.cfg.Razorpay.KeySecret)
	}

	co := a.newCheckout(widget)
	co.OnTransition(func(_, to payment.State) {
		a.log.WithField("state", to).Debug("checkout")
	})

	conf, err := co.Run(ctx, payment.Request{
		CustomerID: customerID,
		Details:    details,
		CouponCode: couponCode,
	})
	switch {
	case errors.Is(err, payment.ErrDismissed):
		return errors.New("Payment cancelled. Your cart has been kept.")
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "Order %s confirmed (payment %s)\n", conf.OrderNumber, conf.PaymentID)
	if len(conf.SubscriptionIDs) > 0 {
		fmt.Fprintf(out, "Subscriptions started: %v\n", conf.SubscriptionIDs)
	}
	return nil
}
