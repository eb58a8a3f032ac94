// cmd/storefront/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/infrastructure/database/redis"
	"github.com/your-org/fruitbox/internal/pkg/logger"
	"github.com/your-org/fruitbox/internal/storefront/apiclient"
	"github.com/your-org/fruitbox/internal/storefront/cartstore"
	"github.com/your-org/fruitbox/internal/storefront/catalog"
	"github.com/your-org/fruitbox/internal/storefront/coupon"
	"github.com/your-org/fruitbox/internal/storefront/events"
	"github.com/your-org/fruitbox/internal/storefront/order"
	"github.com/your-org/fruitbox/internal/storefront/payment"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  products                       list the catalog
  add <type> <id> [qty]          add an item to the cart
  qty <type> <id> <n>            set a quantity (0 removes)
  remove <type> <id>             remove an item
  cart                           show the cart
  clear                          empty the cart
  wishlist [<type> <id>]         show the wishlist, or toggle an item
  coupon <code>                  price the cart with a coupon
  login <user-id> <token>        sign in with a token from the auth provider
  staff-login <email> <password> sign in to the partner or admin console
  logout                         sign out
  checkout [checkout flags]      place the order and pay
`

type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	client   *apiclient.Client
	bus      *events.Bus
	session  *cartstore.Session
	cart     *cartstore.Cart
	wishlist *cartstore.Wishlist
	catalog  *catalog.Cache
	closers  []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("storefront", flag.ExitOnError)
	apiURL := fs.String("api", cfg.Storefront.APIURL, "backend base URL")
	storage := fs.String("storage", cfg.Storefront.Storage, "cart storage: file, redis or memory")
	catalogFile := fs.String("catalog-file", "", "bundled catalog served when the backend is down")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage, "\nflags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg.Storefront.APIURL = *apiURL
	cfg.Storefront.Storage = *storage
	cfg.Logging.Format = "text"
	if *verbose {
		cfg.Logging.Level = "debug"
	} else {
		cfg.Logging.Level = "warn"
	}
	log := logger.NewWithOutput(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, *catalogFile)
	if err != nil {
		log.WithError(err).Fatal("failed to start storefront")
	}
	defer a.close()

	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		a.close()
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger, catalogFile string) (*app, error) {
	a := &app{cfg: cfg, log: log, bus: events.NewBus()}

	var store cartstore.Storage
	switch cfg.Storefront.Storage {
	case "memory":
		store = cartstore.NewMemoryStorage()
	case "redis":
		rc, err := redis.NewConnection(cfg, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		store = cartstore.NewRedisStorage(rc.GetClient(), cfg.Storefront.DeviceID, cfg.Storefront.StorageTTL)
	default:
		store = cartstore.NewFileStorage(cfg.Storefront.StoragePath)
	}

	a.session = cartstore.NewSession(store, a.bus, log)
	a.client = apiclient.New(cfg.Storefront.APIURL, log,
		apiclient.WithTimeout(cfg.Storefront.RequestTimeout),
		apiclient.WithTokenSource(func(ctx context.Context) string {
			if tok := a.session.Token(ctx); tok != "" {
				return tok
			}
			return cfg.Storefront.Token
		}),
	)
	a.cart = cartstore.NewCart(ctx, store, a.bus, log)
	a.wishlist = cartstore.NewWishlist(ctx, store, a.session, a.bus, log)

	var opts []catalog.Option
	if catalogFile != "" {
		static, err := catalog.LoadStatic(catalogFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, catalog.WithStatic(static))
	}
	a.catalog = catalog.NewCache(a.client, log, opts...)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

func (a *app) newCheckout(widget payment.Widget) *payment.Checkout {
	bridge := payment.NewBridge(a.client, widget, a.cart, a.log)
	return payment.NewCheckout(order.NewComposer(a.client, a.log), bridge, a.cart, a.log)
}

func (a *app) newTracker() *coupon.Tracker {
	return coupon.NewTracker(coupon.NewEvaluator(a.client, a.log), a.cart, a.bus)
}
