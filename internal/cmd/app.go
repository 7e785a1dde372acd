package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/pharma-storefront/internal/auth"
	"github.com/egannguyen/pharma-storefront/internal/config"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
	"github.com/egannguyen/pharma-storefront/internal/messaging/inproc"
	"github.com/egannguyen/pharma-storefront/internal/messaging/kafka"
	"github.com/egannguyen/pharma-storefront/internal/metrics"
	"github.com/egannguyen/pharma-storefront/internal/pricing"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/egannguyen/pharma-storefront/internal/repository/jsonfile"
	"github.com/egannguyen/pharma-storefront/internal/repository/memory"
	"github.com/egannguyen/pharma-storefront/internal/repository/postgres"
	"github.com/egannguyen/pharma-storefront/internal/repository/redisstore"
	"github.com/egannguyen/pharma-storefront/internal/service"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// app holds the collaborators built from a Config.
type app struct {
	cfg       *config.Config
	gateway   repository.Gateway
	carts     repository.CartStore
	db        *sql.DB
	bus       *inproc.Bus
	publisher messaging.Publisher
	hasher    auth.Hasher
	tokens    *auth.Tokens
	closers   []func() error
}

// newApp opens the configured stores. Publishers are attached by withEvents.
func newApp(ctx context.Context, cfg *config.Config, fs afero.Fs) (*app, error) {
	a := &app{
		cfg:       cfg,
		publisher: messaging.Nop{},
		hasher:    auth.NewHasher(cfg.Auth.BcryptCost),
		tokens:    auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	}

	if err := a.openGateway(ctx, fs); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCarts(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openGateway(ctx context.Context, fs afero.Fs) error {
	switch a.cfg.Storage.Driver {
	case "memory":
		a.gateway = memory.NewGateway()
	case "jsonfile":
		gw, err := jsonfile.Open(fs, a.cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open json store: %w", err)
		}
		a.gateway = gw
	case "postgres":
		db, err := postgres.InitDB(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return err
		}
		a.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return err
		}
		a.gateway = postgres.NewGateway(db)
	default:
		return fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
	a.closers = append(a.closers, a.gateway.Close)
	slog.Info("Storage ready", "driver", a.cfg.Storage.Driver)
	return nil
}

func (a *app) openCarts(ctx context.Context) error {
	switch a.cfg.Cart.Driver {
	case "memory":
		a.carts = memory.NewCartStore()
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.carts = redisstore.NewCartStore(client, a.cfg.Cart.TTL)
	default:
		return fmt.Errorf("unknown cart driver %q", a.cfg.Cart.Driver)
	}
	slog.Info("Cart store ready", "driver", a.cfg.Cart.Driver)
	return nil
}

// withEvents attaches the in-process bus, Kafka when brokers are set, and the
// postgres audit log. Events are counted on m when it is not nil.
func (a *app) withEvents(m *metrics.ServerMetrics) {
	a.bus = inproc.NewBus(slog.Default())
	a.closers = append(a.closers, a.bus.Close)
	fanout := messaging.Fanout{a.bus}

	if len(a.cfg.Kafka.Brokers) > 0 {
		broker := kafka.NewKafkaBroker(a.cfg.Kafka.Brokers)
		a.closers = append(a.closers, broker.Close)
		fanout = append(fanout, broker)
		slog.Info("Kafka publishing enabled", "brokers", a.cfg.Kafka.Brokers)
	}
	if a.db != nil {
		fanout = append(fanout, postgres.NewEventLog(a.db))
	}

	a.publisher = fanout
	if m != nil {
		a.publisher = m.Instrument(fanout)
	}
}

func (a *app) policy() pricing.Policy {
	return pricing.Policy{
		FreeDeliveryThreshold: a.cfg.Pricing.FreeDeliveryThreshold,
		FlatDeliveryFee:       a.cfg.Pricing.FlatDeliveryFee,
	}
}

func (a *app) orderService() *service.OrderService {
	return service.NewOrderService(a.gateway, a.gateway, a.carts, a.publisher, a.policy())
}

func (a *app) cartService() *service.CartService {
	return service.NewCartService(a.carts, a.gateway, a.policy())
}

func (a *app) productService() *service.ProductService {
	return service.NewProductService(a.gateway)
}

func (a *app) userService() *service.UserService {
	return service.NewUserService(a.gateway, a.hasher, a.tokens)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
