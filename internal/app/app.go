package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/checkout"
	"github.com/xenking/storefront-cart/internal/domain/compat"
	"github.com/xenking/storefront-cart/internal/gateway"
	"github.com/xenking/storefront-cart/internal/handler"
	"github.com/xenking/storefront-cart/internal/storage/file"
	"github.com/xenking/storefront-cart/internal/storage/memory"
	"github.com/xenking/storefront-cart/internal/storage/postgres"
	"github.com/xenking/storefront-cart/internal/widget"
	"github.com/xenking/storefront-cart/pkg/health"
	"github.com/xenking/storefront-cart/pkg/httpmiddleware"
)

// slotStorage is a cart storage backend that can be probed.
type slotStorage interface {
	cart.Storage
	health.Pinger
}

// backend is the opened storage plus the optional receipt journal.
type backend struct {
	storage slotStorage
	journal *postgres.Journal
	close   func()
}

func openBackend(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*backend, error) {
	switch cfg.Driver {
	case DriverFile:
		s, err := file.New(cfg.Dir, cfg.Compress)
		if err != nil {
			return nil, errors.Wrap(err, "open file storage")
		}
		lg.Info("Using file storage", zap.String("dir", cfg.Dir), zap.Bool("compress", cfg.Compress))
		return &backend{storage: s, close: func() {}}, nil
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		lg.Info("Using postgres storage")
		return &backend{
			storage: postgres.NewSlots(pool),
			journal: postgres.NewJournal(pool),
			close:   pool.Close,
		}, nil
	default:
		lg.Warn("Using in-memory storage, the cart is lost on restart")
		return &backend{storage: memory.New(), close: func() {}}, nil
	}
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("gateway", cfg.Gateway.Kind),
	)

	be, err := openBackend(ctx, lg, cfg.Storage)
	if err != nil {
		return err
	}
	defer be.close()

	gw, err := gateway.New(cfg.Gateway,
		gateway.WithTracerProvider(m.TracerProvider()),
		gateway.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create gateway")
	}

	opts := []widget.Option{
		widget.WithLogger(lg),
		widget.WithTracerProvider(m.TracerProvider()),
		widget.WithMeterProvider(m.MeterProvider()),
	}
	var handlerOpts []handler.Option
	if be.journal != nil {
		opts = append(opts, widget.WithJournal(be.journal))
		handlerOpts = append(handlerOpts, handler.WithReceipts(be.journal))
	}

	// Hydration happens here, before the server accepts requests.
	w, err := widget.New(ctx, be.storage, gw, widget.Config{
		Cart: cart.Config{
			StorageKey:  cfg.Cart.StorageKey,
			MaxQuantity: cfg.Cart.MaxQuantity,
		},
		Checkout: checkout.Config{
			Currency:  cfg.Checkout.Currency,
			Timeout:   cfg.Checkout.Timeout,
			PayLabel:  cfg.Checkout.PayLabel,
			BusyLabel: cfg.Checkout.BusyLabel,
		},
		Compat: compat.Config{
			PlaceholderImage: cfg.Cart.PlaceholderImage,
			DefaultName:      cfg.Cart.DefaultName,
		},
		DismissDelay: cfg.Notify.DismissDelay,
	}, opts...)
	if err != nil {
		return errors.Wrap(err, "create widget")
	}
	lg.Info("Cart hydrated", zap.Int("items", w.Store.TotalItems()))

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(be.storage))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	api := otelhttp.NewHandler(handler.New(w, handlerOpts...), "cart-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Pay waits for the gateway.
		WriteTimeout:   cfg.Checkout.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(cfg.CORS),
			httpmiddleware.Throttle(cfg.Throttle),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gctx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
