// Command cart-import loads a JSON array of legacy product records into a
// cart storage slot, for example to restore a cart exported from the old
// storefront.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/compat"
	"github.com/xenking/storefront-cart/internal/storage/file"
	"github.com/xenking/storefront-cart/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	var (
		input       string
		driver      string
		dataDir     string
		compress    bool
		databaseURL string
		storageKey  string
		maxQuantity int
	)

	flag.StringVar(&input, "input", "cart.json", "legacy records file, gzip-compressed when it ends in .gz")
	flag.StringVar(&driver, "driver", "file", "target storage: file or postgres")
	flag.StringVar(&dataDir, "data-dir", "data", "directory for the file driver")
	flag.BoolVar(&compress, "compress", false, "gzip slot files (file driver)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&storageKey, "storage-key", cart.DefaultConfig().StorageKey, "storage slot to write")
	flag.IntVar(&maxQuantity, "max-quantity", 1, "maximum quantity of a single line item")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	lg, err := zap.NewProduction()
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	storage, closeStorage, err := openStorage(ctx, driver, dataDir, compress, databaseURL)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer closeStorage()

	im := newImporter(ctx, storage, cart.Config{StorageKey: storageKey, MaxQuantity: maxQuantity},
		cart.WithNotifier(slogNotifier{}),
		cart.WithLogger(lg.Named("cart")),
	)
	added, skipped, err := im.importFile(ctx, input)
	if err != nil {
		return err
	}

	slog.Info("import completed successfully",
		slog.Int("added", added),
		slog.Int("skipped", skipped),
		slog.Int("items", im.store.TotalItems()),
		slog.String("total", cart.FormatPrice(im.store.TotalValue())),
	)
	return nil
}

func openStorage(ctx context.Context, driver, dir string, compress bool, databaseURL string) (cart.Storage, func(), error) {
	switch driver {
	case "file":
		s, err := file.New(dir, compress)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open file storage")
		}
		return s, func() {}, nil
	case "postgres":
		if databaseURL == "" {
			return nil, nil, errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		slog.Info("connecting to database")
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect to database")
		}
		slog.Info("running migrations")
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewSlots(pool), pool.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown driver %q", driver)
	}
}

// checkedStorage remembers the first failed write. The store only logs save
// errors, so the importer reads them back from here.
type checkedStorage struct {
	cart.Storage

	mu  sync.Mutex
	err error
}

func (c *checkedStorage) Save(ctx context.Context, key string, data []byte) error {
	err := c.Storage.Save(ctx, key, data)
	if err != nil {
		c.mu.Lock()
		if c.err == nil {
			c.err = err
		}
		c.mu.Unlock()
	}
	return err
}

func (c *checkedStorage) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

type importer struct {
	store   *cart.Store
	facade  *compat.Facade
	storage *checkedStorage
	key     string
}

func newImporter(ctx context.Context, storage cart.Storage, cfg cart.Config, opts ...cart.Option) *importer {
	checked := &checkedStorage{Storage: storage}
	store := cart.NewStore(ctx, checked, cfg, opts...)
	return &importer{
		store:   store,
		facade:  compat.New(store, compat.DefaultConfig()),
		storage: checked,
		key:     cfg.StorageKey,
	}
}

func (im *importer) importFile(ctx context.Context, path string) (added, skipped int, err error) {
	slog.Info("reading records file", slog.String("path", path))

	fh, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "open records file")
	}
	defer func() { _ = fh.Close() }()

	var r io.Reader = fh
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(fh)
		if err != nil {
			return 0, 0, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return im.importRecords(ctx, r)
}

// importRecords adds every record in the JSON array read from r. Records the
// store rejects, such as duplicates, are counted as skipped. The import fails
// when any write to the slot failed or the slot does not hold what the store
// holds afterwards.
func (im *importer) importRecords(ctx context.Context, r io.Reader) (added, skipped int, err error) {
	var records []compat.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, 0, errors.Wrap(err, "parse records JSON")
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return added, skipped, err
		}
		if im.facade.Add(ctx, rec, quantity(rec)) {
			added++
			continue
		}
		skipped++
	}

	if err := im.storage.Err(); err != nil {
		return added, skipped, errors.Wrap(err, "write storage slot")
	}
	if err := im.verify(ctx); err != nil {
		return added, skipped, err
	}
	return added, skipped, nil
}

// verify reloads the slot and compares it with the store's items.
func (im *importer) verify(ctx context.Context) error {
	want := len(im.store.Items())
	data, err := im.storage.Load(ctx, im.key)
	switch {
	case errors.Is(err, cart.ErrNotFound) && want == 0:
		return nil
	case err != nil:
		return errors.Wrap(err, "reload storage slot")
	}

	var stored []json.RawMessage
	if err := json.Unmarshal(data, &stored); err != nil {
		return errors.Wrap(err, "decode storage slot")
	}
	if len(stored) != want {
		return errors.Errorf("storage slot holds %d items, want %d", len(stored), want)
	}
	return nil
}

// quantity reads the legacy quantity field, defaulting to 1.
func quantity(rec compat.Record) int {
	for k, v := range rec {
		if compat.FoldKey(k) != compat.FoldKey(compat.KeyQuantity) {
			continue
		}
		if n, ok := v.(float64); ok && n >= 1 {
			return int(n)
		}
	}
	return 1
}

// slogNotifier reports store notifications on the command log.
type slogNotifier struct{}

func (slogNotifier) Notify(message string, severity cart.Severity) {
	switch severity {
	case cart.SeverityError, cart.SeverityWarning:
		slog.Warn(message)
	default:
		slog.Debug(message)
	}
}
