package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/compat"
	"github.com/xenking/storefront-cart/internal/storage/file"
	"github.com/xenking/storefront-cart/internal/storage/memory"
)

const records = `[
	{"ID": 1, "Nome": "Caderno", "Preço": "12,50", "quantidade": 3},
	{"codigo": "2", "titulo": "Lápis", "preco": 1.5},
	{"ID": 1, "Nome": "Caderno", "Preço": "12,50"},
	{"Nome": "Sem código"}
]`

func newTestImporter(t *testing.T, storage cart.Storage, maxQuantity int) *importer {
	t.Helper()
	return newImporter(context.Background(), storage, cart.Config{StorageKey: "cart", MaxQuantity: maxQuantity})
}

// failingStorage reads from an in-memory slot and rejects every write.
type failingStorage struct {
	cart.Storage
	saves int
}

func (s *failingStorage) Save(context.Context, string, []byte) error {
	s.saves++
	return errors.New("disk full")
}

// droppingStorage accepts writes but keeps only the first one.
type droppingStorage struct {
	cart.Storage
	written bool
}

func (s *droppingStorage) Save(ctx context.Context, key string, data []byte) error {
	if s.written {
		return nil
	}
	s.written = true
	return s.Storage.Save(ctx, key, data)
}

func TestImportRecords(t *testing.T) {
	dir := t.TempDir()
	storage, err := file.New(dir, false)
	require.NoError(t, err)

	im := newTestImporter(t, storage, 5)
	added, skipped, err := im.importRecords(context.Background(), strings.NewReader(records))
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, skipped, "duplicate and id-less records are skipped")
	assert.Equal(t, 4, im.store.TotalItems())

	reloaded := newTestImporter(t, storage, 5)
	items := reloaded.store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Caderno", items[0].Title)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "Lápis", items[1].Title)
}

func TestImportRecords_InvalidJSON(t *testing.T) {
	im := newTestImporter(t, memory.New(), 1)
	_, _, err := im.importRecords(context.Background(), strings.NewReader(`{"ID": 1}`))
	require.Error(t, err)
}

func TestImportRecords_SaveFailure(t *testing.T) {
	storage := &failingStorage{Storage: memory.New()}
	im := newTestImporter(t, storage, 1)

	added, skipped, err := im.importRecords(context.Background(), strings.NewReader(records))
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, skipped)
	assert.NotZero(t, storage.saves)
}

func TestImportRecords_SlotMismatch(t *testing.T) {
	im := newTestImporter(t, &droppingStorage{Storage: memory.New()}, 1)

	_, _, err := im.importRecords(context.Background(), strings.NewReader(records))
	require.Error(t, err)
	assert.ErrorContains(t, err, "holds 1 items, want 2")
}

func TestImportRecords_Empty(t *testing.T) {
	im := newTestImporter(t, memory.New(), 1)

	added, skipped, err := im.importRecords(context.Background(), strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, skipped)
}

func TestImportFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json.gz")
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(records))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	im := newTestImporter(t, memory.New(), 1)
	added, _, err := im.importFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, im.store.TotalItems(), "quantity is capped")
}

func TestQuantity(t *testing.T) {
	assert.Equal(t, 3, quantity(compat.Record{"Quantidade": float64(3)}))
	assert.Equal(t, 1, quantity(compat.Record{"quantidade": float64(0)}))
	assert.Equal(t, 1, quantity(compat.Record{}))
}
