// Package file implements cart slot storage as one file per slot, optionally
// gzip-compressed.
package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

var _ cart.Storage = (*Storage)(nil)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Storage stores each slot in <dir>/<key>.json, or <dir>/<key>.json.gz when
// compression is enabled. Writes go through a temporary file and a rename,
// so readers never observe a partial slot.
type Storage struct {
	dir      string
	compress bool
}

// New creates the directory if needed and returns a Storage rooted at it.
func New(dir string, compress bool) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating storage dir %q: %w", dir, err)
	}
	return &Storage{dir: dir, compress: compress}, nil
}

func (s *Storage) path(key string) (string, error) {
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return "", errors.Errorf("invalid slot key %q", key)
	}
	name := key + ".json"
	if s.compress {
		name += ".gz"
	}
	return filepath.Join(s.dir, name), nil
}

// Load reads the slot, or returns cart.ErrNotFound.
func (s *Storage) Load(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("reading slot %q: %w", key, err)
	}
	if !s.compress {
		return data, nil
	}

	zr, err := pgzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening compressed slot %q: %w", key, err)
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing slot %q: %w", key, err)
	}
	return out, nil
}

// Save atomically replaces the slot.
func (s *Storage) Save(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for slot %q: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := s.write(tmp, data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing slot %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing slot %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replacing slot %q: %w", key, err)
	}
	return nil
}

func (s *Storage) write(w io.Writer, data []byte) error {
	if !s.compress {
		_, err := w.Write(data)
		return err
	}
	zw := pgzip.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// Ping checks that the storage directory is still accessible.
func (s *Storage) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat storage dir: %w", err)
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
