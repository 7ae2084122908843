package store

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"

	"quietpost/pkg/logger"
)

// keyPrefix namespaces blob names inside the pebble keyspace.
const keyPrefix = "blob:"

// PebbleBlobs is the local key-value backend. One blob name maps to one
// pebble key; writes are synced so a committed put survives a crash.
type PebbleBlobs struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble database at the given path.
func OpenPebble(path string) (*PebbleBlobs, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &PebbleBlobs{db: db}, nil
}

func (p *PebbleBlobs) Get(ctx context.Context, name string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(keyPrefix + name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		logger.Error("pebble_get_failed", "name", name, "error", err)
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}

func (p *PebbleBlobs) Put(ctx context.Context, name string, data []byte) error {
	if err := p.db.Set([]byte(keyPrefix+name), data, pebble.Sync); err != nil {
		logger.Error("pebble_put_failed", "name", name, "error", err)
		return err
	}
	logger.Debug("pebble_put_ok", "name", name, "len", len(data))
	return nil
}

func (p *PebbleBlobs) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	if err == nil {
		logger.Info("pebble_closed")
	}
	return err
}
