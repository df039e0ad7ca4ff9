// Package bolt is an EntryStore backed by a single bbolt file. It suits
// kiosks where a cgo-free key/value file is preferred over SQLite.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

const bucketEntries = "entries" // key: big-endian id -> record JSON

type record struct {
	Plate     string `json:"plate"`
	Status    string `json:"status"`
	CreatedMs int64  `json:"created_ms"`
}

type EntryStore struct {
	storage *bbolt.DB
	now     store.Clock
}

// Open creates or opens the bolt file at path.
func Open(path string, now store.Clock) (*EntryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir bolt dir: %w", err)
	}

	instance, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	if err := instance.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketEntries))
		return err
	}); err != nil {
		_ = instance.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	if now == nil {
		now = time.Now
	}
	return &EntryStore{storage: instance, now: now}, nil
}

func (s *EntryStore) Close() error {
	return s.storage.Close()
}

func (s *EntryStore) List(_ context.Context) ([]types.Entry, error) {
	out := []types.Entry{}
	err := s.storage.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketEntries)).ForEach(func(k, v []byte) error {
			e, err := decode(k, v)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: List: %w", store.ErrStorage, err)
	}
	store.SortNewestFirst(out)
	return out, nil
}

func (s *EntryStore) Insert(ctx context.Context, plate string) (types.Entry, error) {
	return s.InsertAt(ctx, plate, s.now())
}

func (s *EntryStore) InsertAt(_ context.Context, plate string, createdAt time.Time) (types.Entry, error) {
	e := types.Entry{
		PlateNumber: plate,
		Status:      types.StatusPending,
		CreatedAt:   store.TruncateMs(createdAt),
	}

	err := s.storage.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketEntries))
		// The bucket sequence only moves forward, even across Clear.
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.ID = int64(seq)
		return put(b, e)
	})
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: InsertAt: %w", store.ErrStorage, err)
	}
	return e, nil
}

func (s *EntryStore) UpdateStatus(_ context.Context, id int64, status types.Status) error {
	return s.update(func(b *bbolt.Bucket) error {
		k := key(id)
		v := b.Get(k)
		if v == nil {
			return store.ErrNotFound
		}
		e, err := decode(k, v)
		if err != nil {
			return err
		}
		if err := store.CheckTransition(e.Status, status); err != nil {
			return err
		}
		if e.Status == status {
			return nil
		}
		e.Status = status
		return put(b, e)
	})
}

func (s *EntryStore) Delete(_ context.Context, id int64) error {
	return s.update(func(b *bbolt.Bucket) error {
		k := key(id)
		if b.Get(k) == nil {
			return store.ErrNotFound
		}
		return b.Delete(k)
	})
}

func (s *EntryStore) Clear(_ context.Context) error {
	return s.update(func(b *bbolt.Bucket) error {
		// Deleting the bucket would reset NextSequence, so drop keys instead.
		// Keys are collected first; deleting under a live cursor skips rows.
		var keys [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// update runs fn in a write transaction. Domain errors pass through; anything
// else is a storage failure.
func (s *EntryStore) update(fn func(b *bbolt.Bucket) error) error {
	var domainErr error
	err := s.storage.Update(func(tx *bbolt.Tx) error {
		err := fn(tx.Bucket([]byte(bucketEntries)))
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidTransition) {
			domainErr = err
		}
		return err
	})
	if domainErr != nil {
		return domainErr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorage, err)
	}
	return nil
}

func key(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func put(b *bbolt.Bucket, e types.Entry) error {
	data, err := json.Marshal(record{
		Plate:     e.PlateNumber,
		Status:    string(e.Status),
		CreatedMs: e.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return b.Put(key(e.ID), data)
}

func decode(k, v []byte) (types.Entry, error) {
	if len(k) != 8 {
		return types.Entry{}, fmt.Errorf("bad entry key %x", k)
	}
	var r record
	if err := json.Unmarshal(v, &r); err != nil {
		return types.Entry{}, fmt.Errorf("decode entry %x: %w", k, err)
	}
	return types.Entry{
		ID:          int64(binary.BigEndian.Uint64(k)),
		PlateNumber: r.Plate,
		Status:      types.Status(r.Status),
		CreatedAt:   time.UnixMilli(r.CreatedMs).UTC(),
	}, nil
}
