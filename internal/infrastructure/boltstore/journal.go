// Package boltstore persists the stock-movement journal in an embedded
// BoltDB file. Movements are write-once audit data, so a single append-only
// bucket keyed by insertion sequence is enough; every append runs in its own
// write transaction.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"

	domain "github.com/tiendalino/commerce-core/internal/domain/ledger"
)

const movementBucket = "stock_movements"

type Journal struct {
	db *bolt.DB
}

// Open opens (or creates) the journal file and ensures the bucket exists.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(movementBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Append(ctx context.Context, m *domain.Movement) error {
	_ = ctx

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(movementBucket))

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

func (j *Journal) List(ctx context.Context, f domain.Filter) ([]*domain.Movement, error) {
	_ = ctx

	var out []*domain.Movement
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(movementBucket)).Cursor()

		// Iterate newest first.
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var m domain.Movement
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			if f.ProductID != "" && m.ProductID != f.ProductID {
				continue
			}
			if f.Direction != "" && m.Direction != f.Direction {
				continue
			}
			out = append(out, &m)
			if f.Limit > 0 && len(out) >= f.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
