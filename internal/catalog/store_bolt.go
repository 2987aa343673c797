package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	schemaVersion = 1
	openTimeout   = 1 * time.Second
)

var (
	productsBucket   = []byte("products")
	metaBucket       = []byte("meta")
	schemaVersionKey = []byte("schema_version")
)

var errStoreClosed = errors.New("store closed")

// BoltStore keeps products in a single bbolt file. The file is opened on
// the first operation and the handle is reused until Close.
type BoltStore struct {
	path string

	mu     sync.Mutex
	db     *bolt.DB
	closed bool

	// schemaCreated reports whether this handle ran the first-open
	// initialization.
	schemaCreated bool
}

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

func (s *BoltStore) conn() (*bolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, errStoreClosed)
	}
	if s.db != nil {
		return s.db, nil
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, s.path, err)
	}

	created, err := initSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.db = db
	s.schemaCreated = created
	return db, nil
}

// initSchema creates the products bucket the first time the file is opened.
// The stored schema version gates it so later opens leave data untouched.
func initSchema(db *bolt.DB) (created bool, err error) {
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}

		if v := meta.Get(schemaVersionKey); v != nil {
			if len(v) != 1 || int(v[0]) > schemaVersion {
				return fmt.Errorf("unsupported schema version %v", v)
			}
			return nil
		}

		if _, err := tx.CreateBucketIfNotExists(productsBucket); err != nil {
			return err
		}
		created = true
		return meta.Put(schemaVersionKey, []byte{schemaVersion})
	})
	return created, err
}

func (s *BoltStore) view(ctx context.Context, op string, fn func(b *bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	return opErr(op, db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(productsBucket))
	}))
}

func (s *BoltStore) update(ctx context.Context, op string, fn func(b *bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	return opErr(op, db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(productsBucket))
	}))
}

func (s *BoltStore) Ping(ctx context.Context) error {
	return s.view(ctx, "ping", func(b *bolt.Bucket) error {
		if b == nil {
			return errors.New("products bucket missing")
		}
		return nil
	})
}

func (s *BoltStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := s.view(ctx, "list", func(b *bolt.Bucket) error {
		out = make([]Product, 0, 16)
		return b.ForEach(func(_, v []byte) error {
			p, err := decodeProduct(v)
			if err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Create(ctx context.Context, p Product) error {
	v, err := encodeProduct(p)
	if err != nil {
		return opErr("create", err)
	}

	return s.update(ctx, "create", func(b *bolt.Bucket) error {
		k := idKey(p.ID)
		if b.Get(k) != nil {
			return fmt.Errorf("%w: id=%d", ErrDuplicateKey, p.ID)
		}
		return b.Put(k, v)
	})
}

func (s *BoltStore) Update(ctx context.Context, p Product) error {
	v, err := encodeProduct(p)
	if err != nil {
		return opErr("update", err)
	}

	return s.update(ctx, "update", func(b *bolt.Bucket) error {
		return b.Put(idKey(p.ID), v)
	})
}

func (s *BoltStore) Delete(ctx context.Context, id int64) error {
	return s.update(ctx, "delete", func(b *bolt.Bucket) error {
		return b.Delete(idKey(id))
	})
}

func (s *BoltStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	var (
		p     Product
		found bool
	)

	err := s.view(ctx, "get", func(b *bolt.Bucket) error {
		v := b.Get(idKey(id))
		if v == nil {
			return nil
		}
		var err error
		p, err = decodeProduct(v)
		found = err == nil
		return err
	})
	if err != nil {
		return Product{}, false, err
	}
	return p, found, nil
}

// Close releases the file. Operations after Close fail with
// ErrStorageUnavailable.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageOperationFailed, op, err)
}
