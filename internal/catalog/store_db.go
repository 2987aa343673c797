package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

// PostgresStore keeps each product as a JSONB document keyed by id.
type PostgresStore struct {
	db *sql.DB

	mu     sync.Mutex
	schema bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres prepares a pgx-backed pool. No connection is made until the
// first operation.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return NewPostgresStore(db), nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema {
		return nil
	}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS products (
				id  BIGINT PRIMARY KEY,
				doc JSONB  NOT NULL
			)
		`)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.schema = true
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return s.ensureSchema(ctx)
}

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT doc
			FROM products
			ORDER BY id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			p, err := decodeProduct(raw)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, opErr("list", err)
	}
	return out, nil
}

func (s *PostgresStore) Create(ctx context.Context, p Product) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	doc, err := encodeProduct(p)
	if err != nil {
		return opErr("create", err)
	}

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO products (id, doc)
			VALUES ($1, $2)
		`, p.ID, doc)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: id=%d", ErrDuplicateKey, p.ID)
		}
		return err
	})
	return opErr("create", err)
}

func (s *PostgresStore) Update(ctx context.Context, p Product) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	doc, err := encodeProduct(p)
	if err != nil {
		return opErr("update", err)
	}

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO products (id, doc)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
		`, p.ID, doc)
		return err
	})
	return opErr("update", err)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		return err
	})
	return opErr("delete", err)
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Product{}, false, err
	}

	var raw []byte
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT doc
			FROM products
			WHERE id = $1
		`, id).Scan(&raw)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, opErr("get", err)
	}

	p, err := decodeProduct(raw)
	if err != nil {
		return Product{}, false, opErr("get", err)
	}
	return p, true, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
