package catalog

import (
	"context"
	"errors"
)

var (
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrStorageOperationFailed = errors.New("storage operation failed")
	ErrDuplicateKey           = errors.New("duplicate key")
)

// Image holds one picture at the resolutions the storefront renders.
type Image struct {
	Desktop   string `json:"desktop" yaml:"desktop"`
	Tablet    string `json:"tablet" yaml:"tablet"`
	Mobile    string `json:"mobile" yaml:"mobile"`
	Thumbnail string `json:"thumbnail" yaml:"thumbnail"`
}

type Product struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	PriceCents    int64  `json:"price_cents"`
	ItemsSelected int    `json:"items_selected"`
	ItemCount     *int   `json:"item_count,omitempty"`
	Image         Image  `json:"image"`
}

func (p Product) InCart() bool { return p.ItemsSelected > 0 }

func (p Product) LineCents() int64 {
	if p.ItemsSelected <= 0 {
		return 0
	}
	return p.PriceCents * int64(p.ItemsSelected)
}

// Store is the persistent product table. Operations are independent; no
// multi-record atomicity is offered.
type Store interface {
	// List returns every product in ascending id order.
	List(ctx context.Context) ([]Product, error)
	// Create inserts p and fails with ErrDuplicateKey if p.ID is taken.
	Create(ctx context.Context, p Product) error
	// Update replaces the record with p.ID, inserting it when absent.
	Update(ctx context.Context, p Product) error
	// Delete removes id; deleting a missing id is not an error.
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Product, bool, error)
	Ping(ctx context.Context) error
	Close() error
}
