package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("order not found")

// Line is one product as it stood in the cart at confirmation time.
type Line struct {
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	Thumbnail  string `json:"thumbnail"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
	LineCents  int64  `json:"line_cents"`
}

// Summary is the snapshot shown in the confirmation overlay. It stays
// pending until a new order is started from it.
type Summary struct {
	ID          string    `json:"id"`
	Lines       []Line    `json:"lines"`
	ItemCount   int       `json:"item_count"`
	TotalCents  int64     `json:"total_cents"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func NewID() string {
	return "o_" + uuid.NewString()
}

type Store interface {
	Put(ctx context.Context, s Summary) error
	Get(ctx context.Context, id string) (Summary, bool, error)
	Delete(ctx context.Context, id string) error
	// Pending returns the most recently confirmed summary still open.
	Pending(ctx context.Context) (Summary, bool, error)
}
