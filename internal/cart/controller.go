package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"MiniCart/internal/catalog"
	"MiniCart/internal/order"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUnknownAction   = errors.New("unknown cart action")
)

type Action string

const (
	ActionAdd       Action = "add"
	ActionIncrement Action = "increment"
	ActionDecrement Action = "decrement"
	ActionRemove    Action = "remove"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionAdd, ActionIncrement, ActionDecrement, ActionRemove:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Controller drives the storefront: seeding, render models and every cart
// mutation. Each mutation reads the product, changes items_selected and
// writes it back.
type Controller struct {
	store  catalog.Store
	orders order.Store
	log    *zap.Logger
	m      *metrics
	now    func() time.Time

	// mu serializes read-modify-write cycles so concurrent requests do not
	// lose updates to items_selected.
	mu sync.Mutex
}

// New builds a controller over an already acquired store handle. reg may be
// nil to skip metrics registration.
func New(store catalog.Store, orders order.Store, log *zap.Logger, reg prometheus.Registerer) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		store:  store,
		orders: orders,
		log:    log,
		m:      newMetrics(reg),
		now:    time.Now,
	}
}

// Seed fills an empty store from entries with ids 1..N. A store that holds
// anything at all is left alone.
func (c *Controller) Seed(ctx context.Context, entries []catalog.SeedEntry) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list: %w", err)
	}
	if len(existing) > 0 {
		c.log.Debug("seed skipped", zap.Int("existing", len(existing)))
		return 0, nil
	}

	for i, e := range entries {
		if err := c.store.Create(ctx, e.Product(int64(i+1))); err != nil {
			return i, fmt.Errorf("seed: create id=%d: %w", i+1, err)
		}
	}

	c.log.Info("catalog seeded", zap.Int("products", len(entries)))
	return len(entries), nil
}

func (c *Controller) Products(ctx context.Context) ([]ProductView, error) {
	products, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductView(p))
	}
	return out, nil
}

func (c *Controller) Cart(ctx context.Context) (View, error) {
	products, err := c.store.List(ctx)
	if err != nil {
		return View{}, err
	}

	v := cartView(products)
	c.m.items.Set(float64(v.ItemCount))
	return v, nil
}

// Page gathers everything the storefront renders: grid, cart panel and the
// confirmation overlay when an order is pending.
func (c *Controller) Page(ctx context.Context) (PageView, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return PageView{}, err
	}

	cv, err := c.Cart(ctx)
	if err != nil {
		return PageView{}, err
	}

	pv := PageView{Products: products, Cart: cv}

	s, ok, err := c.orders.Pending(ctx)
	if err != nil {
		return PageView{}, err
	}
	if ok {
		pv.Order = NewOrderView(s)
	}
	return pv, nil
}

func (c *Controller) AddToCart(ctx context.Context, id int64) (catalog.Product, error) {
	return c.Apply(ctx, id, ActionAdd)
}

func (c *Controller) Increment(ctx context.Context, id int64) (catalog.Product, error) {
	return c.Apply(ctx, id, ActionIncrement)
}

func (c *Controller) Decrement(ctx context.Context, id int64) (catalog.Product, error) {
	return c.Apply(ctx, id, ActionDecrement)
}

func (c *Controller) Remove(ctx context.Context, id int64) (catalog.Product, error) {
	return c.Apply(ctx, id, ActionRemove)
}

// Apply runs one cart action against product id and returns the product as
// stored afterwards. Decrement at zero is a no-op and writes nothing.
func (c *Controller) Apply(ctx context.Context, id int64, a Action) (catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok, err := c.store.Get(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: id=%d", ErrProductNotFound, id)
	}

	switch a {
	case ActionAdd:
		p.ItemsSelected = 1
	case ActionIncrement:
		p.ItemsSelected++
	case ActionDecrement:
		if p.ItemsSelected <= 0 {
			return p, nil
		}
		p.ItemsSelected--
	case ActionRemove:
		p.ItemsSelected = 0
	default:
		return catalog.Product{}, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}

	if err := c.store.Update(ctx, p); err != nil {
		return catalog.Product{}, err
	}

	c.m.mutations.WithLabelValues(string(a)).Inc()
	c.log.Debug("cart updated",
		zap.Int64("product_id", id),
		zap.String("action", string(a)),
		zap.Int("items_selected", p.ItemsSelected),
	)
	return p, nil
}

// Confirm snapshots the cart into the pending order summary, replacing any
// summary still open.
func (c *Controller) Confirm(ctx context.Context) (order.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	products, err := c.store.List(ctx)
	if err != nil {
		return order.Summary{}, err
	}

	s := order.Summary{
		ID:          order.NewID(),
		Lines:       []order.Line{},
		ConfirmedAt: c.now().UTC(),
	}
	for _, p := range products {
		if !p.InCart() {
			continue
		}
		line := p.LineCents()
		s.Lines = append(s.Lines, order.Line{
			ProductID:  p.ID,
			Name:       p.Name,
			Thumbnail:  p.Image.Thumbnail,
			Qty:        p.ItemsSelected,
			PriceCents: p.PriceCents,
			LineCents:  line,
		})
		s.ItemCount += p.ItemsSelected
		s.TotalCents += line
	}

	// only one summary is ever open; a repeated confirm replaces it
	for {
		prev, ok, err := c.orders.Pending(ctx)
		if err != nil {
			return order.Summary{}, err
		}
		if !ok {
			break
		}
		if err := c.orders.Delete(ctx, prev.ID); err != nil {
			return order.Summary{}, err
		}
		c.log.Debug("pending order replaced", zap.String("order_id", prev.ID))
	}

	if err := c.orders.Put(ctx, s); err != nil {
		return order.Summary{}, err
	}

	c.m.confirmed.Inc()
	c.log.Info("order confirmed",
		zap.String("order_id", s.ID),
		zap.Int("lines", len(s.Lines)),
		zap.String("total", catalog.FormatCents(s.TotalCents)),
	)
	return s, nil
}

// StartNewOrder zeroes every product captured by the summary, one update at
// a time, and closes the summary. A failure part way leaves the earlier
// resets in place.
func (c *Controller) StartNewOrder(ctx context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: id=%s", order.ErrNotFound, orderID)
	}

	for _, l := range s.Lines {
		p, ok, err := c.store.Get(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		p.ItemsSelected = 0
		if err := c.store.Update(ctx, p); err != nil {
			return err
		}
	}

	if err := c.orders.Delete(ctx, orderID); err != nil {
		return err
	}

	c.log.Info("new order started", zap.String("previous_order_id", orderID))
	return nil
}
