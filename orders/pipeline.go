package orders

import (
	"context"
	"log"
	"time"

	"folio/books"
	"folio/cart"
	"folio/errs"
	"folio/models"
	"folio/pricing"
	"folio/rdx"
	"folio/utils"
)

// Hook runs after a paid transition has committed. Hooks must not affect the
// outcome of the transition; panics and errors are logged and swallowed.
type Hook func(o *models.Order)

// Pipeline drives an order through draft -> placed -> paid -> delivered.
// Money amounts and line snapshots are frozen at placement; later catalog
// edits never touch an existing order.
type Pipeline struct {
	orders  Repo
	carts   cart.Repo
	catalog books.Repository
	hooks   []Hook

	lockTTL time.Duration
}

func NewPipeline(orders Repo, carts cart.Repo, catalog books.Repository) *Pipeline {
	return &Pipeline{
		orders:  orders,
		carts:   carts,
		catalog: catalog,
		lockTTL: 30 * time.Second,
	}
}

// OnPaid registers a post-commit hook for the paid transition.
func (p *Pipeline) OnPaid(h Hook) {
	p.hooks = append(p.hooks, h)
}

// CreateOrder freezes the user's cart into a placed order. Each precondition
// failure carries a redirect so the client can route the user to the page
// that fixes it.
func (p *Pipeline) CreateOrder(ctx context.Context, userID string, addr models.ShippingAddress, paymentMethod string) (*models.Order, error) {
	c, err := p.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Lines) == 0 {
		return nil, errs.Validation("Your cart is empty").WithRedirect("/cart")
	}
	if addr.StreetAddress == "" || addr.City == "" {
		return nil, errs.Validation("No shipping address").WithRedirect("/shipping-address")
	}
	if paymentMethod == "" {
		return nil, errs.Validation("No payment method").WithRedirect("/payment-method")
	}

	lines := make([]models.OrderLine, 0, len(c.Lines))
	pLines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, models.OrderLine{
			BookID:   l.BookID,
			Name:     l.Name,
			Slug:     l.Slug,
			Image:    l.Image,
			Price:    l.Price,
			Quantity: l.Quantity,
		})
		pLines = append(pLines, pricing.Line{Price: l.Price, Quantity: l.Quantity})
	}

	// Totals are recomputed from the frozen lines, never trusted from the
	// client or the stale cart document.
	t := pricing.Calculate(pLines)

	o := &models.Order{
		OrderID:         "o" + utils.GenerateRandomString(12),
		UserID:          userID,
		Lines:           lines,
		ShippingAddress: addr,
		PaymentMethod:   paymentMethod,
		ItemsPrice:      t.ItemsPrice,
		ShippingPrice:   t.ShippingPrice,
		TaxPrice:        t.TaxPrice,
		TotalPrice:      t.TotalPrice,
		CreatedAt:       time.Now(),
	}

	if err := p.orders.CreateFromCart(ctx, o, c.CartID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder loads one order.
func (p *Pipeline) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return p.orders.Get(ctx, orderID)
}

// RecordPaymentIntent stores the provider transaction id created for this
// order so the capture step can verify it matches.
func (p *Pipeline) RecordPaymentIntent(ctx context.Context, orderID, providerID string) error {
	return p.orders.SetPaymentIntent(ctx, orderID, models.PaymentResult{ID: providerID})
}

// UpdateOrderToPaid flips the order to paid and decrements stock for every
// line in one transaction. A short redis lock serializes concurrent capture
// callbacks and retries for the same order; the ispaid guard inside the
// transaction is the real defence.
func (p *Pipeline) UpdateOrderToPaid(ctx context.Context, orderID string, result models.PaymentResult) (*models.Order, error) {
	ok, err := rdx.RdxSetNX("order_lock:"+orderID, "locked", p.lockTTL)
	if err == nil && !ok {
		return nil, errs.Conflict("payment for this order is already in progress")
	}
	if err == nil {
		defer rdx.RdxDel("order_lock:" + orderID)
	}

	err = p.orders.MarkPaid(ctx, orderID, result, p.catalog.DecrementStock)
	if err != nil {
		return nil, err
	}

	o, err := p.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p.runHooks(o)
	return o, nil
}

// DeliverOrder marks a paid order delivered. Unpaid orders are rejected.
func (p *Pipeline) DeliverOrder(ctx context.Context, orderID string) (*models.Order, error) {
	o, err := p.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsPaid {
		return nil, errs.State("order is not paid")
	}
	if o.IsDelivered {
		return nil, errs.Conflict("order is already delivered")
	}
	if err := p.orders.MarkDelivered(ctx, orderID); err != nil {
		return nil, err
	}
	return p.orders.Get(ctx, orderID)
}

func (p *Pipeline) runHooks(o *models.Order) {
	for _, h := range p.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("order hook panic for %s: %v", o.OrderID, r)
				}
			}()
			h(o)
		}()
	}
}
