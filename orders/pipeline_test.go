package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"folio/books"
	"folio/cart"
	"folio/errs"
	"folio/models"

	"github.com/stretchr/testify/require"
)

type memBooks struct {
	mu    sync.Mutex
	books map[string]*models.Book
}

func newMemBooks(bs ...*models.Book) *memBooks {
	m := &memBooks{books: map[string]*models.Book{}}
	for _, b := range bs {
		m.books[b.BookID] = b
	}
	return m
}

func (m *memBooks) GetBook(_ context.Context, bookID string) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok {
		return nil, errs.NotFound("book not found")
	}
	cp := *b
	return &cp, nil
}

func (m *memBooks) DecrementStock(_ context.Context, bookID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok {
		return errs.NotFound("book not found")
	}
	if b.Stock < qty {
		return errs.Conflict("insufficient stock for book %s", bookID)
	}
	b.Stock -= qty
	return nil
}

func (m *memBooks) stock(bookID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[bookID].Stock
}

var _ books.Repository = (*memBooks)(nil)

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func newMemCarts(cs ...*models.Cart) *memCarts {
	m := &memCarts{carts: map[string]*models.Cart{}}
	for _, c := range cs {
		m.carts[c.CartID] = c
	}
	return m
}

func (m *memCarts) GetByOwner(ctx context.Context, o cart.Owner) (*models.Cart, error) {
	if !o.Anonymous() {
		return m.GetByUser(ctx, o.UserID)
	}
	return m.GetBySession(ctx, o.SessionID)
}

func (m *memCarts) GetBySession(_ context.Context, sessionID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if sessionID != "" && c.SessionID == sessionID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memCarts) GetByUser(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if userID != "" && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memCarts) Insert(_ context.Context, c *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.carts[c.CartID] = &cp
	return nil
}

func (m *memCarts) Update(_ context.Context, c *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.carts[c.CartID] = &cp
	return nil
}

func (m *memCarts) Delete(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}

var _ cart.Repo = (*memCarts)(nil)

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	carts  *memCarts
}

func newMemOrders(carts *memCarts) *memOrders {
	return &memOrders{orders: map[string]*models.Order{}, carts: carts}
}

func (m *memOrders) Get(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, errs.NotFound("order not found")
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) CreateFromCart(_ context.Context, o *models.Order, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.OrderID] = &cp

	m.carts.mu.Lock()
	defer m.carts.mu.Unlock()
	c, ok := m.carts.carts[cartID]
	if !ok {
		return errs.NotFound("cart not found")
	}
	c.Lines = []models.CartLine{}
	c.ItemsPrice, c.ShippingPrice, c.TaxPrice, c.TotalPrice = 0, 0, 0, 0
	return nil
}

func (m *memOrders) SetPaymentIntent(_ context.Context, orderID string, result models.PaymentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return errs.NotFound("order not found")
	}
	if o.IsPaid {
		return errs.Conflict("order is already paid")
	}
	o.PaymentResult = &result
	return nil
}

func (m *memOrders) MarkPaid(ctx context.Context, orderID string, result models.PaymentResult, dec DecrementFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return errs.NotFound("order not found")
	}
	if o.IsPaid {
		return errs.Conflict("order is already paid")
	}
	for _, l := range o.Lines {
		if err := dec(ctx, l.BookID, l.Quantity); err != nil {
			return err
		}
	}
	now := time.Now()
	o.IsPaid = true
	o.PaidAt = &now
	o.PaymentResult = &result
	return nil
}

func (m *memOrders) MarkDelivered(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || !o.IsPaid || o.IsDelivered {
		return errs.State("order is not ready for delivery")
	}
	now := time.Now()
	o.IsDelivered = true
	o.DeliveredAt = &now
	return nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memOrders) ListAll(_ context.Context, _, _ int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

var _ Repo = (*memOrders)(nil)

var testAddr = models.ShippingAddress{
	FullName:      "Asha Rao",
	StreetAddress: "14 Temple Street",
	City:          "Mysuru",
	State:         "Karnataka",
	Country:       "India",
	PinCode:       "570001",
}

func testCart(userID string, lines ...models.CartLine) *models.Cart {
	return &models.Cart{
		CartID:    "c_test",
		UserID:    userID,
		Lines:     lines,
		CreatedAt: time.Now(),
	}
}

func newTestPipeline(catalog *memBooks, carts *memCarts) (*Pipeline, *memOrders) {
	repo := newMemOrders(carts)
	return NewPipeline(repo, carts, catalog), repo
}

func TestCreateOrderPreconditions(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks()

	t.Run("empty cart", func(t *testing.T) {
		carts := newMemCarts(testCart("u1"))
		p, _ := newTestPipeline(catalog, carts)
		_, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
		require.Error(t, err)
		require.Equal(t, errs.KindValidation, errs.KindOf(err))
		require.Equal(t, "/cart", errs.RedirectOf(err))
	})

	t.Run("missing cart", func(t *testing.T) {
		p, _ := newTestPipeline(catalog, newMemCarts())
		_, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
		require.Error(t, err)
		require.Equal(t, "/cart", errs.RedirectOf(err))
	})

	t.Run("missing address", func(t *testing.T) {
		carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Price: 10, Quantity: 1}))
		p, _ := newTestPipeline(catalog, carts)
		_, err := p.CreateOrder(ctx, "u1", models.ShippingAddress{}, "PayPal")
		require.Error(t, err)
		require.Equal(t, "/shipping-address", errs.RedirectOf(err))
	})

	t.Run("missing payment method", func(t *testing.T) {
		carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Price: 10, Quantity: 1}))
		p, _ := newTestPipeline(catalog, carts)
		_, err := p.CreateOrder(ctx, "u1", testAddr, "")
		require.Error(t, err)
		require.Equal(t, "/payment-method", errs.RedirectOf(err))
	})
}

func TestCreateOrderFreezesCartAndClearsIt(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks(&models.Book{BookID: "b1", Title: "Dune", Price: 120, Stock: 10})
	c := testCart("u1",
		models.CartLine{BookID: "b1", Name: "Dune", Price: 120, Quantity: 2},
		models.CartLine{BookID: "b2", Name: "Hyperion", Price: 80, Quantity: 1},
	)
	carts := newMemCarts(c)
	p, _ := newTestPipeline(catalog, carts)

	o, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
	require.NoError(t, err)
	require.Len(t, o.Lines, 2)

	// 120*2 + 80 = 320 items, under the free-shipping threshold
	require.Equal(t, 320.00, o.ItemsPrice)
	require.Equal(t, 30.00, o.ShippingPrice)
	require.Equal(t, 32.00, o.TaxPrice)
	require.Equal(t, 382.00, o.TotalPrice)
	require.False(t, o.IsPaid)
	require.Nil(t, o.PaidAt)

	cleared, err := carts.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, cleared.Lines)
	require.Zero(t, cleared.TotalPrice)
}

func TestOrderLinesSurviveCatalogEdits(t *testing.T) {
	ctx := context.Background()
	book := &models.Book{BookID: "b1", Title: "Dune", Price: 120, Stock: 10}
	catalog := newMemBooks(book)
	carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Name: "Dune", Price: 120, Quantity: 1}))
	p, repo := newTestPipeline(catalog, carts)

	o, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
	require.NoError(t, err)

	// catalog price change after placement
	catalog.mu.Lock()
	book.Price = 999
	catalog.mu.Unlock()

	got, err := repo.Get(ctx, o.OrderID)
	require.NoError(t, err)
	require.Equal(t, 120.00, got.Lines[0].Price)
	require.Equal(t, o.TotalPrice, got.TotalPrice)
}

func TestUpdateOrderToPaidDecrementsStock(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Price: 100, Stock: 5},
		&models.Book{BookID: "b2", Title: "Hyperion", Price: 50, Stock: 3},
	)
	carts := newMemCarts(testCart("u1",
		models.CartLine{BookID: "b1", Price: 100, Quantity: 2},
		models.CartLine{BookID: "b2", Price: 50, Quantity: 3},
	))
	p, _ := newTestPipeline(catalog, carts)

	o, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
	require.NoError(t, err)

	paid, err := p.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{
		ID: "pp_1", Status: "COMPLETED", PayerEmail: "asha@example.com", PricePaid: o.TotalPrice,
	})
	require.NoError(t, err)
	require.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	require.Equal(t, "pp_1", paid.PaymentResult.ID)
	require.Equal(t, paid.TotalPrice, paid.PaymentResult.PricePaid)

	require.Equal(t, 3, catalog.stock("b1"))
	require.Equal(t, 0, catalog.stock("b2"))
}

func TestUpdateOrderToPaidIsNotRepeatable(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks(&models.Book{BookID: "b1", Price: 100, Stock: 5})
	carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Price: 100, Quantity: 1}))
	p, _ := newTestPipeline(catalog, carts)

	o, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
	require.NoError(t, err)

	_, err = p.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{ID: "pp_1", Status: "COMPLETED"})
	require.NoError(t, err)

	_, err = p.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{ID: "pp_2", Status: "COMPLETED"})
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))

	// still decremented exactly once
	require.Equal(t, 4, catalog.stock("b1"))
}

func TestUpdateOrderToPaidRejectsOversell(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks(&models.Book{BookID: "b1", Price: 100, Stock: 1})
	carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Price: 100, Quantity: 3}))
	p, repo := newTestPipeline(catalog, carts)

	o, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
	require.NoError(t, err)

	_, err = p.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{ID: "pp_1", Status: "COMPLETED"})
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))

	// stock never goes negative and the order stays unpaid
	require.Equal(t, 1, catalog.stock("b1"))
	got, err := repo.Get(ctx, o.OrderID)
	require.NoError(t, err)
	require.False(t, got.IsPaid)
}

func TestRecordPaymentIntent(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks(&models.Book{BookID: "b1", Price: 100, Stock: 5})
	carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Price: 100, Quantity: 1}))
	p, repo := newTestPipeline(catalog, carts)

	err := p.RecordPaymentIntent(ctx, "o_missing", "pp_1")
	require.Error(t, err)
	require.Equal(t, errs.KindNotFound, errs.KindOf(err))

	o, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
	require.NoError(t, err)

	require.NoError(t, p.RecordPaymentIntent(ctx, o.OrderID, "pp_1"))
	got, err := repo.Get(ctx, o.OrderID)
	require.NoError(t, err)
	require.Equal(t, "pp_1", got.PaymentResult.ID)

	_, err = p.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{ID: "pp_1", Status: "COMPLETED"})
	require.NoError(t, err)

	err = p.RecordPaymentIntent(ctx, o.OrderID, "pp_2")
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))
}

func TestPaidHooksRun(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks(&models.Book{BookID: "b1", Price: 100, Stock: 5})
	carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Price: 100, Quantity: 1}))
	p, _ := newTestPipeline(catalog, carts)

	var gotID string
	p.OnPaid(func(o *models.Order) { panic("mailer down") })
	p.OnPaid(func(o *models.Order) { gotID = o.OrderID })

	o, err := p.CreateOrder(ctx, "u1", testAddr, "PayPal")
	require.NoError(t, err)

	// the panicking hook must not fail the transition or starve later hooks
	paid, err := p.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{ID: "pp_1", Status: "COMPLETED"})
	require.NoError(t, err)
	require.Equal(t, paid.OrderID, gotID)
}

func TestDeliverOrder(t *testing.T) {
	ctx := context.Background()
	catalog := newMemBooks(&models.Book{BookID: "b1", Price: 100, Stock: 5})
	carts := newMemCarts(testCart("u1", models.CartLine{BookID: "b1", Price: 100, Quantity: 1}))
	p, _ := newTestPipeline(catalog, carts)

	o, err := p.CreateOrder(ctx, "u1", testAddr, "CashOnDelivery")
	require.NoError(t, err)

	_, err = p.DeliverOrder(ctx, o.OrderID)
	require.Error(t, err)
	require.Equal(t, errs.KindState, errs.KindOf(err))

	_, err = p.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{ID: "cod_" + o.OrderID, Status: "COMPLETED"})
	require.NoError(t, err)

	delivered, err := p.DeliverOrder(ctx, o.OrderID)
	require.NoError(t, err)
	require.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.DeliveredAt)

	_, err = p.DeliverOrder(ctx, o.OrderID)
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))
}
