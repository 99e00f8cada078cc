package cart

import (
	"context"
	"sync"
	"testing"

	"folio/errs"
	"folio/models"
	"folio/pricing"

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

type memRepo struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func newMemRepo() *memRepo {
	return &memRepo{carts: map[string]*models.Cart{}}
}

func (m *memRepo) GetByOwner(ctx context.Context, o Owner) (*models.Cart, error) {
	if !o.Anonymous() {
		return m.GetByUser(ctx, o.UserID)
	}
	return m.GetBySession(ctx, o.SessionID)
}

func (m *memRepo) GetBySession(_ context.Context, sessionID string) (*models.Cart, error) {
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

func (m *memRepo) GetByUser(_ context.Context, userID string) (*models.Cart, error) {
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

func (m *memRepo) Insert(_ context.Context, c *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.carts[c.CartID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, c *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.carts[c.CartID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}

var _ Repo = (*memRepo)(nil)

func requireTotalsConsistent(t *testing.T, c *models.Cart) {
	t.Helper()
	lines := make([]pricing.Line, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = pricing.Line{Price: l.Price, Quantity: l.Quantity}
	}
	want := pricing.Calculate(lines)
	require.Equal(t, want.ItemsPrice, c.ItemsPrice)
	require.Equal(t, want.ShippingPrice, c.ShippingPrice)
	require.Equal(t, want.TaxPrice, c.TaxPrice)
	require.Equal(t, want.TotalPrice, c.TotalPrice)
}

func TestAddItemCreatesCartWithTotals(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Slug: "dune", Price: 120, Stock: 5},
	))
	owner := Owner{SessionID: "s1"}

	c, err := svc.AddItem(ctx, owner, "b1", 2)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	require.Equal(t, 2, c.Lines[0].Quantity)
	require.Equal(t, 120.00, c.Lines[0].Price)
	requireTotalsConsistent(t, c)
}

func TestAddItemAccumulatesAndRetotals(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Price: 200, Stock: 10},
		&models.Book{BookID: "b2", Title: "Hyperion", Price: 150, Stock: 10},
	))
	owner := Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "b1", 1)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, owner, "b1", 1)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	require.Equal(t, 2, c.Lines[0].Quantity)

	c, err = svc.AddItem(ctx, owner, "b2", 1)
	require.NoError(t, err)
	require.Len(t, c.Lines, 2)

	// 200*2 + 150 = 550: over the threshold, shipping drops to zero
	require.Equal(t, 550.00, c.ItemsPrice)
	require.Equal(t, 0.00, c.ShippingPrice)
	requireTotalsConsistent(t, c)
}

func TestAddItemRejectsBadQuantityAndOversell(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Price: 100, Stock: 3},
	))
	owner := Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "b1", 0)
	require.Error(t, err)
	require.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = svc.AddItem(ctx, owner, "b1", 4)
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))

	// the cap counts what is already in the cart
	_, err = svc.AddItem(ctx, owner, "b1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, "b1", 2)
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))

	_, err = svc.AddItem(ctx, owner, "nope", 1)
	require.Error(t, err)
	require.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestRemoveItemStepsDownAndDeletesEmptyCart(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Price: 100, Stock: 5},
	))
	owner := Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "b1", 2)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, owner, "b1")
	require.NoError(t, err)
	require.Equal(t, 1, c.Lines[0].Quantity)
	requireTotalsConsistent(t, c)

	c, err = svc.RemoveItem(ctx, owner, "b1")
	require.NoError(t, err)
	require.Nil(t, c)

	got, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = svc.RemoveItem(ctx, owner, "b1")
	require.Error(t, err)
	require.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestRemoveItemMissingLine(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Price: 100, Stock: 5},
	))
	owner := Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "b1", 1)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, owner, "b2")
	require.Error(t, err)
	require.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestMergeOnLoginReassignsWhenUserHasNoCart(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Price: 100, Stock: 5},
	))

	_, err := svc.AddItem(ctx, Owner{SessionID: "s1"}, "b1", 2)
	require.NoError(t, err)

	merged, err := svc.MergeOnLogin(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", merged.UserID)
	require.Empty(t, merged.SessionID)
	require.Equal(t, 2, merged.Lines[0].Quantity)
	requireTotalsConsistent(t, merged)

	// anonymous cart is gone
	anon, err := repo.GetBySession(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, anon)
}

func TestMergeOnLoginUnionsLines(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, newMemBooks(
		&models.Book{BookID: "b1", Title: "Dune", Price: 100, Stock: 10},
		&models.Book{BookID: "b2", Title: "Hyperion", Price: 50, Stock: 10},
	))

	_, err := svc.AddItem(ctx, Owner{UserID: "u1"}, "b1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, Owner{SessionID: "s1"}, "b1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, Owner{SessionID: "s1"}, "b2", 1)
	require.NoError(t, err)

	merged, err := svc.MergeOnLogin(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Len(t, merged.Lines, 2)
	for _, l := range merged.Lines {
		if l.BookID == "b1" {
			require.Equal(t, 3, l.Quantity)
		}
	}
	requireTotalsConsistent(t, merged)

	// a second merge with the dead session changes nothing
	again, err := svc.MergeOnLogin(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Equal(t, merged.TotalPrice, again.TotalPrice)
	require.Len(t, again.Lines, 2)
}
