package cart

import (
	"context"
	"time"

	"folio/books"
	"folio/errs"
	"folio/models"
	"folio/pricing"
	"folio/utils"
)

// Service owns all cart mutations. Every path that touches Lines goes back
// through pricing.Calculate before persisting, so totals never drift.
type Service struct {
	carts   Repo
	catalog books.Repository
}

func NewService(carts Repo, catalog books.Repository) *Service {
	return &Service{carts: carts, catalog: catalog}
}

func retotal(c *models.Cart) {
	lines := make([]pricing.Line, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = pricing.Line{Price: l.Price, Quantity: l.Quantity}
	}
	t := pricing.Calculate(lines)
	c.ItemsPrice = t.ItemsPrice
	c.ShippingPrice = t.ShippingPrice
	c.TaxPrice = t.TaxPrice
	c.TotalPrice = t.TotalPrice
	c.UpdatedAt = time.Now()
}

// AddItem adds qty of a book to the owner's cart, creating the cart on first
// add. Stock is checked against what is already in the cart; overselling at
// cart time is rejected here but payment remains the enforcement point.
func (s *Service) AddItem(ctx context.Context, o Owner, bookID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, errs.Validation("quantity must be at least 1")
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.GetByOwner(ctx, o)
	if err != nil {
		return nil, err
	}

	inCart := 0
	if c != nil {
		for _, l := range c.Lines {
			if l.BookID == bookID {
				inCart = l.Quantity
				break
			}
		}
	}
	if inCart+qty > book.Stock {
		return nil, errs.Conflict("insufficient stock for %q", book.Title)
	}

	line := models.CartLine{
		BookID:   book.BookID,
		Name:     book.Title,
		Slug:     book.Slug,
		Image:    book.Image,
		Price:    book.Price, // unit price frozen at add time
		Quantity: qty,
	}

	if c == nil {
		now := time.Now()
		c = &models.Cart{
			CartID:    "c" + utils.GenerateRandomString(10),
			UserID:    o.UserID,
			Lines:     []models.CartLine{line},
			CreatedAt: now,
		}
		if o.Anonymous() {
			c.SessionID = o.SessionID
		}
		retotal(c)
		if err := s.carts.Insert(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	found := false
	for i := range c.Lines {
		if c.Lines[i].BookID == bookID {
			c.Lines[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		c.Lines = append(c.Lines, line)
	}
	retotal(c)
	if err := s.carts.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem decrements the matching line by one. The line disappears at
// zero, and the cart itself disappears with its last line.
func (s *Service) RemoveItem(ctx context.Context, o Owner, bookID string) (*models.Cart, error) {
	c, err := s.carts.GetByOwner(ctx, o)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errs.NotFound("cart not found")
	}

	idx := -1
	for i := range c.Lines {
		if c.Lines[i].BookID == bookID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errs.NotFound("item not in cart")
	}

	c.Lines[idx].Quantity--
	if c.Lines[idx].Quantity == 0 {
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	}

	if len(c.Lines) == 0 {
		if err := s.carts.Delete(ctx, c.CartID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	retotal(c)
	if err := s.carts.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCart returns the owner's cart, or nil without error when none exists.
func (s *Service) GetCart(ctx context.Context, o Owner) (*models.Cart, error) {
	return s.carts.GetByOwner(ctx, o)
}

// MergeOnLogin folds the anonymous session cart into the user's cart after
// sign-in. Lines are unioned (quantities summed per book; the user cart's
// frozen price wins for duplicates) and the anonymous cart is deleted.
// Calling it again with no anonymous cart left is a no-op, so retries are
// harmless.
func (s *Service) MergeOnLogin(ctx context.Context, sessionID, userID string) (*models.Cart, error) {
	if sessionID == "" || userID == "" {
		return s.carts.GetByUser(ctx, userID)
	}

	anon, err := s.carts.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if anon == nil {
		return s.carts.GetByUser(ctx, userID)
	}

	own, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if own == nil {
		// Reassign the anonymous cart wholesale
		anon.UserID = userID
		anon.SessionID = ""
		retotal(anon)
		if err := s.carts.Update(ctx, anon); err != nil {
			return nil, err
		}
		return anon, nil
	}

	for _, al := range anon.Lines {
		merged := false
		for i := range own.Lines {
			if own.Lines[i].BookID == al.BookID {
				own.Lines[i].Quantity += al.Quantity
				merged = true
				break
			}
		}
		if !merged {
			own.Lines = append(own.Lines, al)
		}
	}
	retotal(own)
	if err := s.carts.Update(ctx, own); err != nil {
		return nil, err
	}
	if err := s.carts.Delete(ctx, anon.CartID); err != nil {
		return nil, err
	}
	return own, nil
}
