package books

import (
	"context"

	"folio/db"
	"folio/errs"
	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository is the read-through catalog surface the cart and order pipeline
// depend on. They never touch the collection directly, so tests can swap in
// an in-memory fake.
type Repository interface {
	// GetBook returns the current catalog record; price and stock are the
	// authoritative values at call time.
	GetBook(ctx context.Context, bookID string) (*models.Book, error)
	// DecrementStock atomically subtracts qty, guarded by stock >= qty.
	// A shortfall is an oversell conflict, never a negative stock row.
	DecrementStock(ctx context.Context, bookID string, qty int) error
}

type mongoRepo struct {
	coll *mongo.Collection
}

// NewRepository returns the Mongo-backed catalog repository.
func NewRepository() Repository {
	return &mongoRepo{coll: db.BookCollection}
}

func (m *mongoRepo) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	var book models.Book
	err := m.coll.FindOne(ctx, bson.M{"bookid": bookID}).Decode(&book)
	if err != nil {
		return nil, errs.FromMongo(err, "book not found")
	}
	return &book, nil
}

func (m *mongoRepo) DecrementStock(ctx context.Context, bookID string, qty int) error {
	res, err := m.coll.UpdateOne(ctx,
		bson.M{"bookid": bookID, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.Conflict("insufficient stock for book %s", bookID)
	}
	return nil
}
