package orders

import (
	"context"
	"time"

	"folio/db"
	"folio/errs"
	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DecrementFunc subtracts stock for one book; inside MarkPaid it runs in the
// same transaction as the paid flag flip.
type DecrementFunc func(ctx context.Context, bookID string, qty int) error

// Repo persists orders. The two composite operations (CreateFromCart,
// MarkPaid) are single atomic units: a crash mid-way leaves no partial state.
type Repo interface {
	Get(ctx context.Context, orderID string) (*models.Order, error)
	// CreateFromCart inserts the frozen order, empties the cart's lines and
	// zeroes its totals, all-or-nothing.
	CreateFromCart(ctx context.Context, o *models.Order, cartID string) error
	// SetPaymentIntent stores the provider's opaque transaction id before
	// capture; status stays blank until the capture callback.
	SetPaymentIntent(ctx context.Context, orderID string, result models.PaymentResult) error
	// MarkPaid decrements stock for every line via dec and flips isPaid,
	// atomically. An already-paid order is a conflict, not a no-op.
	MarkPaid(ctx context.Context, orderID string, result models.PaymentResult, dec DecrementFunc) error
	// MarkDelivered sets isDelivered once; the caller has verified isPaid.
	MarkDelivered(ctx context.Context, orderID string) error
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	ListAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
}

type mongoRepo struct {
	orders *mongo.Collection
	carts  *mongo.Collection
}

// NewRepo returns the Mongo-backed order repository.
func NewRepo() Repo {
	return &mongoRepo{orders: db.OrderCollection, carts: db.CartCollection}
}

func (m *mongoRepo) Get(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := m.orders.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&o)
	if err != nil {
		return nil, errs.FromMongo(err, "order not found")
	}
	return &o, nil
}

func (m *mongoRepo) CreateFromCart(ctx context.Context, o *models.Order, cartID string) error {
	return db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := m.orders.InsertOne(sc, o); err != nil {
			return err
		}
		res, err := m.carts.UpdateOne(sc, bson.M{"cartid": cartID}, bson.M{"$set": bson.M{
			"lines":         []models.CartLine{},
			"itemsprice":    0.0,
			"shippingprice": 0.0,
			"taxprice":      0.0,
			"totalprice":    0.0,
			"updatedat":     time.Now(),
		}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return errs.NotFound("cart not found")
		}
		return nil
	})
}

func (m *mongoRepo) SetPaymentIntent(ctx context.Context, orderID string, result models.PaymentResult) error {
	var o models.Order
	if err := m.orders.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&o); err != nil {
		return errs.FromMongo(err, "order not found")
	}
	if o.IsPaid {
		return errs.Conflict("order is already paid")
	}
	res, err := m.orders.UpdateOne(ctx,
		bson.M{"orderid": orderID, "ispaid": false},
		bson.M{"$set": bson.M{"paymentresult": result}},
	)
	if err != nil {
		return err
	}
	// The order was paid between the read and the write.
	if res.MatchedCount == 0 {
		return errs.Conflict("order is already paid")
	}
	return nil
}

func (m *mongoRepo) MarkPaid(ctx context.Context, orderID string, result models.PaymentResult, dec DecrementFunc) error {
	return db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		var o models.Order
		if err := m.orders.FindOne(sc, bson.M{"orderid": orderID}).Decode(&o); err != nil {
			return errs.FromMongo(err, "order not found")
		}
		if o.IsPaid {
			return errs.Conflict("order is already paid")
		}

		for _, l := range o.Lines {
			if err := dec(sc, l.BookID, l.Quantity); err != nil {
				return err
			}
		}

		now := time.Now()
		res, err := m.orders.UpdateOne(sc,
			bson.M{"orderid": orderID, "ispaid": false},
			bson.M{"$set": bson.M{
				"ispaid":        true,
				"paidat":        now,
				"paymentresult": result,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return errs.Conflict("order is already paid")
		}
		return nil
	})
}

func (m *mongoRepo) MarkDelivered(ctx context.Context, orderID string) error {
	now := time.Now()
	res, err := m.orders.UpdateOne(ctx,
		bson.M{"orderid": orderID, "ispaid": true, "isdelivered": false},
		bson.M{"$set": bson.M{"isdelivered": true, "deliveredat": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.State("order is not ready for delivery")
	}
	return nil
}

func (m *mongoRepo) list(ctx context.Context, filter bson.M, page, limit int) ([]models.Order, int64, error) {
	total, err := m.orders.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"createdat": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := m.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var results []models.Order
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}
	if len(results) == 0 {
		results = []models.Order{}
	}
	return results, total, nil
}

func (m *mongoRepo) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return m.list(ctx, bson.M{"userid": userID}, page, limit)
}

func (m *mongoRepo) ListAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return m.list(ctx, bson.M{}, page, limit)
}
