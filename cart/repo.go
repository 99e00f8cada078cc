package cart

import (
	"context"
	"errors"

	"folio/db"
	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repo persists carts. Lookups that find nothing return (nil, nil): a missing
// cart is an ordinary state, not an error.
type Repo interface {
	GetByOwner(ctx context.Context, o Owner) (*models.Cart, error)
	GetBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	GetByUser(ctx context.Context, userID string) (*models.Cart, error)
	Insert(ctx context.Context, c *models.Cart) error
	Update(ctx context.Context, c *models.Cart) error
	Delete(ctx context.Context, cartID string) error
}

type mongoRepo struct {
	coll *mongo.Collection
}

// NewRepo returns the Mongo-backed cart repository.
func NewRepo() Repo {
	return &mongoRepo{coll: db.CartCollection}
}

func (m *mongoRepo) findOne(ctx context.Context, filter bson.M) (*models.Cart, error) {
	var c models.Cart
	err := m.coll.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *mongoRepo) GetByOwner(ctx context.Context, o Owner) (*models.Cart, error) {
	if !o.Anonymous() {
		return m.findOne(ctx, bson.M{"userid": o.UserID})
	}
	if o.SessionID == "" {
		return nil, nil
	}
	return m.findOne(ctx, bson.M{"sessionid": o.SessionID})
}

func (m *mongoRepo) GetBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	return m.findOne(ctx, bson.M{"sessionid": sessionID})
}

func (m *mongoRepo) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	return m.findOne(ctx, bson.M{"userid": userID})
}

func (m *mongoRepo) Insert(ctx context.Context, c *models.Cart) error {
	_, err := m.coll.InsertOne(ctx, c)
	return err
}

func (m *mongoRepo) Update(ctx context.Context, c *models.Cart) error {
	_, err := m.coll.ReplaceOne(ctx, bson.M{"cartid": c.CartID}, c)
	return err
}

func (m *mongoRepo) Delete(ctx context.Context, cartID string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"cartid": cartID})
	return err
}
