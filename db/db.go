package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var (
	UserCollection    *mongo.Collection
	BookCollection    *mongo.Collection
	AuthorCollection  *mongo.Collection
	CartCollection    *mongo.Collection
	OrderCollection   *mongo.Collection
	ReviewCollection  *mongo.Collection
	AddressCollection *mongo.Collection
	Client            *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	clientOptions := options.Client().ApplyURI(uri)
	Client, err = mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	UserCollection = Client.Database("bookdb").Collection("users")
	BookCollection = Client.Database("bookdb").Collection("books")
	AuthorCollection = Client.Database("bookdb").Collection("authors")
	CartCollection = Client.Database("bookdb").Collection("carts")
	OrderCollection = Client.Database("bookdb").Collection("orders")
	ReviewCollection = Client.Database("bookdb").Collection("reviews")
	AddressCollection = Client.Database("bookdb").Collection("addresses")
}

// WithTransaction runs fn inside a single multi-document transaction with
// majority write concern. Either every write in fn commits or none do.
func WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().SetWriteConcern(writeconcern.Majority())
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	return err
}
