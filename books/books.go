package books

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"folio/db"
	"folio/models"
	"folio/rdx"
	"folio/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const numFeaturedBooks = 4

// GET /api/books/latest
func GetLatestBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.M{"publisheddate": -1}).
		SetLimit(numFeaturedBooks)

	cursor, err := db.BookCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Println("GetLatestBooks Find error:", err)
		http.Error(w, "Could not retrieve books", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var latest []models.Book
	if err := cursor.All(ctx, &latest); err != nil {
		log.Println("GetLatestBooks cursor.All error:", err)
		http.Error(w, "Error reading book data", http.StatusInternalServerError)
		return
	}
	if len(latest) == 0 {
		latest = []models.Book{}
	}

	utils.RespondWithJSON(w, http.StatusOK, latest)
}

// GET /api/book/:slug — book detail with its authors resolved
func GetBookBySlug(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	slug := ps.ByName("slug")

	var book models.Book
	if err := db.BookCollection.FindOne(ctx, bson.M{"slug": slug}).Decode(&book); err != nil {
		http.Error(w, "Book not found", http.StatusNotFound)
		return
	}

	var authors []models.Author
	if len(book.AuthorIDs) > 0 {
		cursor, err := db.AuthorCollection.Find(ctx, bson.M{"authorid": bson.M{"$in": book.AuthorIDs}})
		if err == nil {
			defer cursor.Close(ctx)
			_ = cursor.All(ctx, &authors)
		}
	}
	if authors == nil {
		authors = []models.Author{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"book":    book,
		"authors": authors,
	})
}

// GET /api/books — paged search with optional ?search= and ?genre=
func GetBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := utils.ParseQueryOptions(r)

	filter := bson.M{}
	if q.Search != "" {
		filter["title"] = bson.M{"$regex": q.Search, "$options": "i"}
	}
	if q.Genre != "" {
		filter["genres"] = q.Genre
	}

	total, err := db.BookCollection.CountDocuments(ctx, filter)
	if err != nil {
		log.Println("GetBooks CountDocuments error:", err)
		http.Error(w, "Could not retrieve books", http.StatusInternalServerError)
		return
	}

	opts := options.Find().
		SetSort(bson.M{"createdat": -1}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))

	cursor, err := db.BookCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Println("GetBooks Find error:", err)
		http.Error(w, "Could not retrieve books", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var results []models.Book
	if err := cursor.All(ctx, &results); err != nil {
		log.Println("GetBooks cursor.All error:", err)
		http.Error(w, "Error reading book data", http.StatusInternalServerError)
		return
	}
	if len(results) == 0 {
		results = []models.Book{}
	}

	totalPages := (total + int64(q.Limit) - 1) / int64(q.Limit)
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"data":       results,
		"totalPages": totalPages,
	})
}

const genreCacheKey = "genres"

// GET /api/books/genres
//
// The genre list changes only on admin catalog edits, so it is served from a
// short-lived redis cache; a cache miss or redis outage falls through to the
// distinct query.
func GetGenres(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if cached, err := rdx.RdxGet(genreCacheKey); err == nil && cached != "" {
		var genres []string
		if err := json.Unmarshal([]byte(cached), &genres); err == nil {
			utils.RespondWithJSON(w, http.StatusOK, genres)
			return
		}
	}

	genres, err := db.BookCollection.Distinct(ctx, "genres", bson.M{})
	if err != nil {
		log.Println("GetGenres Distinct error:", err)
		http.Error(w, "Could not retrieve genres", http.StatusInternalServerError)
		return
	}

	if data, err := json.Marshal(genres); err == nil {
		if err := rdx.SetWithExpiry(genreCacheKey, string(data), 10*time.Minute); err != nil {
			log.Println("GetGenres cache write failed:", err)
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, genres)
}

// POST /api/books — admin only
func CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var book models.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if book.Title == "" || book.Price < 0 || book.Stock < 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	book.BookID = "b" + utils.GenerateRandomString(10)
	if book.Slug == "" {
		book.Slug = utils.Slugify(book.Title)
	}
	book.Rating = 0
	book.NumReviews = 0
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt

	// Slug collisions surface as duplicate-key errors from the unique index
	var existing models.Book
	err := db.BookCollection.FindOne(ctx, bson.M{"slug": book.Slug}).Decode(&existing)
	if err == nil {
		http.Error(w, "Slug already exists", http.StatusConflict)
		return
	} else if err != mongo.ErrNoDocuments {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if _, err := db.BookCollection.InsertOne(ctx, book); err != nil {
		log.Println("CreateBook InsertOne error:", err)
		http.Error(w, "Failed to create book", http.StatusInternalServerError)
		return
	}

	// New genres may have appeared
	_ = rdx.RdxDel(genreCacheKey)

	utils.RespondWithJSON(w, http.StatusCreated, book)
}

// PUT /api/books/:bookid — admin only
func EditBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	bookID := ps.ByName("bookid")

	var payload struct {
		Title         *string    `json:"title"`
		Description   *string    `json:"description"`
		ISBN          *string    `json:"isbn"`
		Image         *string    `json:"image"`
		Banner        *string    `json:"banner"`
		Price         *float64   `json:"price"`
		Stock         *int       `json:"stock"`
		IsFeatured    *bool      `json:"isFeatured"`
		Genres        []string   `json:"genres"`
		AuthorIDs     []string   `json:"authorIds"`
		PublishedDate *time.Time `json:"publishedDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	set := bson.M{"updatedat": time.Now()}
	if payload.Title != nil {
		set["title"] = *payload.Title
	}
	if payload.Description != nil {
		set["description"] = *payload.Description
	}
	if payload.ISBN != nil {
		set["isbn"] = *payload.ISBN
	}
	if payload.Image != nil {
		set["image"] = *payload.Image
	}
	if payload.Banner != nil {
		set["banner"] = *payload.Banner
	}
	if payload.Price != nil {
		if *payload.Price < 0 {
			http.Error(w, "Price cannot be negative", http.StatusBadRequest)
			return
		}
		set["price"] = *payload.Price
	}
	if payload.Stock != nil {
		if *payload.Stock < 0 {
			http.Error(w, "Stock cannot be negative", http.StatusBadRequest)
			return
		}
		set["stock"] = *payload.Stock
	}
	if payload.IsFeatured != nil {
		set["isfeatured"] = *payload.IsFeatured
	}
	if payload.Genres != nil {
		set["genres"] = payload.Genres
	}
	if payload.AuthorIDs != nil {
		set["authorids"] = payload.AuthorIDs
	}
	if payload.PublishedDate != nil {
		set["publisheddate"] = *payload.PublishedDate
	}

	res, err := db.BookCollection.UpdateOne(ctx, bson.M{"bookid": bookID}, bson.M{"$set": set})
	if err != nil {
		log.Println("EditBook UpdateOne error:", err)
		http.Error(w, "Failed to update book", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Book not found", http.StatusNotFound)
		return
	}

	_ = rdx.RdxDel(genreCacheKey)

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DELETE /api/books/:bookid — admin only
func DeleteBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	bookID := ps.ByName("bookid")

	res, err := db.BookCollection.DeleteOne(ctx, bson.M{"bookid": bookID})
	if err != nil {
		log.Println("DeleteBook DeleteOne error:", err)
		http.Error(w, "Failed to delete book", http.StatusInternalServerError)
		return
	}
	if res.DeletedCount == 0 {
		http.Error(w, "Book not found", http.StatusNotFound)
		return
	}

	_ = rdx.RdxDel(genreCacheKey)

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
