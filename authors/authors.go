package authors

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"folio/db"
	"folio/models"
	"folio/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GET /api/authors
func GetAuthors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := utils.ParseQueryOptions(r)

	filter := bson.M{}
	if q.Search != "" {
		filter["name"] = bson.M{"$regex": q.Search, "$options": "i"}
	}

	total, err := db.AuthorCollection.CountDocuments(ctx, filter)
	if err != nil {
		http.Error(w, "Could not retrieve authors", http.StatusInternalServerError)
		return
	}

	opts := options.Find().
		SetSort(bson.M{"name": 1}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))

	cursor, err := db.AuthorCollection.Find(ctx, filter, opts)
	if err != nil {
		http.Error(w, "Could not retrieve authors", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var results []models.Author
	if err := cursor.All(ctx, &results); err != nil {
		http.Error(w, "Error reading author data", http.StatusInternalServerError)
		return
	}
	if len(results) == 0 {
		results = []models.Author{}
	}

	totalPages := (total + int64(q.Limit) - 1) / int64(q.Limit)
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"data":       results,
		"totalPages": totalPages,
	})
}

// POST /api/authors — admin only
func CreateAuthor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var author models.Author
	if err := json.NewDecoder(r.Body).Decode(&author); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if author.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	author.AuthorID = "a" + utils.GenerateRandomString(10)
	author.CreatedAt = time.Now()

	if _, err := db.AuthorCollection.InsertOne(ctx, author); err != nil {
		log.Println("CreateAuthor InsertOne error:", err)
		http.Error(w, "Failed to create author", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, author)
}

// PUT /api/authors/:authorid — admin only
func EditAuthor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	authorID := ps.ByName("authorid")

	var payload struct {
		Name *string `json:"name"`
		Bio  *string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	set := bson.M{}
	if payload.Name != nil {
		if *payload.Name == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}
		set["name"] = *payload.Name
	}
	if payload.Bio != nil {
		set["bio"] = *payload.Bio
	}
	if len(set) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	res, err := db.AuthorCollection.UpdateOne(ctx, bson.M{"authorid": authorID}, bson.M{"$set": set})
	if err != nil {
		http.Error(w, "Failed to update author", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Author not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DELETE /api/authors/:authorid — admin only
func DeleteAuthor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	authorID := ps.ByName("authorid")

	res, err := db.AuthorCollection.DeleteOne(ctx, bson.M{"authorid": authorID})
	if err != nil {
		http.Error(w, "Failed to delete author", http.StatusInternalServerError)
		return
	}
	if res.DeletedCount == 0 {
		http.Error(w, "Author not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
