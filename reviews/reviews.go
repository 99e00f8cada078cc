package reviews

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"

	"folio/db"
	"folio/errs"
	"folio/globals"
	"folio/models"
	"folio/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GET /api/reviews/:bookid
func GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	bookID := ps.ByName("bookid")
	q := utils.ParseQueryOptions(r)

	filter := bson.M{"bookid": bookID}
	total, err := db.ReviewCollection.CountDocuments(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	opts := options.Find().
		SetSort(bson.M{"createdat": -1}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))

	cursor, err := db.ReviewCollection.Find(ctx, filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}
	defer cursor.Close(ctx)

	var list []models.Review
	if err := cursor.All(ctx, &list); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}
	if len(list) == 0 {
		list = []models.Review{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"reviews":    list,
		"totalPages": int(math.Ceil(float64(total) / float64(q.Limit))),
	})
}

// GET /api/reviews/:bookid/mine
func GetMyReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var review models.Review
	err := db.ReviewCollection.FindOne(ctx, bson.M{
		"bookid": ps.ByName("bookid"),
		"userid": userID,
	}).Decode(&review)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"review": nil})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"review": review})
}

// POST /api/reviews/:bookid
//
// One review per user per book: a second submission replaces the first. The
// book's rating average and review count are recomputed in the same
// transaction as the review write so they can never disagree.
func CreateUpdateReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	bookID := ps.ByName("bookid")

	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Rating      int    `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Rating < 1 || body.Rating > 5 || body.Title == "" || body.Description == "" {
		utils.RespondWithFailure(w, errs.Validation("rating must be 1-5 and title and description are required"))
		return
	}

	var book models.Book
	if err := db.BookCollection.FindOne(ctx, bson.M{"bookid": bookID}).Decode(&book); err != nil {
		utils.RespondWithFailure(w, errs.FromMongo(err, "book not found"))
		return
	}

	userName := "Anonymous"
	var u models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&u); err == nil {
		userName = u.Name
	}

	now := time.Now()
	err := db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		_, err := db.ReviewCollection.UpdateOne(sc,
			bson.M{"bookid": bookID, "userid": userID},
			bson.M{
				"$set": bson.M{
					"username":    userName,
					"title":       body.Title,
					"description": body.Description,
					"rating":      body.Rating,
					"updatedat":   now,
				},
				"$setOnInsert": bson.M{
					"reviewid":  "r" + utils.GenerateRandomString(12),
					"createdat": now,
				},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}
		return recomputeBookRating(sc, bookID)
	})
	if err != nil {
		log.Printf("review upsert failed for book %s: %v", bookID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save review")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"message": "Review submitted",
	})
}

// DELETE /api/reviews/:bookid/:reviewid
func DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	bookID := ps.ByName("bookid")
	reviewID := ps.ByName("reviewid")

	var review models.Review
	if err := db.ReviewCollection.FindOne(ctx, bson.M{"reviewid": reviewID}).Decode(&review); err != nil {
		utils.RespondWithFailure(w, errs.FromMongo(err, "review not found"))
		return
	}
	if review.UserID != userID && !isAdmin(r) {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	err := db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := db.ReviewCollection.DeleteOne(sc, bson.M{"reviewid": reviewID}); err != nil {
			return err
		}
		return recomputeBookRating(sc, bookID)
	})
	if err != nil {
		log.Printf("review delete failed for %s: %v", reviewID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Review deleted"})
}

// recomputeBookRating rewrites the book's rating average and numReviews from
// the reviews collection. Zero reviews resets both to zero.
func recomputeBookRating(ctx context.Context, bookID string) error {
	cursor, err := db.ReviewCollection.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"bookid": bookID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	rating, count := 0.0, 0
	var agg []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cursor.All(ctx, &agg); err != nil {
		return err
	}
	if len(agg) > 0 {
		rating = agg[0].Avg
		count = agg[0].Count
	}

	_, err = db.BookCollection.UpdateOne(ctx,
		bson.M{"bookid": bookID},
		bson.M{"$set": bson.M{"rating": rating, "numreviews": count}},
	)
	return err
}

func isAdmin(r *http.Request) bool {
	roles, _ := r.Context().Value(globals.RoleKey).([]string)
	for _, role := range roles {
		if role == "admin" {
			return true
		}
	}
	return false
}
