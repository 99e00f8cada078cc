package users

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"

	"folio/db"
	"folio/errs"
	"folio/models"
	"folio/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var paymentMethods = map[string]bool{
	"PayPal":         true,
	"CashOnDelivery": true,
}

// GET /api/users/me
func GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var u models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"userid": utils.GetUserIDFromRequest(r)}).Decode(&u)
	if err != nil {
		utils.RespondWithFailure(w, errs.FromMongo(err, "user not found"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": u})
}

// PUT /api/users/me
func UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name is required")
		return
	}

	_, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": utils.GetUserIDFromRequest(r)},
		bson.M{"$set": bson.M{"name": body.Name}},
	)
	if err != nil {
		log.Printf("profile update failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Profile updated"})
}

// PUT /api/users/me/payment-method
func SetPaymentMethod(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !paymentMethods[body.PaymentMethod] {
		utils.RespondWithFailure(w, errs.Validation("unsupported payment method %q", body.PaymentMethod))
		return
	}

	_, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": utils.GetUserIDFromRequest(r)},
		bson.M{"$set": bson.M{"paymentmethod": body.PaymentMethod}},
	)
	if err != nil {
		log.Printf("payment method update failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update payment method")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Payment method saved"})
}

// GET /api/users (admin)
func GetAllUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := utils.ParseQueryOptions(r)
	filter := bson.M{}
	if q.Search != "" {
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": q.Search, "$options": "i"}},
			{"email": bson.M{"$regex": q.Search, "$options": "i"}},
		}
	}

	total, err := db.UserCollection.CountDocuments(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	opts := options.Find().
		SetSort(bson.M{"createdat": -1}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))

	cursor, err := db.UserCollection.Find(ctx, filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer cursor.Close(ctx)

	var list []models.User
	if err := cursor.All(ctx, &list); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	if len(list) == 0 {
		list = []models.User{}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"users":      list,
		"totalPages": int(math.Ceil(float64(total) / float64(q.Limit))),
	})
}
