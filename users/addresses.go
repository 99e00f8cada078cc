package users

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"folio/db"
	"folio/errs"
	"folio/models"
	"folio/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GET /api/users/me/addresses
func GetAddresses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cursor, err := db.AddressCollection.Find(ctx, bson.M{"userid": utils.GetUserIDFromRequest(r)})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch addresses")
		return
	}
	defer cursor.Close(ctx)

	var list []models.Address
	if err := cursor.All(ctx, &list); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch addresses")
		return
	}
	if len(list) == 0 {
		list = []models.Address{}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"addresses": list})
}

// POST /api/users/me/addresses
//
// The first address a user saves becomes the default automatically; marking
// a later one default clears the flag from the rest in the same transaction.
func AddAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var a models.Address
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if a.FullName == "" || a.StreetAddress == "" || a.City == "" || a.Country == "" || a.PinCode == "" {
		utils.RespondWithFailure(w, errs.Validation("full name, street address, city, country and pin code are required"))
		return
	}

	count, err := db.AddressCollection.CountDocuments(ctx, bson.M{"userid": userID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save address")
		return
	}

	a.AddressID = "ad" + utils.GenerateRandomString(10)
	a.UserID = userID
	a.CreatedAt = time.Now()
	if count == 0 {
		a.IsDefault = true
	}

	err = db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if a.IsDefault {
			if _, err := db.AddressCollection.UpdateMany(sc,
				bson.M{"userid": userID},
				bson.M{"$set": bson.M{"isdefault": false}},
			); err != nil {
				return err
			}
		}
		_, err := db.AddressCollection.InsertOne(sc, a)
		return err
	})
	if err != nil {
		log.Printf("address insert failed for %s: %v", userID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save address")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "address": a})
}

// PUT /api/users/me/addresses/:addressid/default
func SetDefaultAddress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	addressID := ps.ByName("addressid")

	err := db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := db.AddressCollection.UpdateMany(sc,
			bson.M{"userid": userID},
			bson.M{"$set": bson.M{"isdefault": false}},
		); err != nil {
			return err
		}
		res, err := db.AddressCollection.UpdateOne(sc,
			bson.M{"addressid": addressID, "userid": userID},
			bson.M{"$set": bson.M{"isdefault": true}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return errs.NotFound("address not found")
		}
		return nil
	})
	if err != nil {
		if errs.KindOf(err) != errs.KindUnknown {
			utils.RespondWithFailure(w, err)
			return
		}
		log.Printf("set default address failed for %s: %v", userID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update address")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Default address updated"})
}

// DELETE /api/users/me/addresses/:addressid
func DeleteAddress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := db.AddressCollection.DeleteOne(ctx, bson.M{
		"addressid": ps.ByName("addressid"),
		"userid":    utils.GetUserIDFromRequest(r),
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete address")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithFailure(w, errs.NotFound("address not found"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Address deleted"})
}
