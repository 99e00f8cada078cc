package cart

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"folio/errs"
	"folio/utils"

	"github.com/julienschmidt/httprouter"
)

// Handlers exposes the cart service over HTTP.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// POST /api/cart
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		BookID   string `json:"bookId"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.BookID == "" {
		http.Error(w, "bookId is required", http.StatusBadRequest)
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}

	owner := EnsureSession(w, r, ResolveOwner(r))

	c, err := h.svc.AddItem(ctx, owner, body.BookID, body.Quantity)
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			log.Println("AddToCart error:", err)
		}
		utils.RespondWithFailure(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, c)
}

// DELETE /api/cart/:bookid
func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	owner := ResolveOwner(r)

	c, err := h.svc.RemoveItem(ctx, owner, ps.ByName("bookid"))
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			log.Println("RemoveFromCart error:", err)
		}
		utils.RespondWithFailure(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}

// GET /api/cart
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	owner := ResolveOwner(r)

	c, err := h.svc.GetCart(ctx, owner)
	if err != nil {
		log.Println("GetCart error:", err)
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}

	// No cart is a normal state, not a 404
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}

// POST /api/cart/merge — called once after sign-in
func (h *Handlers) MergeCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	owner := ResolveOwner(r)

	c, err := h.svc.MergeOnLogin(ctx, owner.SessionID, userID)
	if err != nil {
		log.Println("MergeCart error:", err)
		http.Error(w, "Failed to merge cart", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}
