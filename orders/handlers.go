package orders

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
	"folio/mq"
	"folio/pay"
	"folio/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

type Handlers struct {
	pipeline *Pipeline
	repo     Repo
	paypal   *pay.Client
}

func NewHandlers(p *Pipeline, repo Repo, paypal *pay.Client) *Handlers {
	return &Handlers{pipeline: p, repo: repo, paypal: paypal}
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

// canView allows the order's owner and admins.
func canView(r *http.Request, o *models.Order) bool {
	return o.UserID == utils.GetUserIDFromRequest(r) || isAdmin(r)
}

// CreateOrder freezes the caller's cart into an order. The shipping address
// and payment method come from the request body when present, otherwise from
// the user's saved defaults.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var body struct {
		ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
		PaymentMethod   string                  `json:"paymentMethod"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	addr := models.ShippingAddress{}
	if body.ShippingAddress != nil {
		addr = *body.ShippingAddress
	} else {
		var saved models.Address
		err := db.AddressCollection.FindOne(ctx,
			bson.M{"userid": userID, "isdefault": true}).Decode(&saved)
		if err == nil {
			addr = models.ShippingAddress{
				FullName:      saved.FullName,
				StreetAddress: saved.StreetAddress,
				City:          saved.City,
				State:         saved.State,
				Country:       saved.Country,
				PinCode:       saved.PinCode,
			}
		}
	}

	method := body.PaymentMethod
	if method == "" {
		var u models.User
		if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&u); err == nil {
			method = u.PaymentMethod
		}
	}

	o, err := h.pipeline.CreateOrder(ctx, userID, addr, method)
	if err != nil {
		if errs.KindOf(err) != errs.KindUnknown {
			utils.RespondWithFailure(w, err)
			return
		}
		log.Printf("create order failed for user %s: %v", userID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success":    true,
		"message":    "Order created",
		"redirectTo": "/order/" + o.OrderID,
		"order":      o,
	})
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.pipeline.GetOrder(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithFailure(w, err)
		return
	}
	if !canView(r, o) {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"order": o})
}

func (h *Handlers) GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := utils.ParseQueryOptions(r)
	list, total, err := h.repo.ListByUser(ctx, utils.GetUserIDFromRequest(r), q.Page, q.Limit)
	if err != nil {
		log.Printf("list orders failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"orders":     list,
		"totalPages": int(math.Ceil(float64(total) / float64(q.Limit))),
	})
}

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := utils.ParseQueryOptions(r)
	list, total, err := h.repo.ListAll(ctx, q.Page, q.Limit)
	if err != nil {
		log.Printf("list all orders failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"orders":     list,
		"totalPages": int(math.Ceil(float64(total) / float64(q.Limit))),
	})
}

// CreatePayPalOrder opens a payment intent with PayPal for the order's frozen
// total and remembers the provider id for the capture step.
func (h *Handlers) CreatePayPalOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	o, err := h.pipeline.GetOrder(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithFailure(w, err)
		return
	}
	if !canView(r, o) {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if o.IsPaid {
		utils.RespondWithFailure(w, errs.Conflict("order is already paid"))
		return
	}

	providerID, err := h.paypal.CreateOrder(ctx, o.TotalPrice)
	if err != nil {
		log.Printf("paypal create failed for %s: %v", o.OrderID, err)
		utils.RespondWithError(w, http.StatusBadGateway, "Payment provider unavailable")
		return
	}
	if err := h.pipeline.RecordPaymentIntent(ctx, o.OrderID, providerID); err != nil {
		utils.RespondWithFailure(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "data": providerID})
}

// ApprovePayPalOrder captures the payment and, when the capture settles,
// drives the order through the paid transition. The capture must match the
// intent recorded on the order; a mismatched or incomplete capture never
// marks the order paid.
func (h *Handlers) ApprovePayPalOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var body struct {
		OrderID string `json:"orderID"` // provider-side id
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrderID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.pipeline.GetOrder(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithFailure(w, err)
		return
	}
	if !canView(r, o) {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	capture, err := h.paypal.CapturePayment(ctx, body.OrderID)
	if err != nil {
		log.Printf("paypal capture failed for %s: %v", o.OrderID, err)
		utils.RespondWithError(w, http.StatusBadGateway, "Payment capture failed")
		return
	}
	if o.PaymentResult == nil || capture.ID != o.PaymentResult.ID || capture.Status != "COMPLETED" {
		utils.RespondWithFailure(w, errs.Validation("Error in PayPal payment"))
		return
	}

	paid, err := h.pipeline.UpdateOrderToPaid(ctx, o.OrderID, models.PaymentResult{
		ID:         capture.ID,
		Status:     capture.Status,
		PayerEmail: capture.PayerEmail,
		PricePaid:  capture.Amount,
	})
	if err != nil {
		if errs.KindOf(err) != errs.KindUnknown {
			utils.RespondWithFailure(w, err)
			return
		}
		log.Printf("mark paid failed for %s: %v", o.OrderID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":    true,
		"message":    "Your order has been paid",
		"redirectTo": "/order/" + paid.OrderID,
		"order":      paid,
	})
}

// MarkOrderPaid is the admin path for cash-on-delivery orders; it runs the
// same paid transition the PayPal capture does.
func (h *Handlers) MarkOrderPaid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orderID := ps.ByName("orderid")
	paid, err := h.pipeline.UpdateOrderToPaid(ctx, orderID, models.PaymentResult{
		ID:     "cod_" + orderID,
		Status: "COMPLETED",
	})
	if err != nil {
		if errs.KindOf(err) != errs.KindUnknown {
			utils.RespondWithFailure(w, err)
			return
		}
		log.Printf("mark paid failed for %s: %v", orderID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"message": "Order marked as paid",
		"order":   paid,
	})
}

func (h *Handlers) DeliverOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.pipeline.DeliverOrder(ctx, ps.ByName("orderid"))
	if err != nil {
		if errs.KindOf(err) != errs.KindUnknown {
			utils.RespondWithFailure(w, err)
			return
		}
		log.Printf("deliver failed for %s: %v", ps.ByName("orderid"), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}

	go mq.Emit(context.Background(), "order-delivered", o)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"message": "Order marked as delivered",
		"order":   o,
	})
}
