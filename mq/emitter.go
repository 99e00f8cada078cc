package mq

import (
	"context"
	"encoding/json"
	"log"

	"folio/db"
	"folio/mailer"
	"folio/models"
	"folio/rdx"

	"go.mongodb.org/mongo-driver/bson"
)

// OrderEvent travels over redis pub/sub so the paid transition returns
// without waiting on mail delivery.
type OrderEvent struct {
	Event   string `json:"event"`
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

const orderChannel = "order-events"

// Emit publishes an order event. Failures are logged, never surfaced: the
// order transition already committed and must not be rolled back over a
// notification.
func Emit(ctx context.Context, event string, o *models.Order) {
	data, err := json.Marshal(OrderEvent{Event: event, OrderID: o.OrderID, UserID: o.UserID})
	if err != nil {
		log.Printf("[Emit] marshal failed: %v", err)
		return
	}
	if err := rdx.Conn.Publish(ctx, orderChannel, data).Err(); err != nil {
		log.Printf("[Emit] publish failed for %s: %v", o.OrderID, err)
	}
}

// StartOrderWorker consumes order events and sends the matching mail. Runs
// until the process exits.
func StartOrderWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, orderChannel)
	ch := sub.Channel()
	mc := mailer.NewClient()

	log.Println("[OrderWorker] Listening for order events...")

	for msg := range ch {
		var evt OrderEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			log.Printf("[OrderWorker] unmarshal error: %v", err)
			continue
		}

		var o models.Order
		if err := db.OrderCollection.FindOne(ctx, bson.M{"orderid": evt.OrderID}).Decode(&o); err != nil {
			log.Printf("[OrderWorker] order %s not found: %v", evt.OrderID, err)
			continue
		}
		var u models.User
		if err := db.UserCollection.FindOne(ctx, bson.M{"userid": evt.UserID}).Decode(&u); err != nil {
			log.Printf("[OrderWorker] user %s not found: %v", evt.UserID, err)
			continue
		}

		switch evt.Event {
		case "order-paid":
			if err := mc.SendOrderReceipt(u.Email, &o); err != nil {
				log.Printf("[OrderWorker] receipt mail failed for %s: %v", o.OrderID, err)
			}
		case "order-delivered":
			body := "Your order " + o.OrderID + " has been delivered. Enjoy your books!"
			if err := mc.Send(u.Email, "Order delivered", body); err != nil {
				log.Printf("[OrderWorker] delivery mail failed for %s: %v", o.OrderID, err)
			}
		default:
			log.Printf("[OrderWorker] unknown event %q", evt.Event)
		}
	}
}
