package routes

import (
	"folio/ratelim"

	"github.com/julienschmidt/httprouter"
)

func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	AddAuthRoutes(router, rateLimiter)
	AddBookRoutes(router, rateLimiter)
	AddAuthorRoutes(router, rateLimiter)
	AddReviewRoutes(router, rateLimiter)
	AddCartRoutes(router, rateLimiter)
	AddOrderRoutes(router, rateLimiter)
	AddUserRoutes(router, rateLimiter)
}
