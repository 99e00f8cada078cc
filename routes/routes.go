package routes

import (
	"context"

	"folio/auth"
	"folio/authors"
	"folio/books"
	"folio/cart"
	"folio/middleware"
	"folio/models"
	"folio/mq"
	"folio/orders"
	"folio/pay"
	"folio/ratelim"
	"folio/reviews"
	"folio/users"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.LogoutUser))
	router.POST("/api/auth/token/refresh", rl.Limit(auth.RefreshToken))
}

func AddBookRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/books", rl.Limit(books.GetBooks))
	router.GET("/api/books/latest", rl.Limit(books.GetLatestBooks))
	router.GET("/api/books/genres", rl.Limit(books.GetGenres))
	router.GET("/api/book/:slug", rl.Limit(books.GetBookBySlug))

	router.POST("/api/admin/books", middleware.Authenticate(middleware.RequireRole("admin", books.CreateBook)))
	router.PUT("/api/admin/books/:bookid", middleware.Authenticate(middleware.RequireRole("admin", books.EditBook)))
	router.DELETE("/api/admin/books/:bookid", middleware.Authenticate(middleware.RequireRole("admin", books.DeleteBook)))
}

func AddAuthorRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/authors", rl.Limit(authors.GetAuthors))

	router.POST("/api/admin/authors", middleware.Authenticate(middleware.RequireRole("admin", authors.CreateAuthor)))
	router.PUT("/api/admin/authors/:authorid", middleware.Authenticate(middleware.RequireRole("admin", authors.EditAuthor)))
	router.DELETE("/api/admin/authors/:authorid", middleware.Authenticate(middleware.RequireRole("admin", authors.DeleteAuthor)))
}

func AddReviewRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/reviews/:bookid", rl.Limit(reviews.GetReviews))
	router.GET("/api/reviews/:bookid/mine", middleware.Authenticate(reviews.GetMyReview))
	router.POST("/api/reviews/:bookid", rl.Limit(middleware.Authenticate(reviews.CreateUpdateReview)))
	router.DELETE("/api/reviews/:bookid/:reviewid", middleware.Authenticate(reviews.DeleteReview))
}

func AddCartRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	svc := cart.NewService(cart.NewRepo(), books.NewRepository())
	h := cart.NewHandlers(svc)

	router.GET("/api/cart", middleware.OptionalAuth(h.GetCart))
	router.POST("/api/cart", rl.Limit(middleware.OptionalAuth(h.AddToCart)))
	router.DELETE("/api/cart/:bookid", rl.Limit(middleware.OptionalAuth(h.RemoveFromCart)))
	router.POST("/api/cart/merge", middleware.Authenticate(h.MergeCart))
}

func AddOrderRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	repo := orders.NewRepo()
	pipeline := orders.NewPipeline(repo, cart.NewRepo(), books.NewRepository())
	pipeline.OnPaid(func(o *models.Order) {
		go mq.Emit(context.Background(), "order-paid", o)
	})
	h := orders.NewHandlers(pipeline, repo, pay.NewClient())

	router.POST("/api/orders", rl.Limit(middleware.Authenticate(h.CreateOrder)))
	router.GET("/api/orders/mine", middleware.Authenticate(h.GetMyOrders))
	router.GET("/api/order/:orderid", middleware.Authenticate(h.GetOrder))
	router.GET("/api/order/:orderid/invoice", middleware.Authenticate(h.PrintInvoice))
	router.POST("/api/order/:orderid/paypal", rl.Limit(middleware.Authenticate(h.CreatePayPalOrder)))
	router.POST("/api/order/:orderid/paypal/capture", rl.Limit(middleware.Authenticate(h.ApprovePayPalOrder)))

	router.GET("/api/admin/orders", middleware.Authenticate(middleware.RequireRole("admin", h.GetAllOrders)))
	router.POST("/api/admin/orders/:orderid/pay", middleware.Authenticate(middleware.RequireRole("admin", h.MarkOrderPaid)))
	router.POST("/api/admin/orders/:orderid/deliver", middleware.Authenticate(middleware.RequireRole("admin", h.DeliverOrder)))
}

func AddUserRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/users/me", middleware.Authenticate(users.GetProfile))
	router.PUT("/api/users/me", middleware.Authenticate(users.UpdateProfile))
	router.PUT("/api/users/me/payment-method", middleware.Authenticate(users.SetPaymentMethod))

	router.GET("/api/users/me/addresses", middleware.Authenticate(users.GetAddresses))
	router.POST("/api/users/me/addresses", rl.Limit(middleware.Authenticate(users.AddAddress)))
	router.PUT("/api/users/me/addresses/:addressid/default", middleware.Authenticate(users.SetDefaultAddress))
	router.DELETE("/api/users/me/addresses/:addressid", middleware.Authenticate(users.DeleteAddress))

	router.GET("/api/admin/users", middleware.Authenticate(middleware.RequireRole("admin", users.GetAllUsers)))
}
