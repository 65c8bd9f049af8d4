package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arjunmehta/cartly-backend/api/controllers"
	"github.com/arjunmehta/cartly-backend/api/middleware"
	"github.com/arjunmehta/cartly-backend/internal/auth"
	cartsvc "github.com/arjunmehta/cartly-backend/internal/cart"
	"github.com/arjunmehta/cartly-backend/internal/categories"
	"github.com/arjunmehta/cartly-backend/internal/orders"
	"github.com/arjunmehta/cartly-backend/internal/products"
	"github.com/arjunmehta/cartly-backend/internal/reviews"
	"github.com/arjunmehta/cartly-backend/internal/users"
	"github.com/arjunmehta/cartly-backend/pkg/auth/session"
	"github.com/arjunmehta/cartly-backend/pkg/config"
	"github.com/arjunmehta/cartly-backend/pkg/logger"
	"github.com/arjunmehta/cartly-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs wired in.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	Database controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker

	AuthService     auth.Service
	RegisterService auth.RegisterService
	UserService     users.Service
	CategoryService categories.Service
	ProductService  products.Service
	ReviewService   reviews.Service
	CartService     cartsvc.Service
	OrderService    orders.Service
}

// NewRouter assembles the full route tree. Catalog reads are public;
// everything that touches a user's own data sits behind the JWT middleware.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	authed := middleware.Auth(cfg.JWT, deps.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Database, deps.Redis, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.RegisterService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.With(authed).Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	// Public catalog browse surface.
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", controllers.CategoryList(deps.CategoryService, logg))
		r.Get("/tree", controllers.CategoryTree(deps.CategoryService, logg))
		r.Get("/{categoryId}", controllers.CategoryGet(deps.CategoryService, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Post("/", controllers.CategoryCreate(deps.CategoryService, logg))
			r.Delete("/{categoryId}", controllers.CategoryDelete(deps.CategoryService, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.ProductService, logg))
		r.Get("/{productId}", controllers.ProductGet(deps.ProductService, logg))
		r.Get("/{productId}/reviews", controllers.ReviewList(deps.ReviewService, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Post("/", controllers.ProductCreate(deps.ProductService, logg))
			r.Delete("/{productId}", controllers.ProductDelete(deps.ProductService, logg))
			r.Post("/{productId}/description", controllers.ProductAddDescription(deps.ProductService, logg))
			r.Post("/{productId}/variants", controllers.ProductAddVariant(deps.ProductService, logg))
			r.Post("/{productId}/repair-aggregates", controllers.ProductRepairAggregates(deps.ProductService, logg))
			r.Post("/{productId}/reviews", controllers.ReviewCreate(deps.ReviewService, logg))
		})
	})

	r.Route("/api/v1/variants", func(r chi.Router) {
		r.Use(authed)
		r.Put("/{variantId}", controllers.ProductUpdateVariant(deps.ProductService, logg))
		r.Delete("/{variantId}", controllers.ProductDeleteVariant(deps.ProductService, logg))
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(authed)
		r.Delete("/{reviewId}", controllers.ReviewDelete(deps.ReviewService, logg))
	})

	r.Route("/api/v1/users/me", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", controllers.UserProfile(deps.UserService, logg))
		r.Put("/", controllers.UserUpdateProfile(deps.UserService, logg))
		r.Post("/addresses", controllers.UserAddAddress(deps.UserService, logg))
		r.Put("/addresses/{addressId}", controllers.UserUpdateAddress(deps.UserService, logg))
		r.Delete("/addresses/{addressId}", controllers.UserRemoveAddress(deps.UserService, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", controllers.CartGet(deps.CartService, logg))
		r.Delete("/", controllers.CartClear(deps.CartService, logg))
		r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
		r.Put("/items/{productId}", controllers.CartUpdateItem(deps.CartService, logg))
		r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.CartService, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", controllers.OrderList(deps.OrderService, logg))
		r.Post("/", controllers.OrderCreate(deps.OrderService, logg))
		r.Get("/{orderId}", controllers.OrderGet(deps.OrderService, logg))
		r.Post("/{orderId}/deliver", controllers.OrderDeliver(deps.OrderService, logg))
		r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.OrderService, logg))
	})

	return r
}
