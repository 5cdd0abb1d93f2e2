package router

import (
	"net/http"

	"github.com/bistro-admin/api/internal/config"
	"github.com/bistro-admin/api/internal/database"
	"github.com/bistro-admin/api/internal/handler"
	mw "github.com/bistro-admin/api/internal/middleware"
	"github.com/bistro-admin/api/internal/service"
	"github.com/bistro-admin/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Catalog reads and order intake are public; catalog writes and status
// transitions require bearer authentication.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Menu
	menuHandler := handler.NewMenuHandler(queries)
	r.Route("/menu", func(r chi.Router) {
		menuHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			menuHandler.RegisterProtectedRoutes(r)
		})
	})

	// Orders
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)
	analyticsHandler := handler.NewAnalyticsHandler(queries)
	r.Route("/orders", func(r chi.Router) {
		r.Get("/analytics/top-sellers", analyticsHandler.TopSellers)
		orderHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			orderHandler.RegisterProtectedRoutes(r)
		})
	})

	return r
}
