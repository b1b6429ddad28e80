// Package httpapi assembles every handler into the public and admin API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"samba-tours/internal/analytics/analytics_api"
	"samba-tours/internal/auth"
	"samba-tours/internal/blog/blog_api"
	"samba-tours/internal/bookings/booking_api"
	"samba-tours/internal/cart/cart_api"
	"samba-tours/internal/config"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/payments/payment_api"
	"samba-tours/internal/services/service_api"
	"samba-tours/internal/site/site_api"
	"samba-tours/internal/storage/storage_api"
	"samba-tours/internal/tours/tour_api"
	"samba-tours/internal/visitors/visitor_api"
)

// Handlers are the mounted API handlers. A nil handler leaves its routes out.
type Handlers struct {
	Tours     *tour_api.Handler
	Bookings  *booking_api.Handler
	Cart      *cart_api.Handler
	Payments  *payment_api.Handler
	Blog      *blog_api.Handler
	Services  *service_api.Handler
	Site      *site_api.Handler
	Visitors  *visitor_api.Handler
	Analytics *analytics_api.Handler
	Live      *analytics_api.LiveHandler
	Storage   *storage_api.Handler
	Auth      *auth.Handler
}

type Options struct {
	Keys           config.KeyConfig
	Verifier       auth.Verifier
	AllowedOrigins []string
	Logger         *logger.Logger
}

func NewRouter(h Handlers, opts Options) http.Handler {
	log := opts.Logger
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "apikey", "CF-IPCountry"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	adminOnly := auth.RequireRole(models.RoleAdmin)
	staff := auth.RequireRole(models.RoleAdmin, models.RoleEditor)
	requireAdmin := auth.AdminMiddleware(opts.Verifier, opts.Keys, log)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.APIKeyMiddleware(opts.Keys))

		// --- Public Routes ---
		if h.Tours != nil {
			h.Tours.RegisterPublicRoutes(r)
			r.With(requireAdmin, staff).Post("/tours", h.Tours.CreateTour)
		}
		if h.Bookings != nil {
			h.Bookings.RegisterPublicRoutes(r)
		}
		if h.Cart != nil {
			h.Cart.RegisterRoutes(r)
		}
		if h.Payments != nil {
			h.Payments.RegisterRoutes(r)
		}
		if h.Blog != nil {
			h.Blog.RegisterPublicRoutes(r)
		}
		if h.Services != nil {
			h.Services.RegisterPublicRoutes(r)
		}
		if h.Site != nil {
			h.Site.RegisterPublicRoutes(r)
		}
		if h.Visitors != nil {
			h.Visitors.RegisterPublicRoutes(r)
		}
		if h.Auth != nil {
			r.Post("/auth/login", h.Auth.Login)
			r.With(requireAdmin).Post("/auth/logout", h.Auth.Logout)
			r.With(requireAdmin).Get("/auth/me", h.Auth.Me)
		}
		log.Info("ROUTER", "Public routes registered under /api")

		// --- Admin Routes ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Group(func(r chi.Router) {
				r.Use(staff)
				if h.Tours != nil {
					h.Tours.RegisterAdminRoutes(r)
				}
				if h.Blog != nil {
					h.Blog.RegisterAdminRoutes(r)
				}
				if h.Services != nil {
					h.Services.RegisterAdminRoutes(r)
				}
				if h.Storage != nil {
					h.Storage.RegisterAdminRoutes(r)
				}
			})

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				if h.Bookings != nil {
					h.Bookings.RegisterAdminRoutes(r)
				}
				if h.Site != nil {
					h.Site.RegisterAdminRoutes(r)
				}
				if h.Visitors != nil {
					h.Visitors.RegisterAdminRoutes(r)
				}
				if h.Analytics != nil {
					h.Analytics.RegisterAdminRoutes(r)
				}
				if h.Live != nil {
					h.Live.RegisterAdminRoutes(r)
				}
			})
		})
		log.Info("ROUTER", "Admin routes registered under /api/admin")
	})

	return r
}

// RequestLogger records method, path, status and duration of every request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}
