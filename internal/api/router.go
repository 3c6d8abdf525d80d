package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voucherly/voucher-service/internal/api/handlers"
	"github.com/voucherly/voucher-service/internal/api/middleware"
	"github.com/voucherly/voucher-service/internal/cache"
)

// Deps carries everything the router wires into handlers. Storage and
// services are constructed once in main and injected; nothing reaches for
// globals.
type Deps struct {
	Engine    handlers.Redeemer
	Admin     handlers.Admin
	Cache     *cache.VoucherCache
	JWTSecret []byte
	Logger    zerolog.Logger
}

// NewRouter builds the HTTP router for the voucher-service.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	h := handlers.NewVoucherHandler(deps.Engine, deps.Admin, deps.Cache, deps.Logger)
	authenticate := middleware.Authenticate(deps.JWTSecret)

	// Public voucher endpoints
	r.Get("/vouchers/{code}", h.GetVoucherByCode)
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/vouchers/redeem", h.Redeem)
	})

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticate, middleware.RequireRole("admin"))
		r.Post("/vouchers", h.CreateVoucher)
		r.Get("/vouchers", h.ListVouchers)
		r.Get("/vouchers/{id}", h.GetVoucher)
		r.Put("/vouchers/{id}", h.UpdateVoucher)
		r.Delete("/vouchers/{id}", h.DeleteVoucher)
		r.Post("/redemptions/{id}/refund", h.RefundRedemption)
	})

	// infra
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
