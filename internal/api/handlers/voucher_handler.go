package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/voucherly/voucher-service/internal/api/middleware"
	"github.com/voucherly/voucher-service/internal/cache"
	"github.com/voucherly/voucher-service/internal/metrics"
	"github.com/voucherly/voucher-service/internal/models"
	"github.com/voucherly/voucher-service/internal/service"
)

// Redeemer is the engine surface the transport layer needs.
type Redeemer interface {
	Redeem(ctx context.Context, req models.RedeemRequest) (*models.RedeemResult, error)
}

// Admin is the lifecycle surface backing the /admin routes.
type Admin interface {
	CreateVoucher(ctx context.Context, v *models.Voucher) (*models.Voucher, error)
	UpdateVoucher(ctx context.Context, id string, upd models.VoucherUpdate) (*models.Voucher, error)
	DeleteVoucher(ctx context.Context, id string) error
	RefundRedemption(ctx context.Context, id string) (*models.Redemption, error)
	GetVoucher(ctx context.Context, id string) (*models.Voucher, error)
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	ListVouchers(ctx context.Context) ([]models.Voucher, error)
}

// --- Request / Response DTOs ---

type RedeemRequestBody struct {
	VoucherCode string `json:"voucher_code"`
	OrderAmount int64  `json:"order_amount"`
	OrderID     string `json:"order_id,omitempty"`
}

type CreateVoucherRequest struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	DiscountKind      string `json:"discount_kind"`
	DiscountValue     int64  `json:"discount_value"`
	Currency          string `json:"currency"`
	MinOrderAmount    int64  `json:"min_order_amount"`
	MaxDiscountAmount *int64 `json:"max_discount_amount,omitempty"`
	MaxRedemptions    int64  `json:"max_redemptions"`
	Active            *bool  `json:"active,omitempty"`
	WindowStart       string `json:"window_start,omitempty"` // RFC3339
	WindowEnd         string `json:"window_end,omitempty"`
}

type UpdateVoucherRequest struct {
	Name              *string `json:"name,omitempty"`
	Active            *bool   `json:"active,omitempty"`
	DiscountKind      *string `json:"discount_kind,omitempty"`
	DiscountValue     *int64  `json:"discount_value,omitempty"`
	Currency          *string `json:"currency,omitempty"`
	MinOrderAmount    *int64  `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *int64  `json:"max_discount_amount,omitempty"`
	MaxRedemptions    *int64  `json:"max_redemptions,omitempty"`
	WindowStart       *string `json:"window_start,omitempty"`
	WindowEnd         *string `json:"window_end,omitempty"`
}

type VoucherResponse struct {
	ID                string     `json:"id"`
	Code              string     `json:"code"`
	Name              string     `json:"name"`
	DiscountKind      string     `json:"discount_kind"`
	DiscountValue     int64      `json:"discount_value"`
	Currency          string     `json:"currency"`
	MinOrderAmount    int64      `json:"min_order_amount"`
	MaxDiscountAmount *int64     `json:"max_discount_amount,omitempty"`
	MaxRedemptions    int64      `json:"max_redemptions"`
	RedeemedCount     int64      `json:"redeemed_count"`
	Active            bool       `json:"active"`
	WindowStart       *time.Time `json:"window_start,omitempty"`
	WindowEnd         *time.Time `json:"window_end,omitempty"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type RedemptionResponse struct {
	ID             string    `json:"id"`
	VoucherID      string    `json:"voucher_id"`
	UserID         string    `json:"user_id"`
	OrderID        string    `json:"order_id,omitempty"`
	OrderAmount    int64     `json:"order_amount"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalAmount    int64     `json:"final_amount"`
	Status         string    `json:"status"`
	RedeemedAt     time.Time `json:"redeemed_at"`
}

// --- Handler struct & constructor ---

type VoucherHandler struct {
	engine Redeemer
	admin  Admin
	cache  *cache.VoucherCache
	logger zerolog.Logger
}

func NewVoucherHandler(engine Redeemer, admin Admin, c *cache.VoucherCache, logger zerolog.Logger) *VoucherHandler {
	return &VoucherHandler{
		engine: engine,
		admin:  admin,
		cache:  c,
		logger: logger,
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, map[string]string{"error": errCode, "message": message})
}

func parseTimeOrEmpty(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toVoucherResponse(v *models.Voucher) VoucherResponse {
	return VoucherResponse{
		ID:                v.ID,
		Code:              v.Code,
		Name:              v.Name,
		DiscountKind:      string(v.DiscountKind),
		DiscountValue:     v.DiscountValue,
		Currency:          v.Currency,
		MinOrderAmount:    v.MinOrderAmount,
		MaxDiscountAmount: v.MaxDiscountAmount,
		MaxRedemptions:    v.MaxRedemptions,
		RedeemedCount:     v.RedeemedCount,
		Active:            v.Active,
		WindowStart:       v.WindowStart,
		WindowEnd:         v.WindowEnd,
		CreatedBy:         v.CreatedBy,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}

func toRedemptionResponse(rec *models.Redemption) RedemptionResponse {
	return RedemptionResponse{
		ID:             rec.ID,
		VoucherID:      rec.VoucherID,
		UserID:         rec.UserID,
		OrderID:        rec.OrderID,
		OrderAmount:    rec.OrderAmount,
		DiscountAmount: rec.DiscountAmount,
		FinalAmount:    rec.FinalAmount,
		Status:         string(rec.Status),
		RedeemedAt:     rec.RedeemedAt,
	}
}

// writeServiceError maps engine and lifecycle errors to HTTP statuses.
func (h *VoucherHandler) writeServiceError(w http.ResponseWriter, err error) {
	var rerr *service.RedemptionError
	if errors.As(err, &rerr) {
		body := map[string]interface{}{
			"error":   string(rerr.Code),
			"message": rerr.Message,
		}
		if rerr.WindowStart != nil {
			body["window_start"] = rerr.WindowStart
		}
		if rerr.WindowEnd != nil {
			body["window_end"] = rerr.WindowEnd
		}
		if rerr.MinOrderAmount > 0 {
			body["min_order_amount"] = rerr.MinOrderAmount
		}
		if rerr.RedeemedAt != nil {
			body["redeemed_at"] = rerr.RedeemedAt
		}
		writeJSON(w, statusForCode(rerr.Code), body)
		return
	}

	switch {
	case errors.Is(err, models.ErrInvalidVoucher):
		writeError(w, http.StatusUnprocessableEntity, "invalid_voucher", err.Error())
	case errors.Is(err, models.ErrDuplicateCode):
		writeError(w, http.StatusConflict, "duplicate_code", err.Error())
	case errors.Is(err, models.ErrVoucherInUse):
		writeError(w, http.StatusConflict, "voucher_in_use", err.Error())
	case errors.Is(err, models.ErrNotRefundable):
		writeError(w, http.StatusConflict, "not_refundable", err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func statusForCode(code service.ErrorCode) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeBelowMinimum:
		return http.StatusUnprocessableEntity
	case service.CodePersistenceFailure:
		return http.StatusInternalServerError
	default:
		// Inactive, NotStarted, Expired, Exhausted, AlreadyRedeemed, ConcurrentConflict
		return http.StatusConflict
	}
}

// --- Handlers ---

// Redeem handles POST /vouchers/redeem. The user id comes from the
// authenticated identity, never from the body.
func (h *VoucherHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing identity")
		return
	}

	var body RedeemRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	req := models.RedeemRequest{
		VoucherCode: body.VoucherCode,
		UserID:      identity.UserID,
		OrderAmount: body.OrderAmount,
		OrderID:     body.OrderID,
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.engine.Redeem(r.Context(), req)
	if err != nil {
		metrics.RedemptionsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		h.writeServiceError(w, err)
		return
	}

	metrics.RedemptionsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, result)
}

func outcomeLabel(err error) string {
	var rerr *service.RedemptionError
	if errors.As(err, &rerr) {
		return string(rerr.Code)
	}
	return "error"
}

// GetVoucherByCode handles GET /vouchers/{code}; reads go through the TTL
// cache.
func (h *VoucherHandler) GetVoucherByCode(w http.ResponseWriter, r *http.Request) {
	code := models.NormalizeCode(chi.URLParam(r, "code"))

	if v, ok := h.cache.Get(code); ok {
		writeJSON(w, http.StatusOK, toVoucherResponse(v))
		return
	}

	v, err := h.admin.GetVoucherByCode(r.Context(), code)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "voucher_not_found", "no voucher with that code")
		return
	}
	h.cache.Set(v)
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

// CreateVoucher handles POST /admin/vouchers.
func (h *VoucherHandler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req CreateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	windowStart, err := parseTimeOrEmpty(req.WindowStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window_start", "use RFC3339")
		return
	}
	windowEnd, err := parseTimeOrEmpty(req.WindowEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window_end", "use RFC3339")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	identity, _ := middleware.IdentityFromContext(r.Context())

	voucher := &models.Voucher{
		Code:              req.Code,
		Name:              req.Name,
		DiscountKind:      models.DiscountKind(req.DiscountKind),
		DiscountValue:     req.DiscountValue,
		Currency:          req.Currency,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MaxRedemptions:    req.MaxRedemptions,
		Active:            active,
		WindowStart:       windowStart,
		WindowEnd:         windowEnd,
		CreatedBy:         identity.UserID,
	}

	created, err := h.admin.CreateVoucher(r.Context(), voucher)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherResponse(created))
}

// ListVouchers handles GET /admin/vouchers.
func (h *VoucherHandler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.admin.ListVouchers(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, toVoucherResponse(&vouchers[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vouchers": out})
}

// GetVoucher handles GET /admin/vouchers/{id}.
func (h *VoucherHandler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.admin.GetVoucher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "voucher_not_found", "no voucher with that id")
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

// UpdateVoucher handles PUT /admin/vouchers/{id}.
func (h *VoucherHandler) UpdateVoucher(w http.ResponseWriter, r *http.Request) {
	var req UpdateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	upd := models.VoucherUpdate{
		Name:              req.Name,
		Active:            req.Active,
		DiscountValue:     req.DiscountValue,
		Currency:          req.Currency,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MaxRedemptions:    req.MaxRedemptions,
	}
	if req.DiscountKind != nil {
		kind := models.DiscountKind(*req.DiscountKind)
		upd.DiscountKind = &kind
	}
	if req.WindowStart != nil {
		t, err := parseTimeOrEmpty(*req.WindowStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_start", "use RFC3339")
			return
		}
		upd.WindowStart = t
	}
	if req.WindowEnd != nil {
		t, err := parseTimeOrEmpty(*req.WindowEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_end", "use RFC3339")
			return
		}
		upd.WindowEnd = t
	}

	v, err := h.admin.UpdateVoucher(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "voucher_not_found", "no voucher with that id")
		return
	}
	h.cache.Invalidate(v.Code)
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

// DeleteVoucher handles DELETE /admin/vouchers/{id}. Deleting an absent
// voucher is a no-op.
func (h *VoucherHandler) DeleteVoucher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if v, err := h.admin.GetVoucher(r.Context(), id); err == nil && v != nil {
		h.cache.Invalidate(v.Code)
	}

	if err := h.admin.DeleteVoucher(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefundRedemption handles POST /admin/redemptions/{id}/refund.
func (h *VoucherHandler) RefundRedemption(w http.ResponseWriter, r *http.Request) {
	rec, err := h.admin.RefundRedemption(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "redemption_not_found", "no redemption with that id")
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionResponse(rec))
}
