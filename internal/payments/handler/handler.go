package handler

import (
	"net/http"

	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/payments/repository"
	"vehicle_inspection_backend/internal/payments/service"
	"vehicle_inspection_backend/internal/payments/transport"
	"vehicle_inspection_backend/platform/httpkit"
	"vehicle_inspection_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for payments
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new payments handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the payment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Initiate)
	rg.GET("/mine", h.ListMine)
	rg.GET("/verify", h.Verify)
	rg.GET("/appointment/:appointmentId", h.ListForAppointment)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/settle", h.Settle)
}

// Initiate handles POST /api/v1/payments
func (h *Handler) Initiate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	payment, err := h.svc.Initiate(c.Request.Context(), authz.FromIdentity(identity), service.InitiateInput{
		AppointmentID: uuid.MustParse(req.AppointmentID),
		PaymentType:   req.PaymentType,
		Amount:        req.Amount,
		Method:        req.PaymentMethod,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, toResponse(*payment))
}

// Settle handles POST /api/v1/payments/:id/settle
func (h *Handler) Settle(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.SettlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	payment, err := h.svc.Settle(c.Request.Context(), authz.FromIdentity(identity), id, service.Outcome(req.Outcome))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponse(*payment))
}

// Get handles GET /api/v1/payments/:id
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payment, err := h.svc.Get(c.Request.Context(), authz.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(*payment))
}

// ListMine handles GET /api/v1/payments/mine
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	payments, err := h.svc.ListMine(c.Request.Context(), authz.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toListResponse(payments))
}

// ListForAppointment handles GET /api/v1/payments/appointment/:appointmentId
func (h *Handler) ListForAppointment(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	appointmentID, ok := parseID(c, "appointmentId")
	if !ok {
		return
	}

	payments, err := h.svc.ListForAppointment(c.Request.Context(), authz.FromIdentity(identity), appointmentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toListResponse(payments))
}

// Verify handles GET /api/v1/payments/verify
func (h *Handler) Verify(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var query transport.VerifyPaymentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	payment, err := h.svc.VerifyForActor(c.Request.Context(), authz.FromIdentity(identity), uuid.MustParse(query.AppointmentID), query.PaymentType)
	if httpkit.HandleError(c, err) {
		return
	}
	if payment == nil {
		httpkit.OK(c, transport.VerifyPaymentResponse{Verified: false})
		return
	}
	resp := toResponse(*payment)
	httpkit.OK(c, transport.VerifyPaymentResponse{Verified: true, Payment: &resp})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func toListResponse(payments []repository.Payment) transport.PaymentListResponse {
	items := make([]transport.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, toResponse(p))
	}
	return transport.PaymentListResponse{Items: items, Total: len(items)}
}

func toResponse(p repository.Payment) transport.PaymentResponse {
	return transport.PaymentResponse{
		ID:            p.ID.String(),
		AppointmentID: p.AppointmentID.String(),
		PayerID:       p.PayerID.String(),
		Amount:        p.Amount,
		PaymentType:   p.PaymentType,
		PaymentMethod: p.PaymentMethod,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		InvoiceNumber: p.InvoiceNumber,
		SettledAt:     p.SettledAt,
		CreatedAt:     p.CreatedAt,
	}
}
