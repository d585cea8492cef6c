package handler

import (
	"net/http"

	"vehicle_inspection_backend/internal/appointments/repository"
	"vehicle_inspection_backend/internal/appointments/service"
	"vehicle_inspection_backend/internal/appointments/transport"
	"vehicle_inspection_backend/internal/authz"
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

// Handler handles HTTP requests for appointments
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new appointments handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the appointment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/mine", h.ListMine)
	rg.GET("/vehicles", h.MyVehicles)
	rg.GET("/technician", h.ListForTechnician)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/confirm", h.Confirm)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/start-inspection", h.StartInspection)
}

// RegisterPublicRoutes registers the schedule lookups that need no account.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots", h.AvailableSlots)
	rg.GET("/schedule", h.WeeklySchedule)
}

// RegisterAdminRoutes registers the administrator listing
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListAll)
}

// Create handles POST /api/v1/appointments
func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader("Idempotency-Key")
	}

	appt, err := h.svc.Create(c.Request.Context(), authz.FromIdentity(identity), service.CreateInput{
		Vehicle: service.Vehicle{
			Registration: req.VehicleRegistration,
			Brand:        req.VehicleBrand,
			Model:        req.VehicleModel,
			Type:         req.VehicleType,
		},
		RequestedAt:    req.RequestedAt,
		Notes:          req.Notes,
		IdempotencyKey: key,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, toResponse(*appt))
}

// Confirm handles POST /api/v1/appointments/:id/confirm
func (h *Handler) Confirm(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transport.ConfirmAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	appt, err := h.svc.Confirm(c.Request.Context(), authz.FromIdentity(identity), id, uuid.MustParse(req.BookingPaymentID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(*appt))
}

// Cancel handles POST /api/v1/appointments/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	appt, err := h.svc.Cancel(c.Request.Context(), authz.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(*appt))
}

// StartInspection handles POST /api/v1/appointments/:id/start-inspection
func (h *Handler) StartInspection(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	appt, err := h.svc.MarkInspectionInProgress(c.Request.Context(), authz.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(*appt))
}

// Get handles GET /api/v1/appointments/:id
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	appt, err := h.svc.Get(c.Request.Context(), authz.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(*appt))
}

// ListMine handles GET /api/v1/appointments/mine
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	appts, err := h.svc.ListMine(c.Request.Context(), authz.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toListResponse(appts, len(appts)))
}

// ListForTechnician handles GET /api/v1/appointments/technician
func (h *Handler) ListForTechnician(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	appts, err := h.svc.ListForTechnician(c.Request.Context(), authz.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toListResponse(appts, len(appts)))
}

// ListAll handles GET /api/v1/admin/appointments
func (h *Handler) ListAll(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var query transport.ListAppointmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 20
	}

	appts, total, err := h.svc.ListAll(c.Request.Context(), authz.FromIdentity(identity), query.Status, (query.Page-1)*query.Limit, query.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := toListResponse(appts, total)
	resp.Page = query.Page
	resp.Limit = query.Limit
	httpkit.OK(c, resp)
}

// MyVehicles handles GET /api/v1/appointments/vehicles
func (h *Handler) MyVehicles(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	summaries, err := h.svc.MyVehicles(c.Request.Context(), authz.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.VehicleSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, transport.VehicleSummaryResponse{
			Appointment:            toResponse(s.Appointment),
			BookingPaid:            s.BookingPaid,
			InspectionPaid:         s.InspectionPaid,
			HasReport:              s.HasReport,
			CanDownloadCertificate: s.CanDownloadCertificate,
		})
	}
	httpkit.OK(c, items)
}

// AvailableSlots handles GET /api/v1/appointments/slots?date=YYYY-MM-DD
func (h *Handler) AvailableSlots(c *gin.Context) {
	var query transport.SlotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	day, err := h.svc.ParseDay(query.Date)
	if httpkit.HandleError(c, err) {
		return
	}
	schedule, err := h.svc.AvailableSlots(c.Request.Context(), day)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toDayResponse(schedule))
}

// WeeklySchedule handles GET /api/v1/appointments/schedule?from=YYYY-MM-DD
func (h *Handler) WeeklySchedule(c *gin.Context) {
	var query transport.ScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	from, err := h.svc.ParseDay(query.From)
	if httpkit.HandleError(c, err) {
		return
	}
	days, err := h.svc.WeeklySchedule(c.Request.Context(), from)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.DayScheduleResponse, 0, len(days))
	for _, d := range days {
		resp = append(resp, toDayResponse(d))
	}
	httpkit.OK(c, resp)
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func toDayResponse(d service.DaySchedule) transport.DayScheduleResponse {
	slots := make([]transport.SlotResponse, 0, len(d.Slots))
	for _, s := range d.Slots {
		slots = append(slots, transport.SlotResponse{Start: s.Start, Display: s.Display, Available: s.Available})
	}
	return transport.DayScheduleResponse{
		Date:           d.Date,
		Weekday:        d.Weekday,
		Slots:          slots,
		AvailableCount: d.AvailableCount,
	}
}

func toListResponse(appts []repository.Appointment, total int) transport.AppointmentListResponse {
	items := make([]transport.AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toResponse(a))
	}
	return transport.AppointmentListResponse{Items: items, Total: total}
}

func toResponse(a repository.Appointment) transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:                  a.ID.String(),
		CustomerID:          a.CustomerID.String(),
		VehicleRegistration: a.VehicleRegistration,
		VehicleBrand:        a.VehicleBrand,
		VehicleModel:        a.VehicleModel,
		VehicleType:         a.VehicleType,
		RequestedAt:         a.RequestedAt,
		Status:              a.Status,
		InspectionStatus:    a.InspectionStatus,
		BookingPaymentID:    idString(a.BookingPaymentID),
		InspectionPaymentID: idString(a.InspectionPaymentID),
		Notes:               a.Notes,
		ConfirmedAt:         a.ConfirmedAt,
		CompletedAt:         a.CompletedAt,
		CancelledAt:         a.CancelledAt,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
