package handler

import (
	"net/http"

	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/inspections/repository"
	"vehicle_inspection_backend/internal/inspections/service"
	"vehicle_inspection_backend/internal/inspections/transport"
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

// Handler handles HTTP requests for inspections
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new inspections handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the inspection routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
	rg.GET("/appointment/:appointmentId", h.GetByAppointment)
	rg.GET("/technician/:technicianId", h.ListByTechnician)
	rg.GET("/certificate/:appointmentId", h.Certificate)
	rg.GET("/:id", h.Get)
}

// RegisterAdminRoutes registers the read-only administrator views
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListAll)
	rg.GET("/stats", h.Stats)
}

// Submit handles POST /api/v1/inspections
func (h *Handler) Submit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.SubmitInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	checklist := make(repository.Checklist, len(req.Checklist))
	for name, result := range req.Checklist {
		checklist[name] = repository.CheckResult{Status: result.Status, Note: result.Note}
	}
	photoIDs := make([]uuid.UUID, 0, len(req.PhotoIDs))
	for _, raw := range req.PhotoIDs {
		photoIDs = append(photoIDs, uuid.MustParse(raw))
	}

	res, err := h.svc.Submit(c.Request.Context(), authz.FromIdentity(identity), service.SubmitInput{
		AppointmentID: uuid.MustParse(req.AppointmentID),
		Checklist:     checklist,
		FinalStatus:   req.FinalStatus,
		Notes:         req.Notes,
		PhotoIDs:      photoIDs,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := toResponse(res.Inspection)
	resp.AppointmentSynced = &res.AppointmentSynced
	httpkit.Created(c, resp)
}

// Get handles GET /api/v1/inspections/:id
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	record, err := h.svc.Get(c.Request.Context(), authz.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(*record))
}

// GetByAppointment handles GET /api/v1/inspections/appointment/:appointmentId
func (h *Handler) GetByAppointment(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	appointmentID, ok := parseID(c, "appointmentId")
	if !ok {
		return
	}

	record, err := h.svc.GetByAppointment(c.Request.Context(), authz.FromIdentity(identity), appointmentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(*record))
}

// ListByTechnician handles GET /api/v1/inspections/technician/:technicianId
func (h *Handler) ListByTechnician(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	technicianID, ok := parseID(c, "technicianId")
	if !ok {
		return
	}

	records, err := h.svc.ListByTechnician(c.Request.Context(), authz.FromIdentity(identity), technicianID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toListResponse(records, len(records)))
}

// Certificate handles GET /api/v1/inspections/certificate/:appointmentId
func (h *Handler) Certificate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	appointmentID, ok := parseID(c, "appointmentId")
	if !ok {
		return
	}

	cert, err := h.svc.Certificate(c.Request.Context(), authz.FromIdentity(identity), appointmentID)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+cert.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", cert.Document)
}

// ListAll handles GET /api/v1/admin/inspections
func (h *Handler) ListAll(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var query transport.ListInspectionsQuery
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

	records, total, err := h.svc.ListAll(c.Request.Context(), authz.FromIdentity(identity), query.FinalStatus, (query.Page-1)*query.Limit, query.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := toListResponse(records, total)
	resp.Page = query.Page
	resp.Limit = query.Limit
	httpkit.OK(c, resp)
}

// Stats handles GET /api/v1/admin/inspections/stats
func (h *Handler) Stats(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), authz.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.InspectionStatsResponse{TotalInspections: stats.Total, ByStatus: stats.ByStatus})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func toListResponse(records []repository.Inspection, total int) transport.InspectionListResponse {
	items := make([]transport.InspectionResponse, 0, len(records))
	for _, r := range records {
		items = append(items, toResponse(r))
	}
	return transport.InspectionListResponse{Items: items, Total: total}
}

func toResponse(i repository.Inspection) transport.InspectionResponse {
	checklist := make(map[string]transport.CheckResultDTO, len(i.Checklist))
	for name, result := range i.Checklist {
		checklist[name] = transport.CheckResultDTO{Status: result.Status, Note: result.Note}
	}
	photoIDs := make([]string, 0, len(i.PhotoIDs))
	for _, id := range i.PhotoIDs {
		photoIDs = append(photoIDs, id.String())
	}
	return transport.InspectionResponse{
		ID:            i.ID.String(),
		AppointmentID: i.AppointmentID.String(),
		TechnicianID:  i.TechnicianID.String(),
		Checklist:     checklist,
		FinalStatus:   i.FinalStatus,
		Notes:         i.Notes,
		PhotoIDs:      photoIDs,
		CreatedAt:     i.CreatedAt,
	}
}
