package handler

import (
	"net/http"
	"strconv"

	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/internal/audit/service"
	"vehicle_inspection_backend/internal/audit/transport"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/platform/httpkit"
	"vehicle_inspection_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

var levelColors = map[string]string{
	repository.LevelDebug:    "#6B7280",
	repository.LevelInfo:     "#3B82F6",
	repository.LevelWarning:  "#F59E0B",
	repository.LevelError:    "#EF4444",
	repository.LevelCritical: "#DC2626",
}

// Handler handles HTTP requests for the audit log
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new audit handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminRoutes registers the administrator routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/stats", h.Stats)
	rg.DELETE("/cleanup", h.Cleanup)
}

// List handles GET /api/v1/admin/audit
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var q transport.ListAuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.svc.List(c.Request.Context(), authz.FromIdentity(identity), q.Service, q.Level, q.Skip, q.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.AuditEntryResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, toResponse(e))
	}
	httpkit.OK(c, transport.AuditListResponse{Items: items, Total: page.Total, Skip: page.Offset, Limit: page.Limit})
}

// Stats handles GET /api/v1/admin/audit/stats
func (h *Handler) Stats(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), authz.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.AuditStatsResponse{
		Total:        stats.Total,
		ByLevel:      make([]transport.LevelCountResponse, 0, len(stats.ByLevel)),
		ByService:    stats.ByService,
		RecentErrors: make([]transport.AuditEntryResponse, 0, len(stats.RecentErrors)),
	}
	for _, lc := range stats.ByLevel {
		resp.ByLevel = append(resp.ByLevel, transport.LevelCountResponse{Level: lc.Level, Count: lc.Count, Color: colorFor(lc.Level)})
	}
	for _, e := range stats.RecentErrors {
		resp.RecentErrors = append(resp.RecentErrors, toResponse(e))
	}
	httpkit.OK(c, resp)
}

// Cleanup handles DELETE /api/v1/admin/audit/cleanup?days=
func (h *Handler) Cleanup(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "days must be an integer")
			return
		}
		days = parsed
	}

	deleted, err := h.svc.Cleanup(c.Request.Context(), authz.FromIdentity(identity), days)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CleanupResponse{Deleted: deleted})
}

func toResponse(e repository.Entry) transport.AuditEntryResponse {
	resp := transport.AuditEntryResponse{
		ID:         e.ID.String(),
		Service:    e.Service,
		EventType:  e.EventType,
		Level:      e.Level,
		SubjectRef: e.SubjectRef,
		Message:    e.Message,
		Detail:     e.Detail,
		OccurredAt: e.OccurredAt,
		Color:      colorFor(e.Level),
	}
	if e.ActorID != nil {
		actor := e.ActorID.String()
		resp.ActorID = &actor
	}
	return resp
}

func colorFor(level string) string {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return levelColors[repository.LevelDebug]
}
