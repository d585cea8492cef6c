package handler

import (
	"vehicle_inspection_backend/internal/auth/service"
	"vehicle_inspection_backend/internal/auth/transport"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/httpkit"
	"vehicle_inspection_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgValidationFailed = "validation failed"
	msgInvalidUserID    = "invalid user id"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the public auth routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
}

func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	profile, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, toProfileResponse(profile))
}

func (h *Handler) Login(c *gin.Context) {
	var req transport.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   result.ExpiresAt,
		User:        toProfileResponse(result.Profile),
	})
}

// Verify echoes the verified token subject. It runs behind AuthRequired.
func (h *Handler) Verify(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	httpkit.OK(c, transport.VerifyResponse{Valid: true, UserID: id.UserID().String(), Role: id.Role()})
}

func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	profile, err := h.svc.Me(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toProfileResponse(profile))
}

func (h *Handler) ListUsers(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var query transport.ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.BindError(c, err)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	profiles, err := h.svc.ListUsers(c.Request.Context(), authz.FromIdentity(id), query.Role)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toProfileResponse(p))
	}
	httpkit.OK(c, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) CreateTechnician(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req transport.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	profile, err := h.svc.CreateTechnician(c.Request.Context(), authz.FromIdentity(id), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toProfileResponse(profile))
}

func (h *Handler) ChangeRole(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidUserID))
		return
	}
	var req transport.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	profile, err := h.svc.ChangeRole(c.Request.Context(), authz.FromIdentity(id), userID, req.Role)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toProfileResponse(profile))
}

func (h *Handler) SetSessionTimeout(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidUserID))
		return
	}
	var req transport.SessionTimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}

	profile, err := h.svc.SetSessionTimeout(c.Request.Context(), authz.FromIdentity(id), userID, req.Minutes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toProfileResponse(profile))
}

func (h *Handler) SessionConfig(c *gin.Context) {
	cfg := h.svc.SessionConfig()
	httpkit.OK(c, transport.SessionConfigResponse{
		DefaultMinutes: cfg.DefaultMinutes,
		MinMinutes:     cfg.MinMinutes,
		MaxMinutes:     cfg.MaxMinutes,
	})
}

func toProfileResponse(p service.Profile) transport.ProfileResponse {
	return transport.ProfileResponse{
		ID:                    p.ID.String(),
		Email:                 p.Email,
		Role:                  p.Role,
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		Phone:                 p.Phone,
		SessionTimeoutMinutes: p.SessionTimeoutMinutes,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}
