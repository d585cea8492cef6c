package handler

import (
	"errors"
	"io"
	"net/http"

	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/files/service"
	"vehicle_inspection_backend/internal/files/transport"
	"vehicle_inspection_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid id"
	msgFileTooLarge   = "file exceeds the upload limit"

	// multipart framing and form fields on top of the file itself
	formOverhead = 1 << 20
)

// Handler handles HTTP requests for uploads
type Handler struct {
	svc *service.Service
}

// New creates a new files handler
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the upload routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Upload)
	rg.GET("/owner/:ownerRef", h.ListByOwner)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
}

// RegisterAdminRoutes registers administrator views
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.Stats)
}

// Upload handles POST /api/v1/files as multipart/form-data.
func (h *Handler) Upload(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	limit := h.svc.MaxFileSize()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.Error(c, http.StatusRequestEntityTooLarge, msgFileTooLarge, gin.H{"maxBytes": limit})
			return
		}
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "file is required")
		return
	}
	if header.Size > limit {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, msgFileTooLarge, gin.H{"maxBytes": limit, "sizeBytes": header.Size})
		return
	}

	ownerRef, err := uuid.Parse(c.PostForm("ownerRef"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "ownerRef must be a uuid")
		return
	}

	f, err := header.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	stored, err := h.svc.Store(c.Request.Context(), authz.FromIdentity(identity), service.StoreInput{
		OwnerRef:    ownerRef,
		Category:    c.PostForm("category"),
		PhotoType:   c.PostForm("photoType"),
		Filename:    header.Filename,
		Description: c.PostForm("description"),
		Data:        data,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, toResponse(*stored))
}

// Get handles GET /api/v1/files/:id
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	stored, err := h.svc.Get(c.Request.Context(), authz.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponse(*stored))
}

// ListByOwner handles GET /api/v1/files/owner/:ownerRef
func (h *Handler) ListByOwner(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	ownerRef, err := uuid.Parse(c.Param("ownerRef"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	files, err := h.svc.ListByOwner(c.Request.Context(), authz.FromIdentity(identity), ownerRef)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.FileResponse, 0, len(files))
	for _, f := range files {
		items = append(items, toResponse(f))
	}
	httpkit.OK(c, transport.FileListResponse{Items: items, Total: len(items)})
}

// Delete handles DELETE /api/v1/files/:id
func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), authz.FromIdentity(identity), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "deleted"})
}

// Stats handles GET /api/v1/admin/files/stats
func (h *Handler) Stats(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), authz.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FileStatsResponse{
		TotalFiles: stats.TotalFiles,
		TotalBytes: stats.TotalBytes,
		ByCategory: stats.ByCategory,
	})
}

func toResponse(s service.StoredFile) transport.FileResponse {
	f := s.File
	return transport.FileResponse{
		ID:               f.ID.String(),
		OwnerRef:         f.OwnerRef.String(),
		Category:         f.Category,
		PhotoType:        f.PhotoType,
		OriginalFilename: f.OriginalFilename,
		ContentType:      f.ContentType,
		SizeBytes:        f.SizeBytes,
		UploadedBy:       f.UploadedBy.String(),
		Description:      f.Description,
		UploadedAt:       f.UploadedAt,
		URL:              s.URL,
	}
}
