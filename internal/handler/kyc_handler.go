package handler

import (
	"github.com/brokerdesk/internal/middleware"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// KYCHandler serves identity verification
type KYCHandler struct {
	kycService *service.KYCService
}

// NewKYCHandler creates a new KYCHandler
func NewKYCHandler(kycService *service.KYCService) *KYCHandler {
	return &KYCHandler{kycService: kycService}
}

// Submit POST /api/v1/kyc/submit
func (h *KYCHandler) Submit(c *gin.Context) {
	var req service.KYCSubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.kycService.Submit(middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, sub)
}

// Status GET /api/v1/kyc/status
func (h *KYCHandler) Status(c *gin.Context) {
	view, err := h.kycService.Status(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// List GET /api/v1/admin/kyc?status&search&limit&offset
func (h *KYCHandler) List(c *gin.Context) {
	limit, offset := pageParams(c, 20)
	subs, total, err := h.kycService.List(repository.KYCFilter{
		Status: models.KYCStatus(c.Query("status")),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, subs, total, limit, offset, nil)
}

// Stats GET /api/v1/admin/kyc/stats
func (h *KYCHandler) Stats(c *gin.Context) {
	stats, err := h.kycService.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stats)
}

// Get GET /api/v1/admin/kyc/:id
func (h *KYCHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.kycService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, sub)
}

// Approve POST /api/v1/admin/kyc/:id/approve
func (h *KYCHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.kycService.Approve(middleware.GetAdminID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, sub)
}

// Reject POST /api/v1/admin/kyc/:id/reject
func (h *KYCHandler) Reject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.kycService.Reject(middleware.GetAdminID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, sub)
}

// RegisterRoutes registers KYC routes
func (h *KYCHandler) RegisterRoutes(rg *gin.RouterGroup, userAuth, adminAuth gin.HandlerFunc) {
	kyc := rg.Group("/kyc", userAuth)
	{
		kyc.POST("/submit", h.Submit)
		kyc.GET("/status", h.Status)
	}

	admin := rg.Group("/admin/kyc", adminAuth, middleware.RequirePermission(models.PermUsers))
	{
		admin.GET("", h.List)
		admin.GET("/stats", h.Stats)
		admin.GET("/:id", h.Get)
		admin.POST("/:id/approve", h.Approve)
		admin.POST("/:id/reject", h.Reject)
	}
}
