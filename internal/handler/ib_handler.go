package handler

import (
	"strings"

	"github.com/brokerdesk/internal/middleware"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// IBHandler serves the introducing broker programme
type IBHandler struct {
	ibService *service.IBService
}

// NewIBHandler creates a new IBHandler
func NewIBHandler(ibService *service.IBService) *IBHandler {
	return &IBHandler{ibService: ibService}
}

// Apply POST /api/v1/ib/apply
func (h *IBHandler) Apply(c *gin.Context) {
	p, err := h.ibService.Apply(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, p)
}

// Profile GET /api/v1/ib/profile?limit
func (h *IBHandler) Profile(c *gin.Context) {
	limit, _ := pageParams(c, 50)
	view, err := h.ibService.Profile(middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// Settings GET /api/v1/admin/ib/settings
func (h *IBHandler) Settings(c *gin.Context) {
	s, err := h.ibService.Settings()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, s)
}

// UpdateSettings PUT /api/v1/admin/ib/settings
func (h *IBHandler) UpdateSettings(c *gin.Context) {
	var req models.IBSettings
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.ibService.UpdateSettings(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, s)
}

// ListPlans GET /api/v1/admin/ib/plans
func (h *IBHandler) ListPlans(c *gin.Context) {
	plans, err := h.ibService.ListPlans()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, plans)
}

// CreatePlan POST /api/v1/admin/ib/plans
func (h *IBHandler) CreatePlan(c *gin.Context) {
	var req service.PlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.ibService.CreatePlan(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, plan)
}

// UpdatePlan PUT /api/v1/admin/ib/plans/:id
func (h *IBHandler) UpdatePlan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.PlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.ibService.UpdatePlan(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, plan)
}

// ListProfiles GET /api/v1/admin/ib/profiles?status
func (h *IBHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.ibService.ListProfiles(models.IBStatus(strings.ToUpper(c.Query("status"))))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, profiles)
}

// Approve POST /api/v1/admin/ib/profiles/:id/approve
func (h *IBHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		PlanID *uint `json:"planId"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.ibService.Approve(id, req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, p)
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// Block POST /api/v1/admin/ib/profiles/:id/block
func (h *IBHandler) Block(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.ibService.Block(id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, p)
}

// Suspend POST /api/v1/admin/ib/profiles/:id/suspend
func (h *IBHandler) Suspend(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.ibService.Suspend(id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, p)
}

// Dashboard GET /api/v1/admin/ib/dashboard
func (h *IBHandler) Dashboard(c *gin.Context) {
	d, err := h.ibService.Dashboard()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, d)
}

// RegisterRoutes registers IB routes
func (h *IBHandler) RegisterRoutes(rg *gin.RouterGroup, userAuth, adminAuth gin.HandlerFunc) {
	ib := rg.Group("/ib", userAuth)
	{
		ib.POST("/apply", h.Apply)
		ib.GET("/profile", h.Profile)
	}

	admin := rg.Group("/admin/ib", adminAuth, middleware.RequirePermission(models.PermIB))
	{
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/settings", h.Settings)
		admin.PUT("/settings", h.UpdateSettings)
		admin.GET("/plans", h.ListPlans)
		admin.POST("/plans", h.CreatePlan)
		admin.PUT("/plans/:id", h.UpdatePlan)
		admin.GET("/profiles", h.ListProfiles)
		admin.POST("/profiles/:id/approve", h.Approve)
		admin.POST("/profiles/:id/block", h.Block)
		admin.POST("/profiles/:id/suspend", h.Suspend)
	}
}

