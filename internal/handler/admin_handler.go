package handler

import (
	"strconv"

	"github.com/brokerdesk/internal/middleware"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves console operator management, end user moderation
// and the dashboard overview
type AdminHandler struct {
	adminService    *service.AdminService
	overviewService *service.OverviewService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService *service.AdminService, overviewService *service.OverviewService) *AdminHandler {
	return &AdminHandler{adminService: adminService, overviewService: overviewService}
}

// ListAdmins GET /api/v1/admins
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	admins, err := h.adminService.List()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, admins)
}

// CreateAdmin POST /api/v1/admins
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	var req service.CreateAdminRequest
	if !bindJSON(c, &req) {
		return
	}
	admin, err := h.adminService.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, admin)
}

// UpdateAdmin PUT /api/v1/admins/:id
func (h *AdminHandler) UpdateAdmin(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateAdminRequest
	if !bindJSON(c, &req) {
		return
	}
	admin, err := h.adminService.Update(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, admin)
}

// DeleteAdmin DELETE /api/v1/admins/:id
func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.adminService.Delete(middleware.GetAdminID(c), id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// ResetPassword POST /api/v1/admins/:id/reset-password
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.adminService.ResetPassword(id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// Me returns the claims of the calling admin
// GET /api/v1/admins/me
func (h *AdminHandler) Me(c *gin.Context) {
	admin, err := h.adminService.Get(middleware.GetAdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, admin)
}

// ListUsers GET /api/v1/admin/users?search&limit&offset
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := pageParams(c, 20)
	users, total, err := h.adminService.ListUsers(c.Query("search"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, users, total, limit, offset, nil)
}

// GetUser GET /api/v1/admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.adminService.GetUser(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, user)
}

// SetUserBlocked PUT /api/v1/admin/users/:id/block?blocked=true|false
func (h *AdminHandler) SetUserBlocked(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	blocked, err := strconv.ParseBool(c.DefaultQuery("blocked", "true"))
	if err != nil {
		response.BadRequest(c, "invalid blocked flag")
		return
	}
	user, err := h.adminService.SetUserBlocked(id, blocked)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, user)
}

// Overview GET /api/v1/admin/overview
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.overviewService.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, overview)
}

// RegisterRoutes registers admin management routes behind adminAuth
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup, adminAuth gin.HandlerFunc) {
	admins := rg.Group("/admins", adminAuth)
	{
		admins.GET("/me", h.Me)
		admins.GET("", middleware.RequirePermission(models.PermAdmins), h.ListAdmins)
		admins.POST("", middleware.RequireSuperAdmin(), h.CreateAdmin)
		admins.PUT("/:id", middleware.RequireSuperAdmin(), h.UpdateAdmin)
		admins.DELETE("/:id", middleware.RequireSuperAdmin(), h.DeleteAdmin)
		admins.POST("/:id/reset-password", middleware.RequireSuperAdmin(), h.ResetPassword)
	}

	admin := rg.Group("/admin", adminAuth)
	{
		admin.GET("/overview", h.Overview)
		users := admin.Group("/users", middleware.RequirePermission(models.PermUsers))
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id/block", h.SetUserBlocked)
	}
}
