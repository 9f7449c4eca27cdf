package handler

import (
	"strings"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/middleware"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// ChargeHandler manages charge rules
type ChargeHandler struct {
	chargeService *service.ChargeService
}

// NewChargeHandler creates a new ChargeHandler
func NewChargeHandler(chargeService *service.ChargeService) *ChargeHandler {
	return &ChargeHandler{chargeService: chargeService}
}

// List GET /api/v1/charges?level&segment&symbol&userId
func (h *ChargeHandler) List(c *gin.Context) {
	rules, err := h.chargeService.List(repository.ChargeFilter{
		Level:   economics.Level(strings.ToUpper(c.Query("level"))),
		Segment: c.Query("segment"),
		Symbol:  strings.ToUpper(c.Query("symbol")),
		UserID:  queryUint(c, "userId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, rules)
}

// Get GET /api/v1/charges/:id
func (h *ChargeHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rule, err := h.chargeService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, rule)
}

// Create POST /api/v1/charges
func (h *ChargeHandler) Create(c *gin.Context) {
	var req service.ChargeRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.chargeService.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, rule)
}

// Update PUT /api/v1/charges/:id
func (h *ChargeHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ChargeRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.chargeService.Update(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, rule)
}

// Delete DELETE /api/v1/charges/:id
func (h *ChargeHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.chargeService.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// Resolve returns the effective charges and the level each came from
// GET /api/v1/charges/resolve?userId&symbol
func (h *ChargeHandler) Resolve(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		response.BadRequest(c, "symbol is required")
		return
	}
	res, err := h.chargeService.Resolve(queryUint(c, "userId"), symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, res)
}

// RegisterRoutes registers charge routes behind adminAuth
func (h *ChargeHandler) RegisterRoutes(rg *gin.RouterGroup, adminAuth gin.HandlerFunc) {
	charges := rg.Group("/charges", adminAuth, middleware.RequirePermission(models.PermSettings))
	{
		charges.GET("", h.List)
		charges.GET("/resolve", h.Resolve)
		charges.GET("/:id", h.Get)
		charges.POST("", h.Create)
		charges.PUT("/:id", h.Update)
		charges.DELETE("/:id", h.Delete)
	}
}
