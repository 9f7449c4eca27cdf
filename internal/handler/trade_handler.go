package handler

import (
	"strconv"
	"strings"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/middleware"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// TradeHandler serves the admin trade desk and the trader's history
type TradeHandler struct {
	tradeService *service.TradeService
}

// NewTradeHandler creates a new TradeHandler
func NewTradeHandler(tradeService *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeService: tradeService}
}

// Create opens or places a trade on behalf of a client
// POST /api/v1/admin/trade/create
func (h *TradeHandler) Create(c *gin.Context) {
	var req service.CreateTradeRequest
	if !bindJSON(c, &req) {
		return
	}

	trade, err := h.tradeService.AdminCreate(c.Request.Context(), middleware.GetAdminID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, trade)
}

// Edit applies an admin override. The body carries the version last read.
// PUT /api/v1/admin/trade/edit/:id
func (h *TradeHandler) Edit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.EditTradeRequest
	if !bindJSON(c, &req) {
		return
	}

	trade, err := h.tradeService.AdminEdit(c.Request.Context(), middleware.GetAdminID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, trade)
}

// Close settles an open trade
// POST /api/v1/admin/trade/close/:id
func (h *TradeHandler) Close(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CloseTradeRequest
	if !bindJSON(c, &req) {
		return
	}

	trade, err := h.tradeService.AdminClose(c.Request.Context(), middleware.GetAdminID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, trade)
}

// Cancel cancels a pending order
// POST /api/v1/admin/trade/cancel/:id
func (h *TradeHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	trade, err := h.tradeService.Cancel(c.Request.Context(), middleware.GetAdminID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, trade)
}

// Get GET /api/v1/admin/trade/:id
func (h *TradeHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	trade, err := h.tradeService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, trade)
}

// List GET /api/v1/admin/trade/all?limit&offset&status&userId&accountId&symbol
func (h *TradeHandler) List(c *gin.Context) {
	limit, offset := pageParams(c, 50)
	f := repository.TradeFilter{
		Status:           economics.Status(strings.ToUpper(c.Query("status"))),
		UserID:           queryUint(c, "userId"),
		TradingAccountID: queryUint(c, "accountId"),
		Symbol:           strings.ToUpper(c.Query("symbol")),
		Limit:            limit,
		Offset:           offset,
	}
	if f.Status != "" && !f.Status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}

	list, err := h.tradeService.List(f)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, list.Trades, list.Total, limit, offset, list.Stats)
}

// Recompute is the read-only "Calc" action
// GET /api/v1/admin/trade/:id/recompute
func (h *TradeHandler) Recompute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.tradeService.Recompute(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// Audits GET /api/v1/admin/trade/:id/audits
func (h *TradeHandler) Audits(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	audits, err := h.tradeService.Audits(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, audits)
}

// AuditPnL re-derives the P&L of every closed trade
// POST /api/v1/admin/trade/audit-pnl?fix=true
func (h *TradeHandler) AuditPnL(c *gin.Context) {
	fix, _ := strconv.ParseBool(c.Query("fix"))
	findings, err := h.tradeService.AuditPnL(c.Request.Context(), fix)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, findings)
}

// History GET /api/v1/trade/history/:accountId?limit
func (h *TradeHandler) History(c *gin.Context) {
	accountID, ok := paramID(c, "accountId")
	if !ok {
		return
	}
	limit, _ := pageParams(c, 100)

	list, err := h.tradeService.History(middleware.GetUserID(c), accountID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, list.Trades, list.Total, limit, 0, list.Stats)
}

// RegisterRoutes registers trade routes
func (h *TradeHandler) RegisterRoutes(rg *gin.RouterGroup, userAuth, adminAuth gin.HandlerFunc) {
	rg.GET("/trade/history/:accountId", userAuth, h.History)

	trade := rg.Group("/admin/trade", adminAuth, middleware.RequirePermission(models.PermTrades))
	{
		trade.GET("/all", h.List)
		trade.POST("/create", h.Create)
		trade.PUT("/edit/:id", h.Edit)
		trade.POST("/close/:id", h.Close)
		trade.POST("/cancel/:id", h.Cancel)
		trade.POST("/audit-pnl", h.AuditPnL)
		trade.GET("/:id", h.Get)
		trade.GET("/:id/recompute", h.Recompute)
		trade.GET("/:id/audits", h.Audits)
	}
}
