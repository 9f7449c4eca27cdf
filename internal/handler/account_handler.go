package handler

import (
	"github.com/brokerdesk/internal/middleware"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// AccountHandler handles trading account and instrument API requests
type AccountHandler struct {
	accountService    *service.AccountService
	instrumentService *service.InstrumentService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService, instrumentService *service.InstrumentService) *AccountHandler {
	return &AccountHandler{
		accountService:    accountService,
		instrumentService: instrumentService,
	}
}

// CreateAccount opens a trading account for the caller
// POST /api/v1/trading-accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req service.CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)

	account, err := h.accountService.CreateAccount(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, account)
}

// GetAccounts handles getting all accounts for the authenticated user
// GET /api/v1/trading-accounts
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	accounts, err := h.accountService.GetAccounts(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, accounts)
}

// GetAccount handles getting a single owned account
// GET /api/v1/trading-accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountService.GetOwnedAccount(middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, account)
}

// UserAccounts lists the accounts of any user
// GET /api/v1/admin/trading-accounts/user/:userId
func (h *AccountHandler) UserAccounts(c *gin.Context) {
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	accounts, err := h.accountService.GetAccounts(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, accounts)
}

// AdminCreateAccount opens an account for req.userId
// POST /api/v1/admin/trading-accounts
func (h *AccountHandler) AdminCreateAccount(c *gin.Context) {
	var req service.CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == 0 {
		response.BadRequest(c, "userId is required")
		return
	}
	account, err := h.accountService.CreateAccount(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, account)
}

// SetStatus PUT /api/v1/admin/trading-accounts/:id/status
func (h *AccountHandler) SetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.AccountStatus `json:"status" binding:"required,oneof=active disabled"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accountService.SetStatus(id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	account, err := h.accountService.GetAccount(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, account)
}

// ListInstruments GET /api/v1/instruments?all=true
func (h *AccountHandler) ListInstruments(c *gin.Context) {
	instruments, err := h.instrumentService.List(c.Query("all") != "true")
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, instruments)
}

// GetInstrument GET /api/v1/instruments/:symbol
func (h *AccountHandler) GetInstrument(c *gin.Context) {
	inst, err := h.instrumentService.Get(c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, inst)
}

// CreateInstrument POST /api/v1/admin/instruments
func (h *AccountHandler) CreateInstrument(c *gin.Context) {
	var req service.InstrumentRequest
	if !bindJSON(c, &req) {
		return
	}
	inst, err := h.instrumentService.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, inst)
}

// UpdateInstrument PUT /api/v1/admin/instruments/:symbol
func (h *AccountHandler) UpdateInstrument(c *gin.Context) {
	var req service.InstrumentRequest
	if !bindJSON(c, &req) {
		return
	}
	inst, err := h.instrumentService.Update(c.Param("symbol"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, inst)
}

// DeleteInstrument DELETE /api/v1/admin/instruments/:symbol
func (h *AccountHandler) DeleteInstrument(c *gin.Context) {
	if err := h.instrumentService.Delete(c.Param("symbol")); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// RegisterRoutes registers trading account and instrument routes
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup, userAuth, adminAuth gin.HandlerFunc) {
	accounts := rg.Group("/trading-accounts", userAuth)
	{
		accounts.GET("", h.GetAccounts)
		accounts.POST("", h.CreateAccount)
		accounts.GET("/:id", h.GetAccount)
	}

	rg.GET("/instruments", h.ListInstruments)
	rg.GET("/instruments/:symbol", h.GetInstrument)

	admin := rg.Group("/admin", adminAuth)
	{
		acc := admin.Group("/trading-accounts", middleware.RequirePermission(models.PermAccounts))
		acc.GET("/user/:userId", h.UserAccounts)
		acc.POST("", h.AdminCreateAccount)
		acc.PUT("/:id/status", h.SetStatus)

		inst := admin.Group("/instruments", middleware.RequirePermission(models.PermSettings))
		inst.POST("", h.CreateInstrument)
		inst.PUT("/:symbol", h.UpdateInstrument)
		inst.DELETE("/:symbol", h.DeleteInstrument)
	}
}
