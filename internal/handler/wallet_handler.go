package handler

import (
	"strings"

	"github.com/brokerdesk/internal/middleware"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// WalletHandler serves wallets, fund requests and payment methods
type WalletHandler struct {
	walletService  *service.WalletService
	paymentService *service.PaymentMethodService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(walletService *service.WalletService, paymentService *service.PaymentMethodService) *WalletHandler {
	return &WalletHandler{walletService: walletService, paymentService: paymentService}
}

// GetWallet GET /api/v1/wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	w, err := h.walletService.GetWallet(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"wallet": w, "available": w.Available()})
}

// Deposit POST /api/v1/wallet/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req service.FundsRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.walletService.Deposit(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, tx)
}

// Withdraw POST /api/v1/wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req service.FundsRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.walletService.Withdraw(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, tx)
}

// TransferToAccount POST /api/v1/wallet/transfer-to-account
func (h *WalletHandler) TransferToAccount(c *gin.Context) {
	var req service.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.walletService.TransferToAccount(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, tx)
}

// TransferFromAccount POST /api/v1/wallet/transfer-from-account
func (h *WalletHandler) TransferFromAccount(c *gin.Context) {
	var req service.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.walletService.TransferFromAccount(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, tx)
}

// History GET /api/v1/wallet/transactions?limit&offset
func (h *WalletHandler) History(c *gin.Context) {
	limit, offset := pageParams(c, 20)
	txs, total, err := h.walletService.History(middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, txs, total, limit, offset, nil)
}

// Transactions GET /api/v1/admin/transactions?userId&type&status&limit&offset
func (h *WalletHandler) Transactions(c *gin.Context) {
	limit, offset := pageParams(c, 50)
	txs, total, err := h.walletService.ListTransactions(repository.TransactionFilter{
		UserID: queryUint(c, "userId"),
		Type:   models.TransactionType(strings.ToUpper(c.Query("type"))),
		Status: models.TransactionStatus(strings.ToUpper(c.Query("status"))),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, txs, total, limit, offset, nil)
}

// Process POST /api/v1/admin/transactions/:id/process
func (h *WalletHandler) Process(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProcessRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.walletService.Process(c.Request.Context(), middleware.GetAdminID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, tx)
}

// ActiveMethods GET /api/v1/payment-methods
func (h *WalletHandler) ActiveMethods(c *gin.Context) {
	methods, err := h.paymentService.ListActive()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, methods)
}

// AllMethods GET /api/v1/payment-methods/all
func (h *WalletHandler) AllMethods(c *gin.Context) {
	methods, err := h.paymentService.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, methods)
}

// MethodDetails GET /api/v1/payment-methods/:id/details
func (h *WalletHandler) MethodDetails(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	details, err := h.paymentService.Details(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, details)
}

// CreateMethod POST /api/v1/payment-methods
func (h *WalletHandler) CreateMethod(c *gin.Context) {
	var req service.PaymentMethodRequest
	if !bindJSON(c, &req) {
		return
	}
	pm, err := h.paymentService.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, pm)
}

// UpdateMethod PUT /api/v1/payment-methods/:id
func (h *WalletHandler) UpdateMethod(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.PaymentMethodRequest
	if !bindJSON(c, &req) {
		return
	}
	pm, err := h.paymentService.Update(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, pm)
}

// ToggleMethod PATCH /api/v1/payment-methods/:id/toggle
func (h *WalletHandler) ToggleMethod(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pm, err := h.paymentService.Toggle(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, pm)
}

// DeleteMethod DELETE /api/v1/payment-methods/:id
func (h *WalletHandler) DeleteMethod(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.paymentService.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// RegisterRoutes registers wallet and payment method routes
func (h *WalletHandler) RegisterRoutes(rg *gin.RouterGroup, userAuth, adminAuth gin.HandlerFunc) {
	wallet := rg.Group("/wallet", userAuth)
	{
		wallet.GET("", h.GetWallet)
		wallet.POST("/deposit", h.Deposit)
		wallet.POST("/withdraw", h.Withdraw)
		wallet.POST("/transfer-to-account", h.TransferToAccount)
		wallet.POST("/transfer-from-account", h.TransferFromAccount)
		wallet.GET("/transactions", h.History)
	}

	rg.GET("/payment-methods", userAuth, h.ActiveMethods)

	methods := rg.Group("/payment-methods", adminAuth, middleware.RequirePermission(models.PermFunds))
	{
		methods.GET("/all", h.AllMethods)
		methods.GET("/:id/details", h.MethodDetails)
		methods.POST("", h.CreateMethod)
		methods.PUT("/:id", h.UpdateMethod)
		methods.PATCH("/:id/toggle", h.ToggleMethod)
		methods.DELETE("/:id", h.DeleteMethod)
	}

	tx := rg.Group("/admin/transactions", adminAuth, middleware.RequirePermission(models.PermTransactions))
	{
		tx.GET("", h.Transactions)
		tx.POST("/:id/process", h.Process)
	}
}
