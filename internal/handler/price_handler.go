package handler

import (
	"context"
	"strings"

	"github.com/brokerdesk/internal/pricing"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

// QuoteBook is the read side of the pricing service
type QuoteBook interface {
	GetQuote(ctx context.Context, symbol string) (pricing.Quote, error)
	Snapshot() []pricing.Quote
	Connected() bool
}

// PriceHandler handles price-related API requests
type PriceHandler struct {
	quotes QuoteBook
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(quotes QuoteBook) *PriceHandler {
	return &PriceHandler{
		quotes: quotes,
	}
}

// GetPrice returns the current quote for a symbol
// GET /api/v1/prices/:symbol
func (h *PriceHandler) GetPrice(c *gin.Context) {
	q, err := h.quotes.GetQuote(c.Request.Context(), strings.ToUpper(c.Param("symbol")))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"symbol": q.Symbol,
		"bid":    q.Bid,
		"ask":    q.Ask,
		"mid":    q.Mid(),
		"time":   q.Time,
	})
}

// GetPrices returns every fresh quote held in memory
// GET /api/v1/prices
func (h *PriceHandler) GetPrices(c *gin.Context) {
	response.Success(c, gin.H{
		"connected": h.quotes.Connected(),
		"quotes":    h.quotes.Snapshot(),
	})
}

// RegisterRoutes registers price routes
func (h *PriceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	prices := rg.Group("/prices")
	{
		prices.GET("", h.GetPrices)
		prices.GET("/:symbol", h.GetPrice)
	}
}
