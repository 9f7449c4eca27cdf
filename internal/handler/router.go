package handler

import (
	"net/http"
	"time"

	"github.com/brokerdesk/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers is every API surface mounted under /api/v1
type Handlers struct {
	Auth    *AuthHandler
	Admin   *AdminHandler
	Account *AccountHandler
	Trade   *TradeHandler
	Charge  *ChargeHandler
	Wallet  *WalletHandler
	IB      *IBHandler
	KYC     *KYCHandler
	Price   *PriceHandler
}

// RouterConfig carries the middleware settings of NewRouter
type RouterConfig struct {
	UserTokens  middleware.UserTokens
	AdminTokens middleware.AdminTokens
	CORSOrigin  string
	Version     string
}

// NewRouter wires middleware and every handler onto a gin engine
func NewRouter(h Handlers, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSOrigin))

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"version": cfg.Version,
			"time":    time.Now().Unix(),
		}
		if h.Price != nil {
			body["quotesConnected"] = h.Price.quotes.Connected()
		}
		c.JSON(http.StatusOK, body)
	})

	userAuth := middleware.AuthMiddleware(cfg.UserTokens)
	adminAuth := middleware.AdminAuthMiddleware(cfg.AdminTokens)

	v1 := router.Group("/api/v1")
	{
		h.Auth.RegisterRoutes(v1, userAuth)
		h.Admin.RegisterRoutes(v1, adminAuth)
		h.Account.RegisterRoutes(v1, userAuth, adminAuth)
		h.Trade.RegisterRoutes(v1, userAuth, adminAuth)
		h.Charge.RegisterRoutes(v1, adminAuth)
		h.Wallet.RegisterRoutes(v1, userAuth, adminAuth)
		h.IB.RegisterRoutes(v1, userAuth, adminAuth)
		h.KYC.RegisterRoutes(v1, userAuth, adminAuth)
		h.Price.RegisterRoutes(v1)
	}

	return router
}
