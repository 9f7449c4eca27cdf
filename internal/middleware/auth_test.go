package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeTokens struct{}

func (fakeTokens) ValidateToken(tok string) (*service.JWTClaims, error) {
	if tok != "user-token" {
		return nil, errors.New("bad token")
	}
	return &service.JWTClaims{UserID: 7, Email: "u@example.com"}, nil
}

func (fakeTokens) ValidateAdminToken(tok string) (*service.AdminClaims, error) {
	switch tok {
	case "finance-token":
		return &service.AdminClaims{AdminID: 2, Role: models.RoleFinance, Permissions: []models.Permission{models.PermFunds}}, nil
	case "root-token":
		return &service.AdminClaims{AdminID: 1, Role: models.RoleSuperAdmin}, nil
	}
	return nil, errors.New("bad token")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()), RequestLogger(zap.NewNop()), CORS("*"))

	r.GET("/me", AuthMiddleware(fakeTokens{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": GetUserID(c)})
	})

	admin := r.Group("/admin", AdminAuthMiddleware(fakeTokens{}))
	admin.GET("/funds", RequirePermission(models.PermFunds), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"adminId": GetAdminID(c)})
	})
	admin.GET("/trades", RequirePermission(models.PermTrades), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	admin.GET("/admins", RequireSuperAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"not bearer", "/me", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"user ok", "/me", "Bearer user-token", http.StatusOK},
		{"user token on admin route", "/admin/funds", "Bearer user-token", http.StatusUnauthorized},
		{"permission granted", "/admin/funds", "Bearer finance-token", http.StatusOK},
		{"permission missing", "/admin/trades", "Bearer finance-token", http.StatusForbidden},
		{"super admin bypasses permissions", "/admin/trades", "Bearer root-token", http.StatusOK},
		{"super admin only", "/admin/admins", "Bearer finance-token", http.StatusForbidden},
		{"super admin route", "/admin/admins", "Bearer root-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestUserIDInContext(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"userId":7}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodOptions, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	r := newRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
