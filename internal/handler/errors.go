package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/pricing"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

type errorStatus struct {
	err    error
	status int
	code   int
}

// statusTable is checked in order; the first match wins.
var statusTable = []errorStatus{
	{economics.ErrInvalidInput, http.StatusBadRequest, response.CodeBadRequest},
	{economics.ErrMissingCloseData, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInstrumentInactive, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInvalidOrderType, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrLimitPriceRequired, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInvalidAmount, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrPaymentMethodInactive, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInvalidRole, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInvalidSegment, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInvalidContract, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrIBInvalidPlan, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrIBReasonRequired, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrRejectReason, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrInvalidReferralCode, http.StatusBadRequest, response.CodeBadRequest},
	{service.ErrAccountDisabled, http.StatusBadRequest, response.CodeBadRequest},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.CodeUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized, response.CodeUnauthorized},

	{service.ErrAccountBlocked, http.StatusForbidden, response.CodeForbidden},
	{service.ErrAccountNotOwned, http.StatusForbidden, response.CodeForbidden},
	{service.ErrCannotDeleteSelf, http.StatusForbidden, response.CodeForbidden},
	{service.ErrIBKYCRequired, http.StatusForbidden, response.CodeForbidden},
	{service.ErrIBProgrammeClosed, http.StatusForbidden, response.CodeForbidden},

	{repository.ErrTradeNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrAccountNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrInstrumentNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrUserNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrAdminNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrChargeRuleNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrPaymentMethodNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrWalletNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrTransactionNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrKYCNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrIBPlanNotFound, http.StatusNotFound, response.CodeNotFound},
	{repository.ErrIBProfileNotFound, http.StatusNotFound, response.CodeNotFound},

	{economics.ErrConcurrentModification, http.StatusConflict, response.CodeConflict},
	{economics.ErrInvalidTransition, http.StatusConflict, response.CodeConflict},
	{repository.ErrTransactionProcessed, http.StatusConflict, response.CodeConflict},
	{repository.ErrKYCAlreadyReviewed, http.StatusConflict, response.CodeConflict},
	{service.ErrKYCAlreadyVerified, http.StatusConflict, response.CodeConflict},
	{service.ErrKYCPendingExists, http.StatusConflict, response.CodeConflict},
	{service.ErrIBAlreadyApplied, http.StatusConflict, response.CodeConflict},
	{service.ErrIBInvalidStatus, http.StatusConflict, response.CodeConflict},
	{service.ErrInstrumentExists, http.StatusConflict, response.CodeConflict},
	{service.ErrEmailTaken, http.StatusConflict, response.CodeConflict},
	{service.ErrLastSuperAdmin, http.StatusConflict, response.CodeConflict},

	{economics.ErrPnLDivergence, http.StatusUnprocessableEntity, response.CodeUnprocessable},
	{repository.ErrInsufficientBalance, http.StatusUnprocessableEntity, response.CodeUnprocessable},
	{service.ErrNoSwapRule, http.StatusUnprocessableEntity, response.CodeUnprocessable},

	{pricing.ErrQuoteUnavailable, http.StatusServiceUnavailable, response.CodeServiceUnavailable},
}

// respondError writes the envelope for err. Unknown errors become a 500 and
// are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	var ruleErr *service.ChargeRuleError
	if errors.As(err, &ruleErr) {
		response.BadRequest(c, err.Error())
		return
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			response.Error(c, e.status, e.code, err.Error())
			return
		}
	}
	_ = c.Error(err)
	response.InternalError(c, "internal error")
}

// bindJSON binds the body and answers 400 when it does not parse
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// paramID parses a uint path parameter and answers 400 when it is not one
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// pageParams reads limit/offset with a default limit and a cap of 200
func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > 200 {
		limit = 200
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
