package ledger

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"studiopass/internal/api"
	"studiopass/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// RecordPayment godoc
// @Summary      Record payment
// @Description  Appends a payment row to the subscription's ledger.
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        subscriptionID  path      int                   true  "Subscription ID"
// @Param        request         body      RecordPaymentRequest  true  "Payment data"
// @Success      201             {object}  Payment
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Failure      500             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/payments [post]
func (h *Handler) RecordPayment(c *gin.Context) {
	subscriptionID, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	payment, err := h.repo.RecordPayment(c.Request.Context(), subscriptionID, req.AmountCents, req.Method)
	if err != nil {
		if errors.Is(err, api.ErrDataIntegrity) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	metrics.RecordPayment()
	c.JSON(http.StatusCreated, payment)
}

// GetDebt godoc
// @Summary      Outstanding debt
// @Description  Purchase price minus all recorded payments. Negative values are clamped to zero here.
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {object}  DebtResponse
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Failure      500             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/debt [get]
func (h *Handler) GetDebt(c *gin.Context) {
	subscriptionID, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	debt, err := h.repo.Debt(c.Request.Context(), subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Subscription not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	// overpayment is reported as no debt, clamped here at the display layer
	if debt.DebtCents < 0 {
		debt.DebtCents = 0
	}

	c.JSON(http.StatusOK, debt)
}

// ListPayments godoc
// @Summary      List subscription payments
// @Tags         ledger
// @Security     BearerAuth
// @Produce      json
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {array}   Payment
// @Failure      400             {object}  api.ErrorResponse
// @Failure      500             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/payments [get]
func (h *Handler) ListPayments(c *gin.Context) {
	subscriptionID, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	payments, err := h.repo.ListBySubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
