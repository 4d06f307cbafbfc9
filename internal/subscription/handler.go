package subscription

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"studiopass/internal/api"
	"studiopass/internal/auth"
	"studiopass/internal/logger"

	"github.com/gin-gonic/gin"
)

// Notifier queues the purchase receipt. Delivery failures never affect the
// sale, which has already committed by the time it is called.
type Notifier interface {
	SendPurchaseConfirmation(ctx context.Context, email, name, packageName string, endDate time.Time, eventsCount int) error
}

type Handler struct {
	service  Service
	notifier Notifier
}

func NewHandler(service Service, notifier Notifier) *Handler {
	return &Handler{service: service, notifier: notifier}
}

// Create godoc
// @Summary      Sell subscription
// @Description  Creates a subscription with its QR token, optional initial payment and optional recurring class schedule, all atomically.
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateSubscriptionRequest  true  "Sale data"
// @Success      201      {object}  CreateSubscriptionResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /subscriptions [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
		case errors.Is(err, api.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		case errors.Is(err, api.ErrDataIntegrity):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create subscription"})
		}
		return
	}

	if h.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.notifier.SendPurchaseConfirmation(ctx, resp.MemberEmail, resp.MemberName,
				resp.PackageName, resp.Subscription.EndDate, resp.EventsCount); err != nil {
				logger.Errorf("Failed to queue purchase confirmation for member %d: %v", resp.Subscription.MemberID, err)
			}
		}()
	}

	c.JSON(http.StatusCreated, resp)
}

// ListMine godoc
// @Summary      List my subscriptions
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Subscription
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /me/subscriptions [get]
func (h *Handler) ListMine(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Not authenticated"})
		return
	}

	subs, err := h.service.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// Get godoc
// @Summary      Get subscription
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {object}  Subscription
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	sub, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Delete godoc
// @Summary      Delete subscription
// @Description  Removes the subscription and all dependent rows in one ordered, atomic cascade.
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {object}  api.MessageResponse
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Failure      500             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete subscription"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Subscription deleted"})
}

// GetQR godoc
// @Summary      Subscription QR token
// @Description  Returns the QR token and its active flag for re-display.
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {object}  QRCodeResponse
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/qr [get]
func (h *Handler) GetQR(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	qr, err := h.service.GetQR(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, QRCodeResponse{
		SubscriptionID: qr.SubscriptionID,
		Token:          qr.Token,
		IsActive:       qr.IsActive,
	})
}

// GetQRImage godoc
// @Summary      Subscription QR code image
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      png
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {string}  binary
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/qr.png [get]
func (h *Handler) GetQRImage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	qr, err := h.service.GetQR(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	png, err := RenderTokenPNG(qr.Token, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to render QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// RotateQR godoc
// @Summary      Rotate subscription QR token
// @Description  Replaces the token with a fresh one. The old token stops working immediately.
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        subscriptionID  path      int  true  "Subscription ID"
// @Success      200             {object}  QRCodeResponse
// @Failure      400             {object}  api.ErrorResponse
// @Failure      404             {object}  api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/qr/rotate [post]
func (h *Handler) RotateQR(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	qr, err := h.service.RotateQR(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to rotate QR token"})
		return
	}

	c.JSON(http.StatusOK, QRCodeResponse{
		SubscriptionID: qr.SubscriptionID,
		Token:          qr.Token,
		IsActive:       qr.IsActive,
	})
}
