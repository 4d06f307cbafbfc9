package checkin

import (
	"errors"
	"net/http"
	"strconv"

	"studiopass/internal/api"
	"studiopass/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Scan godoc
// @Summary      Scan a QR token
// @Description  Read-only preview: validates the token and lists the events the holder could check into right now. Gate failures come back as valid=false, not as errors.
// @Tags         checkin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ScanRequest  true  "QR token"
// @Success      200      {object}  ScanResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /scan [post]
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.Scan(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CheckIn godoc
// @Summary      Check in
// @Description  Commits a check-in for the token, optionally against a specific class event. Consumes a session for SESSION_BASED passes, counts attendance for TIME_BASED.
// @Tags         checkin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CheckInRequest  true  "QR token and optional event"
// @Success      201      {object}  CheckInResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      422      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /checkin [post]
func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.CheckIn(c.Request.Context(), req.Token, req.EventID, verifierID(c))
	if err != nil {
		respondCheckInError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// TimeBasedCheckIn godoc
// @Summary      Time-based check-in
// @Description  Event-less check-in shortcut; only valid for TIME_BASED passes.
// @Tags         checkin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ScanRequest  true  "QR token"
// @Success      201      {object}  CheckInResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      422      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /checkin/time-based [post]
func (h *Handler) TimeBasedCheckIn(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.TimeBasedCheckIn(c.Request.Context(), req.Token, verifierID(c))
	if err != nil {
		respondCheckInError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// DeleteCheckIn godoc
// @Summary      Reverse a check-in
// @Description  Deletes the check-in and restores exactly the counter its creation consumed.
// @Tags         checkin
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Check-in ID"
// @Success      200  {object}  api.MessageResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /checkins/{id} [delete]
func (h *Handler) DeleteCheckIn(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid check-in ID"})
		return
	}

	if err := h.service.Reverse(c.Request.Context(), id); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Check-in reversed"})
}

// verifierID records which authenticated staff member performed the scan.
func verifierID(c *gin.Context) *int {
	if id, ok := auth.GetMemberID(c); ok {
		return &id
	}
	return nil
}

func respondCheckInError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, api.ErrInvalidToken):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, api.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, api.ErrInactiveSubscription),
		errors.Is(err, api.ErrExpired),
		errors.Is(err, api.ErrNoSessionsRemaining),
		errors.Is(err, api.ErrWrongAccessType),
		errors.Is(err, api.ErrEventCancelled):
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, api.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, api.ErrCapacityFull),
		errors.Is(err, api.ErrDuplicateCheckIn):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
	}
}
