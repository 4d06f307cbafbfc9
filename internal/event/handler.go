package event

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"studiopass/internal/api"
	"studiopass/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Notifier queues cancellation notices for booked members. Failures are
// logged and never affect the cancellation itself.
type Notifier interface {
	SendClassCancellation(ctx context.Context, email, name, className string, when time.Time) error
}

type Handler struct {
	repo     Repository
	loc      *time.Location
	notifier Notifier
}

func NewHandler(db *sqlx.DB, loc *time.Location, notifier Notifier) *Handler {
	return &Handler{
		repo:     NewRepository(db),
		loc:      loc,
		notifier: notifier,
	}
}

// CreateEvent godoc
// @Summary      Create standalone class event
// @Description  Creates a dated class event not owned by any subscription.
// @Tags         events
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateEventRequest  true  "Event data"
// @Success      201      {object}  ClassEvent
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	start, err := time.ParseInLocation(time.RFC3339, req.StartTime, h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid start_time"})
		return
	}
	end, err := time.ParseInLocation(time.RFC3339, req.EndTime, h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid end_time"})
		return
	}
	if !end.After(start) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "end_time must be after start_time"})
		return
	}

	ev, err := h.repo.Create(c.Request.Context(), ClassEvent{
		TemplateID:   req.TemplateID,
		InstructorID: req.InstructorID,
		StartTime:    start,
		EndTime:      end,
		Capacity:     req.Capacity,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, ev)
}

// CancelEvent godoc
// @Summary      Cancel class event
// @Description  Flags the event as cancelled. The row is never deleted.
// @Tags         events
// @Security     BearerAuth
// @Produce      json
// @Param        eventID  path      int  true  "Event ID"
// @Success      200      {object}  api.MessageResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/events/{eventID}/cancel [post]
func (h *Handler) CancelEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("eventID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid event ID"})
		return
	}

	if err := h.repo.Cancel(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrEventNotFoundOrAlreadyCancelled) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Event not found or already cancelled"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to cancel event"})
		return
	}

	if h.notifier != nil {
		go h.notifyBooked(id)
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Event cancelled"})
}

func (h *Handler) notifyBooked(eventID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	contacts, err := h.repo.BookedContacts(ctx, eventID)
	if err != nil {
		logger.Errorf("Failed to load booked members for cancelled event %d: %v", eventID, err)
		return
	}

	for _, ct := range contacts {
		if err := h.notifier.SendClassCancellation(ctx, ct.Email, ct.Name, ct.TemplateName, ct.StartTime.In(h.loc)); err != nil {
			logger.Errorf("Failed to queue cancellation notice for %s: %v", ct.Email, err)
		}
	}
}

// ListUpcoming godoc
// @Summary      List upcoming events for template
// @Tags         events
// @Security     BearerAuth
// @Produce      json
// @Param        templateID  path      int  true  "Template ID"
// @Success      200         {array}   ClassEventWithDetails
// @Failure      400         {object}  api.ErrorResponse
// @Failure      500         {object}  api.ErrorResponse
// @Router       /templates/{templateID}/events [get]
func (h *Handler) ListUpcoming(c *gin.Context) {
	templateID, err := strconv.Atoi(c.Param("templateID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid template ID"})
		return
	}

	events, err := h.repo.ListUpcoming(c.Request.Context(), templateID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, events)
}
