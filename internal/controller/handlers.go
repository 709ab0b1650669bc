package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/model"
	"github.com/lessonlab/tutor_scheduler/internal/service"
)

const dateLayout = "2006-01-02"

// Handler carries the facade into the gin handlers.
type Handler struct {
	scheduler *service.SchedulerService
	logger    *zap.Logger
}

type addRuleRequest struct {
	Weekday       int     `json:"weekday"`
	StartMin      int     `json:"start_min"`
	EndMin        int     `json:"end_min"`
	RecurrenceEnd *string `json:"recurrence_end"`
}

func (h *Handler) AddRule(c *gin.Context) {
	tutorID, ok := pathID(c, "tutorID")
	if !ok {
		return
	}
	var req addRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	var recurrenceEnd *time.Time
	if req.RecurrenceEnd != nil {
		parsed, err := time.Parse(dateLayout, *req.RecurrenceEnd)
		if err != nil {
			badRequest(c, "recurrence_end", "expected YYYY-MM-DD")
			return
		}
		recurrenceEnd = &parsed
	}

	rule, err := h.scheduler.AddRule(c.Request.Context(), tutorID, req.Weekday, req.StartMin, req.EndMin, recurrenceEnd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) ListRules(c *gin.Context) {
	tutorID, ok := pathID(c, "tutorID")
	if !ok {
		return
	}
	rules, err := h.scheduler.ListRules(c.Request.Context(), tutorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (h *Handler) GetRule(c *gin.Context) {
	ruleID, ok := pathID(c, "ruleID")
	if !ok {
		return
	}
	rule, err := h.scheduler.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

type toggleRuleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) ToggleRule(c *gin.Context) {
	ruleID, ok := pathID(c, "ruleID")
	if !ok {
		return
	}
	var req toggleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "enabled", "required boolean")
		return
	}
	rule, err := h.scheduler.ToggleRule(c.Request.Context(), ruleID, *req.Enabled)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	ruleID, ok := pathID(c, "ruleID")
	if !ok {
		return
	}
	if err := h.scheduler.DeleteRule(c.Request.Context(), ruleID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) OpenSlots(c *gin.Context) {
	tutorID, ok := pathID(c, "tutorID")
	if !ok {
		return
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	slots, err := h.scheduler.OpenSlots(c.Request.Context(), tutorID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type bookRequest struct {
	TutorID   int64  `json:"tutor_id" binding:"required"`
	StudentID int64  `json:"student_id" binding:"required"`
	RuleID    int64  `json:"rule_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
}

func (h *Handler) Book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		badRequest(c, "date", "expected YYYY-MM-DD")
		return
	}

	booking, err := h.scheduler.Book(c.Request.Context(), req.TutorID, req.StudentID, req.RuleID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

type cancelRequest struct {
	CancelledBy int64 `json:"cancelled_by" binding:"required"`
}

func (h *Handler) CancelBooking(c *gin.Context) {
	bookingID, ok := pathID(c, "bookingID")
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "cancelled_by", "required")
		return
	}
	booking, err := h.scheduler.Cancel(c.Request.Context(), bookingID, req.CancelledBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) TutorBookings(c *gin.Context) {
	tutorID, ok := pathID(c, "tutorID")
	if !ok {
		return
	}
	h.listBookings(c, func(from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
		return h.scheduler.BookingsForTutor(c.Request.Context(), tutorID, from, to, includeCancelled)
	})
}

func (h *Handler) StudentBookings(c *gin.Context) {
	studentID, ok := pathID(c, "studentID")
	if !ok {
		return
	}
	h.listBookings(c, func(from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
		return h.scheduler.BookingsForStudent(c.Request.Context(), studentID, from, to, includeCancelled)
	})
}

func (h *Handler) listBookings(c *gin.Context, list func(from, to time.Time, includeCancelled bool) ([]*model.Booking, error)) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	includeCancelled := c.Query("include_cancelled") == "true"
	bookings, err := list(from, to, includeCancelled)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name, "must be a positive integer")
		return 0, false
	}
	return id, true
}

func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		badRequest(c, "from", "expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		badRequest(c, "to", "expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func badRequest(c *gin.Context, field, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": field, "reason": reason})
}

// respondError maps the domain error taxonomy onto HTTP statuses. Every error
// keeps its structured detail so the client can render a specific message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var validationErr *model.ValidationError
	var cascadeErr *model.CascadeFailedError
	var conflictErr *model.ConflictError
	var notFoundErr *model.NotFoundError
	var stateErr *model.InvalidStateError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "validation", "field": validationErr.Field, "reason": validationErr.Reason,
		})
	case errors.As(err, &cascadeErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": "cascade_failed", "rule_id": cascadeErr.RuleID, "booking_id": cascadeErr.BookingID,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": "conflict", "resource": conflictErr.Resource,
			"conflicting_id": conflictErr.ConflictingID, "reason": conflictErr.Reason,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not_found", "resource": notFoundErr.Resource, "id": notFoundErr.ID,
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "invalid_state", "resource": stateErr.Resource,
			"id": stateErr.ID, "state": stateErr.State,
		})
	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
