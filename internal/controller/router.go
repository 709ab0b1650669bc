// Package controller exposes the scheduling facade over HTTP. Handlers only
// marshal arguments and translate the typed domain errors into status codes;
// every scheduling decision stays in the service layer.
package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/service"
)

// NewRouter builds the gin engine with all scheduling routes mounted.
func NewRouter(scheduler *service.SchedulerService, logger *zap.Logger, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h := &Handler{scheduler: scheduler, logger: logger}
	api := router.Group("/api/v1")
	{
		api.POST("/tutors/:tutorID/rules", h.AddRule)
		api.GET("/tutors/:tutorID/rules", h.ListRules)
		api.GET("/tutors/:tutorID/slots", h.OpenSlots)
		api.GET("/tutors/:tutorID/bookings", h.TutorBookings)
		api.GET("/students/:studentID/bookings", h.StudentBookings)
		api.GET("/rules/:ruleID", h.GetRule)
		api.PATCH("/rules/:ruleID", h.ToggleRule)
		api.DELETE("/rules/:ruleID", h.DeleteRule)
		api.POST("/bookings", h.Book)
		api.POST("/bookings/:bookingID/cancel", h.CancelBooking)
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
