package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/identity"
	"github.com/lessonlab/tutor_scheduler/internal/notify"
	"github.com/lessonlab/tutor_scheduler/internal/repository/memory"
	"github.com/lessonlab/tutor_scheduler/internal/service"
)

var testNow = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC) // Monday noon

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return testNow }
	store := memory.NewStore().WithClock(clock)
	logger := zap.NewNop()
	users := identity.NewStaticResolver(
		identity.User{ID: 1, DisplayName: "Tutor One", Role: identity.RoleTutor},
		identity.User{ID: 10, DisplayName: "Student Ten", Role: identity.RoleStudent},
		identity.User{ID: 11, DisplayName: "Student Eleven", Role: identity.RoleStudent},
	)

	availability := service.NewAvailabilityService(store.Rules(), logger).WithClock(clock)
	expander := service.NewExpanderService(store.Rules(), store.Bookings()).WithClock(clock)
	bookings := service.NewBookingService(store.Rules(), store.Bookings(), logger).WithClock(clock)
	scheduler := service.NewSchedulerService(availability, expander, bookings, users, notify.NewLogNotifier(logger), logger)

	return NewRouter(scheduler, logger, "test")
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()
	recorder := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRuleAndBookingFlow(t *testing.T) {
	router := newTestRouter()

	// Create a Monday 09:00-10:00 rule.
	recorder := doJSON(t, router, http.MethodPost, "/api/v1/tutors/1/rules",
		gin.H{"weekday": 1, "start_min": 540, "end_min": 600})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	rule := decode(t, recorder)
	ruleID := int64(rule["id"].(float64))
	require.NotZero(t, ruleID)

	// Overlapping rule on the same weekday is a conflict.
	recorder = doJSON(t, router, http.MethodPost, "/api/v1/tutors/1/rules",
		gin.H{"weekday": 1, "start_min": 570, "end_min": 630})
	require.Equal(t, http.StatusConflict, recorder.Code)
	conflict := decode(t, recorder)
	assert.Equal(t, "conflict", conflict["error"])
	assert.Equal(t, float64(ruleID), conflict["conflicting_id"])

	// Bad duration is a validation error.
	recorder = doJSON(t, router, http.MethodPost, "/api/v1/tutors/1/rules",
		gin.H{"weekday": 1, "start_min": 700, "end_min": 720})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "validation", decode(t, recorder)["error"])

	// Two Monday slots inside a 14-day window.
	recorder = doJSON(t, router, http.MethodGet,
		"/api/v1/tutors/1/slots?from=2025-03-03&to=2025-03-16", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	slots := decode(t, recorder)["slots"].([]any)
	require.Len(t, slots, 2)

	// Book the first slot.
	recorder = doJSON(t, router, http.MethodPost, "/api/v1/bookings",
		gin.H{"tutor_id": 1, "student_id": 10, "rule_id": ruleID, "date": "2025-03-03"})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	booking := decode(t, recorder)
	bookingID := int64(booking["id"].(float64))
	assert.Equal(t, "confirmed", booking["status"])

	// Contending booking by another student conflicts.
	recorder = doJSON(t, router, http.MethodPost, "/api/v1/bookings",
		gin.H{"tutor_id": 1, "student_id": 11, "rule_id": ruleID, "date": "2025-03-03"})
	require.Equal(t, http.StatusConflict, recorder.Code)

	// Unknown student is not found.
	recorder = doJSON(t, router, http.MethodPost, "/api/v1/bookings",
		gin.H{"tutor_id": 1, "student_id": 999, "rule_id": ruleID, "date": "2025-03-10"})
	require.Equal(t, http.StatusNotFound, recorder.Code)

	// Cancel, then cancel again: the second is an invalid state.
	cancelPath := fmt.Sprintf("/api/v1/bookings/%d/cancel", bookingID)
	recorder = doJSON(t, router, http.MethodPost, cancelPath, gin.H{"cancelled_by": 10})
	require.Equal(t, http.StatusOK, recorder.Code)
	recorder = doJSON(t, router, http.MethodPost, cancelPath, gin.H{"cancelled_by": 10})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "invalid_state", decode(t, recorder)["error"])

	// Delete the rule; it disappears from the listing.
	recorder = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/rules/%d", ruleID), nil)
	require.Equal(t, http.StatusNoContent, recorder.Code)
	recorder = doJSON(t, router, http.MethodGet, "/api/v1/tutors/1/rules", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, decode(t, recorder)["rules"])
}

func TestToggleUnknownRule(t *testing.T) {
	router := newTestRouter()
	recorder := doJSON(t, router, http.MethodPatch, "/api/v1/rules/999", gin.H{"enabled": false})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestBadPathAndQueryParams(t *testing.T) {
	router := newTestRouter()

	recorder := doJSON(t, router, http.MethodGet, "/api/v1/tutors/abc/rules", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/tutors/1/slots?from=bad&to=2025-03-16", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// A range over the 90-day cap is rejected by the expander.
	recorder = doJSON(t, router, http.MethodGet,
		"/api/v1/tutors/1/slots?from=2025-03-03&to=2025-08-01", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
