package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC) // Monday

func validRule() *AvailabilityRule {
	return &AvailabilityRule{
		TutorID:  1,
		Weekday:  1,
		StartMin: 540, // 09:00
		EndMin:   600, // 10:00
		Enabled:  true,
	}
}

func TestValidateDurationBounds(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		wantErr  bool
	}{
		{name: "29 minutes rejected", duration: 29, wantErr: true},
		{name: "30 minutes accepted", duration: 30},
		{name: "480 minutes accepted", duration: 480},
		{name: "481 minutes rejected", duration: 481, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			rule.StartMin = 480
			rule.EndMin = 480 + tt.duration
			err := rule.Validate(today)
			if tt.wantErr {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, "end_min", validationErr.Field)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateFields(t *testing.T) {
	t.Run("weekday out of range", func(t *testing.T) {
		rule := validRule()
		rule.Weekday = 7
		require.Error(t, rule.Validate(today))
		rule.Weekday = -1
		require.Error(t, rule.Validate(today))
	})

	t.Run("start after end", func(t *testing.T) {
		rule := validRule()
		rule.StartMin = 600
		rule.EndMin = 540
		require.Error(t, rule.Validate(today))
	})

	t.Run("minutes out of range", func(t *testing.T) {
		rule := validRule()
		rule.StartMin = -1
		require.Error(t, rule.Validate(today))
		rule = validRule()
		rule.EndMin = 1440
		require.Error(t, rule.Validate(today))
	})

	t.Run("recurrence end before today", func(t *testing.T) {
		rule := validRule()
		yesterday := today.AddDate(0, 0, -1)
		rule.RecurrenceEnd = &yesterday
		var validationErr *ValidationError
		require.ErrorAs(t, rule.Validate(today), &validationErr)
		assert.Equal(t, "recurrence_end", validationErr.Field)
	})

	t.Run("recurrence end today is allowed", func(t *testing.T) {
		rule := validRule()
		end := today
		rule.RecurrenceEnd = &end
		require.NoError(t, rule.Validate(today))
	})
}

func TestAppliesOn(t *testing.T) {
	rule := validRule() // Monday
	monday := today
	nextMonday := today.AddDate(0, 0, 7)
	tuesday := today.AddDate(0, 0, 1)
	lastMonday := today.AddDate(0, 0, -7)

	assert.True(t, rule.AppliesOn(monday, today))
	assert.True(t, rule.AppliesOn(nextMonday, today))
	assert.False(t, rule.AppliesOn(tuesday, today), "weekday mismatch")
	assert.False(t, rule.AppliesOn(lastMonday, today), "past date")

	rule.Enabled = false
	assert.False(t, rule.AppliesOn(monday, today), "disabled rule")

	rule.Enabled = true
	end := today
	rule.RecurrenceEnd = &end
	assert.True(t, rule.AppliesOn(monday, today), "recurrence end is inclusive")
	assert.False(t, rule.AppliesOn(nextMonday, today), "past recurrence end")
}
