package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTask_Due(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name   string
		raw    *string
		want   time.Time
		wantOK bool
	}{
		{"nil", nil, time.Time{}, false},
		{"blank", str("  "), time.Time{}, false},
		{"rfc3339", str("2026-03-02T10:00:00Z"), time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), true},
		{"fractional", str("2026-03-02T10:00:00.250Z"), time.Date(2026, 3, 2, 10, 0, 0, 250e6, time.UTC), true},
		{"date only", str("2026-03-02"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{"garbage", str("next tuesday"), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Task{DueDate: tt.raw}.Due()
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestTask_IsDone(t *testing.T) {
	assert.True(t, Task{Status: "done"}.IsDone())
	assert.True(t, Task{Status: "DONE"}.IsDone())
	assert.False(t, Task{Status: StatusReview}.IsDone())
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0.0, ClampVolume(-0.2))
	assert.Equal(t, 1.0, ClampVolume(1.7))
	assert.Equal(t, 0.4, ClampVolume(0.4))
	assert.Equal(t, 0.0, ClampVolume(math.NaN()))
}
