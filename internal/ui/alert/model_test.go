package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/taskpulse/internal/model"
)

func TestModal_ShowHide(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour).Format(time.RFC3339)

	m := New(100)
	assert.Empty(t, m.View(now))

	m.Show(model.Task{ID: "t1", Title: "File the report", DueDate: &due})
	assert.True(t, m.Showing())
	assert.Equal(t, "t1", m.TaskID())
	view := m.View(now)
	assert.Contains(t, view, "File the report")
	assert.Contains(t, view, "Overdue since")

	m.Hide()
	assert.False(t, m.Showing())
	assert.Empty(t, m.View(now))
}

func TestDescribeDue_Upcoming(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(90 * time.Minute).Format(time.RFC3339)
	assert.Contains(t, describeDue(model.Task{DueDate: &due}, now), "in 1h30m0s")
	assert.Empty(t, describeDue(model.Task{}, now))
}
