package attendance

import (
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name        string
		info        models.AttendanceInfo
		date        string
		late        bool
		wantCurrent int
		wantLongest int
		wantLate    int
	}{
		{"first check-in", models.AttendanceInfo{}, "2030-03-01", false, 1, 1, 0},
		{"next day extends", models.AttendanceInfo{LastDate: "2030-03-01", CurrentStreak: 1, LongestStreak: 1}, "2030-03-02", false, 2, 2, 0},
		{"gap restarts", models.AttendanceInfo{LastDate: "2030-03-01", CurrentStreak: 4, LongestStreak: 4}, "2030-03-03", true, 1, 4, 1},
		{"month boundary", models.AttendanceInfo{LastDate: "2030-02-28", CurrentStreak: 2, LongestStreak: 3}, "2030-03-01", false, 3, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := advance(tt.info, tt.date, tt.late)
			if got.CurrentStreak != tt.wantCurrent || got.LongestStreak != tt.wantLongest {
				t.Errorf("streak = %d/%d, want %d/%d", got.CurrentStreak, got.LongestStreak, tt.wantCurrent, tt.wantLongest)
			}
			if got.DaysPresent != tt.info.DaysPresent+1 || got.DaysLate != tt.wantLate {
				t.Errorf("days present/late = %d/%d", got.DaysPresent, got.DaysLate)
			}
			if got.LastDate != tt.date {
				t.Errorf("LastDate = %q", got.LastDate)
			}
		})
	}
}

func TestIsLate(t *testing.T) {
	day := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want bool
	}{
		{day.Add(9*time.Hour + 59*time.Minute), false},
		{day.Add(10 * time.Hour), false},
		{day.Add(10*time.Hour + time.Second), true},
		{day.Add(23 * time.Hour), true},
	}
	for _, tt := range tests {
		if got := isLate(tt.at, DefaultCutoff); got != tt.want {
			t.Errorf("isLate(%s) = %v, want %v", tt.at.Format(time.TimeOnly), got, tt.want)
		}
	}
}
