package attendance

import (
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
)

const dateOnly = "2006-01-02"

// advance folds one check-in on date into info. A check-in the day after
// LastDate extends the streak; any gap restarts it at 1.
func advance(info models.AttendanceInfo, date string, late bool) models.AttendanceInfo {
	info.DaysPresent++
	if late {
		info.DaysLate++
	}

	if consecutive(info.LastDate, date) {
		info.CurrentStreak++
	} else {
		info.CurrentStreak = 1
	}
	if info.CurrentStreak > info.LongestStreak {
		info.LongestStreak = info.CurrentStreak
	}
	info.LastDate = date
	return info
}

func consecutive(prev, next string) bool {
	p, err := time.Parse(dateOnly, prev)
	if err != nil {
		return false
	}
	n, err := time.Parse(dateOnly, next)
	if err != nil {
		return false
	}
	return n.Sub(p) == 24*time.Hour
}

// isLate reports whether at falls after cutoff on its own UTC day.
func isLate(at time.Time, cutoff time.Duration) bool {
	at = at.UTC()
	midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return at.Sub(midnight) > cutoff
}
