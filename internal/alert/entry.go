package alert

import (
	"fmt"
	"strings"
	"time"
)

// AllDays is the mask with every weekday set.
const AllDays uint8 = 0x7f

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Entry is a recurring reminder.
type Entry struct {
	ID          string
	OwnerID     string
	Name        string
	Description string

	// Days has bit i set when the entry recurs on weekday i (Sunday=0).
	Days uint8
	// Time is the 24h clock encoded as HHMM, e.g. 930 for 09:30.
	Time            int
	DurationMinutes int

	Notify bool
	Active bool
}

// DayBit returns the mask bit for a weekday.
func DayBit(d time.Weekday) uint8 { return 1 << uint(d) }

// HHMM encodes the wall clock of t as HH*100+MM.
func HHMM(t time.Time) int { return t.Hour()*100 + t.Minute() }

// ValidTime reports whether hhmm is a real clock reading.
func ValidTime(hhmm int) bool {
	return hhmm >= 0 && hhmm <= 2359 && hhmm%100 < 60
}

// EligibleAt reports whether e fires on a tick with the given day bit and
// clock reading.
func (e Entry) EligibleAt(dayBit uint8, hhmm int) bool {
	return e.Active && e.Notify && e.Days&dayBit != 0 && e.Time == hhmm
}

// DayNames lists the weekdays set in mask, Sunday first.
func DayNames(mask uint8) []string {
	out := make([]string, 0, 7)
	for i, name := range dayNames {
		if mask&(1<<uint(i)) != 0 {
			out = append(out, name)
		}
	}
	return out
}

// ParseDays builds a mask from any text containing three-letter day names,
// e.g. "Mon Wed" or "Mon,Wed,Fri".
func ParseDays(s string) uint8 {
	var mask uint8
	for i, name := range dayNames {
		if strings.Contains(s, name) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// FormatTime renders an HHMM value as HH:MM.
func FormatTime(hhmm int) string {
	return fmt.Sprintf("%02d:%02d", hhmm/100, hhmm%100)
}
