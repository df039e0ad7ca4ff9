package listing

import (
	"fmt"
	"strings"
	"time"
)

// Labeler formats the calendar day of t (already in the display location).
type Labeler func(t time.Time) string

var koreanWeekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// KoreanLabel renders "2024년 5월 29일 (수)", the format the kiosk shows.
func KoreanLabel(t time.Time) string {
	return fmt.Sprintf("%d년 %d월 %d일 (%s)", t.Year(), int(t.Month()), t.Day(), koreanWeekdays[t.Weekday()])
}

// EnglishLabel renders "2024-05-29 (Wed)".
func EnglishLabel(t time.Time) string {
	return t.Format("2006-01-02 (Mon)")
}

// LabelerFor maps a locale tag to a Labeler. Unknown locales fall back to
// Korean.
func LabelerFor(locale string) Labeler {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en", "en-us", "en_us", "en-gb":
		return EnglishLabel
	default:
		return KoreanLabel
	}
}
