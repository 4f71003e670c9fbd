package recurrence

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/logging"
)

// OccursOn 指定日にイベントの発生があるかどうか。
// 開始日当日は常に真、繰り返しなしのイベントは開始日のみ。
func OccursOn(rule *string, start time.Time, day domain.Date, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	startDay := domain.DateOf(start, loc)
	if startDay.Equal(day) {
		return true
	}
	if day.Before(startDay) || DecodePtr(rule) == None {
		return false
	}

	r, err := rrule.StrToRRule(strings.TrimPrefix(*rule, "RRULE:"))
	if err != nil {
		logging.Errorf("繰り返しルールの解析に失敗しました: rule=%s err=%v", *rule, err)
		return false
	}
	r.DTStart(start.In(loc))

	dayStart := day.In(loc)
	dayEnd := day.AddDays(1).In(loc).Add(-time.Nanosecond)
	return len(r.Between(dayStart, dayEnd, true)) > 0
}

// EventOccursOn CalendarEventに対するOccursOn
func EventOccursOn(e domain.CalendarEvent, day domain.Date, loc *time.Location) bool {
	return OccursOn(e.RecurrenceRule, e.StartDate, day, loc)
}
