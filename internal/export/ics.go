// Package export はイベントを外部のカレンダーアプリ向けの形式に書き出す。
package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/k-negishi/pet-calendar/internal/domain"
)

const productID = "-//k-negishi//pet-calendar//JA"

// MonthICS 指定月のイベントをiCalendar形式の文字列に変換する。
// 削除済みのイベントは含めない。
func MonthICS(key domain.MonthKey, events []domain.CalendarEvent, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}
	key = key.Normalize()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(fmt.Sprintf("ペットカレンダー %s", key))
	cal.SetXWRTimezone(loc.String())

	for _, e := range events {
		if e.IsDeleted {
			continue
		}
		addEvent(cal, e, now)
	}

	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, e domain.CalendarEvent, now time.Time) {
	ve := cal.AddEvent(e.ID)
	ve.SetDtStampTime(now)
	ve.SetSummary(e.Title)
	ve.SetStartAt(e.StartDate)

	end := e.StartDate
	if e.EndDate != nil {
		end = *e.EndDate
	}
	ve.SetEndAt(end)

	if e.Location != "" {
		ve.SetLocation(e.Location)
	}
	if e.Phone != "" {
		ve.SetDescription("TEL: " + e.Phone)
	}
	if e.IsRecurring() {
		ve.AddProperty(ical.ComponentPropertyRrule, strings.TrimPrefix(*e.RecurrenceRule, "RRULE:"))
	}
	ve.AddProperty(ical.ComponentProperty("X-PETCAL-COLOR"), e.DisplayColor())
}
