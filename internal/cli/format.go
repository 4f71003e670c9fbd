package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/recurrence"
)

// writeEvent 1件分のイベントを出力
func writeEvent(w io.Writer, ev domain.CalendarEvent, loc *time.Location) {
	when := ev.StartDate.In(loc).Format("2006-01-02 15:04")
	if ev.EndDate != nil {
		when += "〜" + ev.EndDate.In(loc).Format("15:04")
	}
	fmt.Fprintf(w, "- %s %s [%s] (%s)\n", when, ev.Title, ev.DisplayColor(), ev.ID)

	if freq := recurrence.DecodePtr(ev.RecurrenceRule); freq != recurrence.None {
		fmt.Fprintf(w, "    繰り返し: %s\n", freq)
	}
	if ev.Location != "" {
		fmt.Fprintf(w, "    場所: %s\n", ev.Location)
	}
	if ev.Phone != "" {
		fmt.Fprintf(w, "    電話: %s\n", ev.Phone)
	}
}
