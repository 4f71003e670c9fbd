package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/pet-calendar/internal/domain"
)

var jst = time.FixedZone("JST", 9*60*60)

func countFiller(g Grid) (leading, trailing int) {
	i := 0
	for ; i < CellCount && !g[i].IsCurrentMonth; i++ {
		leading++
	}
	for j := CellCount - 1; j >= i && !g[j].IsCurrentMonth; j-- {
		trailing++
	}
	return leading, trailing
}

func TestBuild_AlwaysFortyTwoCells(t *testing.T) {
	for year := 2024; year <= 2027; year++ {
		for month := 0; month < 12; month++ {
			g := Build(year, month, domain.Date{}, domain.Date{}, nil, jst)
			key := domain.MonthKey{Year: year, Month: month}

			current := 0
			for i, c := range g {
				assert.False(t, c.Date.IsZero(), "%s cell %d", key, i)
				assert.Equal(t, c.Date.Day, c.DayOfMonth)
				if i > 0 {
					assert.Equal(t, g[i-1].Date.AddDays(1), c.Date, "%s cell %d は連続した日付", key, i)
				}
				if c.IsCurrentMonth {
					current++
				}
			}
			assert.Equal(t, key.DaysIn(), current, key.String())
			assert.Equal(t, time.Monday, g[0].Date.Weekday(), key.String())
		}
	}
}

func TestBuild_February2026(t *testing.T) {
	today := domain.NewDate(2026, time.February, 15)
	g := Build(2026, 1, today, today, nil, jst)

	for i := 0; i < 6; i++ {
		assert.False(t, g[i].IsCurrentMonth, "cell %d", i)
		assert.Equal(t, time.January, g[i].Date.Month)
	}
	assert.Equal(t, 26, g[0].DayOfMonth)
	assert.Equal(t, domain.NewDate(2026, time.February, 1), g[6].Date)

	idx := g.IndexOf(today)
	require.Equal(t, 20, idx)
	assert.True(t, g[idx].IsToday)
	assert.True(t, g[idx].IsSelected)
	assert.True(t, g[idx].IsCurrentMonth)

	leading, trailing := countFiller(g)
	assert.Equal(t, 6, leading)
	assert.Equal(t, 8, trailing)
	assert.Equal(t, domain.NewDate(2026, time.March, 8), g[CellCount-1].Date)
}

func TestBuild_MonthStartingOnMonday(t *testing.T) {
	// 2027年2月は月曜始まりかつ28日なので、前月分なし・翌月分14日
	g := Build(2027, 1, domain.Date{}, domain.Date{}, nil, jst)
	leading, trailing := countFiller(g)

	assert.Equal(t, 0, leading)
	assert.Equal(t, 14, trailing)
	assert.Equal(t, domain.NewDate(2027, time.February, 1), g[0].Date)
	assert.Equal(t, domain.NewDate(2027, time.March, 14), g[CellCount-1].Date)
}

func TestBuild_LeapFebruary(t *testing.T) {
	g := Build(2024, 1, domain.Date{}, domain.Date{}, nil, jst)
	leading, trailing := countFiller(g)

	assert.Equal(t, 3, leading)
	assert.Equal(t, 10, trailing)
	assert.NotEqual(t, -1, g.IndexOf(domain.NewDate(2024, time.February, 29)))
}

func TestBuild_YearRollover(t *testing.T) {
	t.Run("12月の翌月分は翌年1月", func(t *testing.T) {
		g := Build(2025, 11, domain.Date{}, domain.Date{}, nil, jst)
		last := g[CellCount-1]
		assert.Equal(t, domain.NewDate(2026, time.January, 11), last.Date)
		assert.False(t, last.IsCurrentMonth)
	})

	t.Run("1月の前月分は前年12月", func(t *testing.T) {
		g := Build(2026, 0, domain.Date{}, domain.Date{}, nil, jst)
		assert.Equal(t, domain.NewDate(2025, time.December, 29), g[0].Date)
	})

	t.Run("範囲外の月は繰り上げる", func(t *testing.T) {
		assert.Equal(t, Build(2026, 0, domain.Date{}, domain.Date{}, nil, jst), Build(2025, 12, domain.Date{}, domain.Date{}, nil, jst))
		assert.Equal(t, Build(2025, 11, domain.Date{}, domain.Date{}, nil, jst), Build(2026, -1, domain.Date{}, domain.Date{}, nil, jst))
	})
}

func TestBuild_EventsIndexedByStartDayOnly(t *testing.T) {
	end := time.Date(2026, 2, 7, 18, 0, 0, 0, jst)
	multiDay := domain.CalendarEvent{
		ID:        "ev-1",
		Title:     "ペットホテル",
		StartDate: time.Date(2026, 2, 5, 10, 0, 0, 0, jst),
		EndDate:   &end,
	}
	spill := domain.CalendarEvent{
		ID:        "ev-2",
		Title:     "トリミング",
		StartDate: time.Date(2026, 3, 2, 11, 0, 0, 0, jst),
	}

	g := Build(2026, 1, domain.Date{}, domain.Date{}, []domain.CalendarEvent{multiDay, spill}, jst)

	for i, c := range g {
		switch c.Date {
		case domain.NewDate(2026, time.February, 5):
			assert.Equal(t, []domain.CalendarEvent{multiDay}, c.Events)
		case domain.NewDate(2026, time.March, 2):
			assert.False(t, c.IsCurrentMonth)
			assert.Equal(t, []domain.CalendarEvent{spill}, c.Events)
		default:
			assert.Empty(t, c.Events, "cell %d (%s)", i, c.Date)
		}
	}
}

func TestBuild_EventDayUsesLocation(t *testing.T) {
	// UTCでは2/4 16:00だがJSTでは2/5 1:00
	ev := domain.CalendarEvent{ID: "ev-utc", Title: "夜間投薬", StartDate: time.Date(2026, 2, 4, 16, 0, 0, 0, time.UTC)}
	g := Build(2026, 1, domain.Date{}, domain.Date{}, []domain.CalendarEvent{ev}, jst)

	assert.Len(t, g[g.IndexOf(domain.NewDate(2026, time.February, 5))].Events, 1)
	assert.Empty(t, g[g.IndexOf(domain.NewDate(2026, time.February, 4))].Events)
}

func TestBuild_Deterministic(t *testing.T) {
	today := domain.NewDate(2026, time.February, 15)
	selected := domain.NewDate(2026, time.February, 3)
	events := []domain.CalendarEvent{
		{ID: "a", Title: "散歩", StartDate: time.Date(2026, 2, 3, 7, 0, 0, 0, jst)},
		{ID: "b", Title: "通院", StartDate: time.Date(2026, 2, 3, 15, 0, 0, 0, jst)},
	}

	first := Build(2026, 1, today, selected, events, jst)
	second := Build(2026, 1, today, selected, events, jst)
	assert.Equal(t, first, second)

	sel := first[first.IndexOf(selected)]
	assert.True(t, sel.IsSelected)
	assert.False(t, sel.IsToday)
	assert.Len(t, sel.Events, 2)
}

func TestBuild_NoSelection(t *testing.T) {
	g := Build(2026, 1, domain.NewDate(2026, time.February, 15), domain.Date{}, nil, jst)
	for _, c := range g {
		assert.False(t, c.IsSelected)
	}
}

func TestGrid_Weeks(t *testing.T) {
	g := Build(2026, 1, domain.Date{}, domain.Date{}, nil, jst)
	weeks := g.Weeks()

	assert.Equal(t, g[0], weeks[0][0])
	assert.Equal(t, g[CellCount-1], weeks[WeeksPerGrid-1][DaysPerWeek-1])
	for _, w := range weeks {
		assert.Equal(t, time.Monday, w[0].Date.Weekday())
		assert.Equal(t, time.Sunday, w[DaysPerWeek-1].Date.Weekday())
	}
	assert.Equal(t, -1, g.IndexOf(domain.NewDate(2030, time.January, 1)))
}
