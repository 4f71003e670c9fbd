package calendar

import (
	"time"

	"github.com/k-negishi/pet-calendar/internal/domain"
)

const (
	// DaysPerWeek 1週間の日数（月曜始まり）
	DaysPerWeek = 7
	// WeeksPerGrid 月表示は常に6週
	WeeksPerGrid = 6
	// CellCount グリッドのセル数
	CellCount = DaysPerWeek * WeeksPerGrid
)

// Cell 月表示グリッドの1日分
type Cell struct {
	Date           domain.Date
	DayOfMonth     int
	IsCurrentMonth bool
	IsToday        bool
	IsSelected     bool
	Events         []domain.CalendarEvent
}

// Grid 6週×7日の月表示グリッド
type Grid [CellCount]Cell

// Build 指定年月（monthは0始まり）の42セルのグリッドを生成する。
// 同じ入力からは常に同じグリッドを返す。selectedがゼロ値なら選択なし。
func Build(year, month int, today, selected domain.Date, events []domain.CalendarEvent, loc *time.Location) Grid {
	key := domain.MonthKey{Year: year, Month: month}.Normalize()
	byDay := indexByStartDay(events, loc)

	first := key.FirstDay()
	startDayOfWeek := (int(first.Weekday()) - 1 + DaysPerWeek) % DaysPerWeek
	daysInMonth := key.DaysIn()

	var grid Grid
	i := 0
	emit := func(d domain.Date, current bool) {
		grid[i] = Cell{
			Date:           d,
			DayOfMonth:     d.Day,
			IsCurrentMonth: current,
			Events:         byDay[d],
		}
		if current {
			grid[i].IsToday = d.Equal(today)
			grid[i].IsSelected = !selected.IsZero() && d.Equal(selected)
		}
		i++
	}

	// 前月末から遡った埋め草
	for n := startDayOfWeek; n > 0; n-- {
		emit(first.AddDays(-n), false)
	}
	for day := 1; day <= daysInMonth; day++ {
		emit(domain.Date{Year: first.Year, Month: first.Month, Day: day}, true)
	}
	// 翌月1日からの埋め草
	next := key.Next().FirstDay()
	for n := 0; i < CellCount; n++ {
		emit(next.AddDays(n), false)
	}

	return grid
}

// indexByStartDay イベントを開始日の暦日ごとにまとめる
func indexByStartDay(events []domain.CalendarEvent, loc *time.Location) map[domain.Date][]domain.CalendarEvent {
	byDay := make(map[domain.Date][]domain.CalendarEvent, len(events))
	for _, e := range events {
		d := e.StartDay(loc)
		byDay[d] = append(byDay[d], e)
	}
	return byDay
}

// Weeks 週ごとの行に分割
func (g Grid) Weeks() [WeeksPerGrid][DaysPerWeek]Cell {
	var weeks [WeeksPerGrid][DaysPerWeek]Cell
	for i, c := range g {
		weeks[i/DaysPerWeek][i%DaysPerWeek] = c
	}
	return weeks
}

// IndexOf 暦日のセル位置。グリッド外なら-1。
func (g Grid) IndexOf(d domain.Date) int {
	for i, c := range g {
		if c.Date.Equal(d) {
			return i
		}
	}
	return -1
}
