package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date タイムゾーンを持たない暦日
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate 暦日を生成（範囲外の値は繰り上げ・繰り下げで正規化する）
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// DateOf 指定タイムゾーンでの暦日を返す
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate "2006-01-02"形式の文字列を暦日に変換
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("日付の解析に失敗しました: %w", err)
	}
	return DateOf(t, time.UTC), nil
}

// IsZero 未設定かどうか
func (d Date) IsZero() bool {
	return d == Date{}
}

// Equal 同じ暦日かどうか
func (d Date) Equal(other Date) bool {
	return d == other
}

// Before dがotherより前かどうか
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// In 指定タイムゾーンでのその日の0時
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays n日後の暦日
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Weekday 曜日
func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

func (d Date) String() string {
	return d.In(time.UTC).Format(dateLayout)
}
