package domain

import (
	"fmt"
	"time"
)

// MonthKey 表示中の年月。Monthは0始まり（0=1月）。
type MonthKey struct {
	Year  int
	Month int
}

// MonthKeyOf 暦日が属する年月
func MonthKeyOf(d Date) MonthKey {
	return MonthKey{Year: d.Year, Month: int(d.Month) - 1}
}

// Normalize 範囲外の月を年の繰り上げ・繰り下げで正規化
func (k MonthKey) Normalize() MonthKey {
	y, m := k.Year+k.Month/12, k.Month%12
	if m < 0 {
		m += 12
		y--
	}
	return MonthKey{Year: y, Month: m}
}

// Prev 前月（1月なら前年の12月）
func (k MonthKey) Prev() MonthKey {
	return MonthKey{Year: k.Year, Month: k.Month - 1}.Normalize()
}

// Next 翌月（12月なら翌年の1月）
func (k MonthKey) Next() MonthKey {
	return MonthKey{Year: k.Year, Month: k.Month + 1}.Normalize()
}

// TimeMonth time.Monthに変換
func (k MonthKey) TimeMonth() time.Month {
	return time.Month(k.Normalize().Month + 1)
}

// WireMonth API送信用の1始まりの月
func (k MonthKey) WireMonth() int {
	return k.Normalize().Month + 1
}

// FirstDay 月初日
func (k MonthKey) FirstDay() Date {
	n := k.Normalize()
	return Date{Year: n.Year, Month: n.TimeMonth(), Day: 1}
}

// DaysIn 月の日数
func (k MonthKey) DaysIn() int {
	return k.Next().FirstDay().AddDays(-1).Day
}

// Contains 暦日がこの月に属するかどうか
func (k MonthKey) Contains(d Date) bool {
	n := k.Normalize()
	return d.Year == n.Year && d.Month == n.TimeMonth()
}

func (k MonthKey) String() string {
	n := k.Normalize()
	return fmt.Sprintf("%04d-%02d", n.Year, n.Month+1)
}
