package recurrence

import (
	"fmt"
	"strings"
)

// Frequency 繰り返し頻度
type Frequency int

const (
	None Frequency = iota
	Daily
	Weekly
	Monthly
	Yearly
)

// Frequencies 全ての頻度（None含む）
var Frequencies = []Frequency{None, Daily, Weekly, Monthly, Yearly}

// decodeOrder デコード時の部分一致の優先順
var decodeOrder = []Frequency{Daily, Weekly, Monthly, Yearly}

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return "none"
	}
}

// ParseFrequency 頻度名（none/daily/weekly/monthly/yearly）を解析
func ParseFrequency(name string) (Frequency, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return None, nil
	}
	for _, f := range Frequencies {
		if f.String() == n {
			return f, nil
		}
	}
	return None, fmt.Errorf("未知の繰り返し頻度です: %s", name)
}

// Encode 頻度をサーバー向けのルール文字列に変換。Noneはnil。
func Encode(f Frequency) *string {
	if f == None {
		return nil
	}
	rule := "FREQ=" + strings.ToUpper(f.String()) + ";INTERVAL=1"
	return &rule
}

// Decode ルール文字列を頻度に変換。解釈できない値はNoneとして扱う。
func Decode(rule string) Frequency {
	if rule == "" {
		return None
	}
	for _, f := range decodeOrder {
		if strings.Contains(rule, "FREQ="+strings.ToUpper(f.String())) {
			return f
		}
	}
	return None
}

// DecodePtr nilを未設定として扱うDecode
func DecodePtr(rule *string) Frequency {
	if rule == nil {
		return None
	}
	return Decode(*rule)
}
