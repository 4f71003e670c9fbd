package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultColor 色が未設定のイベントに使う表示色
const DefaultColor = "#4285f4"

// ErrInvalidEvent 入力値が不正な場合のエラー
var ErrInvalidEvent = errors.New("イベントの入力値が不正です")

// CalendarEvent サーバーが発行するカレンダーイベントのドメインエンティティ
type CalendarEvent struct {
	ID             string
	Title          string
	Location       string
	Phone          string
	StartDate      time.Time
	EndDate        *time.Time
	RecurrenceRule *string
	Color          string
	IsDeleted      bool
}

// DisplayColor 表示色を返す（未設定ならDefaultColor）
func (e CalendarEvent) DisplayColor() string {
	if e.Color == "" {
		return DefaultColor
	}
	return e.Color
}

// StartDay グリッド上で所属する日付。日をまたぐイベントも開始日にだけ属する。
func (e CalendarEvent) StartDay(loc *time.Location) Date {
	return DateOf(e.StartDate, loc)
}

// IsRecurring 繰り返しルールを持つかどうか
func (e CalendarEvent) IsRecurring() bool {
	return e.RecurrenceRule != nil && *e.RecurrenceRule != ""
}

// EventInput イベント作成時のペイロード
type EventInput struct {
	Title          string
	Location       string
	Phone          string
	StartDate      time.Time
	EndDate        *time.Time
	RecurrenceRule *string
	Color          string
}

// Validate 作成ペイロードを検証
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: タイトルが設定されていません", ErrInvalidEvent)
	}
	if in.StartDate.IsZero() {
		return fmt.Errorf("%w: 開始日時が設定されていません", ErrInvalidEvent)
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("%w: 終了日時が開始日時より前です", ErrInvalidEvent)
	}
	return nil
}

// EventPatch イベント更新時の部分パッチ。nilのフィールドは変更しない。
type EventPatch struct {
	Title          *string
	Location       *string
	Phone          *string
	StartDate      *time.Time
	EndDate        *time.Time
	RecurrenceRule *string
	Color          *string

	// ClearEndDate / ClearRecurrence はサーバー側の値をnullに戻す
	ClearEndDate    bool
	ClearRecurrence bool
}

// Validate パッチ単体で判定できる範囲を検証
func (p EventPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: タイトルを空にはできません", ErrInvalidEvent)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("%w: 終了日時が開始日時より前です", ErrInvalidEvent)
	}
	return nil
}

// IsEmpty 変更点がないかどうか
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Location == nil && p.Phone == nil &&
		p.StartDate == nil && p.EndDate == nil && p.RecurrenceRule == nil &&
		p.Color == nil && !p.ClearEndDate && !p.ClearRecurrence
}
