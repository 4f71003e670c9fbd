package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/k-negishi/pet-calendar/internal/app"
	"github.com/k-negishi/pet-calendar/internal/calendar"
	"github.com/k-negishi/pet-calendar/internal/config"
	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/logging"
)

// LambdaEvent Lambda実行時のイベント構造体。
// EventBridge Schedulerからの実行ではActionが空なのでdigestになる。
type LambdaEvent struct {
	Action   string `json:"action"`
	Year     int    `json:"year"`
	Month    int    `json:"month"` // 1始まり。0なら今月。
	Selected string `json:"selected"`
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int        `json:"statusCode"`
	Message    string     `json:"message"`
	Grid       []GridCell `json:"grid,omitempty"`
	ICS        string     `json:"ics,omitempty"`
}

// GridCell グリッドのセルのJSON表現
type GridCell struct {
	Date           string   `json:"date"`
	DayOfMonth     int      `json:"dayOfMonth"`
	IsCurrentMonth bool     `json:"isCurrentMonth"`
	IsToday        bool     `json:"isToday"`
	IsSelected     bool     `json:"isSelected"`
	EventIDs       []string `json:"eventIds"`
	Color          string   `json:"color,omitempty"`
}

// handler Lambda関数のメインハンドラー
func handler(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
	// 設定を読み込み
	cfg, err := config.Load(ctx)
	if err != nil {
		return LambdaResponse{StatusCode: 500, Message: "設定読み込みエラー"}, err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return LambdaResponse{StatusCode: 500, Message: "初期化エラー"}, err
	}

	return dispatch(ctx, a, event)
}

// dispatch アクションごとの処理を実行
func dispatch(ctx context.Context, a *app.App, event LambdaEvent) (LambdaResponse, error) {
	switch strings.ToLower(event.Action) {
	case "", "digest":
		skipped, err := a.Digest(ctx)
		if err != nil {
			return LambdaResponse{StatusCode: 500, Message: "LINE通知送信エラー"}, err
		}
		if skipped {
			return LambdaResponse{StatusCode: 200, Message: "予定なしのため通知スキップ"}, nil
		}
		return LambdaResponse{StatusCode: 200, Message: "通知送信完了"}, nil

	case "grid":
		key := monthKey(a, event)
		var selected domain.Date
		if event.Selected != "" {
			d, err := domain.ParseDate(event.Selected)
			if err != nil {
				return LambdaResponse{StatusCode: 400, Message: "selectedの形式が不正です"}, nil
			}
			selected = d
		}
		grid := a.MonthGrid(ctx, key, selected)
		return LambdaResponse{StatusCode: 200, Message: key.String(), Grid: toGridCells(grid)}, nil

	case "export":
		key := monthKey(a, event)
		return LambdaResponse{StatusCode: 200, Message: key.String(), ICS: a.ExportMonth(ctx, key)}, nil

	default:
		logging.Errorf("不明なアクションです: %s", event.Action)
		return LambdaResponse{StatusCode: 400, Message: fmt.Sprintf("不明なアクション: %s", event.Action)}, nil
	}
}

// monthKey イベントの年月（未指定なら今月）を0始まりのMonthKeyに変換
func monthKey(a *app.App, event LambdaEvent) domain.MonthKey {
	key := domain.MonthKeyOf(a.Today())
	if event.Year != 0 {
		key.Year = event.Year
	}
	if event.Month != 0 {
		key.Month = event.Month - 1
	}
	return key.Normalize()
}

func toGridCells(grid calendar.Grid) []GridCell {
	cells := make([]GridCell, 0, len(grid))
	for _, c := range grid {
		cell := GridCell{
			Date:           c.Date.String(),
			DayOfMonth:     c.DayOfMonth,
			IsCurrentMonth: c.IsCurrentMonth,
			IsToday:        c.IsToday,
			IsSelected:     c.IsSelected,
			EventIDs:       make([]string, 0, len(c.Events)),
		}
		for _, e := range c.Events {
			cell.EventIDs = append(cell.EventIDs, e.ID)
		}
		if len(c.Events) > 0 {
			cell.Color = c.Events[0].DisplayColor()
		}
		cells = append(cells, cell)
	}
	return cells
}

func main() {
	lambda.Start(handler)
}
