package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/recurrence"
)

// LINENotifier LINE Messaging APIを使用したNotifierの実装
type LINENotifier struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
	clock              func() time.Time
	loc                *time.Location
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
func NewLINENotifier(channelAccessToken, userID string, loc *time.Location) *LINENotifier {
	if loc == nil {
		loc = time.Local
	}
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: "https://api.line.me/v2/bot/message/push",
		clock:    time.Now,
		loc:      loc,
	}
}

// SendScheduleNotification ペットの予定をLINEで通知
func (n *LINENotifier) SendScheduleNotification(ctx context.Context, todayEvents, tomorrowEvents []domain.CalendarEvent) error {
	message := n.buildScheduleMessage(todayEvents, tomorrowEvents)
	return n.sendPushMessage(ctx, message)
}

// buildScheduleMessage 予定通知用のメッセージを構築
func (n *LINENotifier) buildScheduleMessage(todayEvents, tomorrowEvents []domain.CalendarEvent) string {
	var messageBuilder strings.Builder
	today := n.clock().In(n.loc)
	tomorrow := today.AddDate(0, 0, 1)

	messageBuilder.WriteString("🐾 ペットカレンダー\n\n")

	n.appendDaySection(&messageBuilder, "今日", today, todayEvents)
	messageBuilder.WriteString("\n\n")
	n.appendDaySection(&messageBuilder, "明日", tomorrow, tomorrowEvents)

	return messageBuilder.String()
}

// appendDaySection 1日分の見出しとイベントを追加
func (n *LINENotifier) appendDaySection(builder *strings.Builder, label string, day time.Time, events []domain.CalendarEvent) {
	dow := getWeekdayJapanese(day.Weekday())
	if len(events) == 0 {
		builder.WriteString(fmt.Sprintf("%s %s(%s): 予定なし\n", label, day.Format("1/2"), dow))
		return
	}
	builder.WriteString(fmt.Sprintf("%s %s(%s) (%d件):\n", label, day.Format("1/2"), dow, len(events)))
	for _, event := range events {
		n.appendEventToMessage(builder, event)
	}
}

// appendEventToMessage イベントをメッセージに追加
func (n *LINENotifier) appendEventToMessage(builder *strings.Builder, event domain.CalendarEvent) {
	timeRange := event.StartDate.In(n.loc).Format("15:04")
	if event.EndDate != nil {
		timeRange += "〜" + event.EndDate.In(n.loc).Format("15:04")
	}
	builder.WriteString(fmt.Sprintf("🔸 %s %s", timeRange, event.Title))

	if freq := recurrence.DecodePtr(event.RecurrenceRule); freq != recurrence.None {
		builder.WriteString(fmt.Sprintf(" (%s)", getFrequencyJapanese(freq)))
	}
	builder.WriteString("\n")

	// 場所・電話番号があれば追加
	if event.Location != "" {
		builder.WriteString(fmt.Sprintf("   📍 %s\n", event.Location))
	}
	if event.Phone != "" {
		builder.WriteString(fmt.Sprintf("   📞 %s\n", event.Phone))
	}
}

// sendPushMessage LINE Push APIでメッセージを送信
func (n *LINENotifier) sendPushMessage(ctx context.Context, message string) error {
	pushRequest := linePushRequest{
		To: n.userID,
		Messages: []lineMessage{
			{
				Type: "text",
				Text: message,
			},
		},
	}

	requestBody, err := json.Marshal(pushRequest)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", n.channelAccessToken))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}

		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}

// getWeekdayJapanese 曜日を日本語に変換
func getWeekdayJapanese(weekday time.Weekday) string {
	return [...]string{"日", "月", "火", "水", "木", "金", "土"}[weekday]
}

// getFrequencyJapanese 繰り返し頻度を日本語に変換
func getFrequencyJapanese(freq recurrence.Frequency) string {
	switch freq {
	case recurrence.Daily:
		return "毎日"
	case recurrence.Weekly:
		return "毎週"
	case recurrence.Monthly:
		return "毎月"
	case recurrence.Yearly:
		return "毎年"
	default:
		return ""
	}
}
