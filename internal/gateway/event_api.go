package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/k-negishi/pet-calendar/internal/domain"
)

// zone-lessな日時はクライアントのタイムゾーンで解釈する
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// EventAPIClient イベントREST APIを使用したEventAPIの実装
type EventAPIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	loc        *time.Location
	newID      func() string
}

// eventDTO APIとやり取りするイベントのJSON表現
type eventDTO struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Location       *string `json:"location,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	StartDate      string  `json:"startDate"`
	EndDate        *string `json:"endDate,omitempty"`
	RecurrenceRule *string `json:"recurrenceRule,omitempty"`
	Color          *string `json:"color,omitempty"`
	IsDeleted      bool    `json:"isDeleted,omitempty"`
}

// createRequest POST /event のリクエストボディ
type createRequest struct {
	Title          string  `json:"title"`
	Location       *string `json:"location,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	StartDate      string  `json:"startDate"`
	EndDate        *string `json:"endDate,omitempty"`
	RecurrenceRule *string `json:"recurrenceRule,omitempty"`
	Color          *string `json:"color,omitempty"`
}

// apiErrorResponse APIのエラーレスポンス
type apiErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewEventAPIClient イベントAPIクライアントを作成
func NewEventAPIClient(baseURL, token string, timeout time.Duration, loc *time.Location) *EventAPIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	return &EventAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		loc:   loc,
		newID: uuid.NewString,
	}
}

// ListMonth 指定月のイベント一覧を取得（monthは1始まり）
func (c *EventAPIClient) ListMonth(ctx context.Context, year int, month time.Month) ([]domain.CalendarEvent, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(year))
	query.Set("month", strconv.Itoa(int(month)))

	var dtos []eventDTO
	if err := c.do(ctx, http.MethodGet, "/event?"+query.Encode(), nil, &dtos); err != nil {
		return nil, fmt.Errorf("月のイベント一覧の取得に失敗しました: %w", err)
	}

	events := make([]domain.CalendarEvent, 0, len(dtos))
	for _, dto := range dtos {
		event, err := c.toDomain(dto)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Get IDでイベントを取得
func (c *EventAPIClient) Get(ctx context.Context, id string) (domain.CalendarEvent, error) {
	var dto eventDTO
	if err := c.do(ctx, http.MethodGet, "/event/"+url.PathEscape(id), nil, &dto); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	return c.toDomain(dto)
}

// Create イベントを作成
func (c *EventAPIClient) Create(ctx context.Context, in domain.EventInput) (domain.CalendarEvent, error) {
	body := createRequest{
		Title:          in.Title,
		Location:       optionalString(in.Location),
		Phone:          optionalString(in.Phone),
		StartDate:      formatTimestamp(in.StartDate),
		RecurrenceRule: in.RecurrenceRule,
		Color:          optionalString(in.Color),
	}
	if in.EndDate != nil {
		end := formatTimestamp(*in.EndDate)
		body.EndDate = &end
	}

	var dto eventDTO
	if err := c.do(ctx, http.MethodPost, "/event", body, &dto); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return c.toDomain(dto)
}

// Update イベントを部分更新
func (c *EventAPIClient) Update(ctx context.Context, id string, patch domain.EventPatch) (domain.CalendarEvent, error) {
	var dto eventDTO
	if err := c.do(ctx, http.MethodPut, "/event/"+url.PathEscape(id), patchBody(patch), &dto); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}
	return c.toDomain(dto)
}

// Delete イベントを削除（サーバー側で論理削除）
func (c *EventAPIClient) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/event/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	return nil
}

// patchBody 更新対象のフィールドだけを含むボディを作る。Clear系はnullを送る。
func patchBody(patch domain.EventPatch) map[string]any {
	body := make(map[string]any)
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Location != nil {
		body["location"] = *patch.Location
	}
	if patch.Phone != nil {
		body["phone"] = *patch.Phone
	}
	if patch.StartDate != nil {
		body["startDate"] = formatTimestamp(*patch.StartDate)
	}
	if patch.ClearEndDate {
		body["endDate"] = nil
	} else if patch.EndDate != nil {
		body["endDate"] = formatTimestamp(*patch.EndDate)
	}
	if patch.ClearRecurrence {
		body["recurrenceRule"] = nil
	} else if patch.RecurrenceRule != nil {
		body["recurrenceRule"] = *patch.RecurrenceRule
	}
	if patch.Color != nil {
		body["color"] = *patch.Color
	}
	return body
}

// do リクエストを送信し、2xxならレスポンスをoutにデコードする
func (c *EventAPIClient) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		requestBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %w", err)
		}
		reader = bytes.NewReader(requestBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.newID())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("イベントAPIリクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorResponse apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("イベントAPI呼び出しが失敗しました (Status: %d)", resp.StatusCode)
		}
		message := errorResponse.Message
		if message == "" {
			message = errorResponse.Error
		}
		return fmt.Errorf("イベントAPI呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}
	return nil
}

// toDomain DTOをドメインエンティティに変換
func (c *EventAPIClient) toDomain(dto eventDTO) (domain.CalendarEvent, error) {
	start, err := c.parseTimestamp(dto.StartDate)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("開始日時の解析に失敗しました: id=%s: %w", dto.ID, err)
	}

	event := domain.CalendarEvent{
		ID:             dto.ID,
		Title:          dto.Title,
		Location:       deref(dto.Location),
		Phone:          deref(dto.Phone),
		StartDate:      start,
		RecurrenceRule: dto.RecurrenceRule,
		Color:          deref(dto.Color),
		IsDeleted:      dto.IsDeleted,
	}

	if dto.EndDate != nil && *dto.EndDate != "" {
		end, err := c.parseTimestamp(*dto.EndDate)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("終了日時の解析に失敗しました: id=%s: %w", dto.ID, err)
		}
		event.EndDate = &end
	}
	return event, nil
}

// parseTimestamp RFC3339、またはタイムゾーンなしの日時を解析
func (c *EventAPIClient) parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.In(c.loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("日時の形式が不正です: %q", value)
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
