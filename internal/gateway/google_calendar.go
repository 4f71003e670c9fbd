package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/logging"
)

const (
	propPhone = "petcalPhone"
	propColor = "petcalColor"

	statusCancelled = "cancelled"
	rrulePrefix     = "RRULE:"
)

// EventsProvider Google Calendar APIのイベント操作を抽象化したインターフェース
type EventsProvider interface {
	ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]*calendar.Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error)
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// serviceEventsProvider calendar.Serviceを使ったEventsProviderの実装
type serviceEventsProvider struct {
	service *calendar.Service
}

// NewServiceEventsProvider calendar.ServiceからEventsProviderを作成
func NewServiceEventsProvider(service *calendar.Service) EventsProvider {
	return &serviceEventsProvider{service: service}
}

func (p *serviceEventsProvider) ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]*calendar.Event, error) {
	var items []*calendar.Event
	// 繰り返しの親イベントを取得したいのでSingleEventsは指定しない
	err := p.service.Events.List(calendarID).
		TimeMin(timeMin).
		TimeMax(timeMax).
		ShowDeleted(true).
		MaxResults(250).
		Pages(ctx, func(events *calendar.Events) error {
			items = append(items, events.Items...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (p *serviceEventsProvider) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	return p.service.Events.Get(calendarID, eventID).Context(ctx).Do()
}

func (p *serviceEventsProvider) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return p.service.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (p *serviceEventsProvider) PatchEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	return p.service.Events.Patch(calendarID, eventID, event).Context(ctx).Do()
}

func (p *serviceEventsProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return p.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
}

// GoogleCalendarRepository Google Calendar APIを使用したEventAPIの実装
type GoogleCalendarRepository struct {
	provider   EventsProvider
	calendarID string
	timezone   *time.Location
}

// NewGoogleCalendarRepository サービスアカウントの認証情報からGoogle Calendarリポジトリを作成
func NewGoogleCalendarRepository(ctx context.Context, credentialsJSON []byte, calendarID string, timezone *time.Location) (*GoogleCalendarRepository, error) {
	// サービスアカウント認証でCalendar APIクライアントを作成
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %w", err)
	}

	service, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %w", err)
	}

	return NewGoogleCalendarRepositoryWithProvider(NewServiceEventsProvider(service), calendarID, timezone), nil
}

// NewGoogleCalendarRepositoryWithProvider 任意のEventsProviderからリポジトリを作成
func NewGoogleCalendarRepositoryWithProvider(provider EventsProvider, calendarID string, timezone *time.Location) *GoogleCalendarRepository {
	if timezone == nil {
		timezone = time.Local
	}
	return &GoogleCalendarRepository{
		provider:   provider,
		calendarID: calendarID,
		timezone:   timezone,
	}
}

// ListMonth 指定月（monthは1始まり）に開始するイベントを取得
func (r *GoogleCalendarRepository) ListMonth(ctx context.Context, year int, month time.Month) ([]domain.CalendarEvent, error) {
	// 開始: 月初 00:00 - inclusive / 終了: 翌月初 00:00 - exclusive
	start := time.Date(year, month, 1, 0, 0, 0, 0, r.timezone)
	end := start.AddDate(0, 1, 0)

	items, err := r.provider.ListEvents(ctx, r.calendarID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("カレンダーイベントの取得に失敗しました: %w", err)
	}

	events := make([]domain.CalendarEvent, 0, len(items))
	for _, item := range items {
		event, err := r.convertToEvent(item)
		if err != nil {
			logging.Errorf("イベントの変換をスキップしました: %v", err)
			continue
		}
		// 前月以前に始まった繰り返しイベントは開始月にだけ属する
		if event.StartDate.Before(start) || !event.StartDate.Before(end) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Get IDでイベントを取得
func (r *GoogleCalendarRepository) Get(ctx context.Context, id string) (domain.CalendarEvent, error) {
	item, err := r.provider.GetEvent(ctx, r.calendarID, id)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("カレンダーイベントの取得に失敗しました: %w", err)
	}
	return r.convertToEvent(item)
}

// Create イベントを作成
func (r *GoogleCalendarRepository) Create(ctx context.Context, in domain.EventInput) (domain.CalendarEvent, error) {
	end := in.StartDate
	if in.EndDate != nil {
		end = *in.EndDate
	}

	item := &calendar.Event{
		Summary:  in.Title,
		Location: in.Location,
		Start:    r.toEventDateTime(in.StartDate),
		End:      r.toEventDateTime(end),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				propPhone: in.Phone,
				propColor: in.Color,
			},
		},
	}
	if in.RecurrenceRule != nil && *in.RecurrenceRule != "" {
		item.Recurrence = []string{toRRuleLine(*in.RecurrenceRule)}
	}

	created, err := r.provider.InsertEvent(ctx, r.calendarID, item)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("カレンダーイベントの作成に失敗しました: %w", err)
	}
	return r.convertToEvent(created)
}

// Update イベントを部分更新
func (r *GoogleCalendarRepository) Update(ctx context.Context, id string, patch domain.EventPatch) (domain.CalendarEvent, error) {
	item := &calendar.Event{}
	private := map[string]string{}

	if patch.Title != nil {
		item.Summary = *patch.Title
	}
	if patch.Location != nil {
		item.Location = *patch.Location
		if *patch.Location == "" {
			item.NullFields = append(item.NullFields, "Location")
		}
	}
	if patch.Phone != nil {
		private[propPhone] = *patch.Phone
	}
	if patch.Color != nil {
		private[propColor] = *patch.Color
	}
	if len(private) > 0 {
		item.ExtendedProperties = &calendar.EventExtendedProperties{Private: private}
	}
	if patch.StartDate != nil {
		item.Start = r.toEventDateTime(*patch.StartDate)
	}
	switch {
	case patch.ClearEndDate && patch.StartDate != nil:
		// Google Calendarは終了日時が必須なので開始日時に揃える
		item.End = r.toEventDateTime(*patch.StartDate)
	case patch.ClearEndDate:
		current, err := r.provider.GetEvent(ctx, r.calendarID, id)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("終了日時を消すための現在のイベント取得に失敗しました: %w", err)
		}
		if current.Start == nil {
			return domain.CalendarEvent{}, fmt.Errorf("開始時刻が設定されていません: id=%s", id)
		}
		end := *current.Start
		item.End = &end
	case patch.EndDate != nil:
		item.End = r.toEventDateTime(*patch.EndDate)
	}
	switch {
	case patch.ClearRecurrence:
		item.NullFields = append(item.NullFields, "Recurrence")
	case patch.RecurrenceRule != nil:
		item.Recurrence = []string{toRRuleLine(*patch.RecurrenceRule)}
	}

	updated, err := r.provider.PatchEvent(ctx, r.calendarID, id, item)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("カレンダーイベントの更新に失敗しました: %w", err)
	}
	return r.convertToEvent(updated)
}

// Delete イベントを削除（Google Calendar上はstatus=cancelledになる）
func (r *GoogleCalendarRepository) Delete(ctx context.Context, id string) error {
	if err := r.provider.DeleteEvent(ctx, r.calendarID, id); err != nil {
		return fmt.Errorf("カレンダーイベントの削除に失敗しました: %w", err)
	}
	return nil
}

// convertToEvent Google Calendar APIのイベントをドメインエンティティに変換
func (r *GoogleCalendarRepository) convertToEvent(event *calendar.Event) (domain.CalendarEvent, error) {
	domainEvent := domain.CalendarEvent{
		ID:        event.Id,
		Title:     event.Summary,
		Location:  event.Location,
		IsDeleted: event.Status == statusCancelled,
	}

	// タイトルが空の場合は「（無題）」に設定
	if domainEvent.Title == "" {
		domainEvent.Title = "（無題）"
	}

	if event.Start == nil {
		return domain.CalendarEvent{}, fmt.Errorf("開始時刻が設定されていません: id=%s", event.Id)
	}
	start, err := r.parseEventDateTime(event.Start)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("開始時刻の解析に失敗しました: %w", err)
	}
	domainEvent.StartDate = start

	if event.End != nil && (event.End.DateTime != "" || event.End.Date != "") {
		end, err := r.parseEventDateTime(event.End)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("終了時刻の解析に失敗しました: %w", err)
		}
		// 終了が開始と同じなら終了日時なしとして扱う
		if end.After(start) {
			domainEvent.EndDate = &end
		}
	}

	for _, line := range event.Recurrence {
		if strings.HasPrefix(line, rrulePrefix) {
			rule := strings.TrimPrefix(line, rrulePrefix)
			domainEvent.RecurrenceRule = &rule
			break
		}
	}

	if event.ExtendedProperties != nil {
		domainEvent.Phone = event.ExtendedProperties.Private[propPhone]
		domainEvent.Color = event.ExtendedProperties.Private[propColor]
	}

	return domainEvent, nil
}

// parseEventDateTime 時刻指定あり・終日の両方を解析
func (r *GoogleCalendarRepository) parseEventDateTime(dt *calendar.EventDateTime) (time.Time, error) {
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(r.timezone), nil
	}
	if dt.Date != "" {
		// 終日イベントはその日の00:00として扱う
		return time.ParseInLocation("2006-01-02", dt.Date, r.timezone)
	}
	return time.Time{}, fmt.Errorf("日時が設定されていません")
}

func (r *GoogleCalendarRepository) toEventDateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.In(r.timezone).Format(time.RFC3339),
		TimeZone: r.timezone.String(),
	}
}

func toRRuleLine(rule string) string {
	if strings.HasPrefix(rule, rrulePrefix) {
		return rule
	}
	return rrulePrefix + rule
}
