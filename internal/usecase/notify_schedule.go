package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/logging"
	"github.com/k-negishi/pet-calendar/internal/recurrence"
)

// MonthEventsReader 月単位でイベントを読み込むポート（EventStoreが実装）
type MonthEventsReader interface {
	GetMonthEvents(ctx context.Context, year, month int, forceRefresh bool) []domain.CalendarEvent
}

// MonthLister 保存先から月単位でイベントを直接取得するポート（EventAPIが実装）。monthは1始まり。
type MonthLister interface {
	ListMonth(ctx context.Context, year int, month time.Month) ([]domain.CalendarEvent, error)
}

// DefaultRecurringLookbackMonths 以前の月に開始した繰り返しイベントを探す月数
const DefaultRecurringLookbackMonths = 24

// historyFetchLimit 過去の月を同時に取得する数
const historyFetchLimit = 4

// Notifier 通知を送信するポート
type Notifier interface {
	SendScheduleNotification(ctx context.Context, todayEvents, tomorrowEvents []domain.CalendarEvent) error
}

// NotifyScheduleUseCase ペットの予定通知ユースケース
type NotifyScheduleUseCase struct {
	events   MonthEventsReader
	notifier Notifier
	loc      *time.Location

	history        MonthLister
	lookbackMonths int
}

// NewNotifyScheduleUseCase ユースケースを生成
func NewNotifyScheduleUseCase(events MonthEventsReader, notifier Notifier, loc *time.Location) *NotifyScheduleUseCase {
	if loc == nil {
		loc = time.Local
	}
	return &NotifyScheduleUseCase{
		events:   events,
		notifier: notifier,
		loc:      loc,
	}
}

// WithRecurringHistory 対象日の月より前に開始した繰り返しイベントも
// 過去months か月分さかのぼって集めるようにする
func (uc *NotifyScheduleUseCase) WithRecurringHistory(history MonthLister, months int) *NotifyScheduleUseCase {
	uc.history = history
	uc.lookbackMonths = months
	return uc
}

// Execute 今日と明日の予定を集め、LINE通知を送信する
func (uc *NotifyScheduleUseCase) Execute(ctx context.Context, today, tomorrow domain.Date) (skipped bool, err error) {
	todayEvents := uc.EventsOn(ctx, today)
	tomorrowEvents := uc.EventsOn(ctx, tomorrow)

	// 予定が両日ともない場合はスキップ
	if len(todayEvents) == 0 && len(tomorrowEvents) == 0 {
		return true, nil
	}

	if err := uc.notifier.SendScheduleNotification(ctx, todayEvents, tomorrowEvents); err != nil {
		logging.Errorf("LINE通知の送信に失敗しました: %v", err)
		return false, err
	}

	return false, nil
}

// EventsOn 指定日に開始する、または繰り返しで発生するイベントを時刻順に返す
func (uc *NotifyScheduleUseCase) EventsOn(ctx context.Context, day domain.Date) []domain.CalendarEvent {
	key := domain.MonthKeyOf(day)
	candidates := uc.events.GetMonthEvents(ctx, key.Year, key.Month, false)
	candidates = append(candidates, uc.recurringBefore(ctx, key)...)

	seen := make(map[string]bool, len(candidates))
	events := make([]domain.CalendarEvent, 0)
	for _, e := range candidates {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		if recurrence.EventOccursOn(e, day, uc.loc) {
			events = append(events, e)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return minutesOfDay(events[i].StartDate.In(uc.loc)) < minutesOfDay(events[j].StartDate.In(uc.loc))
	})
	return events
}

// recurringBefore keyより前のlookbackMonthsか月に開始した繰り返しイベント。
// 取得に失敗した月はログに出して読み飛ばす。
func (uc *NotifyScheduleUseCase) recurringBefore(ctx context.Context, key domain.MonthKey) []domain.CalendarEvent {
	if uc.history == nil || uc.lookbackMonths <= 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		events []domain.CalendarEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyFetchLimit)

	month := key
	for i := 0; i < uc.lookbackMonths; i++ {
		month = month.Prev()
		m := month
		g.Go(func() error {
			fetched, err := uc.history.ListMonth(gctx, m.Year, m.TimeMonth())
			if err != nil {
				logging.Errorf("過去の月のイベント取得に失敗しました: month=%s err=%v", m, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, e := range fetched {
				if !e.IsDeleted && recurrence.DecodePtr(e.RecurrenceRule) != recurrence.None {
					events = append(events, e)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	// 取得順に依存しないよう開始日時で並べる
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
	return events
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
