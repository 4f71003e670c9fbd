// Package app はCLIとLambdaで共有する依存関係の組み立てを行う。
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/k-negishi/pet-calendar/internal/calendar"
	"github.com/k-negishi/pet-calendar/internal/config"
	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/export"
	"github.com/k-negishi/pet-calendar/internal/gateway"
	"github.com/k-negishi/pet-calendar/internal/logging"
	"github.com/k-negishi/pet-calendar/internal/overlay"
	"github.com/k-negishi/pet-calendar/internal/usecase"
)

// App プロセス内で唯一のEventStoreとOverlay Coordinatorを保持する
type App struct {
	Store   *usecase.EventStore
	Overlay *overlay.Coordinator

	api      usecase.EventAPI
	cfg      *config.Config
	loc      *time.Location
	clock    func() time.Time
	notifier usecase.Notifier
}

// Option Appの生成オプション
type Option func(*App)

// WithClock 現在時刻の取得方法を差し替える
func WithClock(clock func() time.Time) Option {
	return func(a *App) { a.clock = clock }
}

// WithNotifier 通知先を差し替える
func WithNotifier(n usecase.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// New 設定からイベントの保存先を選んでAppを作成
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	api, err := newEventAPI(ctx, cfg, loc)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(cfg, api, loc, opts...), nil
}

// NewWithAPI 任意のEventAPIからAppを作成
func NewWithAPI(cfg *config.Config, api usecase.EventAPI, loc *time.Location, opts ...Option) *App {
	a := &App{
		Store:   usecase.NewEventStore(api, loc),
		Overlay: overlay.NewCoordinator(),
		api:     api,
		cfg:     cfg,
		loc:     loc,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func newEventAPI(ctx context.Context, cfg *config.Config, loc *time.Location) (usecase.EventAPI, error) {
	switch cfg.EventBackend {
	case config.BackendGoogle:
		repo, err := gateway.NewGoogleCalendarRepository(ctx, []byte(cfg.GoogleCredentials), cfg.CalendarID, loc)
		if err != nil {
			return nil, fmt.Errorf("Google Calendar初期化エラー: %w", err)
		}
		return repo, nil
	case config.BackendREST:
		return gateway.NewEventAPIClient(cfg.EventAPIBaseURL, cfg.EventAPIToken, cfg.RequestTimeout, loc), nil
	default:
		return nil, fmt.Errorf("EVENT_BACKENDの値が不正です: %q", cfg.EventBackend)
	}
}

// Location 日付計算に使うタイムゾーン
func (a *App) Location() *time.Location {
	return a.loc
}

// Today 設定されたタイムゾーンでの今日
func (a *App) Today() domain.Date {
	return domain.DateOf(a.clock(), a.loc)
}

// MonthGrid 指定月を読み込み、グリッドを組み立てる
func (a *App) MonthGrid(ctx context.Context, key domain.MonthKey, selected domain.Date) calendar.Grid {
	key = key.Normalize()
	events := a.Store.GetMonthEvents(ctx, key.Year, key.Month, false)
	return calendar.Build(key.Year, key.Month, a.Today(), selected, events, a.loc)
}

// DayDetail 日付詳細を開き、その日に開始するイベントを返す
func (a *App) DayDetail(ctx context.Context, date domain.Date) []domain.CalendarEvent {
	key := domain.MonthKeyOf(date)
	a.Store.GetMonthEvents(ctx, key.Year, key.Month, false)
	a.Overlay.OpenDayDetail(date)
	return a.Store.GetEventsForDate(date)
}

// CreateEvent 作成画面を開いてイベントを作成し、成功したら閉じる
func (a *App) CreateEvent(ctx context.Context, in domain.EventInput) *domain.CalendarEvent {
	a.Overlay.OpenCreateEventOn(domain.DateOf(in.StartDate, a.loc))
	created := a.Store.CreateEvent(ctx, in)
	if created != nil {
		a.Overlay.Close()
	}
	return created
}

// ExportMonth 指定月のイベントをiCalendar形式で書き出す
func (a *App) ExportMonth(ctx context.Context, key domain.MonthKey) string {
	key = key.Normalize()
	events := a.Store.GetMonthEvents(ctx, key.Year, key.Month, false)
	return export.MonthICS(key, events, a.loc, a.clock())
}

// Digest 今日と明日の予定をLINEで通知する。予定がなければskipped=true。
func (a *App) Digest(ctx context.Context) (skipped bool, err error) {
	notifier := a.notifier
	if notifier == nil {
		if err := a.cfg.RequireLINE(); err != nil {
			return false, err
		}
		notifier = gateway.NewLINENotifier(a.cfg.LineChannelAccessToken, a.cfg.LineUserID, a.loc)
	}

	today := a.Today()
	uc := usecase.NewNotifyScheduleUseCase(a.Store, notifier, a.loc).
		WithRecurringHistory(a.api, usecase.DefaultRecurringLookbackMonths)
	return uc.Execute(ctx, today, today.AddDays(1))
}
