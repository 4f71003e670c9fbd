package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/logging"
)

// EventAPI イベントの保存先（REST APIなど）へのポート。monthは1始まり。
type EventAPI interface {
	ListMonth(ctx context.Context, year int, month time.Month) ([]domain.CalendarEvent, error)
	Get(ctx context.Context, id string) (domain.CalendarEvent, error)
	Create(ctx context.Context, in domain.EventInput) (domain.CalendarEvent, error)
	Update(ctx context.Context, id string, patch domain.EventPatch) (domain.CalendarEvent, error)
	Delete(ctx context.Context, id string) error
}

// EventStore 表示中の月のイベントを保持するキャッシュ付きクライアント。
// キャッシュと読み込み済みの月を書き換えるのはEventStoreのメソッドだけで、
// 失敗は全てログに出したうえで空・nil・falseとして返す。
type EventStore struct {
	api   EventAPI
	loc   *time.Location
	group singleflight.Group

	mu         sync.Mutex
	events     []domain.CalendarEvent
	loaded     *domain.MonthKey
	dayIndex   map[int][]domain.CalendarEvent
	latest     domain.MonthKey
	gen        uint64
	appliedGen uint64
	listeners  map[int]func([]domain.CalendarEvent)
	nextID     int
}

// NewEventStore EventStoreを作成。日付の比較は全てlocで行う。
func NewEventStore(api EventAPI, loc *time.Location) *EventStore {
	if loc == nil {
		loc = time.Local
	}
	return &EventStore{
		api:       api,
		loc:       loc,
		dayIndex:  make(map[int][]domain.CalendarEvent),
		listeners: make(map[int]func([]domain.CalendarEvent)),
	}
}

// Location 日付比較に使うタイムゾーン
func (s *EventStore) Location() *time.Location {
	return s.loc
}

// GetMonthEvents 指定月（monthは0始まり）のイベントを返す。
// 読み込み済みの月と同じで forceRefresh が偽ならAPIを呼ばずにキャッシュを返す。
func (s *EventStore) GetMonthEvents(ctx context.Context, year, month int, forceRefresh bool) []domain.CalendarEvent {
	key := domain.MonthKey{Year: year, Month: month}.Normalize()

	if !forceRefresh {
		s.mu.Lock()
		if s.loaded != nil && *s.loaded == key {
			// キャッシュを返す場合も最新のリクエストとして記録し、取得中の別の月の応答を破棄させる
			s.gen++
			s.latest = key
			events := cloneEvents(s.events)
			s.mu.Unlock()
			return events
		}
		s.mu.Unlock()

		// 同じ月への同時リクエストは1回の取得にまとめる。
		// 相乗りした呼び出し元がいるので、取得自体は最初の呼び出し元のキャンセルに引きずられない
		// （HTTPクライアントのタイムアウトで打ち切られる）。
		fetchCtx := context.WithoutCancel(ctx)
		v, _, _ := s.group.Do(key.String(), func() (any, error) {
			return s.fetchMonth(fetchCtx, key), nil
		})
		return cloneEvents(v.([]domain.CalendarEvent))
	}

	return s.fetchMonth(ctx, key)
}

// RefreshCurrentMonth 実行時点で読み込み済みの月を強制的に再取得する。未読み込みなら空。
func (s *EventStore) RefreshCurrentMonth(ctx context.Context) []domain.CalendarEvent {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()

	if loaded == nil {
		return []domain.CalendarEvent{}
	}
	return s.GetMonthEvents(ctx, loaded.Year, loaded.Month, true)
}

// GetEvent IDでイベントを取得。失敗時はnil。
func (s *EventStore) GetEvent(ctx context.Context, id string) *domain.CalendarEvent {
	ev, err := s.api.Get(ctx, id)
	if err != nil {
		logging.Errorf("イベントの取得に失敗しました: id=%s err=%v", id, err)
		return nil
	}
	return &ev
}

// CreateEvent イベントを作成し、成功したら読み込み済みの月を再取得してから返す
func (s *EventStore) CreateEvent(ctx context.Context, in domain.EventInput) *domain.CalendarEvent {
	if err := in.Validate(); err != nil {
		logging.Errorf("イベントの作成を中止しました: %v", err)
		return nil
	}
	created, err := s.api.Create(ctx, in)
	if err != nil {
		logging.Errorf("イベントの作成に失敗しました: %v", err)
		return nil
	}
	s.RefreshCurrentMonth(ctx)
	return &created
}

// UpdateEvent イベントを更新し、成功したら読み込み済みの月を再取得してから返す
func (s *EventStore) UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) *domain.CalendarEvent {
	if err := patch.Validate(); err != nil {
		logging.Errorf("イベントの更新を中止しました: id=%s err=%v", id, err)
		return nil
	}
	updated, err := s.api.Update(ctx, id, patch)
	if err != nil {
		logging.Errorf("イベントの更新に失敗しました: id=%s err=%v", id, err)
		return nil
	}
	s.RefreshCurrentMonth(ctx)
	return &updated
}

// DeleteEvent イベントを削除（論理削除）し、成功したら読み込み済みの月を再取得する
func (s *EventStore) DeleteEvent(ctx context.Context, id string) bool {
	if err := s.api.Delete(ctx, id); err != nil {
		logging.Errorf("イベントの削除に失敗しました: id=%s err=%v", id, err)
		return false
	}
	s.RefreshCurrentMonth(ctx)
	return true
}

// GetEventsForDate キャッシュから指定日に開始するイベントを返す（通信なし）
func (s *EventStore) GetEventsForDate(date domain.Date) []domain.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := []domain.CalendarEvent{}
	for _, e := range s.events {
		if e.StartDay(s.loc).Equal(date) {
			events = append(events, e)
		}
	}
	return events
}

// DayHasEvents 読み込み済みの月の指定日にイベントがあるかどうか
func (s *EventStore) DayHasEvents(dayOfMonth int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dayIndex[dayOfMonth]) > 0
}

// GetDayColor 指定日の最初のイベントの表示色。イベントがなければDefaultColor。
func (s *EventStore) GetDayColor(dayOfMonth int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.dayIndex[dayOfMonth]
	if len(events) == 0 {
		return domain.DefaultColor
	}
	return events[0].DisplayColor()
}

// Events キャッシュ中のイベントのスナップショット
func (s *EventStore) Events() []domain.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.events)
}

// LoadedMonth 読み込み済みの月
func (s *EventStore) LoadedMonth() (domain.MonthKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded == nil {
		return domain.MonthKey{}, false
	}
	return *s.loaded, true
}

// Subscribe キャッシュ更新の通知を登録。戻り値で登録解除する。
func (s *EventStore) Subscribe(fn func([]domain.CalendarEvent)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// fetchMonth APIから取得し、最新のリクエストに対する応答であればキャッシュに反映する
func (s *EventStore) fetchMonth(ctx context.Context, key domain.MonthKey) []domain.CalendarEvent {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.latest = key
	s.mu.Unlock()

	fetched, err := s.api.ListMonth(ctx, key.Year, key.TimeMonth())
	if err != nil {
		logging.Errorf("月のイベント取得に失敗しました: month=%s err=%v", key, err)
		return []domain.CalendarEvent{}
	}
	events := withoutDeleted(fetched)

	s.mu.Lock()
	if key != s.latest || gen <= s.appliedGen {
		s.mu.Unlock()
		logging.Debugf("古い応答を破棄しました: month=%s gen=%d", key, gen)
		return events
	}
	s.events = events
	loaded := key
	s.loaded = &loaded
	s.appliedGen = gen
	s.rebuildDayIndex()
	snapshot := cloneEvents(events)
	listeners := make([]func([]domain.CalendarEvent), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	logging.Debugf("月のイベントを読み込みました: month=%s count=%d", key, len(events))
	for _, l := range listeners {
		l(cloneEvents(snapshot))
	}
	return cloneEvents(events)
}

// rebuildDayIndex 読み込み済みの月の日ごとのインデックスを作り直す（呼び出し側でロック済み）
func (s *EventStore) rebuildDayIndex() {
	index := make(map[int][]domain.CalendarEvent)
	for _, e := range s.events {
		d := e.StartDay(s.loc)
		if s.loaded.Contains(d) {
			index[d.Day] = append(index[d.Day], e)
		}
	}
	s.dayIndex = index
}

func withoutDeleted(events []domain.CalendarEvent) []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, 0, len(events))
	for _, e := range events {
		if !e.IsDeleted {
			out = append(out, e)
		}
	}
	return out
}

func cloneEvents(events []domain.CalendarEvent) []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, len(events))
	copy(out, events)
	return out
}
