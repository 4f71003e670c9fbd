package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/recurrence"
)

// MockMonthEventsReader は MonthEventsReader のテスト用モック
type MockMonthEventsReader struct {
	mock.Mock
}

func (m *MockMonthEventsReader) GetMonthEvents(ctx context.Context, year, month int, forceRefresh bool) []domain.CalendarEvent {
	args := m.Called(ctx, year, month, forceRefresh)
	return args.Get(0).([]domain.CalendarEvent)
}

// MockNotifier は Notifier のテスト用モック
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendScheduleNotification(ctx context.Context, todayEvents, tomorrowEvents []domain.CalendarEvent) error {
	args := m.Called(ctx, todayEvents, tomorrowEvents)
	return args.Error(0)
}

// --- Execute テスト ---

func TestExecute_Success(t *testing.T) {
	mockReader := new(MockMonthEventsReader)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockReader, mockNotifier, jst)

	today := domain.NewDate(2026, time.February, 5)
	tomorrow := domain.NewDate(2026, time.February, 6)

	evening := domain.CalendarEvent{ID: "ev-med", Title: "投薬", StartDate: time.Date(2026, 2, 5, 20, 0, 0, 0, jst)}
	walk := walkEvent()
	groom := domain.CalendarEvent{ID: "ev-groom", Title: "トリミング", StartDate: time.Date(2026, 2, 6, 13, 0, 0, 0, jst)}

	mockReader.On("GetMonthEvents", mock.Anything, 2026, 1, false).Return([]domain.CalendarEvent{evening, walk, groom})
	mockNotifier.On("SendScheduleNotification", mock.Anything,
		[]domain.CalendarEvent{walk, evening}, []domain.CalendarEvent{groom}).Return(nil)

	skipped, err := uc.Execute(context.Background(), today, tomorrow)
	require.NoError(t, err)
	assert.False(t, skipped)
	mockReader.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestExecute_NoEvents_Skipped(t *testing.T) {
	mockReader := new(MockMonthEventsReader)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockReader, mockNotifier, jst)

	mockReader.On("GetMonthEvents", mock.Anything, 2026, 1, false).Return([]domain.CalendarEvent{})

	skipped, err := uc.Execute(context.Background(), domain.NewDate(2026, time.February, 5), domain.NewDate(2026, time.February, 6))
	require.NoError(t, err)
	assert.True(t, skipped)
	// 予定なしの場合 SendScheduleNotification は呼ばれない
	mockNotifier.AssertNotCalled(t, "SendScheduleNotification")
}

func TestExecute_NotifierError(t *testing.T) {
	mockReader := new(MockMonthEventsReader)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockReader, mockNotifier, jst)

	walk := walkEvent()
	mockReader.On("GetMonthEvents", mock.Anything, 2026, 1, false).Return([]domain.CalendarEvent{walk})
	mockNotifier.On("SendScheduleNotification", mock.Anything, []domain.CalendarEvent{walk}, []domain.CalendarEvent{}).
		Return(errors.New("LINE API error"))

	_, err := uc.Execute(context.Background(), domain.NewDate(2026, time.February, 5), domain.NewDate(2026, time.February, 6))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LINE API error")
}

func TestExecute_TomorrowInNextMonth(t *testing.T) {
	mockReader := new(MockMonthEventsReader)
	mockNotifier := new(MockNotifier)
	uc := NewNotifyScheduleUseCase(mockReader, mockNotifier, jst)

	newYear := domain.CalendarEvent{ID: "ev-ny", Title: "初詣（ペット同伴）", StartDate: time.Date(2026, 1, 1, 9, 0, 0, 0, jst)}
	mockReader.On("GetMonthEvents", mock.Anything, 2025, 11, false).Return([]domain.CalendarEvent{})
	mockReader.On("GetMonthEvents", mock.Anything, 2026, 0, false).Return([]domain.CalendarEvent{newYear})
	mockNotifier.On("SendScheduleNotification", mock.Anything, []domain.CalendarEvent{}, []domain.CalendarEvent{newYear}).Return(nil)

	skipped, err := uc.Execute(context.Background(), domain.NewDate(2025, time.December, 31), domain.NewDate(2026, time.January, 1))
	require.NoError(t, err)
	assert.False(t, skipped)
	mockReader.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

// --- EventsOn テスト ---

func TestEventsOn_IncludesRecurringOccurrences(t *testing.T) {
	mockReader := new(MockMonthEventsReader)
	uc := NewNotifyScheduleUseCase(mockReader, new(MockNotifier), jst)

	daily := domain.CalendarEvent{
		ID:             "ev-daily",
		Title:          "フィラリアの薬",
		StartDate:      time.Date(2026, 2, 1, 8, 0, 0, 0, jst),
		RecurrenceRule: recurrence.Encode(recurrence.Daily),
	}
	weekly := domain.CalendarEvent{
		ID:             "ev-weekly",
		Title:          "シャンプー",
		StartDate:      time.Date(2026, 2, 2, 19, 0, 0, 0, jst),
		RecurrenceRule: recurrence.Encode(recurrence.Weekly),
	}
	mockReader.On("GetMonthEvents", mock.Anything, 2026, 1, false).Return([]domain.CalendarEvent{weekly, daily})

	events := uc.EventsOn(context.Background(), domain.NewDate(2026, time.February, 9))
	require.Len(t, events, 2)
	assert.Equal(t, "ev-daily", events[0].ID)
	assert.Equal(t, "ev-weekly", events[1].ID)

	events = uc.EventsOn(context.Background(), domain.NewDate(2026, time.February, 10))
	require.Len(t, events, 1)
	assert.Equal(t, "ev-daily", events[0].ID)
}

// MockMonthLister は MonthLister のテスト用モック
type MockMonthLister struct {
	mock.Mock
}

func (m *MockMonthLister) ListMonth(ctx context.Context, year int, month time.Month) ([]domain.CalendarEvent, error) {
	args := m.Called(ctx, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CalendarEvent), args.Error(1)
}

func TestEventsOn_RecurringFromEarlierMonth(t *testing.T) {
	mockReader := new(MockMonthEventsReader)
	mockHistory := new(MockMonthLister)
	uc := NewNotifyScheduleUseCase(mockReader, new(MockNotifier), jst).WithRecurringHistory(mockHistory, 3)

	pill := domain.CalendarEvent{
		ID:             "ev-pill",
		Title:          "フィラリアの薬",
		StartDate:      time.Date(2026, 1, 15, 8, 0, 0, 0, jst),
		RecurrenceRule: recurrence.Encode(recurrence.Monthly),
	}
	oneOff := domain.CalendarEvent{ID: "ev-vet", Title: "動物病院", StartDate: time.Date(2026, 1, 15, 15, 0, 0, 0, jst)}

	mockReader.On("GetMonthEvents", mock.Anything, 2026, 2, false).Return([]domain.CalendarEvent{})
	mockHistory.On("ListMonth", mock.Anything, 2026, time.February).Return([]domain.CalendarEvent{}, nil)
	mockHistory.On("ListMonth", mock.Anything, 2026, time.January).Return([]domain.CalendarEvent{pill, oneOff}, nil)
	mockHistory.On("ListMonth", mock.Anything, 2025, time.December).Return(nil, errors.New("503"))

	events := uc.EventsOn(context.Background(), domain.NewDate(2026, time.March, 15))
	require.Len(t, events, 1)
	assert.Equal(t, "ev-pill", events[0].ID)

	assert.Empty(t, uc.EventsOn(context.Background(), domain.NewDate(2026, time.March, 16)))
	mockHistory.AssertExpectations(t)
}

func TestEventsOn_RecurringHistoryNotDuplicated(t *testing.T) {
	mockReader := new(MockMonthEventsReader)
	mockHistory := new(MockMonthLister)
	uc := NewNotifyScheduleUseCase(mockReader, new(MockNotifier), jst).WithRecurringHistory(mockHistory, 1)

	daily := domain.CalendarEvent{
		ID:             "ev-daily",
		Title:          "散歩",
		StartDate:      time.Date(2026, 1, 31, 7, 0, 0, 0, jst),
		RecurrenceRule: recurrence.Encode(recurrence.Daily),
	}
	// 保存先によっては前月開始の繰り返しイベントが当月の一覧にも含まれる
	mockReader.On("GetMonthEvents", mock.Anything, 2026, 1, false).Return([]domain.CalendarEvent{daily})
	mockHistory.On("ListMonth", mock.Anything, 2026, time.January).Return([]domain.CalendarEvent{daily}, nil)

	events := uc.EventsOn(context.Background(), domain.NewDate(2026, time.February, 3))
	require.Len(t, events, 1)
	assert.Equal(t, "ev-daily", events[0].ID)
}
