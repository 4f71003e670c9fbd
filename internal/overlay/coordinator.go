package overlay

import (
	"sync"

	"github.com/k-negishi/pet-calendar/internal/domain"
)

// Type 表示中のオーバーレイの種類
type Type int

const (
	None Type = iota
	Saved
	Month
	Notifications
	CreateEvent
	EventsList
	Birthdays
	DayDetail
)

func (t Type) String() string {
	switch t {
	case Saved:
		return "saved"
	case Month:
		return "month"
	case Notifications:
		return "notifications"
	case CreateEvent:
		return "create-event"
	case EventsList:
		return "events-list"
	case Birthdays:
		return "birthdays"
	case DayDetail:
		return "day-detail"
	default:
		return "none"
	}
}

// Filter フィルターアイコン
type Filter string

const (
	FilterNone          Filter = ""
	FilterSaved         Filter = "saved"
	FilterMonth         Filter = "month"
	FilterNotifications Filter = "notifications"
)

// Action アクションチップ
type Action string

const (
	ActionNone      Action = ""
	ActionCreate    Action = "create"
	ActionEvents    Action = "events"
	ActionBirthdays Action = "birthdays"
)

var filterOverlays = map[Filter]Type{
	FilterSaved:         Saved,
	FilterMonth:         Month,
	FilterNotifications: Notifications,
}

var actionOverlays = map[Action]Type{
	ActionCreate:    CreateEvent,
	ActionEvents:    EventsList,
	ActionBirthdays: Birthdays,
}

// State オーバーレイの状態。Type == None のときに限り IsOpen は偽。
type State struct {
	IsOpen       bool
	Type         Type
	ActiveFilter Filter
	ActiveAction Action
	SelectedDate *domain.Date
}

func (s State) equal(o State) bool {
	if s.IsOpen != o.IsOpen || s.Type != o.Type || s.ActiveFilter != o.ActiveFilter || s.ActiveAction != o.ActiveAction {
		return false
	}
	if s.SelectedDate == nil || o.SelectedDate == nil {
		return s.SelectedDate == nil && o.SelectedDate == nil
	}
	return *s.SelectedDate == *o.SelectedDate
}

// Coordinator 同時に1つだけ開くオーバーレイを管理する状態機械。
// 状態を書き換えられるのはCoordinatorのメソッドだけ。
type Coordinator struct {
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewCoordinator 閉じた状態のCoordinatorを作成
func NewCoordinator() *Coordinator {
	return &Coordinator{listeners: make(map[int]func(State))}
}

// State 現在の状態のスナップショット
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// IsOpen オーバーレイが開いているかどうか
func (c *Coordinator) IsOpen() bool {
	return c.State().IsOpen
}

// ScrollLocked 背景スクロールを止めるべきかどうか
func (c *Coordinator) ScrollLocked() bool {
	return c.IsOpen()
}

// Subscribe 状態変化の通知を登録。戻り値で登録解除する。
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) OpenSaved()         { c.openFilter(FilterSaved) }
func (c *Coordinator) OpenMonth()         { c.openFilter(FilterMonth) }
func (c *Coordinator) OpenNotifications() { c.openFilter(FilterNotifications) }
func (c *Coordinator) OpenCreateEvent()   { c.openAction(ActionCreate, nil) }
func (c *Coordinator) OpenEventsList()    { c.openAction(ActionEvents, nil) }
func (c *Coordinator) OpenBirthdays()     { c.openAction(ActionBirthdays, nil) }

// OpenCreateEventOn 日付を指定して作成オーバーレイを開く
func (c *Coordinator) OpenCreateEventOn(date domain.Date) {
	c.openAction(ActionCreate, &date)
}

// OpenDayDetail 日付の詳細オーバーレイを開く。表示するイベントは呼び出し側がEventStoreから取得する。
func (c *Coordinator) OpenDayDetail(date domain.Date) {
	c.set(State{IsOpen: true, Type: DayDetail, SelectedDate: &date})
}

// Close 全てを閉じる。閉じている状態で呼んでも何もしない。
func (c *Coordinator) Close() {
	c.set(State{})
}

// ToggleFilter 同じフィルターが開いていれば閉じ、そうでなければ対応するオーバーレイを開く
func (c *Coordinator) ToggleFilter(f Filter) {
	if _, ok := filterOverlays[f]; !ok {
		return
	}
	c.update(func(cur State) State {
		if cur.IsOpen && cur.ActiveFilter == f {
			return State{}
		}
		return State{IsOpen: true, Type: filterOverlays[f], ActiveFilter: f}
	})
}

// ToggleAction 同じアクションが開いていれば閉じ、そうでなければ対応するオーバーレイを開く
func (c *Coordinator) ToggleAction(a Action) {
	if _, ok := actionOverlays[a]; !ok {
		return
	}
	c.update(func(cur State) State {
		if cur.IsOpen && cur.ActiveAction == a {
			return State{}
		}
		return State{IsOpen: true, Type: actionOverlays[a], ActiveAction: a}
	})
}

// Escape Escキーで閉じる
func (c *Coordinator) Escape() { c.Close() }

// BackdropClick 背景クリックで閉じる
func (c *Coordinator) BackdropClick() { c.Close() }

// PanelClick パネル内のクリックは背景に伝播させないので状態は変わらない
func (c *Coordinator) PanelClick() {}

func (c *Coordinator) openFilter(f Filter) {
	c.set(State{IsOpen: true, Type: filterOverlays[f], ActiveFilter: f})
}

func (c *Coordinator) openAction(a Action, date *domain.Date) {
	c.set(State{IsOpen: true, Type: actionOverlays[a], ActiveAction: a, SelectedDate: date})
}

func (c *Coordinator) set(next State) {
	c.update(func(State) State { return next })
}

// update 状態を一度に差し替え、変化があればロック解放後に通知する
func (c *Coordinator) update(fn func(State) State) {
	c.mu.Lock()
	prev := c.state
	next := fn(prev)
	if prev.equal(next) {
		c.mu.Unlock()
		return
	}
	c.state = next
	snap := c.snapshot()
	listeners := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// snapshot SelectedDateを複製した状態を返す（呼び出し側でロック済み）
func (c *Coordinator) snapshot() State {
	s := c.state
	if s.SelectedDate != nil {
		d := *s.SelectedDate
		s.SelectedDate = &d
	}
	return s
}
