package models

import "fmt"

// Kind идентифицирует вариант операции в wire формате.
type Kind string

// Операции над вкладками и окнами
const (
	KindUpsertTab      Kind = "upsert_tab"
	KindCloseTab       Kind = "close_tab"
	KindSetActive      Kind = "set_active"
	KindMoveTab        Kind = "move_tab"
	KindChangeURL      Kind = "change_url"
	KindTrackWindow    Kind = "track_window"
	KindUntrackWindow  Kind = "untrack_window"
	KindSetWindowFocus Kind = "set_window_focus"
)

// Priority определяет порядок передачи операций в батче.
// Меньшее значение передается раньше.
type Priority int

const (
	PriorityCritical Priority = iota // удаление и границы отслеживания терять нельзя
	PriorityHigh                     // структурные изменения вкладок
	PriorityNormal                   // смена активности/фокуса
	PriorityLow                      // косметика: смена URL, самая частая и самая коалесцируемая
)

// String возвращает читаемое имя приоритета для логов
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Operation представляет одно локальное изменение состояния вкладок или окон.
// Это закрытый sum type: все варианты определены в этом пакете, добавление
// нового варианта требует обновить PriorityOf и DedupKeyOf.
type Operation interface {
	// Kind возвращает вариант операции
	Kind() Kind

	// EntityID возвращает идентификатор вкладки или окна, к которому
	// относится операция
	EntityID() string

	// OccurredAt возвращает момент, когда факт стал истинным
	// (unix millis по часам устройства-источника, не logical clock)
	OccurredAt() int64

	isOperation()
}

// TabData представляет полное состояние вкладки в операции UpsertTab
type TabData struct {
	WindowID string
	URL      string
	Title    string
	Index    int
	Active   bool
}

// UpsertTab создает или обновляет вкладку целиком
type UpsertTab struct {
	ID        string
	Tab       TabData
	Timestamp int64
}

// CloseTab удаляет вкладку
type CloseTab struct {
	ID        string
	Timestamp int64
}

// SetActive отмечает вкладку активной или неактивной в своем окне
type SetActive struct {
	ID        string
	Timestamp int64
	Active    bool
}

// MoveTab перемещает вкладку в окно WindowID на позицию Index
type MoveTab struct {
	ID        string
	WindowID  string
	Timestamp int64
	Index     int
}

// ChangeURL меняет URL вкладки и, опционально, заголовок
type ChangeURL struct {
	ID        string
	URL       string
	Title     *string
	Timestamp int64
}

// TrackWindow включает окно в область синхронизации
type TrackWindow struct {
	ID        string
	Timestamp int64
}

// UntrackWindow исключает окно из области синхронизации
type UntrackWindow struct {
	ID        string
	Timestamp int64
}

// SetWindowFocus отмечает окно как получившее или потерявшее фокус
type SetWindowFocus struct {
	ID        string
	Timestamp int64
	Focused   bool
}

func (o UpsertTab) Kind() Kind      { return KindUpsertTab }
func (o CloseTab) Kind() Kind       { return KindCloseTab }
func (o SetActive) Kind() Kind      { return KindSetActive }
func (o MoveTab) Kind() Kind        { return KindMoveTab }
func (o ChangeURL) Kind() Kind      { return KindChangeURL }
func (o TrackWindow) Kind() Kind    { return KindTrackWindow }
func (o UntrackWindow) Kind() Kind  { return KindUntrackWindow }
func (o SetWindowFocus) Kind() Kind { return KindSetWindowFocus }

func (o UpsertTab) EntityID() string      { return o.ID }
func (o CloseTab) EntityID() string       { return o.ID }
func (o SetActive) EntityID() string      { return o.ID }
func (o MoveTab) EntityID() string        { return o.ID }
func (o ChangeURL) EntityID() string      { return o.ID }
func (o TrackWindow) EntityID() string    { return o.ID }
func (o UntrackWindow) EntityID() string  { return o.ID }
func (o SetWindowFocus) EntityID() string { return o.ID }

func (o UpsertTab) OccurredAt() int64      { return o.Timestamp }
func (o CloseTab) OccurredAt() int64       { return o.Timestamp }
func (o SetActive) OccurredAt() int64      { return o.Timestamp }
func (o MoveTab) OccurredAt() int64        { return o.Timestamp }
func (o ChangeURL) OccurredAt() int64      { return o.Timestamp }
func (o TrackWindow) OccurredAt() int64    { return o.Timestamp }
func (o UntrackWindow) OccurredAt() int64  { return o.Timestamp }
func (o SetWindowFocus) OccurredAt() int64 { return o.Timestamp }

func (UpsertTab) isOperation()      {}
func (CloseTab) isOperation()       {}
func (SetActive) isOperation()      {}
func (MoveTab) isOperation()        {}
func (ChangeURL) isOperation()      {}
func (TrackWindow) isOperation()    {}
func (UntrackWindow) isOperation()  {}
func (SetWindowFocus) isOperation() {}

// PriorityOf возвращает приоритет передачи операции.
// Таблица фиксирована: операции, меняющие границы отслеживания, никогда
// не должны потеряться за косметическими обновлениями.
func PriorityOf(op Operation) Priority {
	switch op.(type) {
	case CloseTab, TrackWindow, UntrackWindow:
		return PriorityCritical
	case UpsertTab, MoveTab:
		return PriorityHigh
	case SetActive, SetWindowFocus:
		return PriorityNormal
	case ChangeURL:
		return PriorityLow
	default:
		panic(fmt.Sprintf("models: unknown operation type %T", op))
	}
}

// DedupKeyOf возвращает ключ дедупликации операции.
// Для операций над вкладками ключ привязан к варианту: close и upsert одной
// вкладки не конкурируют между собой. Операции жизненного цикла окна
// делят общее пространство "window:<id>": последний факт об окне побеждает
// независимо от того, какой из трех вариантов его произвел.
func DedupKeyOf(op Operation) string {
	switch op.(type) {
	case TrackWindow, UntrackWindow, SetWindowFocus:
		return "window:" + op.EntityID()
	case UpsertTab, CloseTab, SetActive, MoveTab, ChangeURL:
		return string(op.Kind()) + ":" + op.EntityID()
	default:
		panic(fmt.Sprintf("models: unknown operation type %T", op))
	}
}
