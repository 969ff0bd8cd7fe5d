// Package boundary реализует асинхронную границу между интерактивной
// стороной клиента и владельцем очереди операций. Граница пересекается
// только коррелированными сообщениями запрос/ответ: разделяемой памяти
// между сторонами нет.
package boundary

import "github.com/iudanet/tabsync/internal/models"

// MessageKind идентифицирует вид запроса к воркеру
type MessageKind string

const (
	MessageQueue       MessageKind = "queue"
	MessageDeduplicate MessageKind = "deduplicate"
	MessageGetState    MessageKind = "getState"
	MessageApply       MessageKind = "apply"
)

// Request представляет один коррелированный запрос через границу
type Request struct {
	Payload any
	ID      string
	Kind    MessageKind
}

// Response представляет ответ воркера на запрос с тем же ID.
// Каждый запрос порождает ровно один ответ, успешный или нет.
type Response struct {
	Data any
	ID   string
	Err  string
	OK   bool
}

// QueueAck возвращается воркером на запрос queue: метаданные,
// присвоенные операции при постановке в очередь.
type QueueAck struct {
	DedupKey string
	Priority models.Priority
}

// State это снимок состояния воркера, возвращаемый на запрос getState.
// LogicalClock сериализован строкой: снимок может уходить в транспорты,
// не способные нести 64-битные целые.
type State struct {
	DeviceID     string
	LogicalClock string
	QueueLength  int
}

// StatePatch это payload запроса apply: присутствующие поля перезаписывают
// состояние устройства. Используется для принятия авторитетного clock и
// идентичности, возвращенных сервером после синхронизации.
type StatePatch struct {
	DeviceID *string
	Clock    *uint64
}
