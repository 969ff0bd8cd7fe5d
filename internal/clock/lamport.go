package clock

import (
	"sync"

	"github.com/google/uuid"
)

// Lamport представляет логические часы Лампорта для упорядочивания событий
// между устройствами без синхронизации физического времени.
type Lamport struct {
	nodeID  string     // уникальный идентификатор узла
	counter uint64     // монотонно возрастающий счетчик
	mu      sync.Mutex // мьютекс для потокобезопасности
}

// NewLamport создает новые логические часы с уникальным идентификатором узла (UUID).
func NewLamport() *Lamport {
	return &Lamport{nodeID: uuid.New().String()}
}

// NewLamportWithNodeID создает логические часы с заданным идентификатором узла.
// Используется для тестирования и восстановления состояния после перезапуска.
func NewLamportWithNodeID(nodeID string) *Lamport {
	return &Lamport{nodeID: nodeID}
}

// Tick увеличивает счетчик и возвращает новое значение.
// Вызывается при создании нового локального события.
func (lc *Lamport) Tick() uint64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return lc.counter
}

// Update обновляет счетчик на основе значения, полученного от другого узла.
// Согласно алгоритму Лампорта: counter = max(local, remote) + 1
func (lc *Lamport) Update(remote uint64) uint64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if remote > lc.counter {
		lc.counter = remote
	}
	lc.counter++

	return lc.counter
}

// Current возвращает текущее значение счетчика без изменения.
func (lc *Lamport) Current() uint64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.counter
}

// SetCurrent устанавливает счетчик в заданное значение.
// Используется для восстановления состояния (например, после перезапуска
// или при принятии авторитетного значения от сервера). Счетчик никогда
// не откатывается назад.
func (lc *Lamport) SetCurrent(value uint64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if value > lc.counter {
		lc.counter = value
	}
}

// NodeID возвращает уникальный идентификатор узла.
func (lc *Lamport) NodeID() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.nodeID
}
