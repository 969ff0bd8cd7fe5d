// Package queue реализует буфер исходящих операций синхронизации
// с приоритизацией и дедупликацией по сущности.
package queue

import (
	"sort"
	"time"

	"github.com/iudanet/tabsync/internal/models"
)

// QueuedOperation оборачивает операцию метаданными, вычисленными при
// постановке в очередь. Поля неизменны после создания: Drain не
// интерпретирует семантику операций повторно.
type QueuedOperation struct {
	Op         models.Operation
	DedupKey   string
	EnqueuedAt int64 // wall-clock на момент постановки (unix millis)
	seq        uint64
	Priority   models.Priority
}

// Queue накапливает операции до следующего цикла синхронизации.
// Потокобезопасность не предоставляется: очередью монопольно владеет
// boundary worker, обрабатывающий запросы строго последовательно.
type Queue struct {
	now     func() time.Time
	entries []QueuedOperation
	nextSeq uint64
}

// New создает пустую очередь операций
func New() *Queue {
	return &Queue{now: time.Now}
}

// Enqueue добавляет операцию в буфер и возвращает вычисленные метаданные.
// Всегда добавляет, никогда не перезаписывает существующую запись:
// свертка конкурирующих операций происходит в Drain.
func (q *Queue) Enqueue(op models.Operation) QueuedOperation {
	entry := QueuedOperation{
		Op:         op,
		Priority:   models.PriorityOf(op),
		DedupKey:   models.DedupKeyOf(op),
		EnqueuedAt: q.now().UnixMilli(),
		seq:        q.nextSeq,
	}
	q.nextSeq++
	q.entries = append(q.entries, entry)
	return entry
}

// Len возвращает количество операций в буфере, включая еще не свернутые дубликаты
func (q *Queue) Len() int {
	return len(q.entries)
}

// Drain сворачивает буфер и возвращает упорядоченный батч.
// Из конкурентов по одному dedup key выживает запись с наибольшим
// EnqueuedAt; при равных временах побеждает поставленная позже. Выжившие
// сортируются по (priority, enqueuedAt) по возрастанию. Буфер очищается:
// ни одна операция не попадет в два батча.
func (q *Queue) Drain() []models.Operation {
	if len(q.entries) == 0 {
		return nil
	}

	latest := make(map[string]QueuedOperation, len(q.entries))
	for _, entry := range q.entries {
		prev, seen := latest[entry.DedupKey]
		if !seen || entry.EnqueuedAt > prev.EnqueuedAt ||
			(entry.EnqueuedAt == prev.EnqueuedAt && entry.seq > prev.seq) {
			latest[entry.DedupKey] = entry
		}
	}

	survivors := make([]QueuedOperation, 0, len(latest))
	for _, entry := range latest {
		survivors = append(survivors, entry)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Priority != survivors[j].Priority {
			return survivors[i].Priority < survivors[j].Priority
		}
		if survivors[i].EnqueuedAt != survivors[j].EnqueuedAt {
			return survivors[i].EnqueuedAt < survivors[j].EnqueuedAt
		}
		return survivors[i].seq < survivors[j].seq
	})

	ops := make([]models.Operation, 0, len(survivors))
	for _, entry := range survivors {
		ops = append(ops, entry.Op)
	}

	q.entries = nil
	return ops
}
