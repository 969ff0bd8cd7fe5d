// Package state держит материализованное представление вкладок и окон,
// построенное из op log. Это кэш для чтения: источником истины остается
// журнал операций, документ всегда можно перестроить из него заново.
package state

import (
	"sort"
	"sync"

	"github.com/iudanet/tabsync/internal/models"
)

// Tab представляет текущее состояние вкладки в документе
type Tab struct {
	ID        string `json:"id"`
	WindowID  string `json:"window_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Index     int    `json:"index"`
	Active    bool   `json:"active"`
	UpdatedAt uint64 `json:"updated_at"` // серверный clock последнего изменения
}

// Window представляет текущее состояние окна в документе
type Window struct {
	ID        string `json:"id"`
	Tracked   bool   `json:"tracked"`
	Focused   bool   `json:"focused"`
	UpdatedAt uint64 `json:"updated_at"`
}

// Snapshot представляет согласованный срез документа целиком
type Snapshot struct {
	Tabs    []Tab    `json:"tabs"`
	Windows []Window `json:"windows"`
	Clock   uint64   `json:"clock,string"`
}

// Doc представляет документ с Last-Write-Wins разрешением конфликтов.
// Каждая вкладка и окно несет clock последнего изменения: операция
// с меньшим clock, пришедшая позже, не затирает более новое состояние.
type Doc struct {
	tabs    map[string]*Tab
	windows map[string]*Window
	clock   uint64 // наибольший примененный clock
	mu      sync.RWMutex
}

// NewDoc создает пустой документ
func NewDoc() *Doc {
	return &Doc{
		tabs:    make(map[string]*Tab),
		windows: make(map[string]*Window),
	}
}

// Apply применяет одну операцию с присвоенным ей серверным clock.
// Возвращает true, если операция изменила документ.
func (d *Doc) Apply(op models.Operation, clock uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if clock > d.clock {
		d.clock = clock
	}

	switch v := op.(type) {
	case models.UpsertTab:
		return d.upsertTab(&Tab{
			ID:        v.ID,
			WindowID:  v.Tab.WindowID,
			URL:       v.Tab.URL,
			Title:     v.Tab.Title,
			Index:     v.Tab.Index,
			Active:    v.Tab.Active,
			UpdatedAt: clock,
		})
	case models.CloseTab:
		existing, ok := d.tabs[v.ID]
		if !ok || clock < existing.UpdatedAt {
			return false
		}
		delete(d.tabs, v.ID)
		return true
	case models.SetActive:
		return d.mutateTab(v.ID, clock, func(tab *Tab) {
			tab.Active = v.Active
		})
	case models.MoveTab:
		return d.mutateTab(v.ID, clock, func(tab *Tab) {
			tab.WindowID = v.WindowID
			tab.Index = v.Index
		})
	case models.ChangeURL:
		return d.mutateTab(v.ID, clock, func(tab *Tab) {
			tab.URL = v.URL
			if v.Title != nil {
				tab.Title = *v.Title
			}
		})
	case models.TrackWindow:
		return d.upsertWindow(v.ID, clock, func(window *Window) {
			window.Tracked = true
		})
	case models.UntrackWindow:
		return d.mutateWindow(v.ID, clock, func(window *Window) {
			window.Tracked = false
		})
	case models.SetWindowFocus:
		return d.mutateWindow(v.ID, clock, func(window *Window) {
			window.Focused = v.Focused
		})
	}

	return false
}

// upsertTab заменяет вкладку, если новая версия не старее существующей
func (d *Doc) upsertTab(tab *Tab) bool {
	existing, ok := d.tabs[tab.ID]
	if ok && tab.UpdatedAt < existing.UpdatedAt {
		return false
	}
	d.tabs[tab.ID] = tab
	return true
}

// mutateTab изменяет существующую вкладку.
// Операция над неизвестной вкладкой игнорируется: CloseTab мог
// прийти раньше по тотальному порядку.
func (d *Doc) mutateTab(id string, clock uint64, mutate func(*Tab)) bool {
	tab, ok := d.tabs[id]
	if !ok || clock < tab.UpdatedAt {
		return false
	}
	mutate(tab)
	tab.UpdatedAt = clock
	return true
}

func (d *Doc) upsertWindow(id string, clock uint64, mutate func(*Window)) bool {
	window, ok := d.windows[id]
	if !ok {
		window = &Window{ID: id}
		d.windows[id] = window
	} else if clock < window.UpdatedAt {
		return false
	}
	mutate(window)
	window.UpdatedAt = clock
	return true
}

func (d *Doc) mutateWindow(id string, clock uint64, mutate func(*Window)) bool {
	window, ok := d.windows[id]
	if !ok || clock < window.UpdatedAt {
		return false
	}
	mutate(window)
	window.UpdatedAt = clock
	return true
}

// Snapshot возвращает копию текущего состояния документа.
// Вкладки упорядочены по (window_id, index), окна по id.
func (d *Doc) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snapshot := Snapshot{
		Tabs:    make([]Tab, 0, len(d.tabs)),
		Windows: make([]Window, 0, len(d.windows)),
		Clock:   d.clock,
	}

	for _, tab := range d.tabs {
		snapshot.Tabs = append(snapshot.Tabs, *tab)
	}
	sort.Slice(snapshot.Tabs, func(i, j int) bool {
		if snapshot.Tabs[i].WindowID != snapshot.Tabs[j].WindowID {
			return snapshot.Tabs[i].WindowID < snapshot.Tabs[j].WindowID
		}
		return snapshot.Tabs[i].Index < snapshot.Tabs[j].Index
	})

	for _, window := range d.windows {
		snapshot.Windows = append(snapshot.Windows, *window)
	}
	sort.Slice(snapshot.Windows, func(i, j int) bool {
		return snapshot.Windows[i].ID < snapshot.Windows[j].ID
	})

	return snapshot
}

// Clock возвращает наибольший примененный clock
func (d *Doc) Clock() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clock
}
