package api

// Operation представляет одну операцию изменения вкладки или окна в wire формате.
// Поле Type определяет вариант операции, остальные поля заполняются по необходимости.
type Operation struct {
	Tab       *TabData `json:"tab,omitempty"`       // upsert_tab: полное состояние вкладки
	Index     *int     `json:"index,omitempty"`     // move_tab: позиция в окне
	Title     *string  `json:"title,omitempty"`     // change_url: новый заголовок (опционально)
	Active    *bool    `json:"active,omitempty"`    // set_active
	Focused   *bool    `json:"focused,omitempty"`   // set_window_focus
	Type      string   `json:"type"`                // вариант операции (см. internal/models)
	ID        string   `json:"id"`                  // идентификатор вкладки или окна
	WindowID  string   `json:"window_id,omitempty"` // move_tab: целевое окно
	URL       string   `json:"url,omitempty"`       // change_url: новый URL
	Timestamp int64    `json:"timestamp"`           // момент, когда факт стал истинным (unix millis)
}

// TabData представляет состояние вкладки внутри операции upsert_tab
type TabData struct {
	WindowID string `json:"window_id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Index    int    `json:"index"`
	Active   bool   `json:"active"`
}

// SyncRequest представляет запрос на синхронизацию от клиента.
// Clock и Since сериализуются строками: JSON не гарантирует сохранность
// 64-битных целых при проходе через JavaScript-подобные транспорты.
type SyncRequest struct {
	DeviceID   string      `json:"device_id"`    // идентификатор устройства-отправителя
	Operations []Operation `json:"operations"`   // локальные операции после дедупликации
	Clock      uint64      `json:"clock,string"` // текущий Lamport clock устройства
	Since      uint64      `json:"since,string"` // вернуть операции с clock > since
}

// SyncResponse представляет ответ сервера на синхронизацию
type SyncResponse struct {
	Operations []Operation `json:"operations"`   // операции других устройств с момента since
	Clock      uint64      `json:"clock,string"` // текущий Lamport clock сервера
}
