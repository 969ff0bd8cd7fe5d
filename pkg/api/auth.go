package api

// TokenRequest представляет запрос устройства на получение access token.
// SyncToken это общий секрет инсталляции, выданный при настройке сервера.
type TokenRequest struct {
	DeviceID  string `json:"device_id"`  // идентификатор устройства
	SyncToken string `json:"sync_token"` // общий sync token инсталляции
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	ExpiresIn   int64  `json:"expires_in"`   // время жизни access token в секундах
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
