package api

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse ответ проверки доступности координатора
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
