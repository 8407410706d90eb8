package models

import "time"

// SessionUser — user-объект наружной сессии.
// ID проставляется хуком проекции из сессионного токена и может
// отсутствовать, если токен не был обогащён.
type SessionUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Session — наружное представление сессии, которое читают потребители
// (хедер, защищённые страницы). Сервер не хранит его: объект каждый раз
// собирается из валидного сессионного токена.
type Session struct {
	User      *SessionUser `json:"user,omitempty"`
	ExpiresAt time.Time    `json:"expires_at"`
}
