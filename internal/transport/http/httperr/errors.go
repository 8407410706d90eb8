// httperr стандартизирует ответы об ошибках HTTP-слоя.
// На вход он принимает ошибку доменного слоя (sentinel из service/storage),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Источник истинности по маппингу — комментарии к sentinel-ошибкам
// в пакете service.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-web-auth/internal/service"
)

// ErrBadRequest — синтаксически некорректный запрос (битый JSON,
// неизвестные поля). Транспорт: HTTP 400.
var ErrBadRequest = errors.New("bad request")

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный
// ответ для фронта.
//
// Поведение:
//   - err == nil — это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - известные sentinel-ошибки маппятся по таблице ниже;
//   - прочее — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)
	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// base — маппинг доменных ошибок -> HTTP/FE-код/сообщение:
//   - ErrInvalidCredentials -> 401 (единое сообщение, без раскрытия причины);
//   - ErrInvalidToken/ErrTokenExpired/ErrTokenRevoked -> 401;
//   - ErrUnknownProvider, ErrBadRequest -> 400;
//   - прочее (включая nil) -> 500/internal.
func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, service.ErrUnknownProvider):
		return http.StatusBadRequest, "unknown_provider", "unknown provider"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request", "malformed request"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
