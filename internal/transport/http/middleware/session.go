package middleware

import (
	"context"
	"net/http"

	"github.com/pribylovaa/go-web-auth/internal/models"
	"github.com/pribylovaa/go-web-auth/internal/service"
)

// Session читает сессионный токен из cookie, валидирует его через сервис
// и кладёт наружную сессию в контекст запроса по ключу CtxSession.
// Отсутствующий или невалидный токен — не ошибка: запрос продолжается
// анонимным, решение принимают хендлеры (или RequireSession).
//
// Это явная замена «глобального» сессионного состояния: потребители ниже
// по стеку читают сессию только из контекста через SessionFromContext.
func Session(svc *service.Service, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := svc.SessionFromToken(r.Context(), c.Value)
			if err != nil {
				// Просроченный/битый токен эквивалентен его отсутствию.
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CtxSession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext возвращает сессию текущего запроса или nil.
func SessionFromContext(ctx context.Context) *models.Session {
	if v := ctx.Value(CtxSession); v != nil {
		if s, ok := v.(*models.Session); ok {
			return s
		}
	}

	return nil
}

// RequireSession пропускает только аутентифицированные запросы;
// анонимные перенаправляются на страницу входа.
func RequireSession(signInPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()) == nil {
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
