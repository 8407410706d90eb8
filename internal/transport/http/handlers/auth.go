package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/go-web-auth/internal/pkg/log"
	"github.com/pribylovaa/go-web-auth/internal/models"
	"github.com/pribylovaa/go-web-auth/internal/service"
	"github.com/pribylovaa/go-web-auth/internal/transport/http/httperr"
	"github.com/pribylovaa/go-web-auth/internal/transport/http/middleware"
)

// Wire-модели JSON-эндпоинтов аутентификации.

type signInRequest struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Redirect подавляет 303-редирект; по умолчанию true.
	Redirect *bool `json:"redirect"`
}

type signOutRequest struct {
	Redirect *bool `json:"redirect"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	OK               bool  `json:"ok"`
	SessionExpiresAt int64 `json:"session_expires_at"` // Unix UTC
}

type sessionResponse struct {
	Data   *models.Session `json:"data,omitempty"`
	Status string          `json:"status"`
}

type providerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// SignIn — JSON-вариант входа: {provider, email, password, redirect}.
// Ответ — трёхзначный результат {ok, error?, url?}; все три исхода
// обрабатываются явным switch без ветки "иначе непонятно что".
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, httperr.ErrBadRequest)
		return
	}

	if in.Provider == "" {
		in.Provider = service.ProviderCredentials
	}

	res, pair := h.signIn(r, in.Provider, in.Email, in.Password)

	if pair != nil {
		h.setAuthCookies(w, pair)
	}

	if in.Redirect == nil || *in.Redirect {
		switch res.Status {
		case models.SignInOK:
			http.Redirect(w, r, res.URL, http.StatusSeeOther)
		case models.SignInInvalidCredentials, models.SignInFailure:
			http.Redirect(w, r, h.cfg.Pages.SignIn, http.StatusSeeOther)
		}
		return
	}

	switch res.Status {
	case models.SignInOK:
		writeJSON(w, http.StatusOK, res)
	case models.SignInInvalidCredentials:
		writeJSON(w, http.StatusUnauthorized, res)
	case models.SignInFailure:
		writeJSON(w, http.StatusInternalServerError, res)
	}
}

// signIn — общая часть формы и JSON-эндпоинта: вызывает сервис и сводит
// результат к закрытому SignInResult.
func (h *Handlers) signIn(r *http.Request, provider, email, password string) (models.SignInResult, *models.TokenPair) {
	lg := logctx.From(r.Context())

	pair, _, err := h.svc.SignIn(r.Context(), provider, email, password)
	switch {
	case err == nil:
		signInTotal.WithLabelValues("ok").Inc()
		return models.SignInResult{
			Status: models.SignInOK,
			OK:     true,
			URL:    h.cfg.Pages.Landing,
		}, pair

	case errors.Is(err, service.ErrInvalidCredentials):
		signInTotal.WithLabelValues("invalid").Inc()
		return models.SignInResult{
			Status: models.SignInInvalidCredentials,
			Error:  msgInvalidCredentials,
		}, nil

	default:
		// Детали сбоя остаются в логах, клиент видит catch-all.
		signInTotal.WithLabelValues("failure").Inc()
		lg.Error("sign_in_failed", slog.String("err", err.Error()))
		return models.SignInResult{
			Status: models.SignInFailure,
			Error:  msgUnexpected,
		}, nil
	}
}

// SignOut завершает сессию: отзывает refresh-токен, чистит кэш и cookie.
// Повторный/чужой токен не превращается в ошибку для клиента — выход
// идемпотентен с точки зрения браузера.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	var in signOutRequest
	if r.Header.Get("Content-Type") == "application/json" {
		_ = decodeStrict(r, &in)
	}

	var refreshToken, sessionToken string
	if c, err := r.Cookie(h.cfg.Auth.RefreshCookie); err == nil {
		refreshToken = c.Value
	}
	if c, err := r.Cookie(h.cfg.Auth.SessionCookie); err == nil {
		sessionToken = c.Value
	}

	if err := h.svc.SignOut(r.Context(), refreshToken, sessionToken); err != nil {
		if !errors.Is(err, service.ErrInvalidToken) && !errors.Is(err, service.ErrTokenRevoked) {
			httperr.WriteError(w, r, err)
			return
		}
	}

	h.clearAuthCookies(w)

	if in.Redirect == nil || *in.Redirect {
		// Уведомление показывается на странице входа после перехода —
		// обратная связь отделена от самой навигации.
		h.setNotice(w, "signed_out")
		http.Redirect(w, r, h.cfg.Pages.SignIn, http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Session — контракт чтения сессии для фронта:
// {data: {user...}|absent, status: authenticated|unauthenticated}.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	sess := h.sessionFrom(r)
	if sess == nil {
		writeJSON(w, http.StatusOK, sessionResponse{Status: "unauthenticated"})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Data: sess, Status: "authenticated"})
}

// Refresh ротирует пару токенов по refresh-токену из cookie или тела запроса.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if r.Header.Get("Content-Type") == "application/json" {
		_ = decodeStrict(r, &in)
	}

	refreshToken := in.RefreshToken
	if refreshToken == "" {
		if c, err := r.Cookie(h.cfg.Auth.RefreshCookie); err == nil {
			refreshToken = c.Value
		}
	}
	if refreshToken == "" {
		httperr.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	// Клеймы ещё живого сессионного токена переносятся в новый
	// (инвариант хука обогащения); их отсутствие — не препятствие.
	var prior *service.SessionClaims
	if c, err := r.Cookie(h.cfg.Auth.SessionCookie); err == nil && c.Value != "" {
		if claims, err := h.svc.ParseSessionClaims(c.Value); err == nil {
			prior = claims
		}
	}

	pair, err := h.svc.RefreshSession(r.Context(), refreshToken, prior)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, refreshResponse{
		OK:               true,
		SessionExpiresAt: pair.SessionExpiresAt.Unix(),
	})
}

// Providers перечисляет объявленные identity-провайдеры.
func (h *Handlers) Providers(w http.ResponseWriter, r *http.Request) {
	var out []providerInfo
	for _, id := range h.svc.Providers() {
		switch id {
		case service.ProviderCredentials:
			out = append(out, providerInfo{ID: id, Name: "Credentials", Type: "credentials"})
		case service.ProviderGoogle:
			out = append(out, providerInfo{ID: id, Name: "Google", Type: "oauth"})
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// sessionFrom достаёт сессию из контекста (кладёт мидлвар Session).
func (h *Handlers) sessionFrom(r *http.Request) *models.Session {
	return middleware.SessionFromContext(r.Context())
}

// setAuthCookies выставляет session+refresh cookie из пары токенов.
func (h *Handlers) setAuthCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.SessionCookie,
		Value:    pair.SessionToken,
		Path:     "/",
		Expires:  pair.SessionExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  time.Now().UTC().Add(h.cfg.Auth.RefreshTokenTTL),
		HttpOnly: true,
		Secure:   h.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies гасит обе auth-cookie.
func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{h.cfg.Auth.SessionCookie, h.cfg.Auth.RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cfg.Auth.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
