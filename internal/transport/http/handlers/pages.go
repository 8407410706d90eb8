package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	logctx "github.com/pribylovaa/go-web-auth/internal/pkg/log"
	"github.com/pribylovaa/go-web-auth/internal/service"
)

// LoginPage отрисовывает форму входа. Авторизованного пользователя
// на форме делать нечего — сразу на целевую страницу.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.sessionFrom(r) != nil {
		http.Redirect(w, r, h.cfg.Pages.Landing, http.StatusSeeOther)
		return
	}

	data := h.page(r, "Sign In")
	data.Notice = h.popNotice(w, r)
	h.render(w, http.StatusOK, "login", data)
}

// LoginSubmit — form-encoded вариант входа. Состояния контроллера формы:
// успех — 303 на целевую страницу; неверные данные — повторная отрисовка
// формы с сообщением и сохранённым email; сбой — то же с catch-all текстом.
func (h *Handlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	lg := logctx.From(r.Context())

	if err := r.ParseForm(); err != nil {
		lg.Warn("login_form_parse_failed", slog.String("err", err.Error()))
		data := h.page(r, "Sign In")
		data.Error = msgUnexpected
		h.render(w, http.StatusBadRequest, "login", data)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	pair, _, err := h.svc.SignIn(r.Context(), service.ProviderCredentials, email, password)
	switch {
	case err == nil:
		signInTotal.WithLabelValues("ok").Inc()
		h.setAuthCookies(w, pair)
		http.Redirect(w, r, h.cfg.Pages.Landing, http.StatusSeeOther)

	case errors.Is(err, service.ErrInvalidCredentials):
		signInTotal.WithLabelValues("invalid").Inc()
		data := h.page(r, "Sign In")
		data.Email = email
		data.Error = msgInvalidCredentials
		h.render(w, http.StatusUnauthorized, "login", data)

	default:
		signInTotal.WithLabelValues("failure").Inc()
		lg.Error("sign_in_failed", slog.String("err", err.Error()))
		data := h.page(r, "Sign In")
		data.Email = email
		data.Error = msgUnexpected
		h.render(w, http.StatusInternalServerError, "login", data)
	}
}

// DashboardPage — защищённая целевая страница (RequireSession
// отправляет анонимов на форму входа до этого обработчика).
func (h *Handlers) DashboardPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "dashboard", h.page(r, "Dashboard"))
}

// AboutPage и PricingPage — публичные страницы, существуют ради хедера
// с навигацией в обоих состояниях сессии.
func (h *Handlers) AboutPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "about", h.page(r, "About"))
}

func (h *Handlers) PricingPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "pricing", h.page(r, "Pricing"))
}

// HomePage перенаправляет на целевую или страницу входа по состоянию сессии.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	if h.sessionFrom(r) != nil {
		http.Redirect(w, r, h.cfg.Pages.Landing, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.cfg.Pages.SignIn, http.StatusSeeOther)
}
