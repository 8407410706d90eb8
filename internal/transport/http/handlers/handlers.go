package handlers

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pribylovaa/go-web-auth/internal/config"
	"github.com/pribylovaa/go-web-auth/internal/models"
	"github.com/pribylovaa/go-web-auth/internal/service"
	"github.com/pribylovaa/go-web-auth/internal/transport/http/middleware"
)

// Пользовательские сообщения. Первые четыре причины отказа по учётным данным
// специально сведены к одному тексту (анти-перечисление пользователей);
// catch-all отличается только тем, что он catch-all.
const (
	msgInvalidCredentials = "Invalid email or password. Please try again."
	msgUnexpected         = "An unexpected error occurred. Please try again."
	msgSignedOut          = "Sign out successful."
)

// noticeCookie — одноразовая cookie для транзитного уведомления
// (показывается на следующей отрисованной странице и сразу гасится).
const noticeCookie = "wa_notice"

var signInTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "web_auth_sign_in_total",
	Help: "Sign-in attempts by outcome.",
}, []string{"result"})

//go:embed templates/*.gohtml
var templatesFS embed.FS

// Handlers агрегирует зависимости HTTP-слоя.
type Handlers struct {
	svc  *service.Service
	cfg  *config.Config
	tmpl *template.Template
}

func New(svc *service.Service, cfg *config.Config) *Handlers {
	return &Handlers{
		svc:  svc,
		cfg:  cfg,
		tmpl: template.Must(template.ParseFS(templatesFS, "templates/*.gohtml")),
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через httperr.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// navItem — пункт навигации в хедере.
type navItem struct {
	Label  string
	Href   string
	Active bool
}

// pageData — данные для страничных шаблонов (хедер + форма).
type pageData struct {
	Title   string
	Session *models.Session
	Nav     []navItem
	Email   string
	Error   string
	Notice  string
}

// navFor собирает пункты меню; подсветка — строгое совпадение текущего
// пути с целью пункта.
func (h *Handlers) navFor(path string) []navItem {
	items := []navItem{
		{Label: "About", Href: "/about"},
		{Label: "Pricing", Href: "/pricing"},
		{Label: "Dashboard", Href: h.cfg.Pages.Landing},
	}
	for i := range items {
		items[i].Active = items[i].Href == path
	}

	return items
}

// page — заготовка pageData с сессией из контекста и навигацией.
func (h *Handlers) page(r *http.Request, title string) pageData {
	return pageData{
		Title:   title,
		Session: middleware.SessionFromContext(r.Context()),
		Nav:     h.navFor(r.URL.Path),
	}
}

func (h *Handlers) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = h.tmpl.ExecuteTemplate(w, name, data)
}

// popNotice читает одноразовое уведомление и сразу гасит cookie.
// В cookie хранится короткий код (значение cookie не может содержать
// пробелы), текст подбирается при отрисовке.
func (h *Handlers) popNotice(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(noticeCookie)
	if err != nil || c.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	switch c.Value {
	case "signed_out":
		return msgSignedOut
	default:
		return ""
	}
}

func (h *Handlers) setNotice(w http.ResponseWriter, text string) {
	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookie,
		Value:    text,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
