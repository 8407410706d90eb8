// service содержит бизнес-логику слоя аутентификации:
// проверку учётных данных, выпуск/обновление сессионных токенов,
// хуки формирования токена и сессии, работу с хранилищем через
// интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются как sentinel-значения и далее маппятся
//     транспортом на HTTP-ответы (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/go-web-auth/internal/cache"
	"github.com/pribylovaa/go-web-auth/internal/config"
	"github.com/pribylovaa/go-web-auth/internal/storage"
)

// Идентификаторы identity-провайдеров.
const (
	// ProviderCredentials — вход по паре email+пароль против собственного хранилища.
	ProviderCredentials = "credentials"
	// ProviderGoogle — внешний OAuth-провайдер; объявляется только конфигурацией,
	// сам флоу выполняется вне этого сервиса.
	ProviderGoogle = "google"
)

var (
	// ErrInvalidCredentials — учётные данные отклонены: пустой email/пароль,
	// пользователь не найден, пароль не установлен или не совпал.
	// Причина наружу не раскрывается (анти-перечисление пользователей).
	// Транспорт: HTTP 401 с единым сообщением.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownProvider — запрошен провайдер, который не объявлен конфигурацией
	// или не поддерживает прямой вход. Транспорт: HTTP 400.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidToken — токен (сессионный/refresh) некорректен по формату/подписи
	// или отсутствует в хранилище. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — refresh-токен отозван (logout/rotation) и недействителен
	// независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный refresh-токен
	// (редкий случай коллизий при сохранении хэша в БД после нескольких ретраев).
	// Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")
)

// Service описывает бизнес-логику слоя аутентификации.
type Service struct {
	storage   storage.Storage
	cfg       config.AuthConfig
	providers config.ProvidersConfig
	scache    cache.SessionCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig, providers config.ProvidersConfig) *Service {
	return &Service{
		storage:   storage,
		cfg:       cfg,
		providers: providers,
	}
}

// SetSessionCache устанавливает кэш сессий (опционально).
func (s *Service) SetSessionCache(c cache.SessionCache) {
	s.scache = c
}

// Providers возвращает идентификаторы объявленных провайдеров.
// ProviderCredentials доступен всегда; внешние — только при заданных
// client credentials.
func (s *Service) Providers() []string {
	out := []string{ProviderCredentials}
	if s.providers.Google.Enabled() {
		out = append(out, ProviderGoogle)
	}

	return out
}
