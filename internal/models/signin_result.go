package models

// SignInStatus — закрытый перечень исходов попытки входа.
// Контракт трёхзначный: успех, отказ по учётным данным и любой
// неожиданный сбой. Отдельной "неопределённой" ветки нет — транспорт
// обязан исчерпывающе обработать все три значения.
type SignInStatus int

const (
	// SignInOK — вход выполнен, выдана пара токенов.
	SignInOK SignInStatus = iota
	// SignInInvalidCredentials — учётные данные отклонены.
	// Причина (нет пользователя, нет пароля, несовпадение) наружу не раскрывается.
	SignInInvalidCredentials
	// SignInFailure — неожиданный сбой (хранилище, подпись токена и т.п.).
	SignInFailure
)

// SignInResult — результат входа, отдаваемый контроллеру формы.
type SignInResult struct {
	Status SignInStatus `json:"-"`
	// OK дублирует Status == SignInOK для wire-контракта {ok, error}.
	OK bool `json:"ok"`
	// Error — безопасное пользовательское сообщение; пусто при успехе.
	Error string `json:"error,omitempty"`
	// URL — адрес перенаправления после успешного входа,
	// если редирект не был подавлен.
	URL string `json:"url,omitempty"`
}
