// Package errs содержит типизированные ошибки домена. Слои репозитория,
// шлюза Stripe и сервисов оборачивают свои ошибки в эти sentinel-значения,
// чтобы вызывающая сторона могла различать их через errors.Is.
package errs

import "errors"

var (
	// ErrInvalidArgument — некорректный или пустой идентификатор на входе,
	// операция завершается до любого I/O.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorage — ошибка подключения к базе данных или выполнения запроса.
	ErrStorage = errors.New("storage error")
	// ErrConstraintViolation — нарушение ограничения уникальности.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrExternalAPI — ошибка вызова Stripe API.
	ErrExternalAPI = errors.New("external api error")
	// ErrTimeout — превышен дедлайн блокирующей операции.
	ErrTimeout = errors.New("timeout")
	// ErrInvariantViolation — объект Stripe не принадлежит ожидаемому
	// клиенту либо у владельца больше одной активной первичной связи.
	ErrInvariantViolation = errors.New("invariant violation")
)

// APIError несёт код и категорию ошибки Stripe, по которым вызывающая
// сторона решает, имеет ли смысл повтор.
type APIError struct {
	Code string
	Type string
	Msg  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return "stripe: " + e.Code + ": " + e.Msg
	}
	return "stripe: " + e.Msg
}

// Is сопоставляет APIError с sentinel ErrExternalAPI.
func (e *APIError) Is(target error) bool {
	return target == ErrExternalAPI
}
