// Package panel реализует работу с контрольной панелью VPN: получение
// сессионной куки, типизированные вызовы HTTP API, поиск клиента в inbound'ах
// и построение ссылки подключения.
package panel

import (
	"errors"
	"fmt"
)

// Классы ошибок панели. Транзиентные (ErrAuth, ErrUnavailable) получают один
// ограниченный цикл повтора внутри обнаружившего их компонента, остальные
// поднимаются сразу.
var (
	// ErrAuth — обмен логина на сессионную куку не удался.
	ErrAuth = errors.New("authentication failed")
	// ErrUnavailable — панель вернула не-2xx, не-JSON или не ответила вовремя.
	ErrUnavailable = errors.New("panel unavailable")
	// ErrNotFound — клиент с указанным ключом не найден в inbound'ах.
	ErrNotFound = errors.New("client not found")
	// ErrMalformedInbound — в настройках inbound отсутствует обязательное поле.
	ErrMalformedInbound = errors.New("malformed inbound")
)

// APIError — ответ панели со статусом success=false. Текст сообщения панели
// сохраняется: по нему вызывающая сторона отличает, например, отказ из-за
// уже существующего клиента.
type APIError struct {
	Msg string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("panel rejected request: %s", e.Msg)
}
