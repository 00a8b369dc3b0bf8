package domain

import (
	"errors"
	"fmt"

	"github.com/256dpi/xo"
)

// Виды ошибок, которые слой HTTP переводит в коды ответа.
var (
	ErrInvalid         = xo.BF("invalid request")
	ErrUnauthenticated = xo.BF("unauthenticated")
	ErrForbidden       = xo.BF("forbidden")
	ErrNotFound        = xo.BF("not found")
	ErrConflict        = xo.BF("conflict")
	ErrUnavailable     = xo.BF("service unavailable")
)

// KindError связывает вид ошибки с сообщением, которое можно показать клиенту.
type KindError struct {
	Msg  string
	kind error
}

// Error implements the error interface.
func (e *KindError) Error() string {
	return e.Msg
}

// Unwrap returns the kind.
func (e *KindError) Unwrap() error {
	return e.kind
}

// E создаёт ошибку заданного вида с понятным клиенту сообщением.
func E(kind xo.BaseErr, format string, args ...interface{}) error {
	return xo.W(&KindError{
		Msg:  fmt.Sprintf(format, args...),
		kind: kind.Self(),
	})
}

// Message возвращает сообщение для клиента, если оно есть.
func Message(err error) (string, bool) {
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Msg, true
	}
	return "", false
}
