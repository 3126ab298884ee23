package apperrors

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку для граничного слоя (HTTP, gRPC, бот)
type Kind string

const (
	KindFormat           Kind = "format_error"
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation_error"
	KindStoreUnavailable Kind = "store_unavailable"
	KindInternal         Kind = "internal_error"
)

// ErrFormat означает, что дата или число не удалось разобрать
var ErrFormat = errors.New("format error")

// ErrNotFound означает, что нет подходящего наблюдения, валюты или даты
var ErrNotFound = errors.New("not found")

// ErrValidation означает, что входные данные не прошли проверку
var ErrValidation = errors.New("validation error")

// ErrStoreUnavailable означает, что хранилище недоступно
var ErrStoreUnavailable = errors.New("store unavailable")

// NewFormatError создает ошибку разбора
func NewFormatError(format string, args ...interface{}) error {
	return wrap(ErrFormat, format, args...)
}

// NewNotFoundError создает ошибку отсутствия данных
func NewNotFoundError(format string, args ...interface{}) error {
	return wrap(ErrNotFound, format, args...)
}

// NewValidationError создает ошибку валидации
func NewValidationError(format string, args ...interface{}) error {
	return wrap(ErrValidation, format, args...)
}

// NewStoreUnavailableError оборачивает ошибку драйвера хранилища
func NewStoreUnavailableError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf возвращает вид ошибки; неизвестные ошибки считаются внутренними
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return KindFormat
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// IsNotFound сокращение для errors.Is(err, ErrNotFound)
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// remoteError ошибка, восстановленная по виду и тексту с другой стороны транспорта
type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.sentinel }

// FromKind восстанавливает ошибку по виду, сохраняя исходный текст
func FromKind(kind Kind, msg string) error {
	var sentinel error
	switch kind {
	case KindFormat:
		sentinel = ErrFormat
	case KindNotFound:
		sentinel = ErrNotFound
	case KindValidation:
		sentinel = ErrValidation
	case KindStoreUnavailable:
		sentinel = ErrStoreUnavailable
	default:
		return errors.New(msg)
	}
	return &remoteError{sentinel: sentinel, msg: msg}
}
