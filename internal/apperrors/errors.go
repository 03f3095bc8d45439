package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
)

// AppError — типизированная ошибка сервиса. Retryable выставляется только
// для временных сбоев хранилища: такой запрос клиент может повторить без
// перепроверки состояния.
type AppError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Cause     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Конструкторы

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error {
	return New(CodeValidationFailed, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthorized, msg)
}

func Forbidden(msg string) error {
	return New(CodeForbidden, msg)
}

func Conflict(msg string) error {
	return New(CodeConflict, msg)
}

func InvalidState(msg string) error {
	return New(CodeInvalidState, msg)
}

func Internal(msg string, cause error) error {
	return &AppError{Code: CodeInternal, Message: msg, Cause: cause}
}

// Unavailable помечает временный сбой хранилища или соединения как повторяемый
func Unavailable(msg string, cause error) error {
	return &AppError{Code: CodeUnavailable, Message: msg, Retryable: true, Cause: cause}
}

// CodeOf возвращает код ошибки, CodeInternal для нетипизированных
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsRetryable сообщает, безопасно ли повторить запрос без уточнения состояния
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// HTTPStatus возвращает HTTP-статус для кода ошибки
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidationFailed:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeConflict:
		return fiber.StatusConflict
	case CodeInvalidState:
		return fiber.StatusConflict
	case CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Respond отправляет ошибку клиенту в едином JSON-формате
func Respond(c fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = &AppError{Code: CodeInternal, Message: "Внутренняя ошибка сервера"}
	}
	return c.Status(HTTPStatus(err)).JSON(fiber.Map{
		"error":     appErr.Message,
		"code":      appErr.Code,
		"retryable": appErr.Retryable,
	})
}
