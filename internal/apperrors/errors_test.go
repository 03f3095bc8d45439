package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusByCode(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Validation("нет"), fiber.StatusBadRequest},
		{Unauthorized("нет"), fiber.StatusUnauthorized},
		{Forbidden("нет"), fiber.StatusForbidden},
		{NotFound("нет"), fiber.StatusNotFound},
		{Conflict("нет"), fiber.StatusConflict},
		{InvalidState("нет"), fiber.StatusConflict},
		{Unavailable("нет", nil), fiber.StatusServiceUnavailable},
		{Internal("нет", nil), fiber.StatusInternalServerError},
		{errors.New("сырая ошибка"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.status, HTTPStatus(tc.err), "код %s", CodeOf(tc.err))
	}
}

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("контекст операции: %w", ErrProposalResolved)
	require.Equal(t, CodeInvalidState, CodeOf(err))
	require.True(t, errors.Is(err, ErrProposalResolved))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	require.Equal(t, CodeInternal, CodeOf(errors.New("что-то сломалось")))
}

func TestIsRetryableOnlyForUnavailable(t *testing.T) {
	require.True(t, IsRetryable(Unavailable("таймаут хранилища", nil)))

	require.False(t, IsRetryable(Validation("нет")))
	require.False(t, IsRetryable(Conflict("нет")))
	require.False(t, IsRetryable(Internal("нет", nil)))
	require.False(t, IsRetryable(errors.New("сырая ошибка")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("исходная причина")
	err := Wrap(CodeInternal, "операция не удалась", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "операция не удалась")
	require.Contains(t, err.Error(), "исходная причина")
}

func TestDomainErrorsCarryExpectedCodes(t *testing.T) {
	require.Equal(t, CodeValidationFailed, CodeOf(ErrSelfMessage))
	require.Equal(t, CodeNotFound, CodeOf(ErrConversationNotFound))
	require.Equal(t, CodeForbidden, CodeOf(ErrNotParticipant))
	require.Equal(t, CodeConflict, CodeOf(ErrConversationExists))
	require.Equal(t, CodeInvalidState, CodeOf(ErrDealTerminal))
}
