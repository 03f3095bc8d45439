package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/utils"
)

// AuthMiddleware создаёт middleware для проверки JWT. Идентификатор
// вызывающего кладется в Locals("userID") уже проверенным UUID.
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperrors.Respond(c, apperrors.Unauthorized("Отсутствует заголовок авторизации"))
		}

		// Проверяем Bearer токен
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return apperrors.Respond(c, apperrors.Unauthorized("Неверный формат заголовка авторизации"))
		}

		tokenString := parts[1]
		userID, err := jwtService.ExtractUserID(tokenString)
		if err != nil {
			return apperrors.Respond(c, apperrors.Unauthorized("Недействительный или просроченный токен"))
		}

		// Проверяем, что userID является валидным UUID
		if _, err := uuid.Parse(userID); err != nil {
			return apperrors.Respond(c, apperrors.Unauthorized("Неверный идентификатор пользователя"))
		}

		c.Locals("userID", userID)

		return c.Next()
	}
}
