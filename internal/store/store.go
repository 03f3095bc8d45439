package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
)

// uniqueViolation — код PostgreSQL для нарушения ограничения уникальности
const uniqueViolation = "23505"

// DBTX — общий интерфейс пула соединений и транзакции. Хранилища получают
// его при создании, поэтому один и тот же код работает и в транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// isUniqueViolation проверяет, что ошибка вызвана нарушением уникальности
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// storageErr оборачивает ошибку хранилища: таймауты и обрывы соединения
// помечаются как повторяемые, остальное — внутренняя ошибка
func storageErr(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return apperrors.Unavailable(msg, err)
	}
	return apperrors.Internal(msg, err)
}
