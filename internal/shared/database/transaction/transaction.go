// Package transaction carries a database transaction through context.Context so
// repositories in different feature packages can join the same unit of work.
package transaction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"flightbook/internal/shared/apperr"
	"flightbook/pkg/logger"
	"flightbook/pkg/retry"

	"gorm.io/gorm"
)

// Transactor runs fn inside a single transaction. A fn error rolls everything back.
// Calls made while a transaction is already open in ctx join it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type handleKey struct{}

// WithHandle stores a transaction handle in the context.
func WithHandle(ctx context.Context, handle interface{}) context.Context {
	return context.WithValue(ctx, handleKey{}, handle)
}

// Handle returns the transaction handle stored in ctx, if any.
func Handle(ctx context.Context) interface{} {
	return ctx.Value(handleKey{})
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	return Handle(ctx) != nil
}

// Conn returns the transaction bound to ctx, or db scoped to ctx when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := Handle(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// GormTransactor implements Transactor on top of gorm. The outermost call retries
// the whole unit of work when it fails with a transient storage error.
type GormTransactor struct {
	db     *gorm.DB
	retry  *retry.Config
	logger *logger.Logger
}

func NewGormTransactor(db *gorm.DB, retryConfig *retry.Config) *GormTransactor {
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig()
	}
	return &GormTransactor{
		db:     db,
		retry:  retryConfig,
		logger: logger.GetDefault(),
	}
}

func (t *GormTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	op := func(ctx context.Context) error {
		err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(WithHandle(ctx, tx))
		})
		if err == nil {
			return nil
		}
		err = apperr.FromStorage(err)
		if apperr.IsRetryable(err) {
			return err
		}
		return retry.Permanent(err)
	}

	result := retry.New(t.retry).DoWithCallback(ctx, op, func(attempt int, err error, next time.Duration) {
		t.logger.WarnContext(ctx, "Retrying transaction",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", next),
			slog.String("error", err.Error()),
		)
	})
	if result.Err == nil {
		return nil
	}
	if result.LastError != nil && errors.Is(result.Err, retry.ErrMaxRetriesExceeded) {
		return result.LastError
	}
	if errors.Is(result.Err, retry.ErrContextCanceled) {
		if result.LastError != nil {
			return result.LastError
		}
		return apperr.Wrap(apperr.KindStorageUnavailable, "transaction aborted", ctx.Err())
	}
	return result.Err
}
