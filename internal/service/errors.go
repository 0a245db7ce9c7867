package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/store-reservation/internal/apperr"
	"github.com/iliyamo/store-reservation/internal/logger"
	"github.com/iliyamo/store-reservation/internal/repository"
)

// notFoundAs converts repository.ErrNotFound into the business error for
// code and passes every other error through unchanged.
func notFoundAs(err error, code apperr.Code) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(code)
	}
	return err
}

// rejection counts business-rule refusals.  *metrics.ReservationMetrics
// satisfies it; nil disables counting.
type rejection interface {
	Rejection(code string)
}

// fail normalizes err for the caller.  Internal failures are logged with
// the operation and fields before being surfaced as an opaque error.
func fail(ctx context.Context, m rejection, op string, err error, fields ...zap.Field) error {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		logger.FromContext(ctx).Error(op+" failed",
			append(fields, zap.String("op", op), zap.Error(e.Err))...)
		return e
	}
	if m != nil {
		m.Rejection(string(e.Code))
	}
	logger.FromContext(ctx).Debug(op+" refused",
		append(fields, zap.String("op", op), zap.String("code", string(e.Code)))...)
	return e
}
