package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/store"
)

// Error metadata set on InvalidArgument responses caused by bad transactions.
const (
	HeaderDataErrorCode        = "X-Data-Error-Code"
	HeaderDataErrorTransaction = "X-Data-Error-Transaction"
)

// toConnectError maps domain errors onto connect codes. Anything unexpected
// is logged and surfaced as Internal.
func toConnectError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	var dataErr *finance.DataError
	if errors.As(err, &dataErr) {
		ce := connect.NewError(connect.CodeInvalidArgument, err)
		ce.Meta().Set(HeaderDataErrorCode, string(dataErr.Code))
		if dataErr.TransactionID != "" {
			ce.Meta().Set(HeaderDataErrorTransaction, dataErr.TransactionID)
		}
		return ce
	}

	if errors.Is(err, store.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	if errors.Is(err, context.Canceled) {
		return connect.NewError(connect.CodeCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	log := logger.FromContext(ctx)
	log.Error().Err(err).Msg("internal error")
	return connect.NewError(connect.CodeInternal, err)
}
