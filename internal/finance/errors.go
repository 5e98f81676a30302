package finance

import (
	"errors"
	"fmt"
)

// DataErrorCode identifies the kind of malformed input.
type DataErrorCode string

const (
	ErrMalformedDate   DataErrorCode = "MALFORMED_DATE"
	ErrNegativeAmount  DataErrorCode = "NEGATIVE_AMOUNT"
	ErrUnknownCategory DataErrorCode = "UNKNOWN_CATEGORY"
	ErrUnknownType     DataErrorCode = "UNKNOWN_TYPE"
	ErrMalformedAmount DataErrorCode = "MALFORMED_AMOUNT"
)

// DataError reports a transaction that cannot be analysed. It is returned
// before any output is produced.
type DataError struct {
	Code          DataErrorCode
	Field         string
	TransactionID string
	Message       string
	Cause         error
}

func (e *DataError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.TransactionID != "" {
		prefix += fmt.Sprintf(" transaction %s:", e.TransactionID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Cause
}

// IsDataError reports whether err (or anything it wraps) is a *DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
