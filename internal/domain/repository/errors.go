package repository

import "errors"

// Validation errors. Surfaced as 400 and never retried.
var (
	ErrInvalidTableName     = errors.New("invalid table name format")
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe")
	ErrInvalidDate          = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidFormat        = errors.New("unsupported format")
	ErrInvalidLimit         = errors.New("limit must be positive")
	ErrInvalidDrawing       = errors.New("invalid drawing")
)

// Lookup errors. Surfaced as 404.
var (
	ErrTableNotFound   = errors.New("table not found")
	ErrDrawingNotFound = errors.New("drawing not found")
)

// Store errors.
var (
	// ErrStoreBusy marks a transient condition (lock contention, pool exhausted).
	ErrStoreBusy = errors.New("store busy")
	// ErrStoreUnavailable marks a store that cannot be reached at all.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreBusy)
}

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidTableName, ErrUnsupportedTimeframe, ErrInvalidDate,
		ErrInvalidFormat, ErrInvalidLimit, ErrInvalidDrawing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the requested entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrDrawingNotFound)
}
