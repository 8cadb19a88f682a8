package api

import (
	"errors"
	"strings"

	domrepo "BarView/internal/domain/repository"
	xhttp "BarView/pkg/http"
)

// toAppError maps a use-case error to the status and message shown to clients.
// Store failures get a generic message; the cause stays on the AppError for logging.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domrepo.ErrInvalidTableName):
		return xhttp.BadRequestError("Invalid table name format").WithError(err)
	case errors.Is(err, domrepo.ErrUnsupportedTimeframe):
		return xhttp.BadRequestErrorf("Unsupported timeframe. Use one of: %s",
			strings.Join(domrepo.SupportedTimeframes(), ", ")).WithError(err)
	case errors.Is(err, domrepo.ErrInvalidDate):
		return xhttp.BadRequestError("Invalid date format. Use YYYY-MM-DD").WithError(err)
	case errors.Is(err, domrepo.ErrInvalidFormat):
		return xhttp.BadRequestErrorf("Unsupported format. Use %s", strings.Join(SupportedFormats(), ", ")).WithError(err)
	case errors.Is(err, domrepo.ErrInvalidLimit):
		return xhttp.BadRequestError("Invalid limit. Use a positive integer").WithError(err)
	case errors.Is(err, domrepo.ErrInvalidDrawing):
		return xhttp.BadRequestError(detail(err, domrepo.ErrInvalidDrawing)).WithError(err)
	case errors.Is(err, domrepo.ErrTableNotFound):
		return xhttp.NotFoundError("Table not found").WithError(err)
	case errors.Is(err, domrepo.ErrDrawingNotFound):
		return xhttp.NotFoundError("Drawing not found").WithError(err)
	case errors.Is(err, domrepo.ErrStoreBusy):
		return xhttp.InternalError("Database busy, please retry").WithError(err)
	case errors.Is(err, domrepo.ErrStoreUnavailable):
		return xhttp.InternalError("Database error").WithError(err)
	}
	return xhttp.InternalError("Internal server error").WithError(err)
}

// detail returns the text following sentinel in err's message, capitalized.
// "save drawing: invalid drawing: name must be 1-255 characters" -> "Name must be 1-255 characters".
func detail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, sentinel.Error()+": "); i >= 0 {
		msg = msg[i+len(sentinel.Error())+2:]
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
