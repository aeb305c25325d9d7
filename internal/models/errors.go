package models

import "github.com/pkg/errors"

// ErrorKind is the taxonomy bucket an error belongs to. Callers decide
// retries and HTTP statuses by kind, never by message.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuthFailure
	KindAuthorizationDenied
	KindValidation
	KindConflict
	KindNotFound
	KindStorageUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthFailure:
		return "auth_failure"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStorageUnavailable:
		return "storage_unavailable"
	default:
		return "internal"
	}
}

// Error is a classified error with a machine-readable code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrInvalidCredentials = newError(KindAuthFailure, "invalid_credentials", "invalid username or password")
	ErrTooManyAttempts    = newError(KindAuthFailure, "too_many_attempts", "too many login attempts, try again later")

	ErrMissingBarcode    = newError(KindValidation, "missing_barcode", "barcode is required")
	ErrInvalidSizeClass  = newError(KindValidation, "invalid_size_class", "sizeClass must be big or small")
	ErrInvalidCoordinate = newError(KindValidation, "invalid_coordinate", "latitude must be in [-90,90] and longitude in [-180,180]")
	ErrPartialCoordinate = newError(KindValidation, "invalid_coordinate", "latitude and longitude must be given together")
	ErrInvalidRole       = newError(KindValidation, "invalid_role", "role must be admin, carrier or substitute")
	ErrEmptyUsername     = newError(KindValidation, "empty_username", "username is required")
	ErrEmptyPassword     = newError(KindValidation, "empty_password", "password is required")
	ErrEmptyPath         = newError(KindValidation, "empty_path", "route data is required")
	ErrInvalidPath       = newError(KindValidation, "invalid_path", "route data must be JSON")
	ErrInvalidPhoto      = newError(KindValidation, "invalid_photo", "photo must be a png, jpeg, gif or webp image")
	ErrPhotoTooLarge     = newError(KindValidation, "photo_too_large", "photo exceeds the size limit")
	ErrInvalidDate       = newError(KindValidation, "invalid_date", "date must be YYYY-MM-DD")
	ErrInvalidRequest    = newError(KindValidation, "invalid_request", "request body must be valid JSON")
	ErrInvalidID         = newError(KindValidation, "invalid_id", "id must be a positive integer")
	ErrRequestTooLarge   = newError(KindValidation, "request_too_large", "request body exceeds the size limit")

	ErrDuplicateUsername = newError(KindConflict, "duplicate_username", "username already exists")
	ErrConcurrentUpdate  = newError(KindConflict, "concurrent_update", "concurrent update, retry")

	ErrNotFound = newError(KindNotFound, "not_found", "not found")

	ErrStorageUnavailable = newError(KindStorageUnavailable, "storage_unavailable", "storage temporarily unavailable")
)

// DeniedError is returned when the access gate rejects an action. Reason
// names the violated rule.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "access denied: " + e.Reason }

// KindOf walks the wrap chain and returns the first classified kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var d *DeniedError
	if errors.As(err, &d) {
		return KindAuthorizationDenied
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of a classified error, or "internal".
func CodeOf(err error) string {
	var d *DeniedError
	if errors.As(err, &d) {
		return d.Reason
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
