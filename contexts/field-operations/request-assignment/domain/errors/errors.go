package errors

import "errors"

var (
	ErrInvalidRequest            = errors.New("invalid service request")
	ErrServiceNotFound           = errors.New("service not found")
	ErrRequestNotFound           = errors.New("service request not found")
	ErrProviderNotFound          = errors.New("provider not found")
	ErrProviderInactive          = errors.New("provider is not active")
	ErrProviderNotCapable        = errors.New("provider is not capable of this service")
	ErrClaimConflict             = errors.New("service request is no longer claimable")
	ErrStoreUnavailable          = errors.New("record store unavailable")
	ErrClaimPrimitiveUnavailable = errors.New("atomic claim primitive unavailable")
	ErrRepositoryInvariantBroke  = errors.New("repository invariant violated")
)

// ErrorKind groups sentinel errors by how callers are expected to react.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindTransient     ErrorKind = "transient"
	KindInternal      ErrorKind = "internal"
)

// Kind classifies err. Only transient errors are worth retrying, and only by
// the caller.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return KindValidation
	case errors.Is(err, ErrServiceNotFound),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrProviderNotFound),
		errors.Is(err, ErrProviderInactive):
		return KindNotFound
	case errors.Is(err, ErrProviderNotCapable):
		return KindAuthorization
	case errors.Is(err, ErrClaimConflict):
		return KindConflict
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrClaimPrimitiveUnavailable):
		return KindTransient
	default:
		return KindInternal
	}
}
