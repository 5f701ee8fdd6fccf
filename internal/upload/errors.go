package upload

import (
	"errors"
	"net/http"
)

// Kind classifies upload failures. Every kind maps to exactly one HTTP status.
type Kind int

const (
	// KindInternal covers failures nobody classified.
	KindInternal Kind = iota
	// KindStorageUnavailable means the object store binding is missing or offline.
	KindStorageUnavailable
	// KindMissingFile means the submission carried no file, or an empty one.
	KindMissingFile
	// KindMalformedRequest means the body is not usable multipart form data
	// or a form field failed validation.
	KindMalformedRequest
	// KindPayloadTooLarge means the body exceeded the configured limit.
	KindPayloadTooLarge
	// KindWriteFailure means the store rejected the put.
	KindWriteFailure
)

var kindNames = map[Kind]string{
	KindInternal:           "INTERNAL_ERROR",
	KindStorageUnavailable: "STORAGE_UNAVAILABLE",
	KindMissingFile:        "MISSING_FILE",
	KindMalformedRequest:   "MALFORMED_REQUEST",
	KindPayloadTooLarge:    "PAYLOAD_TOO_LARGE",
	KindWriteFailure:       "WRITE_FAILURE",
}

// String returns the machine-readable code sent to clients.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindInternal]
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindMissingFile, KindMalformedRequest:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified upload failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Kind == kind
}
