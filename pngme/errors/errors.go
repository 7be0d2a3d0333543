package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for PNG chunk operations
var (
	// ErrInvalidChunkType is returned when a chunk type holds a byte that is not an ASCII letter
	ErrInvalidChunkType = &PngError{Code: "INVALID_CHUNK_TYPE", Message: "Invalid chunk payload"}

	// ErrChecksumMismatch is returned when a parsed CRC differs from the one computed over type and data
	ErrChecksumMismatch = &PngError{Code: "CHECKSUM_MISMATCH", Message: "Incoming check does not match computed checksum"}

	// ErrLengthMismatch is returned when a parsed length field differs from the payload size
	ErrLengthMismatch = &PngError{Code: "LENGTH_MISMATCH", Message: "Incoming length does not match computed length"}

	// ErrBufferTooShort is returned when the input ends before the chunk it describes
	ErrBufferTooShort = &PngError{Code: "BUFFER_TOO_SHORT", Message: "buffer too short for chunk"}

	// ErrInvalidUTF8 is returned when a chunk payload is read as text but is not valid UTF-8
	ErrInvalidUTF8 = &PngError{Code: "INVALID_UTF8", Message: "chunk data is not valid UTF-8"}

	// ErrInvalidSignature is returned when a file does not start with the PNG signature
	ErrInvalidSignature = &PngError{Code: "INVALID_SIGNATURE", Message: "invalid PNG signature"}

	// ErrInvalidCompressedPayload is returned when a payload read as zlib data cannot be inflated
	ErrInvalidCompressedPayload = &PngError{Code: "INVALID_COMPRESSED_PAYLOAD", Message: "payload is not valid zlib data"}

	// ErrChunkNotFound is returned when no chunk of the requested type exists
	ErrChunkNotFound = &PngError{Code: "CHUNK_NOT_FOUND", Message: "chunk not found"}

	// ErrImageNotFound is returned when storage holds no image under the requested name
	ErrImageNotFound = &PngError{Code: "IMAGE_NOT_FOUND", Message: "image not found"}
)

// PngError represents a structured error in PNG chunk operations
type PngError struct {
	Code    string                 // Error code for programmatic handling
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *PngError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *PngError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code, so errors derived with
// WithDetail or WithCause still match their sentinel.
func (e *PngError) Is(target error) bool {
	t, ok := target.(*PngError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause to the error
func (e *PngError) WithCause(cause error) *PngError {
	return &PngError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *PngError) WithDetail(key string, value interface{}) *PngError {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &PngError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage overrides the error message
func (e *PngError) WithMessage(message string) *PngError {
	return &PngError{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// NewInvalidChunkTypeError creates an invalid chunk type error for the offending bytes
func NewInvalidChunkTypeError(typeBytes []byte) error {
	return ErrInvalidChunkType.WithDetail("bytes", fmt.Sprintf("%q", typeBytes))
}

// NewChecksumMismatchError creates a checksum mismatch error
func NewChecksumMismatchError(expected, actual uint32) error {
	return ErrChecksumMismatch.
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// NewLengthMismatchError creates a length mismatch error
func NewLengthMismatchError(expected, actual uint32) error {
	return ErrLengthMismatch.
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// NewBufferTooShortError creates a buffer too short error
func NewBufferTooShortError(need uint64, have int) error {
	return ErrBufferTooShort.
		WithDetail("need", need).
		WithDetail("have", have)
}

// NewChunkNotFoundError creates a chunk not found error
func NewChunkNotFoundError(chunkType string) error {
	return ErrChunkNotFound.WithDetail("chunkType", chunkType)
}

// NewImageNotFoundError creates an image not found error
func NewImageNotFoundError(name string, cause error) error {
	err := ErrImageNotFound.WithDetail("name", name)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// IsPngError checks if an error is, or wraps, a PngError
func IsPngError(err error) bool {
	var pngErr *PngError
	return stderrors.As(err, &pngErr)
}

// GetErrorCode extracts the error code from a PngError anywhere in the chain
func GetErrorCode(err error) string {
	var pngErr *PngError
	if stderrors.As(err, &pngErr) {
		return pngErr.Code
	}
	return ""
}
