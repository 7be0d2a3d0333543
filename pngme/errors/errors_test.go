package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestPngError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *PngError
		wantStr string
	}{
		{
			name: "basic error",
			err: &PngError{
				Code:    "TEST_ERROR",
				Message: "test message",
			},
			wantStr: "[TEST_ERROR] test message",
		},
		{
			name: "error with cause",
			err: &PngError{
				Code:    "TEST_ERROR",
				Message: "test message",
				Cause:   stderrors.New("underlying error"),
			},
			wantStr: "[TEST_ERROR] test message: underlying error",
		},
		{
			name: "error with details",
			err: &PngError{
				Code:    "TEST_ERROR",
				Message: "test message",
				Details: map[string]interface{}{"key": "value"},
			},
			wantStr: "details",
		},
		{
			name:    "reference message for invalid chunk type",
			err:     ErrInvalidChunkType,
			wantStr: "Invalid chunk payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if !strings.Contains(got, tt.wantStr) {
				t.Errorf("Error() = %q, want to contain %q", got, tt.wantStr)
			}
		})
	}
}

func TestPngError_WithCause(t *testing.T) {
	cause := stderrors.New("root cause")
	err := ErrChunkNotFound.WithCause(cause)

	if err.Cause != cause {
		t.Errorf("WithCause() cause = %v, want %v", err.Cause, cause)
	}

	if !stderrors.Is(err, cause) {
		t.Error("WithCause() should allow errors.Is to work")
	}
}

func TestPngError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	err := ErrChunkNotFound.WithDetail("chunkType", "ruSt")

	if err.Details["chunkType"] != "ruSt" {
		t.Errorf("WithDetail() chunkType = %v, want ruSt", err.Details["chunkType"])
	}
	if len(ErrChunkNotFound.Details) != 0 {
		t.Errorf("sentinel details = %v, want empty", ErrChunkNotFound.Details)
	}
}

func TestPngError_WithMessage(t *testing.T) {
	err := ErrBufferTooShort.WithMessage("custom message")

	if err.Message != "custom message" {
		t.Errorf("WithMessage() message = %q, want 'custom message'", err.Message)
	}
}

func TestPngError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"checksum mismatch", NewChecksumMismatchError(1, 2), ErrChecksumMismatch, true},
		{"length mismatch", NewLengthMismatchError(1, 2), ErrLengthMismatch, true},
		{"buffer too short", NewBufferTooShortError(12, 3), ErrBufferTooShort, true},
		{"invalid chunk type", NewInvalidChunkTypeError([]byte("Ru1t")), ErrInvalidChunkType, true},
		{"wrapped", fmt.Errorf("chunk 3: %w", NewChunkNotFoundError("ruSt")), ErrChunkNotFound, true},
		{"different code", NewChecksumMismatchError(1, 2), ErrLengthMismatch, false},
		{"plain error", stderrors.New("x"), ErrChecksumMismatch, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stderrors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewChecksumMismatchError_Details(t *testing.T) {
	err := NewChecksumMismatchError(2882656334, 7)

	var pngErr *PngError
	if !stderrors.As(err, &pngErr) {
		t.Fatalf("errors.As() failed for %v", err)
	}
	if pngErr.Details["expected"] != uint32(2882656334) {
		t.Errorf("expected detail = %v, want 2882656334", pngErr.Details["expected"])
	}
	if pngErr.Details["actual"] != uint32(7) {
		t.Errorf("actual detail = %v, want 7", pngErr.Details["actual"])
	}
}

func TestIsPngError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "PngError",
			err:  ErrChunkNotFound,
			want: true,
		},
		{
			name: "wrapped PngError",
			err:  fmt.Errorf("decode: %w", ErrInvalidUTF8),
			want: true,
		},
		{
			name: "standard error",
			err:  stderrors.New("test"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPngError(tt.err); got != tt.want {
				t.Errorf("IsPngError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "PngError",
			err:  ErrInvalidSignature,
			want: "INVALID_SIGNATURE",
		},
		{
			name: "PngError with modifications",
			err:  ErrChunkNotFound.WithDetail("chunkType", "ruSt"),
			want: "CHUNK_NOT_FOUND",
		},
		{
			name: "standard error",
			err:  stderrors.New("test"),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
