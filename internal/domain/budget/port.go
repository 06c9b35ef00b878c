package budget

import (
	"context"
	"errors"
)

var (
	// ErrInvalidUpload marks caller input problems (missing or unusable upload).
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrUnreadableWorkbook is returned when spreadsheet bytes cannot be opened.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	ErrNotFound           = errors.New("analysis not found")
)

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, userID string, id AnalysisID) (*Analysis, error)
	List(ctx context.Context, userID string, f Filter) (PaginatedResult, error)
}

// ArchiveStore keeps the original uploaded bytes.
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// InputError is a caller-facing failure. Message is safe to show to the caller.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return e.Err }

// NewInputError wraps kind (ErrInvalidUpload or ErrUnreadableWorkbook) with a message.
func NewInputError(kind error, msg string) error {
	return &InputError{Message: msg, Err: kind}
}
