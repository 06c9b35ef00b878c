package pilot

import (
	"context"
	"errors"
)

// ErrEmailRequired is returned when a request has no usable email.
var ErrEmailRequired = errors.New("email is required")

// Repository defines persistence for pilot requests
type Repository interface {
	Save(ctx context.Context, r *Request) error
}
