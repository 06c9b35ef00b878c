package pilot

import "time"

// Request is a pilot-program signup submitted from the public site.
type Request struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referer   string    `json:"referer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
