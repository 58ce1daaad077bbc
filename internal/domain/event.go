package domain

import "time"

const (
	AggregateUser = "User"

	EventUserRegistered         = "UserRegistered"
	EventUserVerified           = "UserVerified"
	EventPasswordResetRequested = "PasswordResetRequested"
	EventPasswordReset          = "PasswordReset"
)

// UserEvent is the payload of every account event. It never contains tokens
// or reset secrets.
type UserEvent struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
