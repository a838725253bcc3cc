package domain

import (
	"errors"
	"time"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmptyBody       = errors.New("request body is required")
)

// Profile is the per-principal profile record.
type Profile struct {
	UserID    string    `bson:"user_id"`
	Email     string    `bson:"email"`
	FirstName string    `bson:"first_name"`
	LastName  string    `bson:"last_name"`
	UpdatedAt time.Time `bson:"updated_at"`
}
