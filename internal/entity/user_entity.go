package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is provisioned by the identity provider, read-only here.
type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	CreatedAt time.Time
}
