package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal actor record the engine needs: enough identity to
// evaluate permissions and to resolve deferred awards by email. Account
// management belongs to the host application.
//
// A nil *User in any permission predicate means the system itself is acting
// (fixture loaders, progress auto-awards, prerequisite cascades) and is always
// allowed.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Staff     bool      `json:"staff"`
	Superuser bool      `json:"superuser"`
	CreatedAt time.Time `json:"created_at"`
}

// Elevated reports whether the user holds staff or superuser privileges.
func (u *User) Elevated() bool {
	return u != nil && (u.Staff || u.Superuser)
}

// Is reports whether the user matches the given ID. Safe on nil receivers and
// nil IDs, which show up constantly in creator comparisons.
func (u *User) Is(id *uuid.UUID) bool {
	return u != nil && id != nil && u.ID == *id
}
