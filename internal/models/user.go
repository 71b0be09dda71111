package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsStaff      bool       `json:"is_staff"`
	FamilyID     *uuid.UUID `json:"family_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// InFamily reports whether the user currently points at familyID.
func (u *User) InFamily(familyID uuid.UUID) bool {
	return u != nil && u.FamilyID != nil && *u.FamilyID == familyID
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	IsStaff      bool
}

type UpdateUserParams struct {
	Email        *string
	PasswordHash *string
}
