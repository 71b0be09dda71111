package models

import (
	"time"

	"github.com/google/uuid"
)

// Family groups users that share expense data. AdminID never changes after
// creation; membership is derived from users.family_id.
type Family struct {
	ID        uuid.UUID `json:"id"`
	AdminID   uuid.UUID `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FamilyMember struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type FamilyWithMembers struct {
	Family
	AdminEmail string         `json:"admin"`
	Members    []FamilyMember `json:"-"`
}

// MemberEmails returns the members' emails in the order they were loaded.
func (f *FamilyWithMembers) MemberEmails() []string {
	emails := make([]string, 0, len(f.Members))
	for _, m := range f.Members {
		emails = append(emails, m.Email)
	}
	return emails
}

// HasMember reports whether userID is among the loaded members.
func (f *FamilyWithMembers) HasMember(userID uuid.UUID) bool {
	for _, m := range f.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberByEmail finds a loaded member by exact email match.
func (f *FamilyWithMembers) MemberByEmail(email string) (FamilyMember, bool) {
	for _, m := range f.Members {
		if m.Email == email {
			return m, true
		}
	}
	return FamilyMember{}, false
}
