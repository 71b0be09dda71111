package services

import "github.com/HammerMeetNail/firefruitmoney/internal/models"

// inviteFacts is everything needed to decide whether Sender may invite the
// user behind RecipientEmail. Recipient is nil when no user has that email.
type inviteFacts struct {
	Sender              *models.User
	Recipient           *models.User
	RecipientEmail      string
	SentExists          bool
	ReceivedExists      bool
	RecipientFamilySize int
}

// checkInvite applies the invite rules in order and returns the first
// violation.
func checkInvite(f inviteFacts) error {
	if f.Recipient == nil {
		return newError(ErrRecipientNotFound, "recipient", "User with this email does not exist.")
	}
	email := f.Recipient.Email
	if f.Recipient.ID == f.Sender.ID {
		return newError(ErrSelfInvite, "recipient", "You cannot invite yourself to your own family.")
	}
	if f.SentExists {
		return newError(ErrInviteAlreadySent, "recipient", "You have already sent an invitation to %s.", email)
	}
	if f.ReceivedExists {
		return newError(ErrInviteAlreadyReceived, "recipient", "%s has already sent you invitation to join their family.", email)
	}
	if f.Sender.FamilyID != nil && f.Recipient.InFamily(*f.Sender.FamilyID) {
		return newError(ErrAlreadyInFamily, "recipient", "%s is already in your family.", email)
	}
	if f.RecipientFamilySize > 1 {
		return newError(ErrRecipientFamilyTaken, "recipient", "%s has already family with multiple members.", email)
	}
	return nil
}
