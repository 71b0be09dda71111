package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InviteStatus string

const (
	InviteStatusPending InviteStatus = "pending"
	InviteStatusAccept  InviteStatus = "accept"
	InviteStatusDecline InviteStatus = "decline"
)

// ParseInviteStatus accepts the three known labels, case-insensitively.
func ParseInviteStatus(s string) (InviteStatus, error) {
	switch status := InviteStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case InviteStatusPending, InviteStatusAccept, InviteStatusDecline:
		return status, nil
	default:
		return "", fmt.Errorf("unknown invite status %q", s)
	}
}

// IsTerminal is true for the statuses that resolve (and delete) an invite.
func (s InviteStatus) IsTerminal() bool {
	return s == InviteStatusAccept || s == InviteStatusDecline
}

// Invite is a pending request for Recipient to join Sender's family. Rows are
// only ever stored as pending; accept and decline delete them.
type Invite struct {
	ID          uuid.UUID    `json:"id"`
	SenderID    uuid.UUID    `json:"sender_id"`
	RecipientID uuid.UUID    `json:"recipient_id"`
	Status      InviteStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type InviteWithUsers struct {
	Invite
	SenderEmail    string `json:"sender"`
	RecipientEmail string `json:"recipient"`
}
