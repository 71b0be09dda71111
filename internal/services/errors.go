package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindInvalidOperation ErrorKind = "invalid_operation"
	KindConflict         ErrorKind = "conflict"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrFamilyNotFound      = errors.New("family not found")
	ErrNotFamilyMember     = errors.New("not a family member")
	ErrNotFamilyAdmin      = errors.New("not the family admin")
	ErrAdminCannotLeave    = errors.New("admin cannot leave the family")
	ErrMemberEmailRequired = errors.New("member email required")
	ErrMemberNotFound      = errors.New("member not found")

	ErrInviteNotFound        = errors.New("invite not found")
	ErrRecipientNotFound     = errors.New("recipient not found")
	ErrSelfInvite            = errors.New("cannot invite yourself")
	ErrInviteAlreadySent     = errors.New("invite already sent")
	ErrInviteAlreadyReceived = errors.New("invite already received")
	ErrAlreadyInFamily       = errors.New("recipient already in family")
	ErrRecipientFamilyTaken  = errors.New("recipient family has multiple members")
	ErrInvalidInviteStatus   = errors.New("invalid invite status")
	ErrNotInviteRecipient    = errors.New("only the recipient can respond")
	ErrNotInviteSender       = errors.New("only the sender can cancel")

	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidReference = errors.New("referenced resource not in family")
	ErrFieldRequired    = errors.New("field required")
)

var sentinelKinds = map[error]ErrorKind{
	ErrUserNotFound:          KindNotFound,
	ErrFamilyNotFound:        KindNotFound,
	ErrInviteNotFound:        KindNotFound,
	ErrRecipientNotFound:     KindNotFound,
	ErrResourceNotFound:      KindNotFound,
	ErrEmailAlreadyExists:    KindConflict,
	ErrInviteAlreadySent:     KindConflict,
	ErrInviteAlreadyReceived: KindConflict,
	ErrAlreadyInFamily:       KindConflict,
	ErrRecipientFamilyTaken:  KindConflict,
	ErrInvalidEmail:          KindInvalidOperation,
	ErrPasswordTooShort:      KindInvalidOperation,
	ErrNotFamilyMember:       KindInvalidOperation,
	ErrNotFamilyAdmin:        KindInvalidOperation,
	ErrAdminCannotLeave:      KindInvalidOperation,
	ErrMemberEmailRequired:   KindInvalidOperation,
	ErrMemberNotFound:        KindInvalidOperation,
	ErrSelfInvite:            KindInvalidOperation,
	ErrInvalidInviteStatus:   KindInvalidOperation,
	ErrNotInviteRecipient:    KindInvalidOperation,
	ErrNotInviteSender:       KindInvalidOperation,
	ErrInvalidReference:      KindInvalidOperation,
	ErrFieldRequired:         KindInvalidOperation,
}

// Error is a domain failure with a user-facing message. It wraps one of the
// sentinel errors above so callers can still match with errors.Is.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(sentinel error, field, format string, args ...any) *Error {
	return &Error{
		Kind:    sentinelKinds[sentinel],
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}
}

// KindOf classifies err. The second result is false for infrastructure
// errors that carry no domain kind.
func KindOf(err error) (ErrorKind, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Kind != "" {
		return domainErr.Kind, true
	}
	for sentinel, kind := range sentinelKinds {
		if errors.Is(err, sentinel) {
			return kind, true
		}
	}
	return "", false
}
