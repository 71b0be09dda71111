package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/firefruitmoney/internal/logging"
	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

// PriorFamilyPolicy decides what happens to the family a recipient leaves
// when accepting an invite.
type PriorFamilyPolicy string

const (
	// PriorFamilyKeep leaves the old family in place. The user returns to it
	// on leave or removal.
	PriorFamilyKeep PriorFamilyPolicy = "keep"
	// PriorFamilyPrune deletes the old family when the recipient administers
	// it and nobody is left in it. It is recreated on demand.
	PriorFamilyPrune PriorFamilyPolicy = "prune"
)

func ParsePriorFamilyPolicy(s string) (PriorFamilyPolicy, error) {
	switch p := PriorFamilyPolicy(s); p {
	case PriorFamilyKeep, PriorFamilyPrune:
		return p, nil
	case "":
		return PriorFamilyKeep, nil
	default:
		return "", fmt.Errorf("unknown prior family policy %q", s)
	}
}

const inviteSelect = `SELECT i.id, i.sender_id, i.recipient_id, i.created_at, i.updated_at, s.email, r.email
	FROM invites i
	JOIN users s ON s.id = i.sender_id
	JOIN users r ON r.id = i.recipient_id`

type InviteService struct {
	db     DB
	policy PriorFamilyPolicy
}

func NewInviteService(db DB, policy PriorFamilyPolicy) *InviteService {
	if policy == "" {
		policy = PriorFamilyKeep
	}
	return &InviteService{db: db, policy: policy}
}

func scanInvite(row Row) (*models.InviteWithUsers, error) {
	inv := &models.InviteWithUsers{}
	err := row.Scan(&inv.ID, &inv.SenderID, &inv.RecipientID, &inv.CreatedAt, &inv.UpdatedAt, &inv.SenderEmail, &inv.RecipientEmail)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InviteStatusPending
	return inv, nil
}

// Send creates a pending invite from sender to the user with recipientEmail.
// Checks run without locks; the unique (sender, recipient) constraint catches
// a racing duplicate in the same direction.
func (s *InviteService) Send(ctx context.Context, sender *models.User, recipientEmail string) (_ *models.InviteWithUsers, err error) {
	defer func() { recordMembershipOp("send_invite", err) }()

	facts := inviteFacts{Sender: sender, RecipientEmail: recipientEmail}

	recipient, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower(trim($1))`, recipientEmail))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("looking up recipient: %w", err)
	}
	if err == nil {
		facts.Recipient = recipient
	}

	if facts.Recipient != nil && facts.Recipient.ID != sender.ID {
		err = s.db.QueryRow(ctx,
			`SELECT
			   EXISTS(SELECT 1 FROM invites WHERE sender_id = $1 AND recipient_id = $2),
			   EXISTS(SELECT 1 FROM invites WHERE sender_id = $2 AND recipient_id = $1),
			   (SELECT COUNT(*) FROM users WHERE family_id = $3)`,
			sender.ID, recipient.ID, recipient.FamilyID,
		).Scan(&facts.SentExists, &facts.ReceivedExists, &facts.RecipientFamilySize)
		if err != nil {
			return nil, fmt.Errorf("checking invite state: %w", err)
		}
	}

	if err := checkInvite(facts); err != nil {
		return nil, err
	}

	inv := &models.InviteWithUsers{SenderEmail: sender.Email, RecipientEmail: recipient.Email}
	err = s.db.QueryRow(ctx,
		`INSERT INTO invites (sender_id, recipient_id)
		 VALUES ($1, $2)
		 RETURNING id, sender_id, recipient_id, created_at, updated_at`,
		sender.ID, recipient.ID,
	).Scan(&inv.ID, &inv.SenderID, &inv.RecipientID, &inv.CreatedAt, &inv.UpdatedAt)
	if isUniqueViolation(err, "") {
		return nil, newError(ErrInviteAlreadySent, "recipient", "You have already sent an invitation to %s.", recipient.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("creating invite: %w", err)
	}
	inv.Status = models.InviteStatusPending

	logging.Info("Family invite sent", map[string]interface{}{
		"invite_id":    inv.ID.String(),
		"sender_id":    sender.ID.String(),
		"recipient_id": recipient.ID.String(),
	})
	return inv, nil
}

// List returns invites the viewer takes part in, or every invite for staff.
func (s *InviteService) List(ctx context.Context, viewer *models.User) ([]*models.InviteWithUsers, error) {
	var (
		rows Rows
		err  error
	)
	if viewer.IsStaff {
		rows, err = s.db.Query(ctx, inviteSelect+` ORDER BY i.created_at DESC`)
	} else {
		rows, err = s.db.Query(ctx,
			inviteSelect+` WHERE i.sender_id = $1 OR i.recipient_id = $1 ORDER BY i.created_at DESC`,
			viewer.ID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing invites: %w", err)
	}
	defer rows.Close()

	invites := []*models.InviteWithUsers{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invite: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing invites: %w", err)
	}
	return invites, nil
}

func (s *InviteService) Get(ctx context.Context, viewer *models.User, inviteID uuid.UUID) (*models.InviteWithUsers, error) {
	inv, err := scanInvite(s.db.QueryRow(ctx, inviteSelect+` WHERE i.id = $1`, inviteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting invite: %w", err)
	}
	if !canSeeInvite(viewer, &inv.Invite) {
		return nil, ErrInviteNotFound
	}
	return inv, nil
}

func canSeeInvite(viewer *models.User, inv *models.Invite) bool {
	return viewer.IsStaff || viewer.ID == inv.SenderID || viewer.ID == inv.RecipientID
}

// Respond resolves a pending invite. Only the recipient may respond. Decline
// deletes the invite; accept moves the recipient into the sender's family and
// deletes the invite, all in one transaction.
func (s *InviteService) Respond(ctx context.Context, actor *models.User, inviteID uuid.UUID, status string) (_ *models.InviteWithUsers, err error) {
	defer func() { recordMembershipOp("respond_invite", err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin respond transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	inv, err := scanInvite(tx.QueryRow(ctx, inviteSelect+` WHERE i.id = $1 FOR UPDATE OF i`, inviteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking invite: %w", err)
	}
	if !canSeeInvite(actor, &inv.Invite) {
		return nil, ErrInviteNotFound
	}
	if actor.ID != inv.RecipientID {
		return nil, newError(ErrNotInviteRecipient, "", "Only the invited user can respond to this invitation.")
	}

	newStatus, parseErr := models.ParseInviteStatus(status)
	if parseErr != nil || !newStatus.IsTerminal() {
		return nil, newError(ErrInvalidInviteStatus, "status", "Status must be %q or %q.",
			models.InviteStatusAccept, models.InviteStatusDecline)
	}

	if newStatus == models.InviteStatusAccept {
		if err := s.accept(ctx, tx, inv); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invites WHERE id = $1`, inv.ID); err != nil {
		return nil, fmt.Errorf("deleting invite: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit respond: %w", err)
	}
	committed = true

	inv.Status = newStatus
	logging.Info("Family invite resolved", map[string]interface{}{
		"invite_id":    inv.ID.String(),
		"sender_id":    inv.SenderID.String(),
		"recipient_id": inv.RecipientID.String(),
		"status":       string(newStatus),
	})
	return inv, nil
}

func (s *InviteService) accept(ctx context.Context, tx Tx, inv *models.InviteWithUsers) error {
	families, err := lockUsers(ctx, tx, inv.SenderID, inv.RecipientID)
	if err != nil {
		return err
	}
	senderFamily := families[inv.SenderID]
	if senderFamily == nil {
		return fmt.Errorf("sender %s has no family", inv.SenderID)
	}
	priorFamily := families[inv.RecipientID]

	if priorFamily != nil {
		if *priorFamily == *senderFamily {
			return newError(ErrAlreadyInFamily, "recipient", "%s is already in your family.", inv.RecipientEmail)
		}
		size, err := lockFamilyMembers(ctx, tx, *priorFamily)
		if err != nil {
			return err
		}
		if size > 1 {
			return newError(ErrRecipientFamilyTaken, "recipient", "%s has already family with multiple members.", inv.RecipientEmail)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET family_id = $1, updated_at = NOW() WHERE id = $2`,
		*senderFamily, inv.RecipientID,
	); err != nil {
		return fmt.Errorf("joining sender family: %w", err)
	}

	if s.policy == PriorFamilyPrune && priorFamily != nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM families f
			 WHERE f.id = $1 AND f.admin_id = $2
			   AND NOT EXISTS (SELECT 1 FROM users u WHERE u.family_id = f.id)`,
			*priorFamily, inv.RecipientID,
		); err != nil {
			return fmt.Errorf("pruning prior family: %w", err)
		}
	}
	return nil
}

// Cancel lets the sender withdraw a pending invite.
func (s *InviteService) Cancel(ctx context.Context, actor *models.User, inviteID uuid.UUID) (err error) {
	defer func() { recordMembershipOp("cancel_invite", err) }()

	var senderID, recipientID uuid.UUID
	err = s.db.QueryRow(ctx,
		`SELECT sender_id, recipient_id FROM invites WHERE id = $1`,
		inviteID,
	).Scan(&senderID, &recipientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInviteNotFound
	}
	if err != nil {
		return fmt.Errorf("getting invite: %w", err)
	}
	if !canSeeInvite(actor, &models.Invite{SenderID: senderID, RecipientID: recipientID}) {
		return ErrInviteNotFound
	}
	if actor.ID != senderID {
		return newError(ErrNotInviteSender, "", "Only the sender can cancel this invitation.")
	}

	result, err := s.db.Exec(ctx, `DELETE FROM invites WHERE id = $1 AND sender_id = $2`, inviteID, actor.ID)
	if err != nil {
		return fmt.Errorf("deleting invite: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// lockUsers locks the given users in id order and returns their family ids.
func lockUsers(ctx context.Context, q Querier, ids ...uuid.UUID) (map[uuid.UUID]*uuid.UUID, error) {
	rows, err := q.Query(ctx,
		`SELECT id, family_id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("locking users: %w", err)
	}
	defer rows.Close()

	families := make(map[uuid.UUID]*uuid.UUID, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var familyID *uuid.UUID
		if err := rows.Scan(&id, &familyID); err != nil {
			return nil, fmt.Errorf("scanning locked user: %w", err)
		}
		families[id] = familyID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("locking users: %w", err)
	}
	for _, id := range ids {
		if _, ok := families[id]; !ok {
			return nil, ErrUserNotFound
		}
	}
	return families, nil
}

func lockFamilyMembers(ctx context.Context, q Querier, familyID uuid.UUID) (int, error) {
	rows, err := q.Query(ctx, `SELECT id FROM users WHERE family_id = $1 FOR UPDATE`, familyID)
	if err != nil {
		return 0, fmt.Errorf("locking family members: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("locking family members: %w", err)
	}
	return n, nil
}
