package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/firefruitmoney/internal/logging"
	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

type FamilyService struct {
	db DB
}

func NewFamilyService(db DB) *FamilyService {
	return &FamilyService{db: db}
}

// FamilyOf returns the family userID currently belongs to.
func (s *FamilyService) FamilyOf(ctx context.Context, userID uuid.UUID) (*models.FamilyWithMembers, error) {
	var familyID *uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT family_id FROM users WHERE id = $1`, userID).Scan(&familyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user family: %w", err)
	}
	if familyID == nil {
		return nil, ErrFamilyNotFound
	}
	return loadFamily(ctx, s.db, *familyID)
}

// Get returns a family the viewer may see. Non-staff users only see the
// family they belong to; anything else is reported as not found.
func (s *FamilyService) Get(ctx context.Context, viewer *models.User, familyID uuid.UUID) (*models.FamilyWithMembers, error) {
	if !viewer.IsStaff && !viewer.InFamily(familyID) {
		return nil, ErrFamilyNotFound
	}
	return loadFamily(ctx, s.db, familyID)
}

func (s *FamilyService) List(ctx context.Context, viewer *models.User) ([]*models.FamilyWithMembers, error) {
	if !viewer.IsStaff {
		if viewer.FamilyID == nil {
			return []*models.FamilyWithMembers{}, nil
		}
		family, err := loadFamily(ctx, s.db, *viewer.FamilyID)
		if errors.Is(err, ErrFamilyNotFound) {
			return []*models.FamilyWithMembers{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []*models.FamilyWithMembers{family}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.admin_id, u.email, f.created_at, f.updated_at
		 FROM families f
		 JOIN users u ON u.id = f.admin_id
		 ORDER BY f.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing families: %w", err)
	}
	defer rows.Close()

	families := []*models.FamilyWithMembers{}
	byID := map[uuid.UUID]*models.FamilyWithMembers{}
	var ids []uuid.UUID
	for rows.Next() {
		f := &models.FamilyWithMembers{}
		if err := rows.Scan(&f.ID, &f.AdminID, &f.AdminEmail, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning family: %w", err)
		}
		f.Members = []models.FamilyMember{}
		families = append(families, f)
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing families: %w", err)
	}
	if len(ids) == 0 {
		return families, nil
	}

	memberRows, err := s.db.Query(ctx,
		`SELECT id, email, family_id FROM users WHERE family_id = ANY($1) ORDER BY email`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("listing family members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var m models.FamilyMember
		var familyID uuid.UUID
		if err := memberRows.Scan(&m.ID, &m.Email, &familyID); err != nil {
			return nil, fmt.Errorf("scanning family member: %w", err)
		}
		if f, ok := byID[familyID]; ok {
			f.Members = append(f.Members, m)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("listing family members: %w", err)
	}
	return families, nil
}

// Leave moves actor out of familyID and back into the family they
// administer. The admin of familyID can never leave it.
func (s *FamilyService) Leave(ctx context.Context, actor *models.User, familyID uuid.UUID) (_ *models.FamilyWithMembers, err error) {
	defer func() { recordMembershipOp("leave", err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin leave transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	family, err := lockFamily(ctx, tx, familyID)
	if err != nil {
		return nil, err
	}

	current, err := lockUserFamily(ctx, tx, actor.ID)
	if err != nil {
		return nil, err
	}
	if current == nil || *current != family.ID {
		return nil, newError(ErrNotFamilyMember, "", "%s is not a member of this family.", actor.Email)
	}
	if family.AdminID == actor.ID {
		return nil, newError(ErrAdminCannotLeave, "", "Admin cannot leave the family.")
	}

	homeID, err := moveToHomeFamily(ctx, tx, actor.ID)
	if err != nil {
		return nil, err
	}
	home, err := loadFamily(ctx, tx, homeID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit leave: %w", err)
	}
	committed = true

	logging.Info("User left family", map[string]interface{}{
		"user_id":        actor.ID.String(),
		"family_id":      family.ID.String(),
		"home_family_id": homeID.String(),
	})
	return home, nil
}

// RemoveMember lets the admin of familyID send a member back to the member's
// own family. It returns familyID after the removal.
func (s *FamilyService) RemoveMember(ctx context.Context, actor *models.User, familyID uuid.UUID, memberEmail string) (_ *models.FamilyWithMembers, err error) {
	defer func() { recordMembershipOp("remove_member", err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin remove member transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	family, err := lockFamily(ctx, tx, familyID)
	if err != nil {
		return nil, err
	}
	if family.AdminID != actor.ID {
		return nil, newError(ErrNotFamilyAdmin, "", "Only the family admin can manage members.")
	}

	memberEmail = strings.ToLower(strings.TrimSpace(memberEmail))
	if memberEmail == "" {
		return nil, newError(ErrMemberEmailRequired, "member",
			"Use parameters to delete member from family. Example: /?member=user@mail.com")
	}

	var memberID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM users WHERE family_id = $1 AND email = $2 FOR UPDATE`,
		family.ID, memberEmail,
	).Scan(&memberID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(ErrMemberNotFound, "member", "%s is not a member of your family.", memberEmail)
	}
	if err != nil {
		return nil, fmt.Errorf("locking member: %w", err)
	}
	if memberID == family.AdminID {
		return nil, newError(ErrAdminCannotLeave, "member", "Admin cannot leave the family.")
	}

	homeID, err := moveToHomeFamily(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}
	updated, err := loadFamily(ctx, tx, family.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit remove member: %w", err)
	}
	committed = true

	logging.Info("Family member removed", map[string]interface{}{
		"admin_id":       actor.ID.String(),
		"member_id":      memberID.String(),
		"family_id":      family.ID.String(),
		"home_family_id": homeID.String(),
	})
	return updated, nil
}

func lockFamily(ctx context.Context, q Querier, familyID uuid.UUID) (*models.Family, error) {
	family := &models.Family{}
	err := q.QueryRow(ctx,
		`SELECT id, admin_id, created_at, updated_at FROM families WHERE id = $1 FOR UPDATE`,
		familyID,
	).Scan(&family.ID, &family.AdminID, &family.CreatedAt, &family.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking family: %w", err)
	}
	return family, nil
}

func lockUserFamily(ctx context.Context, q Querier, userID uuid.UUID) (*uuid.UUID, error) {
	var familyID *uuid.UUID
	err := q.QueryRow(ctx, `SELECT family_id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&familyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking user: %w", err)
	}
	return familyID, nil
}

// moveToHomeFamily points userID at the family they administer, recreating
// it if it was pruned.
func moveToHomeFamily(ctx context.Context, q Querier, userID uuid.UUID) (uuid.UUID, error) {
	var homeID uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM families WHERE admin_id = $1`, userID).Scan(&homeID)
	if errors.Is(err, pgx.ErrNoRows) {
		homeID, err = createFamily(ctx, q, userID)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("finding home family: %w", err)
	}

	if _, err := q.Exec(ctx,
		`UPDATE users SET family_id = $1, updated_at = NOW() WHERE id = $2`,
		homeID, userID,
	); err != nil {
		return uuid.Nil, fmt.Errorf("moving user to home family: %w", err)
	}
	return homeID, nil
}

func loadFamily(ctx context.Context, q Querier, familyID uuid.UUID) (*models.FamilyWithMembers, error) {
	f := &models.FamilyWithMembers{}
	err := q.QueryRow(ctx,
		`SELECT f.id, f.admin_id, u.email, f.created_at, f.updated_at
		 FROM families f
		 JOIN users u ON u.id = f.admin_id
		 WHERE f.id = $1`,
		familyID,
	).Scan(&f.ID, &f.AdminID, &f.AdminEmail, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting family: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT id, email FROM users WHERE family_id = $1 ORDER BY email`, familyID)
	if err != nil {
		return nil, fmt.Errorf("getting family members: %w", err)
	}
	defer rows.Close()

	f.Members = []models.FamilyMember{}
	for rows.Next() {
		var m models.FamilyMember
		if err := rows.Scan(&m.ID, &m.Email); err != nil {
			return nil, fmt.Errorf("scanning family member: %w", err)
		}
		f.Members = append(f.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting family members: %w", err)
	}
	return f, nil
}
