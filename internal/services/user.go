package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/firefruitmoney/internal/logging"
	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

const userColumns = `id, email, password_hash, is_staff, family_id, created_at, updated_at`

type UserService struct {
	db DB
}

func NewUserService(db DB) *UserService {
	return &UserService{db: db}
}

// NormalizeEmail lowercases and trims an address and rejects malformed ones.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", newError(ErrInvalidEmail, "email", "This field may not be blank.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", newError(ErrInvalidEmail, "email", "Enter a valid email address.")
	}
	return email, nil
}

func scanUser(row Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsStaff, &user.FamilyID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create registers a user and the family they administer. Both rows are
// written in one transaction so a user never exists without a family.
func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	email, err := NormalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking email existence: %w", err)
	}
	if exists {
		return nil, newError(ErrEmailAlreadyExists, "email", "User with this email already exists.")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create user transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	user, err := scanUser(tx.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, is_staff)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		email, params.PasswordHash, params.IsStaff,
	))
	if isUniqueViolation(err, "users_email_key") {
		return nil, newError(ErrEmailAlreadyExists, "email", "User with this email already exists.")
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	familyID, err := createFamily(ctx, tx, user.ID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET family_id = $1 WHERE id = $2`, familyID, user.ID); err != nil {
		return nil, fmt.Errorf("linking user to family: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create user: %w", err)
	}
	committed = true

	user.FamilyID = &familyID
	logging.Info("User registered", map[string]interface{}{
		"user_id":   user.ID.String(),
		"family_id": familyID.String(),
	})
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return user, nil
}

// Update changes the email and/or password hash of a user. Nil fields are
// left untouched.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, params models.UpdateUserParams) (*models.User, error) {
	var email *string
	if params.Email != nil {
		normalized, err := NormalizeEmail(*params.Email)
		if err != nil {
			return nil, err
		}
		email = &normalized
	}

	user, err := scanUser(s.db.QueryRow(ctx,
		`UPDATE users
		 SET email = COALESCE($2, email),
		     password_hash = COALESCE($3, password_hash),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, email, params.PasswordHash,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if isUniqueViolation(err, "users_email_key") {
		return nil, newError(ErrEmailAlreadyExists, "email", "User with this email already exists.")
	}
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return user, nil
}

func createFamily(ctx context.Context, q Querier, adminID uuid.UUID) (uuid.UUID, error) {
	var familyID uuid.UUID
	err := q.QueryRow(ctx,
		`INSERT INTO families (admin_id) VALUES ($1) RETURNING id`,
		adminID,
	).Scan(&familyID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating family: %w", err)
	}
	return familyID, nil
}
