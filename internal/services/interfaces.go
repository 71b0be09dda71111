package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

// UserServiceInterface defines the contract for user operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, params models.UpdateUserParams) (*models.User, error)
}

// AuthServiceInterface defines the contract for credential checks.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// TokenServiceInterface defines the contract for JWT issuance and validation.
type TokenServiceInterface interface {
	IssuePair(userID uuid.UUID) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Verify(ctx context.Context, token string) error
	ParseAccess(token string) (uuid.UUID, error)
}

// FamilyServiceInterface defines the contract for family membership operations.
type FamilyServiceInterface interface {
	FamilyOf(ctx context.Context, userID uuid.UUID) (*models.FamilyWithMembers, error)
	Get(ctx context.Context, viewer *models.User, familyID uuid.UUID) (*models.FamilyWithMembers, error)
	List(ctx context.Context, viewer *models.User) ([]*models.FamilyWithMembers, error)
	Leave(ctx context.Context, actor *models.User, familyID uuid.UUID) (*models.FamilyWithMembers, error)
	RemoveMember(ctx context.Context, actor *models.User, familyID uuid.UUID, memberEmail string) (*models.FamilyWithMembers, error)
}

// InviteServiceInterface defines the contract for family invitations.
type InviteServiceInterface interface {
	Send(ctx context.Context, sender *models.User, recipientEmail string) (*models.InviteWithUsers, error)
	List(ctx context.Context, viewer *models.User) ([]*models.InviteWithUsers, error)
	Get(ctx context.Context, viewer *models.User, inviteID uuid.UUID) (*models.InviteWithUsers, error)
	Respond(ctx context.Context, actor *models.User, inviteID uuid.UUID, status string) (*models.InviteWithUsers, error)
	Cancel(ctx context.Context, actor *models.User, inviteID uuid.UUID) error
}

// MoneyServiceInterface defines the contract for family-scoped money records.
type MoneyServiceInterface interface {
	Scope(viewer *models.User, updatedSince *time.Time) (models.ListFilter, error)

	ListCategories(ctx context.Context, filter models.ListFilter) ([]*models.Category, error)
	GetCategory(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, viewer *models.User, params models.CreateCategoryParams) (*models.Category, error)
	DeleteCategory(ctx context.Context, filter models.ListFilter, id uuid.UUID) error

	ListTags(ctx context.Context, filter models.ListFilter) ([]*models.Tag, error)
	GetTag(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Tag, error)
	CreateTag(ctx context.Context, viewer *models.User, params models.CreateTagParams) (*models.Tag, error)
	DeleteTag(ctx context.Context, filter models.ListFilter, id uuid.UUID) error

	ListExpenses(ctx context.Context, filter models.ListFilter) ([]*models.Expense, error)
	GetExpense(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Expense, error)
	CreateExpense(ctx context.Context, viewer *models.User, params models.CreateExpenseParams) (*models.Expense, error)
	DeleteExpense(ctx context.Context, filter models.ListFilter, id uuid.UUID) error
}

var (
	_ UserServiceInterface   = (*UserService)(nil)
	_ AuthServiceInterface   = (*AuthService)(nil)
	_ TokenServiceInterface  = (*TokenManager)(nil)
	_ FamilyServiceInterface = (*FamilyService)(nil)
	_ InviteServiceInterface = (*InviteService)(nil)
	_ MoneyServiceInterface  = (*MoneyService)(nil)
)
