package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

type mockUserService struct {
	CreateFunc     func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc    func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	UpdateFunc     func(ctx context.Context, id uuid.UUID, params models.UpdateUserParams) (*models.User, error)
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserService) Update(ctx context.Context, id uuid.UUID, params models.UpdateUserParams) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, params)
	}
	return nil, nil
}

type mockAuthService struct {
	HashPasswordFunc   func(password string) (string, error)
	VerifyPasswordFunc func(hash, password string) bool
	AuthenticateFunc   func(ctx context.Context, email, password string) (*models.User, error)
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hash:" + password, nil
}

func (m *mockAuthService) VerifyPassword(hash, password string) bool {
	if m.VerifyPasswordFunc != nil {
		return m.VerifyPasswordFunc(hash, password)
	}
	return false
}

func (m *mockAuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, email, password)
	}
	return nil, nil
}

type mockTokenService struct {
	IssuePairFunc   func(userID uuid.UUID) (*models.TokenPair, error)
	RefreshFunc     func(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	VerifyFunc      func(ctx context.Context, token string) error
	ParseAccessFunc func(token string) (uuid.UUID, error)
}

func (m *mockTokenService) IssuePair(userID uuid.UUID) (*models.TokenPair, error) {
	if m.IssuePairFunc != nil {
		return m.IssuePairFunc(userID)
	}
	return nil, nil
}

func (m *mockTokenService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, nil
}

func (m *mockTokenService) Verify(ctx context.Context, token string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	return nil
}

func (m *mockTokenService) ParseAccess(token string) (uuid.UUID, error) {
	if m.ParseAccessFunc != nil {
		return m.ParseAccessFunc(token)
	}
	return uuid.Nil, nil
}

type mockFamilyService struct {
	FamilyOfFunc     func(ctx context.Context, userID uuid.UUID) (*models.FamilyWithMembers, error)
	GetFunc          func(ctx context.Context, viewer *models.User, familyID uuid.UUID) (*models.FamilyWithMembers, error)
	ListFunc         func(ctx context.Context, viewer *models.User) ([]*models.FamilyWithMembers, error)
	LeaveFunc        func(ctx context.Context, actor *models.User, familyID uuid.UUID) (*models.FamilyWithMembers, error)
	RemoveMemberFunc func(ctx context.Context, actor *models.User, familyID uuid.UUID, memberEmail string) (*models.FamilyWithMembers, error)
}

func (m *mockFamilyService) FamilyOf(ctx context.Context, userID uuid.UUID) (*models.FamilyWithMembers, error) {
	if m.FamilyOfFunc != nil {
		return m.FamilyOfFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockFamilyService) Get(ctx context.Context, viewer *models.User, familyID uuid.UUID) (*models.FamilyWithMembers, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, viewer, familyID)
	}
	return nil, nil
}

func (m *mockFamilyService) List(ctx context.Context, viewer *models.User) ([]*models.FamilyWithMembers, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, viewer)
	}
	return nil, nil
}

func (m *mockFamilyService) Leave(ctx context.Context, actor *models.User, familyID uuid.UUID) (*models.FamilyWithMembers, error) {
	if m.LeaveFunc != nil {
		return m.LeaveFunc(ctx, actor, familyID)
	}
	return nil, nil
}

func (m *mockFamilyService) RemoveMember(ctx context.Context, actor *models.User, familyID uuid.UUID, memberEmail string) (*models.FamilyWithMembers, error) {
	if m.RemoveMemberFunc != nil {
		return m.RemoveMemberFunc(ctx, actor, familyID, memberEmail)
	}
	return nil, nil
}

type mockInviteService struct {
	SendFunc    func(ctx context.Context, sender *models.User, recipientEmail string) (*models.InviteWithUsers, error)
	ListFunc    func(ctx context.Context, viewer *models.User) ([]*models.InviteWithUsers, error)
	GetFunc     func(ctx context.Context, viewer *models.User, inviteID uuid.UUID) (*models.InviteWithUsers, error)
	RespondFunc func(ctx context.Context, actor *models.User, inviteID uuid.UUID, status string) (*models.InviteWithUsers, error)
	CancelFunc  func(ctx context.Context, actor *models.User, inviteID uuid.UUID) error
}

func (m *mockInviteService) Send(ctx context.Context, sender *models.User, recipientEmail string) (*models.InviteWithUsers, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, sender, recipientEmail)
	}
	return nil, nil
}

func (m *mockInviteService) List(ctx context.Context, viewer *models.User) ([]*models.InviteWithUsers, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, viewer)
	}
	return nil, nil
}

func (m *mockInviteService) Get(ctx context.Context, viewer *models.User, inviteID uuid.UUID) (*models.InviteWithUsers, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, viewer, inviteID)
	}
	return nil, nil
}

func (m *mockInviteService) Respond(ctx context.Context, actor *models.User, inviteID uuid.UUID, status string) (*models.InviteWithUsers, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, actor, inviteID, status)
	}
	return nil, nil
}

func (m *mockInviteService) Cancel(ctx context.Context, actor *models.User, inviteID uuid.UUID) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, actor, inviteID)
	}
	return nil
}

// mockMoneyService only stubs what the handler tests exercise; the rest
// return empty values.
type mockMoneyService struct {
	ScopeFunc          func(viewer *models.User, updatedSince *time.Time) (models.ListFilter, error)
	ListCategoriesFunc func(ctx context.Context, filter models.ListFilter) ([]*models.Category, error)
	GetCategoryFunc    func(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Category, error)
	CreateCategoryFunc func(ctx context.Context, viewer *models.User, params models.CreateCategoryParams) (*models.Category, error)
	DeleteCategoryFunc func(ctx context.Context, filter models.ListFilter, id uuid.UUID) error
	CreateExpenseFunc  func(ctx context.Context, viewer *models.User, params models.CreateExpenseParams) (*models.Expense, error)
}

func (m *mockMoneyService) Scope(viewer *models.User, updatedSince *time.Time) (models.ListFilter, error) {
	if m.ScopeFunc != nil {
		return m.ScopeFunc(viewer, updatedSince)
	}
	return models.ListFilter{FamilyID: viewer.FamilyID, UpdatedSince: updatedSince}, nil
}

func (m *mockMoneyService) ListCategories(ctx context.Context, filter models.ListFilter) ([]*models.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, filter)
	}
	return []*models.Category{}, nil
}

func (m *mockMoneyService) GetCategory(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Category, error) {
	if m.GetCategoryFunc != nil {
		return m.GetCategoryFunc(ctx, filter, id)
	}
	return &models.Category{ID: id}, nil
}

func (m *mockMoneyService) CreateCategory(ctx context.Context, viewer *models.User, params models.CreateCategoryParams) (*models.Category, error) {
	if m.CreateCategoryFunc != nil {
		return m.CreateCategoryFunc(ctx, viewer, params)
	}
	return &models.Category{}, nil
}

func (m *mockMoneyService) DeleteCategory(ctx context.Context, filter models.ListFilter, id uuid.UUID) error {
	if m.DeleteCategoryFunc != nil {
		return m.DeleteCategoryFunc(ctx, filter, id)
	}
	return nil
}

func (m *mockMoneyService) ListTags(ctx context.Context, filter models.ListFilter) ([]*models.Tag, error) {
	return []*models.Tag{}, nil
}

func (m *mockMoneyService) GetTag(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Tag, error) {
	return &models.Tag{ID: id}, nil
}

func (m *mockMoneyService) CreateTag(ctx context.Context, viewer *models.User, params models.CreateTagParams) (*models.Tag, error) {
	return &models.Tag{}, nil
}

func (m *mockMoneyService) DeleteTag(ctx context.Context, filter models.ListFilter, id uuid.UUID) error {
	return nil
}

func (m *mockMoneyService) ListExpenses(ctx context.Context, filter models.ListFilter) ([]*models.Expense, error) {
	return []*models.Expense{}, nil
}

func (m *mockMoneyService) GetExpense(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Expense, error) {
	return &models.Expense{ID: id}, nil
}

func (m *mockMoneyService) CreateExpense(ctx context.Context, viewer *models.User, params models.CreateExpenseParams) (*models.Expense, error) {
	if m.CreateExpenseFunc != nil {
		return m.CreateExpenseFunc(ctx, viewer, params)
	}
	return &models.Expense{}, nil
}

func (m *mockMoneyService) DeleteExpense(ctx context.Context, filter models.ListFilter, id uuid.UUID) error {
	return nil
}
