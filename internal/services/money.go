package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

// resourceTable describes a family-owned, soft-deletable table.
type resourceTable[T any] struct {
	name    string
	columns string
	scan    func(Row) (*T, error)
	// onDelete runs in the same transaction after the row is soft deleted.
	onDelete func(ctx context.Context, q Querier, id uuid.UUID) error
}

// ResourceStore implements family scoping and soft delete for one table.
// A nil family id in any call means "every family" and is only used for
// staff.
type ResourceStore[T any] struct {
	db    DB
	table resourceTable[T]
}

func newResourceStore[T any](db DB, table resourceTable[T]) *ResourceStore[T] {
	return &ResourceStore[T]{db: db, table: table}
}

// List returns live rows. With UpdatedSince set it returns every row touched
// since then, soft-deleted ones included, so sync clients see deletions.
func (s *ResourceStore[T]) List(ctx context.Context, filter models.ListFilter) ([]*T, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+s.table.columns+` FROM `+s.table.name+`
		 WHERE ($1::uuid IS NULL OR family_id = $1)
		   AND ($2::timestamptz IS NULL OR updated_at >= $2)
		   AND ($2::timestamptz IS NOT NULL OR deleted_at IS NULL)
		 ORDER BY created_at`,
		filter.FamilyID, filter.UpdatedSince,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.table.name, err)
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		item, err := s.table.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s.table.name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.table.name, err)
	}
	return items, nil
}

func (s *ResourceStore[T]) Get(ctx context.Context, familyID *uuid.UUID, id uuid.UUID) (*T, error) {
	item, err := s.table.scan(s.db.QueryRow(ctx,
		`SELECT `+s.table.columns+` FROM `+s.table.name+`
		 WHERE id = $1 AND ($2::uuid IS NULL OR family_id = $2) AND deleted_at IS NULL`,
		id, familyID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", s.table.name, err)
	}
	return item, nil
}

// Delete soft deletes a row and runs the table's cascade in one transaction.
func (s *ResourceStore[T]) Delete(ctx context.Context, familyID *uuid.UUID, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete %s transaction: %w", s.table.name, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	result, err := tx.Exec(ctx,
		`UPDATE `+s.table.name+`
		 SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND ($2::uuid IS NULL OR family_id = $2) AND deleted_at IS NULL`,
		id, familyID,
	)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", s.table.name, err)
	}
	if result.RowsAffected() == 0 {
		return ErrResourceNotFound
	}

	if s.table.onDelete != nil {
		if err := s.table.onDelete(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete %s: %w", s.table.name, err)
	}
	committed = true
	return nil
}

func scanCategory(row Row) (*models.Category, error) {
	c := &models.Category{}
	err := row.Scan(&c.ID, &c.FamilyID, &c.Title, &c.Color, &c.Icon, &c.Limit, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanTag(row Row) (*models.Tag, error) {
	t := &models.Tag{}
	err := row.Scan(&t.ID, &t.FamilyID, &t.Title, &t.Color, &t.CategoryID, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanExpense(row Row) (*models.Expense, error) {
	e := &models.Expense{}
	err := row.Scan(&e.ID, &e.FamilyID, &e.CategoryID, &e.TagID, &e.Amount, &e.DateTime, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

const (
	categoryColumns = `id, family_id, title, color, icon, limit_amount, created_at, updated_at, deleted_at`
	tagColumns      = `id, family_id, title, color, category_id, created_at, updated_at, deleted_at`
	expenseColumns  = `id, family_id, category_id, tag_id, amount, date_time, created_at, updated_at, deleted_at`
)

// MoneyService owns categories, tags and expenses. Every record belongs to
// the family of the user that created it.
type MoneyService struct {
	db         DB
	Categories *ResourceStore[models.Category]
	Tags       *ResourceStore[models.Tag]
	Expenses   *ResourceStore[models.Expense]
}

func NewMoneyService(db DB) *MoneyService {
	return &MoneyService{
		db: db,
		Categories: newResourceStore(db, resourceTable[models.Category]{
			name:     "categories",
			columns:  categoryColumns,
			scan:     scanCategory,
			onDelete: cascadeCategoryDelete,
		}),
		Tags: newResourceStore(db, resourceTable[models.Tag]{
			name:     "tags",
			columns:  tagColumns,
			scan:     scanTag,
			onDelete: detachTag,
		}),
		Expenses: newResourceStore(db, resourceTable[models.Expense]{
			name:    "expenses",
			columns: expenseColumns,
			scan:    scanExpense,
		}),
	}
}

func cascadeCategoryDelete(ctx context.Context, q Querier, id uuid.UUID) error {
	if _, err := q.Exec(ctx,
		`UPDATE tags SET deleted_at = NOW(), updated_at = NOW()
		 WHERE category_id = $1 AND deleted_at IS NULL`,
		id,
	); err != nil {
		return fmt.Errorf("deleting category tags: %w", err)
	}
	if _, err := q.Exec(ctx,
		`UPDATE expenses SET deleted_at = NOW(), updated_at = NOW()
		 WHERE category_id = $1 AND deleted_at IS NULL`,
		id,
	); err != nil {
		return fmt.Errorf("deleting category expenses: %w", err)
	}
	return nil
}

func detachTag(ctx context.Context, q Querier, id uuid.UUID) error {
	if _, err := q.Exec(ctx,
		`UPDATE expenses SET tag_id = NULL, updated_at = NOW() WHERE tag_id = $1`,
		id,
	); err != nil {
		return fmt.Errorf("detaching tag from expenses: %w", err)
	}
	return nil
}

// Scope returns the listing filter for viewer. Staff see every family.
func (s *MoneyService) Scope(viewer *models.User, updatedSince *time.Time) (models.ListFilter, error) {
	filter := models.ListFilter{UpdatedSince: updatedSince}
	if viewer.IsStaff {
		return filter, nil
	}
	if viewer.FamilyID == nil {
		return filter, ErrFamilyNotFound
	}
	filter.FamilyID = viewer.FamilyID
	return filter, nil
}

func (s *MoneyService) ownerFamily(viewer *models.User) (uuid.UUID, error) {
	if viewer.FamilyID == nil {
		return uuid.Nil, ErrFamilyNotFound
	}
	return *viewer.FamilyID, nil
}

func (s *MoneyService) CreateCategory(ctx context.Context, viewer *models.User, params models.CreateCategoryParams) (*models.Category, error) {
	familyID, err := s.ownerFamily(viewer)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, newError(ErrFieldRequired, "title", "This field may not be blank.")
	}

	category, err := scanCategory(s.db.QueryRow(ctx,
		`INSERT INTO categories (family_id, title, color, icon, limit_amount)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+categoryColumns,
		familyID, title, params.Color, params.Icon, params.Limit,
	))
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return category, nil
}

func (s *MoneyService) CreateTag(ctx context.Context, viewer *models.User, params models.CreateTagParams) (*models.Tag, error) {
	familyID, err := s.ownerFamily(viewer)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, newError(ErrFieldRequired, "title", "This field may not be blank.")
	}
	if err := s.requireOwned(ctx, "categories", "category", familyID, params.CategoryID); err != nil {
		return nil, err
	}

	tag, err := scanTag(s.db.QueryRow(ctx,
		`INSERT INTO tags (family_id, title, color, category_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+tagColumns,
		familyID, title, params.Color, params.CategoryID,
	))
	if err != nil {
		return nil, fmt.Errorf("creating tag: %w", err)
	}
	return tag, nil
}

func (s *MoneyService) CreateExpense(ctx context.Context, viewer *models.User, params models.CreateExpenseParams) (*models.Expense, error) {
	familyID, err := s.ownerFamily(viewer)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwned(ctx, "categories", "category", familyID, params.CategoryID); err != nil {
		return nil, err
	}
	if params.TagID != nil {
		if err := s.requireOwned(ctx, "tags", "tag", familyID, *params.TagID); err != nil {
			return nil, err
		}
	}

	expense, err := scanExpense(s.db.QueryRow(ctx,
		`INSERT INTO expenses (family_id, category_id, tag_id, amount)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+expenseColumns,
		familyID, params.CategoryID, params.TagID, params.Amount,
	))
	if err != nil {
		return nil, fmt.Errorf("creating expense: %w", err)
	}
	return expense, nil
}

// requireOwned checks that id is a live row of table in familyID.
func (s *MoneyService) requireOwned(ctx context.Context, table, field string, familyID, id uuid.UUID) error {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1 AND family_id = $2 AND deleted_at IS NULL)`,
		id, familyID,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("checking %s: %w", field, err)
	}
	if !ok {
		return newError(ErrInvalidReference, field, "Invalid pk %q - object does not exist.", id.String())
	}
	return nil
}

func (s *MoneyService) ListCategories(ctx context.Context, filter models.ListFilter) ([]*models.Category, error) {
	return s.Categories.List(ctx, filter)
}

func (s *MoneyService) GetCategory(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Category, error) {
	return s.Categories.Get(ctx, filter.FamilyID, id)
}

func (s *MoneyService) DeleteCategory(ctx context.Context, filter models.ListFilter, id uuid.UUID) error {
	return s.Categories.Delete(ctx, filter.FamilyID, id)
}

func (s *MoneyService) ListTags(ctx context.Context, filter models.ListFilter) ([]*models.Tag, error) {
	return s.Tags.List(ctx, filter)
}

func (s *MoneyService) GetTag(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Tag, error) {
	return s.Tags.Get(ctx, filter.FamilyID, id)
}

func (s *MoneyService) DeleteTag(ctx context.Context, filter models.ListFilter, id uuid.UUID) error {
	return s.Tags.Delete(ctx, filter.FamilyID, id)
}

func (s *MoneyService) ListExpenses(ctx context.Context, filter models.ListFilter) ([]*models.Expense, error) {
	return s.Expenses.List(ctx, filter)
}

func (s *MoneyService) GetExpense(ctx context.Context, filter models.ListFilter, id uuid.UUID) (*models.Expense, error) {
	return s.Expenses.Get(ctx, filter.FamilyID, id)
}

func (s *MoneyService) DeleteExpense(ctx context.Context, filter models.ListFilter, id uuid.UUID) error {
	return s.Expenses.Delete(ctx, filter.FamilyID, id)
}
