package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Timestamps is shared by every family-owned money record. DeletedAt marks a
// soft delete.
type Timestamps struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

type Category struct {
	ID       uuid.UUID       `json:"id"`
	FamilyID uuid.UUID       `json:"family"`
	Title    string          `json:"title"`
	Color    string          `json:"color"`
	Icon     string          `json:"icon"`
	Limit    decimal.Decimal `json:"limit"`
	Timestamps
}

type Tag struct {
	ID         uuid.UUID `json:"id"`
	FamilyID   uuid.UUID `json:"family"`
	Title      string    `json:"title"`
	Color      string    `json:"color"`
	CategoryID uuid.UUID `json:"category"`
	Timestamps
}

type Expense struct {
	ID         uuid.UUID       `json:"id"`
	FamilyID   uuid.UUID       `json:"family"`
	CategoryID uuid.UUID       `json:"category"`
	TagID      *uuid.UUID      `json:"tag"`
	Amount     decimal.Decimal `json:"amount"`
	DateTime   time.Time       `json:"date_time"`
	Timestamps
}

type CreateCategoryParams struct {
	Title string          `json:"title"`
	Color string          `json:"color"`
	Icon  string          `json:"icon"`
	Limit decimal.Decimal `json:"limit"`
}

type CreateTagParams struct {
	Title      string    `json:"title"`
	Color      string    `json:"color"`
	CategoryID uuid.UUID `json:"category"`
}

type CreateExpenseParams struct {
	CategoryID uuid.UUID       `json:"category"`
	TagID      *uuid.UUID      `json:"tag"`
	Amount     decimal.Decimal `json:"amount"`
}

// ListFilter scopes a money listing. A nil FamilyID means all families.
type ListFilter struct {
	FamilyID     *uuid.UUID
	UpdatedSince *time.Time
}
