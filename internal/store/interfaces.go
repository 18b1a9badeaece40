package store

import (
	"context"
	"errors"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row. Callers classify
// with errors.Is rather than inspecting transport errors.
var ErrNotFound = errors.New("store: not found")

// BudgetRepository provides access to the budgets table. Mutations are
// owner-scoped: a caller can only touch budgets it created.
type BudgetRepository interface {
	// GetBudget fetches a budget visible to owner. Returns ErrNotFound if
	// the budget does not exist or belongs to someone else.
	GetBudget(ctx context.Context, id, owner string) (*domain.Budget, error)
	ListBudgets(ctx context.Context, owner string) ([]*domain.Budget, error)
	InsertBudget(ctx context.Context, b *domain.Budget) error
	// DeleteBudget removes the budget and cascades to its expenses.
	DeleteBudget(ctx context.Context, id, owner string) error
}

// ExpenseRepository provides access to the expenses table. Expenses are
// inserted or deleted, never updated.
type ExpenseRepository interface {
	// InsertExpenses writes the batch through the store's atomic multi-row
	// insert: either all rows commit or the batch fails as a unit.
	InsertExpenses(ctx context.Context, expenses []*domain.Expense) error
	ListExpensesByBudget(ctx context.Context, budgetID string) ([]*domain.Expense, error)
	// ListExpensesForOwner returns every expense across the owner's budgets.
	ListExpensesForOwner(ctx context.Context, owner string) ([]*domain.Expense, error)
	// DeleteExpense removes the expense only when it sits in one of the
	// owner's budgets. Returns ErrNotFound otherwise.
	DeleteExpense(ctx context.Context, id, owner string) error
}

// IncomeRepository provides pass-through access to the incomes table.
type IncomeRepository interface {
	ListIncomes(ctx context.Context, owner string) ([]*domain.Income, error)
	InsertIncome(ctx context.Context, in *domain.Income) error
}

// UserRepository provides access to the lazily provisioned users table.
type UserRepository interface {
	// GetUser returns ErrNotFound when the identity has never interacted
	// with the assistant.
	GetUser(ctx context.Context, id string) (*domain.User, error)
	InsertUser(ctx context.Context, u *domain.User) error
	UpdatePreferences(ctx context.Context, id, preferences string) error
}

// ChatRepository provides access to the chat_history table.
type ChatRepository interface {
	// RecentTurns returns up to limit turns for the user, newest first.
	RecentTurns(ctx context.Context, userID string, limit int) ([]*domain.ChatTurn, error)
	InsertTurn(ctx context.Context, turn *domain.ChatTurn) error
	// PruneTurns deletes everything older than the user's keep newest turns
	// in a single bounded statement and reports how many rows went away.
	PruneTurns(ctx context.Context, userID string, keep int) (int64, error)
}
