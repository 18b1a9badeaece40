package receipt

import (
	"context"
	"errors"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

// fakeGenerator returns a canned model response and counts invocations.
type fakeGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeBudgetRepo serves budgets from a map keyed by id.
type fakeBudgetRepo struct {
	budgets map[string]*domain.Budget
	err     error
}

func (f *fakeBudgetRepo) GetBudget(ctx context.Context, id, owner string) (*domain.Budget, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.budgets[id]
	if !ok || b.CreatedBy != owner {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeBudgetRepo) ListBudgets(ctx context.Context, owner string) ([]*domain.Budget, error) {
	var out []*domain.Budget
	for _, b := range f.budgets {
		if b.CreatedBy == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBudgetRepo) InsertBudget(ctx context.Context, b *domain.Budget) error {
	f.budgets[b.ID] = b
	return nil
}

func (f *fakeBudgetRepo) DeleteBudget(ctx context.Context, id, owner string) error {
	delete(f.budgets, id)
	return nil
}

// fakeExpenseRepo records inserted batches.
type fakeExpenseRepo struct {
	inserted  []*domain.Expense
	batches   int
	insertErr error
}

func (f *fakeExpenseRepo) InsertExpenses(ctx context.Context, expenses []*domain.Expense) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.batches++
	f.inserted = append(f.inserted, expenses...)
	return nil
}

func (f *fakeExpenseRepo) ListExpensesByBudget(ctx context.Context, budgetID string) ([]*domain.Expense, error) {
	var out []*domain.Expense
	for _, e := range f.inserted {
		if e.BudgetID == budgetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExpenseRepo) ListExpensesForOwner(ctx context.Context, owner string) ([]*domain.Expense, error) {
	return f.inserted, nil
}

func (f *fakeExpenseRepo) DeleteExpense(ctx context.Context, id, owner string) error {
	return nil
}

var errTransport = errors.New("store unreachable")
