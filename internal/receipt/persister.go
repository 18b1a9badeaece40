package receipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

// Persister validates the target budget and writes extracted line items as
// expense rows in one batch.
type Persister struct {
	budgets  store.BudgetRepository
	expenses store.ExpenseRepository
	log      zerolog.Logger
}

func NewPersister(budgets store.BudgetRepository, expenses store.ExpenseRepository, log zerolog.Logger) *Persister {
	return &Persister{budgets: budgets, expenses: expenses, log: log}
}

// Persist confirms the budget exists for the caller (read before write),
// attaches it to every line item, and inserts the whole batch atomically.
// Returns the persisted rows with their generated identifiers.
func (p *Persister) Persist(ctx context.Context, owner, budgetID string, items []domain.LineItem) ([]*domain.Expense, error) {
	_, err := p.budgets.GetBudget(ctx, budgetID, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBudget, budgetID)
	}
	if err != nil {
		return nil, fmt.Errorf("Persist: checking budget: %w", err)
	}

	expenses := make([]*domain.Expense, 0, len(items))
	for _, item := range items {
		expenses = append(expenses, &domain.Expense{
			ID:        uuid.NewString(),
			Name:      item.Name,
			Amount:    item.Amount,
			CreatedAt: item.CreatedAt,
			BudgetID:  budgetID,
		})
	}

	if err := p.expenses.InsertExpenses(ctx, expenses); err != nil {
		return nil, fmt.Errorf("Persist: inserting batch: %w", err)
	}

	p.log.Info().
		Str("budget_id", budgetID).
		Int("count", len(expenses)).
		Msg("Receipt expenses persisted")

	return expenses, nil
}
