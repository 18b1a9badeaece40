package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

// Snapshot is the JSON document stored in users.preferences. It is
// rebuilt wholesale on every refresh rather than patched in place.
type Snapshot struct {
	Budgets     []BudgetSummary   `json:"budgets"`
	Incomes     []*domain.Income  `json:"incomes"`
	Expenses    []*domain.Expense `json:"expenses"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// BudgetSummary is a budget plus its current spend total. Totals are
// summed in decimal so repeated float addition cannot drift.
type BudgetSummary struct {
	domain.Budget
	TotalSpend string `json:"totalSpend"`
}

// Refresher rebuilds preference snapshots. Run it from the background
// runner; a refresh is bookkeeping and must never block a user request.
type Refresher struct {
	budgets  store.BudgetRepository
	incomes  store.IncomeRepository
	expenses store.ExpenseRepository
	users    store.UserRepository
	log      zerolog.Logger
}

func NewRefresher(budgets store.BudgetRepository, incomes store.IncomeRepository, expenses store.ExpenseRepository, users store.UserRepository, log zerolog.Logger) *Refresher {
	return &Refresher{budgets: budgets, incomes: incomes, expenses: expenses, users: users, log: log}
}

// Refresh assembles the owner's budgets, incomes and expenses into a
// snapshot and writes it to users.preferences.
func (r *Refresher) Refresh(ctx context.Context, ownerID string) error {
	budgets, err := r.budgets.ListBudgets(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("Refresh: list budgets: %w", err)
	}
	incomes, err := r.incomes.ListIncomes(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("Refresh: list incomes: %w", err)
	}
	expenses, err := r.expenses.ListExpensesForOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("Refresh: list expenses: %w", err)
	}

	snapshot := Snapshot{
		Budgets:     summarize(budgets, expenses),
		Incomes:     incomes,
		Expenses:    expenses,
		LastUpdated: time.Now().UTC(),
	}
	if snapshot.Incomes == nil {
		snapshot.Incomes = []*domain.Income{}
	}
	if snapshot.Expenses == nil {
		snapshot.Expenses = []*domain.Expense{}
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("Refresh: marshal snapshot: %w", err)
	}
	if err := r.users.UpdatePreferences(ctx, ownerID, string(raw)); err != nil {
		return fmt.Errorf("Refresh: update preferences: %w", err)
	}

	r.log.Debug().Str("user_id", ownerID).Int("budgets", len(budgets)).Int("expenses", len(expenses)).Msg("Preferences snapshot refreshed")
	return nil
}

func summarize(budgets []*domain.Budget, expenses []*domain.Expense) []BudgetSummary {
	totals := make(map[string]decimal.Decimal, len(budgets))
	for _, e := range expenses {
		totals[e.BudgetID] = totals[e.BudgetID].Add(decimal.NewFromFloat(e.Amount))
	}

	summaries := make([]BudgetSummary, 0, len(budgets))
	for _, b := range budgets {
		summaries = append(summaries, BudgetSummary{
			Budget:     *b,
			TotalSpend: totals[b.ID].StringFixed(2),
		})
	}
	return summaries
}
