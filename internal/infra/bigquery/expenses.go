package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

const expensesTable = "expenses"

// InsertExpenses writes the batch through the table inserter in one request,
// so the receipt pipeline gets all-or-nothing semantics without looping over
// rows.
func (r *Repository) InsertExpenses(ctx context.Context, expenses []*domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	rows := make([]*store.ExpenseRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, &store.ExpenseRow{
			ID:        e.ID,
			Name:      e.Name,
			Amount:    e.Amount,
			CreatedAt: e.CreatedAt,
			BudgetID:  e.BudgetID,
		})
	}

	inserter := r.client.Dataset(r.dataset).Table(expensesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertExpenses: inserting rows: %w", err)
	}

	return nil
}

func (r *Repository) ListExpensesByBudget(ctx context.Context, budgetID string) ([]*domain.Expense, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT id, name, amount, created_at, budget_id
		FROM %s
		WHERE budget_id = @budget_id
		ORDER BY created_at DESC
	`, r.table(expensesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "budget_id", Value: budgetID},
	}

	return r.readExpenses(ctx, q, "ListExpensesByBudget")
}

// ListExpensesForOwner joins through budgets so the preferences snapshot can
// collect every expense the user owns in one read.
func (r *Repository) ListExpensesForOwner(ctx context.Context, owner string) ([]*domain.Expense, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT e.id, e.name, e.amount, e.created_at, e.budget_id
		FROM %s e
		INNER JOIN %s b ON e.budget_id = b.id
		WHERE b.created_by = @owner
		ORDER BY e.created_at DESC
	`, r.table(expensesTable), r.table(budgetsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner", Value: owner},
	}

	return r.readExpenses(ctx, q, "ListExpensesForOwner")
}

func (r *Repository) readExpenses(ctx context.Context, q *bigquery.Query, op string) ([]*domain.Expense, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var expenses []*domain.Expense
	for {
		var row store.ExpenseRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iterating: %w", op, err)
		}
		expenses = append(expenses, row.Domain())
	}

	return expenses, nil
}

// DeleteExpense removes one expense, scoped through the owning budget so a
// caller can never delete rows behind someone else's budget.
func (r *Repository) DeleteExpense(ctx context.Context, id, owner string) error {
	q := r.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = @id
		AND budget_id IN (
			SELECT id FROM %s WHERE created_by = @owner
		)
	`, r.table(expensesTable), r.table(budgetsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "owner", Value: owner},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("DeleteExpense: running delete: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("DeleteExpense: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("DeleteExpense: job error: %w", err)
	}

	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok && qs.NumDMLAffectedRows == 0 {
		return fmt.Errorf("DeleteExpense: %w", store.ErrNotFound)
	}
	return nil
}

var _ store.ExpenseRepository = (*Repository)(nil)
