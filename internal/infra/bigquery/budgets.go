package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

const budgetsTable = "budgets"

// GetBudget fetches one budget scoped to its owner. This is the
// read-before-write check the receipt persister relies on.
func (r *Repository) GetBudget(ctx context.Context, id, owner string) (*domain.Budget, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT id, created_by, name, icon, amount
		FROM %s
		WHERE id = @id AND created_by = @owner
		LIMIT 1
	`, r.table(budgetsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "owner", Value: owner},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBudget: query read: %w", err)
	}

	var row store.BudgetRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetBudget: iterating: %w", err)
	}

	return row.Domain(), nil
}

// ListBudgets returns the owner's budgets, newest id first.
func (r *Repository) ListBudgets(ctx context.Context, owner string) ([]*domain.Budget, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT id, created_by, name, icon, amount
		FROM %s
		WHERE created_by = @owner
		ORDER BY id DESC
	`, r.table(budgetsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner", Value: owner},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: query read: %w", err)
	}

	var budgets []*domain.Budget
	for {
		var row store.BudgetRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: iterating: %w", err)
		}
		budgets = append(budgets, row.Domain())
	}

	return budgets, nil
}

func (r *Repository) InsertBudget(ctx context.Context, b *domain.Budget) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (id, created_by, name, icon, amount)
		VALUES (@id, @created_by, @name, @icon, @amount)
	`, r.table(budgetsTable)), []bigquery.QueryParameter{
		{Name: "id", Value: b.ID},
		{Name: "created_by", Value: b.CreatedBy},
		{Name: "name", Value: b.Name},
		{Name: "icon", Value: b.Icon},
		{Name: "amount", Value: b.Amount},
	})
	if err != nil {
		return fmt.Errorf("InsertBudget: %w", err)
	}
	return nil
}

// DeleteBudget removes the budget and cascades to its expenses. The expense
// delete runs first so a failure never leaves orphaned expense rows behind
// a missing budget.
func (r *Repository) DeleteBudget(ctx context.Context, id, owner string) error {
	if _, err := r.GetBudget(ctx, id, owner); err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE budget_id = @id
	`, r.table(expensesTable)), []bigquery.QueryParameter{
		{Name: "id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteBudget: cascading expenses: %w", err)
	}

	err = r.runDML(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id = @id AND created_by = @owner
	`, r.table(budgetsTable)), []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "owner", Value: owner},
	})
	if err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	return nil
}

var _ store.BudgetRepository = (*Repository)(nil)
