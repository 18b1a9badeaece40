package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

const incomesTable = "incomes"

func (r *Repository) ListIncomes(ctx context.Context, owner string) ([]*domain.Income, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT id, created_by, name, amount
		FROM %s
		WHERE created_by = @owner
		ORDER BY id DESC
	`, r.table(incomesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner", Value: owner},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListIncomes: query read: %w", err)
	}

	var incomes []*domain.Income
	for {
		var row store.IncomeRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListIncomes: iterating: %w", err)
		}
		incomes = append(incomes, row.Domain())
	}

	return incomes, nil
}

func (r *Repository) InsertIncome(ctx context.Context, in *domain.Income) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (id, created_by, name, amount)
		VALUES (@id, @created_by, @name, @amount)
	`, r.table(incomesTable)), []bigquery.QueryParameter{
		{Name: "id", Value: in.ID},
		{Name: "created_by", Value: in.CreatedBy},
		{Name: "name", Value: in.Name},
		{Name: "amount", Value: in.Amount},
	})
	if err != nil {
		return fmt.Errorf("InsertIncome: %w", err)
	}
	return nil
}

var _ store.IncomeRepository = (*Repository)(nil)
