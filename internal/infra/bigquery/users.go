package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

const usersTable = "users"

func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT id, email, name, preferences
		FROM %s
		WHERE id = @id
		LIMIT 1
	`, r.table(usersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetUser: query read: %w", err)
	}

	var row store.UserRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUser: iterating: %w", err)
	}

	return row.Domain(), nil
}

func (r *Repository) InsertUser(ctx context.Context, u *domain.User) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (id, email, name, preferences)
		VALUES (@id, @email, @name, @preferences)
	`, r.table(usersTable)), []bigquery.QueryParameter{
		{Name: "id", Value: u.ID},
		{Name: "email", Value: u.Email},
		{Name: "name", Value: u.Name},
		{Name: "preferences", Value: u.Preferences},
	})
	if err != nil {
		return fmt.Errorf("InsertUser: %w", err)
	}
	return nil
}

// UpdatePreferences replaces the preferences blob wholesale, matching how
// the snapshot is produced.
func (r *Repository) UpdatePreferences(ctx context.Context, id, preferences string) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET preferences = @preferences
		WHERE id = @id
	`, r.table(usersTable)), []bigquery.QueryParameter{
		{Name: "preferences", Value: preferences},
		{Name: "id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("UpdatePreferences: %w", err)
	}
	return nil
}

var _ store.UserRepository = (*Repository)(nil)
