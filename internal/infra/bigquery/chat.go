package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

const chatHistoryTable = "chat_history"

// RecentTurns returns up to limit turns for one user, newest first. Cross-user
// reads are impossible by construction: user_id is always bound.
func (r *Repository) RecentTurns(ctx context.Context, userID string, limit int) ([]*domain.ChatTurn, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT id, user_id, message, response, timestamp
		FROM %s
		WHERE user_id = @user_id
		ORDER BY timestamp DESC
		LIMIT @limit
	`, r.table(chatHistoryTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("RecentTurns: query read: %w", err)
	}

	var turns []*domain.ChatTurn
	for {
		var row store.ChatTurnRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("RecentTurns: iterating: %w", err)
		}
		turns = append(turns, row.Domain())
	}

	return turns, nil
}

func (r *Repository) InsertTurn(ctx context.Context, turn *domain.ChatTurn) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (id, user_id, message, response, timestamp)
		VALUES (@id, @user_id, @message, @response, @timestamp)
	`, r.table(chatHistoryTable)), []bigquery.QueryParameter{
		{Name: "id", Value: turn.ID},
		{Name: "user_id", Value: turn.UserID},
		{Name: "message", Value: turn.Message},
		{Name: "response", Value: turn.Response},
		{Name: "timestamp", Value: turn.Timestamp},
	})
	if err != nil {
		return fmt.Errorf("InsertTurn: %w", err)
	}
	return nil
}

// PruneTurns keeps the newest keep turns and deletes the rest in one bounded
// statement. Ordering ties on timestamp with id so equal-timestamp turns
// cannot all survive and leave the history over its cap. The kept set is
// computed in-database under LIMIT @keep; no id list is built
// application-side, so the statement stays the same size no matter how far
// behind pruning has fallen.
func (r *Repository) PruneTurns(ctx context.Context, userID string, keep int) (int64, error) {
	q := r.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		AND id NOT IN (
			SELECT id
			FROM %s
			WHERE user_id = @user_id
			ORDER BY timestamp DESC, id DESC
			LIMIT @keep
		)
	`, r.table(chatHistoryTable), r.table(chatHistoryTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "keep", Value: int64(keep)},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("PruneTurns: running delete: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("PruneTurns: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("PruneTurns: job error: %w", err)
	}

	var deleted int64
	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		deleted = qs.NumDMLAffectedRows
	}

	return deleted, nil
}

var _ store.ChatRepository = (*Repository)(nil)
