package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/tasks"
)

// Memory maintains the bounded per-user conversation log used as model
// context. Reads are capped at domain.HistoryLimit turns; writes schedule
// a detached prune so the cap holds eventually without blocking the
// request that wrote the turn.
type Memory struct {
	users  store.UserRepository
	turns  store.ChatRepository
	runner *tasks.Runner
	log    zerolog.Logger
	limit  int

	// onProvision runs detached bookkeeping (preferences snapshot refresh)
	// after a user record is first created. Optional.
	onProvision func(userID string)
}

func NewMemory(users store.UserRepository, turns store.ChatRepository, runner *tasks.Runner, limit int, log zerolog.Logger) *Memory {
	if limit <= 0 {
		limit = domain.HistoryLimit
	}
	return &Memory{users: users, turns: turns, runner: runner, log: log, limit: limit}
}

// OnProvision registers a hook invoked with the user id after a successful
// lazy provision. The hook must not block; wire it to the background runner.
func (m *Memory) OnProvision(fn func(userID string)) {
	m.onProvision = fn
}

// EnsureUser lazily provisions the application record behind an identity.
// It is idempotent: a duplicate-key race with a concurrent first request is
// resolved by re-checking existence instead of failing the caller.
func (m *Memory) EnsureUser(ctx context.Context, id, email, name string) (*domain.User, error) {
	user, err := m.users.GetUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("EnsureUser: check user: %w", err)
	}

	insertErr := m.users.InsertUser(ctx, &domain.User{
		ID:          id,
		Email:       email,
		Name:        name,
		Preferences: "{}",
	})
	if insertErr != nil {
		// Another request may have won the insert race. Re-check before
		// giving up.
		if user, err := m.users.GetUser(ctx, id); err == nil {
			return user, nil
		}
		return nil, fmt.Errorf("EnsureUser: insert user: %w", insertErr)
	}

	user, err = m.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("EnsureUser: fetch after insert: %w", err)
	}

	// A freshly provisioned user has an empty preferences snapshot; any
	// budgets created before first contact only show up once it is rebuilt.
	if m.onProvision != nil {
		m.onProvision(id)
	}

	return user, nil
}

// History returns up to the retention limit of turns for the user, newest
// first. A transport failure is logged and surfaced as an empty history so
// a chat request degrades to a contextless turn instead of failing.
func (m *Memory) History(ctx context.Context, userID string) []*domain.ChatTurn {
	recent, err := m.turns.RecentTurns(ctx, userID, m.limit)
	if err != nil {
		m.log.Error().Err(err).Str("user_id", userID).Msg("Chat history fetch failed")
		return nil
	}
	return recent
}

// Record inserts the turn with the current timestamp, then schedules the
// prune on the background runner. The prune is fire-and-forget: a failure
// is logged and the retention bound is restored by the next successful
// prune for this user.
func (m *Memory) Record(ctx context.Context, userID, message, response string) error {
	turn := &domain.ChatTurn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Response:  response,
		Timestamp: time.Now().UTC(),
	}
	if err := m.turns.InsertTurn(ctx, turn); err != nil {
		return fmt.Errorf("Record: insert turn: %w", err)
	}

	m.schedulePrune(userID)
	return nil
}

func (m *Memory) schedulePrune(userID string) {
	m.runner.Submit(tasks.Task{
		Name: "chat-prune",
		Run: func(ctx context.Context) error {
			deleted, err := m.turns.PruneTurns(ctx, userID, m.limit)
			if err != nil {
				return fmt.Errorf("prune turns for %s: %w", userID, err)
			}
			if deleted > 0 {
				m.log.Debug().Str("user_id", userID).Int64("deleted", deleted).Msg("Pruned old chat turns")
			}
			return nil
		},
	})
}
