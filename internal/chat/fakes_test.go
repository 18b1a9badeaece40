package chat

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	inserts int

	getErr    error
	insertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) InsertUser(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.users[u.ID]; ok {
		return errors.New("duplicate key")
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) UpdatePreferences(ctx context.Context, id, preferences string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Preferences = preferences
	return nil
}

type fakeChatRepo struct {
	mu     sync.Mutex
	turns  []*domain.ChatTurn
	prunes int

	recentErr error
	insertErr error
	pruneErr  error
}

func (f *fakeChatRepo) RecentTurns(ctx context.Context, userID string, limit int) ([]*domain.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	byUser := f.userTurnsLocked(userID)
	if len(byUser) > limit {
		byUser = byUser[:limit]
	}
	return byUser, nil
}

func (f *fakeChatRepo) InsertTurn(ctx context.Context, turn *domain.ChatTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *turn
	f.turns = append(f.turns, &cp)
	return nil
}

func (f *fakeChatRepo) PruneTurns(ctx context.Context, userID string, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prunes++
	if f.pruneErr != nil {
		return 0, f.pruneErr
	}
	byUser := f.userTurnsLocked(userID)
	if len(byUser) <= keep {
		return 0, nil
	}
	doomed := map[string]bool{}
	for _, t := range byUser[keep:] {
		doomed[t.ID] = true
	}
	var kept []*domain.ChatTurn
	for _, t := range f.turns {
		if !doomed[t.ID] {
			kept = append(kept, t)
		}
	}
	deleted := int64(len(f.turns) - len(kept))
	f.turns = kept
	return deleted, nil
}

// userTurnsLocked returns copies of the user's turns, newest first.
func (f *fakeChatRepo) userTurnsLocked(userID string) []*domain.ChatTurn {
	var byUser []*domain.ChatTurn
	for _, t := range f.turns {
		if t.UserID == userID {
			cp := *t
			byUser = append(byUser, &cp)
		}
	}
	// Matches the store's prune ordering: timestamp ties break on id.
	sort.Slice(byUser, func(i, j int) bool {
		if byUser[i].Timestamp.Equal(byUser[j].Timestamp) {
			return byUser[i].ID > byUser[j].ID
		}
		return byUser[i].Timestamp.After(byUser[j].Timestamp)
	})
	return byUser
}

func (f *fakeChatRepo) count(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.userTurnsLocked(userID))
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	response string
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ store.UserRepository = (*fakeUserRepo)(nil)
var _ store.ChatRepository = (*fakeChatRepo)(nil)
