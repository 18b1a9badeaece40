package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/rs/zerolog"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/api/middleware"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/auth"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/chat"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/receipt"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/tasks"
)

const testSecret = "handler-test-secret"

type staticGenerator struct {
	response string
}

func (g *staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.response, nil
}

type memStore struct {
	budgets  map[string]*domain.Budget
	expenses []*domain.Expense
	users    map[string]*domain.User
	turns    []*domain.ChatTurn
}

func newMemStore() *memStore {
	return &memStore{
		budgets: map[string]*domain.Budget{},
		users:   map[string]*domain.User{},
	}
}

func (m *memStore) GetBudget(ctx context.Context, id, owner string) (*domain.Budget, error) {
	b, ok := m.budgets[id]
	if !ok || b.CreatedBy != owner {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListBudgets(ctx context.Context, owner string) ([]*domain.Budget, error) {
	var out []*domain.Budget
	for _, b := range m.budgets {
		if b.CreatedBy == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) InsertBudget(ctx context.Context, b *domain.Budget) error {
	m.budgets[b.ID] = b
	return nil
}

func (m *memStore) DeleteBudget(ctx context.Context, id, owner string) error {
	if _, err := m.GetBudget(ctx, id, owner); err != nil {
		return err
	}
	delete(m.budgets, id)
	return nil
}

func (m *memStore) InsertExpenses(ctx context.Context, expenses []*domain.Expense) error {
	m.expenses = append(m.expenses, expenses...)
	return nil
}

func (m *memStore) ListExpensesByBudget(ctx context.Context, budgetID string) ([]*domain.Expense, error) {
	var out []*domain.Expense
	for _, e := range m.expenses {
		if e.BudgetID == budgetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListExpensesForOwner(ctx context.Context, owner string) ([]*domain.Expense, error) {
	var out []*domain.Expense
	for _, e := range m.expenses {
		if b, ok := m.budgets[e.BudgetID]; ok && b.CreatedBy == owner {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) DeleteExpense(ctx context.Context, id, owner string) error {
	for i, e := range m.expenses {
		if e.ID != id {
			continue
		}
		if b, ok := m.budgets[e.BudgetID]; !ok || b.CreatedBy != owner {
			return store.ErrNotFound
		}
		m.expenses = append(m.expenses[:i], m.expenses[i+1:]...)
		return nil
	}
	return store.ErrNotFound
}

func (m *memStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) InsertUser(ctx context.Context, u *domain.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memStore) UpdatePreferences(ctx context.Context, id, preferences string) error {
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Preferences = preferences
	return nil
}

func (m *memStore) RecentTurns(ctx context.Context, userID string, limit int) ([]*domain.ChatTurn, error) {
	var out []*domain.ChatTurn
	for _, t := range m.turns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) InsertTurn(ctx context.Context, turn *domain.ChatTurn) error {
	m.turns = append(m.turns, turn)
	return nil
}

func (m *memStore) PruneTurns(ctx context.Context, userID string, keep int) (int64, error) {
	return 0, nil
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   userID + "@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func authed(h http.HandlerFunc) http.Handler {
	return middleware.Auth(auth.NewVerifier(testSecret))(h)
}

const extractionResponse = `[
  {"name": "Mineral Bottle", "amount": 30.00, "createdAt": "2026-03-01T12:00:00Z"},
  {"name": "Chicken B.B.Q. Pizza", "amount": 499.00, "createdAt": "2026-03-01T12:00:00Z"}
]`

func newReceiptService(ms *memStore) *receipt.Service {
	extractor := receipt.NewExtractor(&staticGenerator{response: extractionResponse}, zerolog.Nop())
	persister := receipt.NewPersister(ms, ms, zerolog.Nop())
	return receipt.NewService(extractor, persister, zerolog.Nop())
}

func TestProcessReceiptEndpoint_Success(t *testing.T) {
	ms := newMemStore()
	ms.budgets["B1"] = &domain.Budget{ID: "B1", CreatedBy: "u1", Name: "Food", Amount: 1000}
	h := NewReceiptsHandler(newReceiptService(ms), nil, nil, zerolog.Nop())

	body, _ := json.Marshal(map[string]string{
		"budgetId": "B1",
		"ocrText":  "Mineral Bottle 30.00\nChicken B.B.Q. Pizza 499.00",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/receipts/process", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(h.ProcessReceipt).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result receipt.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !result.Success || len(result.Expenses) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if len(ms.expenses) != 2 {
		t.Errorf("persisted %d expenses, want 2", len(ms.expenses))
	}
}

func TestProcessReceiptEndpoint_UnknownBudget(t *testing.T) {
	ms := newMemStore()
	h := NewReceiptsHandler(newReceiptService(ms), nil, nil, zerolog.Nop())

	body, _ := json.Marshal(map[string]string{"budgetId": "nope", "ocrText": "Milk 3.10"})
	req := httptest.NewRequest(http.MethodPost, "/api/receipts/process", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(h.ProcessReceipt).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(ms.expenses) != 0 {
		t.Error("expenses persisted for an unknown budget")
	}
}

func TestProcessReceiptEndpoint_ForeignBudgetInvisible(t *testing.T) {
	ms := newMemStore()
	ms.budgets["B1"] = &domain.Budget{ID: "B1", CreatedBy: "someone-else", Name: "Food", Amount: 1000}
	h := NewReceiptsHandler(newReceiptService(ms), nil, nil, zerolog.Nop())

	body, _ := json.Marshal(map[string]string{"budgetId": "B1", "ocrText": "Milk 3.10"})
	req := httptest.NewRequest(http.MethodPost, "/api/receipts/process", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(h.ProcessReceipt).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func newChatHandler(ms *memStore) (*ChatHandler, func()) {
	runner := tasks.NewRunner(8, 1, zerolog.Nop())
	memory := chat.NewMemory(ms, ms, runner, domain.HistoryLimit, zerolog.Nop())
	service := chat.NewService(memory, &staticGenerator{response: "Here is a budget tip."}, zerolog.Nop())
	return NewChatHandler(service, zerolog.Nop()), func() { _ = runner.Stop(context.Background()) }
}

func TestChatEndpoint_Success(t *testing.T) {
	ms := newMemStore()
	h, stop := newChatHandler(ms)
	defer stop()

	body, _ := json.Marshal(map[string]string{"userId": "u1", "message": "How am I doing?"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(h.SendMessage).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Here is a budget tip.") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if len(ms.turns) != 1 {
		t.Errorf("stored turns = %d, want 1", len(ms.turns))
	}
}

func TestChatEndpoint_UserIDMismatch(t *testing.T) {
	ms := newMemStore()
	h, stop := newChatHandler(ms)
	defer stop()

	body, _ := json.Marshal(map[string]string{"userId": "someone-else", "message": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(h.SendMessage).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(ms.turns) != 0 {
		t.Error("chat row written for a mismatched caller")
	}
}

func TestChatEndpoint_MissingMessage(t *testing.T) {
	ms := newMemStore()
	h, stop := newChatHandler(ms)
	defer stop()

	body, _ := json.Marshal(map[string]string{"userId": "u1"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(h.SendMessage).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBudgetsEndpoint_CreateAndList(t *testing.T) {
	ms := newMemStore()
	notified := ""
	h := NewBudgetsHandler(ms, func(owner string) { notified = owner }, zerolog.Nop())

	body, _ := json.Marshal(map[string]interface{}{"name": "Groceries", "icon": "🛒", "amount": 500})
	req := httptest.NewRequest(http.MethodPost, "/api/budgets", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(h.CreateBudget).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if notified != "u1" {
		t.Errorf("onChange owner = %q, want u1", notified)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/budgets", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec = httptest.NewRecorder()
	authed(h.ListBudgets).ServeHTTP(rec, req)

	var budgets []*domain.Budget
	if err := json.Unmarshal(rec.Body.Bytes(), &budgets); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(budgets) != 1 || budgets[0].Name != "Groceries" {
		t.Fatalf("budgets = %+v", budgets)
	}
}

func TestExpensesEndpoint_DeleteForeignExpense(t *testing.T) {
	ms := newMemStore()
	ms.budgets["B1"] = &domain.Budget{ID: "B1", CreatedBy: "someone-else", Name: "Food"}
	ms.expenses = append(ms.expenses, &domain.Expense{ID: "E1", Name: "Milk", Amount: 3.10, BudgetID: "B1"})
	h := NewExpensesHandler(ms, ms, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodDelete, "/api/expenses/E1", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(func(w http.ResponseWriter, r *http.Request) {
		h.DeleteExpense(w, r, "E1")
	}).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(ms.expenses) != 1 {
		t.Error("another user's expense was deleted")
	}
}

func TestExpensesEndpoint_DeleteOwnExpense(t *testing.T) {
	ms := newMemStore()
	ms.budgets["B1"] = &domain.Budget{ID: "B1", CreatedBy: "u1", Name: "Food"}
	ms.expenses = append(ms.expenses, &domain.Expense{ID: "E1", Name: "Milk", Amount: 3.10, BudgetID: "B1"})
	notified := ""
	h := NewExpensesHandler(ms, ms, func(owner string) { notified = owner }, zerolog.Nop())

	req := httptest.NewRequest(http.MethodDelete, "/api/expenses/E1", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(func(w http.ResponseWriter, r *http.Request) {
		h.DeleteExpense(w, r, "E1")
	}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(ms.expenses) != 0 {
		t.Error("expense not deleted")
	}
	if notified != "u1" {
		t.Errorf("onChange owner = %q, want u1", notified)
	}
}

func TestBudgetsEndpoint_DeleteForeignBudget(t *testing.T) {
	ms := newMemStore()
	ms.budgets["B1"] = &domain.Budget{ID: "B1", CreatedBy: "someone-else", Name: "Food"}
	h := NewBudgetsHandler(ms, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodDelete, "/api/budgets/B1", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1"))
	rec := httptest.NewRecorder()
	authed(func(w http.ResponseWriter, r *http.Request) {
		h.DeleteBudget(w, r, "B1")
	}).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if _, ok := ms.budgets["B1"]; !ok {
		t.Error("foreign budget was deleted")
	}
}
