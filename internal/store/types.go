package store

import (
	"time"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
)

// Row structs mirror the finyx dataset schema. They exist so the BigQuery
// tag mapping stays out of the domain package; repositories convert at the
// boundary.

type BudgetRow struct {
	ID        string  `bigquery:"id"`
	CreatedBy string  `bigquery:"created_by"`
	Name      string  `bigquery:"name"`
	Icon      string  `bigquery:"icon"`
	Amount    float64 `bigquery:"amount"`
}

type ExpenseRow struct {
	ID        string    `bigquery:"id"`
	Name      string    `bigquery:"name"`
	Amount    float64   `bigquery:"amount"`
	CreatedAt time.Time `bigquery:"created_at"`
	BudgetID  string    `bigquery:"budget_id"`
}

type IncomeRow struct {
	ID        string  `bigquery:"id"`
	CreatedBy string  `bigquery:"created_by"`
	Name      string  `bigquery:"name"`
	Amount    float64 `bigquery:"amount"`
}

type UserRow struct {
	ID          string `bigquery:"id"`
	Email       string `bigquery:"email"`
	Name        string `bigquery:"name"`
	Preferences string `bigquery:"preferences"`
}

type ChatTurnRow struct {
	ID        string    `bigquery:"id"`
	UserID    string    `bigquery:"user_id"`
	Message   string    `bigquery:"message"`
	Response  string    `bigquery:"response"`
	Timestamp time.Time `bigquery:"timestamp"`
}

func (r *BudgetRow) Domain() *domain.Budget {
	return &domain.Budget{ID: r.ID, CreatedBy: r.CreatedBy, Name: r.Name, Icon: r.Icon, Amount: r.Amount}
}

func (r *ExpenseRow) Domain() *domain.Expense {
	return &domain.Expense{ID: r.ID, Name: r.Name, Amount: r.Amount, CreatedAt: r.CreatedAt, BudgetID: r.BudgetID}
}

func (r *IncomeRow) Domain() *domain.Income {
	return &domain.Income{ID: r.ID, CreatedBy: r.CreatedBy, Name: r.Name, Amount: r.Amount}
}

func (r *UserRow) Domain() *domain.User {
	return &domain.User{ID: r.ID, Email: r.Email, Name: r.Name, Preferences: r.Preferences}
}

func (r *ChatTurnRow) Domain() *domain.ChatTurn {
	return &domain.ChatTurn{ID: r.ID, UserID: r.UserID, Message: r.Message, Response: r.Response, Timestamp: r.Timestamp}
}
