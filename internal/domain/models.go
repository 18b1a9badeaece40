package domain

import (
	"time"
)

// Budget is a spending envelope owned by a single user. All mutations must
// be performed by the owner; deleting a budget cascades to its expenses.
type Budget struct {
	ID        string  `json:"id"`
	CreatedBy string  `json:"createdBy"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Amount    float64 `json:"amount"`
}

// Expense is one itemized spend attached to a budget. Expenses are only ever
// inserted or deleted, never updated in place.
type Expense struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
	BudgetID  string    `json:"budgetId"`
}

// Income is a recurring or one-off income source, used only for the
// preferences snapshot and dashboard pass-through.
type Income struct {
	ID        string  `json:"id"`
	CreatedBy string  `json:"createdBy"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
}

// User is the lazily provisioned application record behind an identity
// provider account. Preferences holds a JSON snapshot of the user's
// financial data, rebuilt wholesale by the prefs package.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Preferences string `json:"preferences"`
}

// ChatTurn is one stored message/response pair. At most HistoryLimit turns
// per user survive pruning.
type ChatTurn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// LineItem is one itemized entry extracted from a receipt by the model.
// It is ephemeral: validated, converted into an Expense row, then discarded.
type LineItem struct {
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryLimit is the retention bound on stored chat turns per user.
const HistoryLimit = 10
