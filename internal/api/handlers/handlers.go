package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/api/middleware"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/chat"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/gcsstore"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ocr"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/receipt"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/store"
)

// maxUploadBytes caps receipt uploads. Phone camera JPEGs sit well under
// this.
const maxUploadBytes = 10 << 20

// ReceiptsHandler handles receipt processing endpoints.
type ReceiptsHandler struct {
	service  *receipt.Service
	pipeline *receipt.Pipeline
	archive  gcsstore.ImageArchive
	log      zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(service *receipt.Service, pipeline *receipt.Pipeline, archive gcsstore.ImageArchive, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		service:  service,
		pipeline: pipeline,
		archive:  archive,
		log:      log,
	}
}

// ProcessReceipt handles POST /api/receipts/process
// The client did its own OCR and sends the raw text.
func (h *ReceiptsHandler) ProcessReceipt(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		BudgetID string `json:"budgetId"`
		OCRText  string `json:"ocrText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BudgetID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "budgetId is required")
		return
	}

	result := h.service.ProcessReceipt(r.Context(), identity.UserID, req.BudgetID, req.OCRText)
	middleware.WriteJSON(w, resultStatus(result), result)
}

// ScanReceipt handles POST /api/receipts/scan
// Accepts a multipart image upload, archives it, then runs the full
// image-to-expenses pipeline.
func (h *ReceiptsHandler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	budgetID := r.FormValue("budgetId")
	if budgetID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "budgetId is required")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read uploaded image")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read uploaded image")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	gcsURI, err := h.archive.Save(ctx, header.Filename, contentType, data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to archive receipt image")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store receipt image")
		return
	}

	state := &receipt.ScanState{
		OwnerID:  identity.UserID,
		BudgetID: budgetID,
		GCSURI:   gcsURI,
	}
	if err := h.pipeline.Execute(ctx, state); err != nil {
		if errors.Is(err, ocr.ErrEmptyResult) {
			middleware.WriteError(w, http.StatusUnprocessableEntity, "No text was extracted from the receipt")
			return
		}
		h.log.Error().Err(err).Str("gcs_uri", gcsURI).Msg("Scan pipeline failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process the receipt")
		return
	}

	middleware.WriteJSON(w, resultStatus(state.Result), state.Result)
}

// resultStatus maps a processing result onto an HTTP status.
func resultStatus(result receipt.Result) int {
	if result.Success {
		return http.StatusCreated
	}
	switch {
	case errors.Is(result.Err, receipt.ErrInvalidBudget):
		return http.StatusNotFound
	case errors.Is(result.Err, receipt.ErrEmptyText), errors.Is(result.Err, receipt.ErrExtractionParse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// ChatHandler handles the assistant endpoint.
type ChatHandler struct {
	service *chat.Service
	log     zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service *chat.Service, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{service: service, log: log}
}

// SendMessage handles POST /api/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		UserID  string `json:"userId"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Missing message")
		return
	}

	response, err := h.service.SendMessage(r.Context(), identity, req.UserID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrAuthMismatch):
			middleware.WriteError(w, http.StatusForbidden, "User ID mismatch")
		case errors.Is(err, chat.ErrModelInvocation):
			middleware.WriteError(w, http.StatusBadGateway, chat.ApologyMessage)
		default:
			h.log.Error().Err(err).Msg("Chat request failed")
			middleware.WriteError(w, http.StatusInternalServerError, "AI response failed")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"response": response})
}

// BudgetsHandler handles budget CRUD endpoints.
type BudgetsHandler struct {
	repo     store.BudgetRepository
	onChange func(ownerID string)
	log      zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler. onChange runs after
// every successful mutation; wire it to the snapshot refresher.
func NewBudgetsHandler(repo store.BudgetRepository, onChange func(ownerID string), log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{repo: repo, onChange: onChange, log: log}
}

// ListBudgets handles GET /api/budgets
func (h *BudgetsHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	budgets, err := h.repo.ListBudgets(r.Context(), identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list budgets")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list budgets")
		return
	}
	if budgets == nil {
		budgets = []*domain.Budget{}
	}
	middleware.WriteJSON(w, http.StatusOK, budgets)
}

// CreateBudget handles POST /api/budgets
func (h *BudgetsHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Name   string  `json:"name"`
		Icon   string  `json:"icon"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Amount < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	budget := &domain.Budget{
		ID:        uuid.NewString(),
		CreatedBy: identity.UserID,
		Name:      req.Name,
		Icon:      req.Icon,
		Amount:    req.Amount,
	}
	if err := h.repo.InsertBudget(r.Context(), budget); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create budget")
		return
	}

	h.notify(identity.UserID)
	middleware.WriteJSON(w, http.StatusCreated, budget)
}

// DeleteBudget handles DELETE /api/budgets/{id}
func (h *BudgetsHandler) DeleteBudget(w http.ResponseWriter, r *http.Request, budgetID string) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.repo.DeleteBudget(r.Context(), budgetID, identity.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Budget not found")
			return
		}
		h.log.Error().Err(err).Str("budget_id", budgetID).Msg("Failed to delete budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete budget")
		return
	}

	h.notify(identity.UserID)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *BudgetsHandler) notify(ownerID string) {
	if h.onChange != nil {
		h.onChange(ownerID)
	}
}

// ExpensesHandler handles expense endpoints.
type ExpensesHandler struct {
	expenses store.ExpenseRepository
	budgets  store.BudgetRepository
	onChange func(ownerID string)
	log      zerolog.Logger
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(expenses store.ExpenseRepository, budgets store.BudgetRepository, onChange func(ownerID string), log zerolog.Logger) *ExpensesHandler {
	return &ExpensesHandler{expenses: expenses, budgets: budgets, onChange: onChange, log: log}
}

// ListExpenses handles GET /api/expenses and GET /api/expenses?budgetId=...
func (h *ExpensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var (
		expenses []*domain.Expense
		err      error
	)
	if budgetID := r.URL.Query().Get("budgetId"); budgetID != "" {
		// Scope check before exposing another budget's expenses.
		if _, err := h.budgets.GetBudget(r.Context(), budgetID, identity.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, "Budget not found")
				return
			}
			h.log.Error().Err(err).Msg("Failed to check budget")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
			return
		}
		expenses, err = h.expenses.ListExpensesByBudget(r.Context(), budgetID)
	} else {
		expenses, err = h.expenses.ListExpensesForOwner(r.Context(), identity.UserID)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []*domain.Expense{}
	}
	middleware.WriteJSON(w, http.StatusOK, expenses)
}

// CreateExpense handles POST /api/expenses for manually entered expenses.
func (h *ExpensesHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		BudgetID string  `json:"budgetId"`
		Name     string  `json:"name"`
		Amount   float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BudgetID == "" || req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "budgetId and name are required")
		return
	}
	if req.Amount < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	if _, err := h.budgets.GetBudget(r.Context(), req.BudgetID, identity.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Budget not found")
			return
		}
		h.log.Error().Err(err).Msg("Failed to check budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create expense")
		return
	}

	expense := &domain.Expense{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Amount:    req.Amount,
		CreatedAt: time.Now().UTC(),
		BudgetID:  req.BudgetID,
	}
	if err := h.expenses.InsertExpenses(r.Context(), []*domain.Expense{expense}); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create expense")
		return
	}

	h.notify(identity.UserID)
	middleware.WriteJSON(w, http.StatusCreated, expense)
}

// DeleteExpense handles DELETE /api/expenses/{id}
func (h *ExpensesHandler) DeleteExpense(w http.ResponseWriter, r *http.Request, expenseID string) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.expenses.DeleteExpense(r.Context(), expenseID, identity.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Expense not found")
			return
		}
		h.log.Error().Err(err).Str("expense_id", expenseID).Msg("Failed to delete expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete expense")
		return
	}

	h.notify(identity.UserID)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ExpensesHandler) notify(ownerID string) {
	if h.onChange != nil {
		h.onChange(ownerID)
	}
}

// IncomesHandler handles income endpoints.
type IncomesHandler struct {
	repo     store.IncomeRepository
	onChange func(ownerID string)
	log      zerolog.Logger
}

// NewIncomesHandler creates a new incomes handler.
func NewIncomesHandler(repo store.IncomeRepository, onChange func(ownerID string), log zerolog.Logger) *IncomesHandler {
	return &IncomesHandler{repo: repo, onChange: onChange, log: log}
}

// ListIncomes handles GET /api/incomes
func (h *IncomesHandler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	incomes, err := h.repo.ListIncomes(r.Context(), identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list incomes")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list incomes")
		return
	}
	if incomes == nil {
		incomes = []*domain.Income{}
	}
	middleware.WriteJSON(w, http.StatusOK, incomes)
}

// CreateIncome handles POST /api/incomes
func (h *IncomesHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Amount < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	income := &domain.Income{
		ID:        uuid.NewString(),
		CreatedBy: identity.UserID,
		Name:      req.Name,
		Amount:    req.Amount,
	}
	if err := h.repo.InsertIncome(r.Context(), income); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert income")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create income")
		return
	}

	if h.onChange != nil {
		h.onChange(identity.UserID)
	}
	middleware.WriteJSON(w, http.StatusCreated, income)
}
