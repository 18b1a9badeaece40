package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ai"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/api/handlers"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/api/middleware"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/auth"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/chat"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/config"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/gcsstore"
	infraBQ "github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/infra/bigquery"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/imaging"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/logger"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ocr"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/prefs"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/receipt"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/tasks"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Storage and model clients, constructed once and passed down.
	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	var archive gcsstore.ImageArchive
	if cfg.Bucket != "" {
		gcsArchive, err := gcsstore.NewArchive(ctx, cfg.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create image archive")
		}
		defer gcsArchive.Close()
		archive = gcsArchive
	} else {
		log.Warn().Msg("No GCS bucket configured - receipt image uploads will be disabled")
	}

	generator, err := ai.NewGeminiGenerator(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	// Background runner for prunes and snapshot refreshes.
	runner := tasks.NewRunner(100, 5, logger.WithComponent(log, "tasks"))

	refresher := prefs.NewRefresher(repo, repo, repo, repo, logger.WithComponent(log, "prefs"))
	refreshPrefs := func(ownerID string) {
		runner.Submit(tasks.Task{
			Name: "prefs-refresh",
			Run: func(ctx context.Context) error {
				return refresher.Refresh(ctx, ownerID)
			},
		})
	}

	// Receipt processing.
	extractor := receipt.NewExtractor(generator, logger.WithComponent(log, "extractor"))
	persister := receipt.NewPersister(repo, repo, logger.WithComponent(log, "persister"))
	receiptService := receipt.NewService(extractor, persister, logger.WithComponent(log, "receipts"))
	receiptService.OnPersist(refreshPrefs)

	adapter := ocr.NewAdapter(ocr.NewTesseractFactory(), imaging.Normalize, cfg.OCRLanguage, logger.WithComponent(log, "ocr"))
	scanPipeline := receipt.NewScanPipeline(archive, adapter, receiptService, nil)

	// Conversational memory and orchestration.
	memory := chat.NewMemory(repo, repo, runner, cfg.HistoryLimit, logger.WithComponent(log, "chat"))
	memory.OnProvision(refreshPrefs)
	chatService := chat.NewService(memory, generator, logger.WithComponent(log, "chat"))

	// Handlers.
	receiptsHandler := handlers.NewReceiptsHandler(receiptService, scanPipeline, archive, log)
	chatHandler := handlers.NewChatHandler(chatService, log)
	budgetsHandler := handlers.NewBudgetsHandler(repo, refreshPrefs, log)
	expensesHandler := handlers.NewExpensesHandler(repo, repo, refreshPrefs, log)
	incomesHandler := handlers.NewIncomesHandler(repo, refreshPrefs, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/receipts/process", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			receiptsHandler.ProcessReceipt(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/receipts/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if archive == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Receipt uploads are disabled")
			return
		}
		receiptsHandler.ScanReceipt(w, r)
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.SendMessage(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budgets", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			budgetsHandler.ListBudgets(w, r)
		case http.MethodPost:
			budgetsHandler.CreateBudget(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budgets/", func(w http.ResponseWriter, r *http.Request) {
		budgetID := strings.TrimPrefix(r.URL.Path, "/api/budgets/")
		if budgetID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Budget ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			budgetsHandler.DeleteBudget(w, r, budgetID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/expenses", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			expensesHandler.ListExpenses(w, r)
		case http.MethodPost:
			expensesHandler.CreateExpense(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/expenses/", func(w http.ResponseWriter, r *http.Request) {
		expenseID := strings.TrimPrefix(r.URL.Path, "/api/expenses/")
		if expenseID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Expense ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			expensesHandler.DeleteExpense(w, r, expenseID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/incomes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			incomesHandler.ListIncomes(w, r)
		case http.MethodPost:
			incomesHandler.CreateIncome(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	verifier := auth.NewVerifier(cfg.JWTSecret)
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(verifier)(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight prunes and snapshot refreshes finish.
	if err := runner.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping background runner")
	}

	log.Info().Msg("Server exited")
}
