package receipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
)

// Result is the boundary object surfaced to callers. Expected validation
// failures land in Message rather than panicking upward; Err keeps the
// classified cause for logging and HTTP status mapping.
type Result struct {
	Success  bool              `json:"success"`
	Expenses []*domain.Expense `json:"expenses,omitempty"`
	Message  string            `json:"message,omitempty"`
	Err      error             `json:"-"`
}

// Service composes extraction and persistence behind the
// ProcessReceipt boundary.
type Service struct {
	extractor *Extractor
	persister *Persister
	log       zerolog.Logger

	// afterPersist runs detached bookkeeping (preferences snapshot refresh)
	// after a successful batch. Optional.
	afterPersist func(ownerID string)
}

func NewService(extractor *Extractor, persister *Persister, log zerolog.Logger) *Service {
	return &Service{extractor: extractor, persister: persister, log: log}
}

// OnPersist registers a hook invoked with the owner id after each successful
// persist. The hook must not block; wire it to the background runner.
func (s *Service) OnPersist(fn func(ownerID string)) {
	s.afterPersist = fn
}

// ProcessReceipt runs extraction, validation and persistence for one
// receipt's OCR text. Each stage owns exactly one failure boundary; nothing
// here retries.
func (s *Service) ProcessReceipt(ctx context.Context, ownerID, budgetID, ocrText string) Result {
	items, err := s.extractor.Extract(ctx, ocrText)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyText):
			return Result{Message: "No text was extracted from the receipt", Err: err}
		case errors.Is(err, ErrExtractionParse):
			return Result{Message: "Failed to parse AI response", Err: err}
		default:
			s.log.Error().Err(err).Msg("Receipt extraction failed")
			return Result{
				Message: "Sorry, I couldn't process the receipt at this moment. Please try again later.",
				Err:     err,
			}
		}
	}

	expenses, err := s.persister.Persist(ctx, ownerID, budgetID, items)
	if err != nil {
		if errors.Is(err, ErrInvalidBudget) {
			return Result{Message: fmt.Sprintf("Invalid budget ID: %s", budgetID), Err: err}
		}
		s.log.Error().Err(err).Str("budget_id", budgetID).Msg("Receipt persistence failed")
		return Result{Message: "Failed to save expenses", Err: err}
	}

	if s.afterPersist != nil {
		s.afterPersist(ownerID)
	}

	return Result{Success: true, Expenses: expenses}
}
