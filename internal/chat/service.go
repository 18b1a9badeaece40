package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ai"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/auth"
)

// Service orchestrates one chat turn: provision the user, load bounded
// history, call the model once, store the turn.
type Service struct {
	memory *Memory
	gen    ai.Generator
	log    zerolog.Logger
}

func NewService(memory *Memory, gen ai.Generator, log zerolog.Logger) *Service {
	return &Service{memory: memory, gen: gen, log: log}
}

// SendMessage handles a chat turn for userID on behalf of caller. The
// identity check runs before any data access: a mismatched caller never
// provisions a user, reads history, or invokes the model.
func (s *Service) SendMessage(ctx context.Context, caller auth.Identity, userID, message string) (string, error) {
	if userID != caller.UserID {
		return "", ErrAuthMismatch
	}

	user, err := s.memory.EnsureUser(ctx, caller.UserID, caller.Email, "")
	if err != nil {
		return "", fmt.Errorf("SendMessage: %w", err)
	}

	history := s.memory.History(ctx, userID)
	prompt := buildChatPrompt(user, history, message)

	response, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Chat model call failed")
		return "", fmt.Errorf("SendMessage: %w: %v", ErrModelInvocation, err)
	}
	response = strings.TrimSpace(response)

	if err := s.memory.Record(ctx, userID, message, response); err != nil {
		return "", fmt.Errorf("SendMessage: %w", err)
	}

	return response, nil
}
