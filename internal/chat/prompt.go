package chat

import (
	"fmt"
	"strings"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
)

// buildChatPrompt assembles the model context: profile snapshot, then the
// stored history in chronological order, then the new message. History
// arrives newest-first from the store and is reversed here.
func buildChatPrompt(user *domain.User, history []*domain.ChatTurn, message string) string {
	var b strings.Builder

	b.WriteString("You are Finyx AI, a personalized financial assistant.\n\n")

	name := user.Name
	if name == "" {
		name = "User"
	}
	prefs := user.Preferences
	if prefs == "" {
		prefs = "{}"
	}
	fmt.Fprintf(&b, "User Profile:\nName: %s\nPreferences: %s\n\n", name, prefs)

	if len(history) > 0 {
		b.WriteString("Chat History:\n")
		for i := len(history) - 1; i >= 0; i-- {
			turn := history[i]
			fmt.Fprintf(&b, "User: %s\nAI: %s\n\n", turn.Message, turn.Response)
		}
	}

	fmt.Fprintf(&b, "Current Message: %s\n\n", message)
	b.WriteString("Respond in a helpful, personalized way based on the user's profile and chat history.")

	return b.String()
}
