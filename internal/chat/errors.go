package chat

import "errors"

var (
	// ErrAuthMismatch means the requested user id is not the authenticated
	// caller. Checked before any data access.
	ErrAuthMismatch = errors.New("chat: user id does not match authenticated caller")

	// ErrModelInvocation wraps a failed model call. Surfaced to the caller
	// as an apology rather than retried.
	ErrModelInvocation = errors.New("chat: model invocation failed")
)

// ApologyMessage is what the user sees when the model call fails.
const ApologyMessage = "Sorry, I couldn't process your message at this moment. Please try again later."
