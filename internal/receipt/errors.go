package receipt

import "errors"

var (
	// ErrExtractionParse means the model's response, after sanitization, was
	// not a valid JSON array of line items. Terminal for the attempt: a paid
	// inference call is not retried on a malformed answer.
	ErrExtractionParse = errors.New("receipt: cannot parse extraction response")

	// ErrInvalidBudget means the target budget does not exist or is not
	// visible to the caller.
	ErrInvalidBudget = errors.New("receipt: invalid budget")

	// ErrEmptyText means there was no OCR text to extract from.
	ErrEmptyText = errors.New("receipt: empty OCR text")
)
