package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/ai"
	"github.com/Kai-Chan-UWU/Finyx-Finance-Manager/internal/domain"
)

// Extractor turns raw OCR text into line items through one model call.
type Extractor struct {
	gen ai.Generator
	log zerolog.Logger
}

func NewExtractor(gen ai.Generator, log zerolog.Logger) *Extractor {
	return &Extractor{gen: gen, log: log}
}

// Extract sends the OCR text to the model and parses the structured answer.
// A transport failure propagates as-is; a malformed answer is
// ErrExtractionParse and is logged with the raw response for diagnosis.
func (e *Extractor) Extract(ctx context.Context, ocrText string) ([]domain.LineItem, error) {
	if strings.TrimSpace(ocrText) == "" {
		return nil, ErrEmptyText
	}

	raw, err := e.gen.Generate(ctx, buildExtractionPrompt(ocrText))
	if err != nil {
		return nil, fmt.Errorf("Extract: model call: %w", err)
	}

	items, err := parseLineItems(sanitizeModelJSON(raw))
	if err != nil {
		e.log.Error().Err(err).Str("raw_response", raw).Msg("Extraction response did not match contract")
		return nil, err
	}

	return items, nil
}

// sanitizeModelJSON strips Markdown fences and surrounding junk the model
// sometimes emits despite instructions.
func sanitizeModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there's still junk around the JSON array, keep only the first '['
	// through the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func parseLineItems(clean string) ([]domain.LineItem, error) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	arr, ok := parsed.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %T, want array", ErrExtractionParse, parsed)
	}

	items := make([]domain.LineItem, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, want object", ErrExtractionParse, i, el)
		}

		name, ok := obj["name"].(string)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: element %d has no usable name", ErrExtractionParse, i)
		}

		amount, err := coerceAmount(obj["amount"])
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrExtractionParse, i, err)
		}

		createdAt, err := coerceCreatedAt(obj["createdAt"])
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrExtractionParse, i, err)
		}

		items = append(items, domain.LineItem{
			Name:      strings.TrimSpace(name),
			Amount:    amount,
			CreatedAt: createdAt,
		})
	}

	return items, nil
}

// coerceAmount accepts JSON numbers and numeric strings; anything else, or a
// negative value, violates the output contract.
func coerceAmount(v interface{}) (float64, error) {
	var amount float64
	switch val := v.(type) {
	case float64:
		amount = val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("amount %q is not numeric", val)
		}
		amount = f
	default:
		return 0, fmt.Errorf("amount has type %T, want number", v)
	}

	if amount < 0 {
		return 0, fmt.Errorf("amount %v is negative", amount)
	}

	return amount, nil
}

// coerceCreatedAt parses the ISO-8601 timestamp. A missing timestamp falls
// back to now; a present-but-garbled one is a contract violation.
func coerceCreatedAt(v interface{}) (time.Time, error) {
	if v == nil {
		return time.Now().UTC(), nil
	}

	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("createdAt has type %T, want string", v)
	}
	if strings.TrimSpace(s) == "" {
		return time.Now().UTC(), nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("createdAt %q is not ISO-8601: %v", s, err)
	}

	return t, nil
}
