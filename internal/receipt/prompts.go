package receipt

import "fmt"

// buildExtractionPrompt wraps OCR text in the structured-output contract.
// The model must answer with a bare JSON array; anything else fails parsing
// downstream.
func buildExtractionPrompt(ocrText string) string {
	return fmt.Sprintf(`Extract structured expense data from the following OCR text and return a JSON array with:
- "name": Item name (properly formatted, combining broken words if needed).
- "amount": Item price (non-negative number).
- "createdAt": Date and time in ISO format ("YYYY-MM-DDTHH:MM:SSZ").

Ignore store details, cashier info, subtotal, discounts, and grand total. Only return a JSON array of individual expenses.

### Input:
"text": %q

### Output format:
[
  { "name": "Mineral Bottle", "amount": 30.00, "createdAt": "2024-12-27T15:31:00Z" },
  { "name": "Chicken B.B.Q. Pizza", "amount": 499.00, "createdAt": "2024-12-27T15:31:00Z" }
]

Return ONLY the JSON array, nothing else.
Do NOT wrap the response in code fences.
Do NOT use `+"```json"+` or any Markdown.
Output must begin with "[" and end with "]".
`, ocrText)
}
