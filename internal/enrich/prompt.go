package enrich

import (
	"fmt"
	"strings"

	"github.com/nlozovan/bankfeed/internal/ledger"
)

// buildCategoryPrompt renders the team's taxonomy plus assignment rules,
// formatted for LLM consumption.
func buildCategoryPrompt(categories []ledger.Category) (string, error) {
	if len(categories) == 0 {
		return "", fmt.Errorf("buildCategoryPrompt: no categories available")
	}

	var b strings.Builder
	b.WriteString("Use ONLY the following category slugs:\n\n")
	for _, c := range categories {
		b.WriteString("  - " + c.Slug + " (" + c.Name + ")\n")
	}
	b.WriteString("\nCATEGORY ASSIGNMENT RULES:\n")
	b.WriteString("1. \"category\" must be EXACTLY one of the slugs shown above.\n")
	b.WriteString("2. If no slug clearly fits a transaction, use null for that transaction.\n")
	b.WriteString("3. Never invent new slugs.\n")

	return b.String(), nil
}

// buildSuggestionPrompt asks for a strict JSON array mapping transaction ids
// to category slugs.
func buildSuggestionPrompt(txs []ledger.Transaction, catPrompt string) string {
	var b strings.Builder
	b.WriteString("You are a transaction categorizer for a business ledger.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Suggest a category for EACH transaction listed below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects with fields:\n")
	b.WriteString("  - \"id\": string (the transaction id, unchanged)\n")
	b.WriteString("  - \"category\": string slug or null\n\n")
	b.WriteString(catPrompt)
	b.WriteString("\nTransactions:\n")
	for _, tx := range txs {
		fmt.Fprintf(&b, "  - id=%s name=%q amount=%.2f %s\n", tx.ID, tx.Name, tx.Amount, tx.Currency)
	}
	b.WriteString("\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
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

	// Keep only from the first '[' to the last ']' if junk remains.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
