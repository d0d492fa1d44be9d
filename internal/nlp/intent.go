package nlp

import (
	"context"

	"ledger-assistant/internal/entities"
)

// IntentResult is the classifier verdict after coercion onto the closed
// intent set.
type IntentResult struct {
	Intent     entities.Intent
	Confidence entities.Confidence
	Reasoning  string
}

type historyEntry struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

func historyContext(history []entities.Turn) []historyEntry {
	if len(history) == 0 {
		return nil
	}
	out := make([]historyEntry, 0, len(history))
	for _, t := range history {
		out = append(out, historyEntry{Query: t.Query, Response: t.Response})
	}
	return out
}

// ClassifyIntent asks the collaborator which question category the query
// belongs to. Any label outside the known set is coerced to general_query
// with low confidence so the engine's dispatch stays total.
func (c *Client) ClassifyIntent(ctx context.Context, query string, history []entities.Turn) (*IntentResult, error) {
	payload := map[string]interface{}{"query": query}
	if hc := historyContext(history); hc != nil {
		payload["context"] = hc
	}

	var resp struct {
		Intent     string `json:"intent"`
		Confidence string `json:"confidence"`
		Reasoning  string `json:"reasoning"`
	}
	if err := c.postJSON(ctx, "parse-intent", "/api/ai/parse-intent", payload, &resp); err != nil {
		return nil, err
	}

	intent, known := entities.ParseIntent(resp.Intent)
	confidence := entities.ParseConfidence(resp.Confidence)
	if !known {
		c.logger.Warn("unknown intent label coerced", map[string]interface{}{
			"label": resp.Intent,
		})
		intent = entities.IntentGeneralQuery
		confidence = entities.ConfidenceLow
	}

	return &IntentResult{Intent: intent, Confidence: confidence, Reasoning: resp.Reasoning}, nil
}
