package nlp

import (
	"context"
	"strings"

	"ledger-assistant/internal/entities"
)

// RewriteQuery turns an elliptical follow-up ("And in 2025?") into a
// standalone query using recent conversation turns. On any failure the
// original query is returned unchanged; a broken rewrite must never make a
// turn worse than no rewrite.
func (c *Client) RewriteQuery(ctx context.Context, query string, history []entities.Turn) (string, error) {
	payload := map[string]interface{}{
		"query":   query,
		"context": historyContext(history),
	}

	var resp struct {
		Rewritten string `json:"rewritten_query"`
	}
	if err := c.postJSON(ctx, "rewrite-query", "/api/ai/rewrite-query", payload, &resp); err != nil {
		return query, err
	}

	rewritten := strings.TrimSpace(resp.Rewritten)
	if rewritten == "" {
		return query, nil
	}
	return rewritten, nil
}
