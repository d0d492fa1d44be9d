package nlp

import (
	"context"
	"strings"

	"ledger-assistant/internal/entities"
)

// Synthesize asks the collaborator to phrase a computed result as prose.
// The numbers come from the query engine; the collaborator only words them.
// Callers fall back to the deterministic template formatter on error.
func (c *Client) Synthesize(ctx context.Context, query string, result *entities.QueryResult) (string, error) {
	payload := map[string]interface{}{
		"query":  query,
		"result": result,
	}

	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.postJSON(ctx, "synthesize", "/api/ai/synthesize", payload, &resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Answer), nil
}
