package nlp

import (
	"context"
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/entities"
)

// entitySchema re-validates the extractor's loosely-typed JSON before it
// enters the pipeline. Year/quarter/month accept both scalar and list
// shapes; unknown keys are allowed and preserved downstream.
const entitySchema = `{
	"type": "object",
	"properties": {
		"properties": {"type": "array", "items": {"type": "string"}},
		"property": {"type": "string"},
		"tenants": {"type": "array", "items": {"type": "string"}},
		"tenant": {"type": "string"},
		"year": {"type": ["string", "number", "array", "null"]},
		"quarter": {"type": ["string", "array", "null"]},
		"month": {"type": ["string", "array", "null"]},
		"periods": {"type": "array", "items": {"type": "string"}},
		"operation": {"type": "string"},
		"metric": {"type": "string"},
		"sub_queries": {"type": "array"}
	}
}`

var entitySchemaLoader = gojsonschema.NewStringLoader(entitySchema)

// ExtractEntities asks the collaborator to pull structured parameters out of
// the query. Output that fails schema validation, or a failed call, falls
// back to deterministic regex extraction so the turn never dies here.
func (c *Client) ExtractEntities(ctx context.Context, query string, intent entities.Intent, history []entities.Turn) (entities.Bag, error) {
	payload := map[string]interface{}{
		"query":  query,
		"intent": string(intent),
	}
	if hc := historyContext(history); hc != nil {
		payload["context"] = hc
	}

	var resp struct {
		Entities json.RawMessage `json:"entities"`
	}
	if err := c.postJSON(ctx, "extract-entities", "/api/ai/extract-entities", payload, &resp); err != nil {
		c.logger.Warn("extraction call failed, using regex fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return FallbackExtract(query), err
	}

	bag, err := c.decodeEntities(resp.Entities)
	if err != nil {
		c.logger.Warn("extraction output rejected, using regex fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return FallbackExtract(query), errors.NewExtractionFailureError(err)
	}
	bag.RawQuery = query
	return bag, nil
}

func (c *Client) decodeEntities(raw json.RawMessage) (entities.Bag, error) {
	var bag entities.Bag
	if len(raw) == 0 {
		return bag, errors.NewExtractionFailureError(errEmptyEntities)
	}

	result, err := gojsonschema.Validate(entitySchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return bag, err
	}
	if !result.Valid() {
		return bag, schemaError(result)
	}

	if err := json.Unmarshal(raw, &bag); err != nil {
		return bag, err
	}
	return bag, nil
}
